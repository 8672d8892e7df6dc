// Copyright (c) 2026 iCode Portal Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// iCode Portal — Historical Backfill Command
//
// Standalone CLI tool that replays historical notification emails from the
// monitored mailbox through the ingestion pipeline. Intended for seeding
// data on new deployments and for recovering after an outage.
//
// Usage:
//
//	go run ./cmd/backfill/ [--label bh-notifications] [--max 500] [--no-dedup]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/icodeportal/ingestion/internal/backfill"
	"github.com/icodeportal/ingestion/internal/config"
	"github.com/icodeportal/ingestion/internal/dedup"
	"github.com/icodeportal/ingestion/internal/gmail"
	"github.com/icodeportal/ingestion/internal/ingest"
	"github.com/icodeportal/ingestion/internal/parse"
	"github.com/icodeportal/ingestion/internal/store"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	labelFlag := flag.String("label", "", "Gmail label to replay (default: configured label)")
	maxFlag := flag.Int("max", 500, "Maximum number of messages to replay")
	noDedupFlag := flag.Bool("no-dedup", false, "Skip the Redis dedup filter and rely on the store check only")
	flag.Parse()

	if *maxFlag <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --max must be positive\n\n")
		flag.Usage()
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	label := *labelFlag
	if label == "" {
		label = cfg.Gmail.Label
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	regStore, err := store.NewStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise registration store", "error", err)
		os.Exit(1)
	}

	// --- Dedup Filter (optional) ---
	var filter backfill.Deduper
	if !*noDedupFlag {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		filter = dedup.NewFilter(rdb)
	}

	// --- Gmail Client + Pipeline ---
	mailbox := gmail.NewClient(ctx, gmail.Credentials{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		RefreshToken: cfg.Gmail.RefreshToken,
	})

	policy, err := parse.PolicyFromConfig(cfg.Cost.Policy, cfg.Cost.DailyRate, cfg.Cost.HourlyRate, cfg.Cost.WholeDayHours)
	if err != nil {
		slog.Error("invalid cost policy", "error", err)
		os.Exit(1)
	}

	coordinator := ingest.NewCoordinator(ingest.Config{
		Source: mailbox,
		Store:  regStore,
		Parser: parse.NewParser(parse.DefaultLibrary()),
		Policy: policy,
	})

	// --- Run Backfill ---
	runner := backfill.NewRunner(backfill.RunnerConfig{
		Lister:    mailbox,
		Processor: coordinator,
		Dedup:     filter,
	})

	result, err := runner.Run(ctx, label, *maxFlag)
	if err != nil {
		slog.Error("backfill failed", "error", err)
		os.Exit(1)
	}

	slog.Info("backfill summary",
		"label", label,
		"listed", result.Listed,
		"persisted", result.Persisted,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"elapsed", result.Elapsed,
	)
}
