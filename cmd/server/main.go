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

// iCode Portal — Ingestion Service
//
// Entry point for the Go ingestion service. It:
//  1. Loads configuration from config.yaml
//  2. Connects to PostgreSQL and Redis
//  3. Builds the Gmail client and the parsing pipeline
//  4. Registers a Gmail push watch and keeps it renewed
//  5. Serves the Pub/Sub webhook and the portal API
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/icodeportal/ingestion/internal/api"
	"github.com/icodeportal/ingestion/internal/auth"
	"github.com/icodeportal/ingestion/internal/config"
	"github.com/icodeportal/ingestion/internal/dedup"
	"github.com/icodeportal/ingestion/internal/gmail"
	"github.com/icodeportal/ingestion/internal/ingest"
	"github.com/icodeportal/ingestion/internal/parse"
	"github.com/icodeportal/ingestion/internal/queue"
	"github.com/icodeportal/ingestion/internal/store"
	"github.com/icodeportal/ingestion/internal/watch"
	"github.com/icodeportal/ingestion/internal/webhook"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting iCode Portal ingestion service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"label", cfg.Gmail.Label,
		"cost_policy", cfg.Cost.Policy,
		"watch_renew_interval", cfg.WatchRenewInterval,
	)

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

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)

	publisher := queue.NewPublisher(rdb, cfg.EventsQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	// --- Dedup Filter ---
	filter := dedup.NewFilter(rdb)

	// --- Registration Store (Postgres) ---
	regStore, err := store.NewStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise registration store", "error", err)
		os.Exit(1)
	}

	// --- Gmail Client ---
	mailbox := gmail.NewClient(ctx, gmail.Credentials{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		RefreshToken: cfg.Gmail.RefreshToken,
	})

	// --- Parsing Pipeline ---
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
		Events: publisher,
	})

	// --- HTTP Routes ---
	mux := http.NewServeMux()

	webhookHandler := webhook.NewHandler(mailbox, coordinator, filter, cfg.Gmail.Label, cfg.WebhookToken)
	webhookHandler.Register(mux)

	apiHandler := api.NewHandler(regStore)
	apiHandler.Register(mux, auth.NewMiddleware(cfg.ClerkSecret))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := publisher.Ping(r.Context()); err != nil {
			http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
			return
		}
		if err := pgPool.Ping(r.Context()); err != nil {
			http.Error(w, "postgres unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// --- Phase 1: Start the HTTP server BEFORE registering the watch ---
	// Pub/Sub starts pushing as soon as the watch exists.
	ready, err := webhook.Serve(ctx, cfg.Port, mux)
	if err != nil {
		slog.Error("failed to start http server", "error", err)
		os.Exit(1)
	}
	<-ready
	slog.Info("http server ready")

	// --- Phase 2: Register the Gmail watch ---
	var watcher *watch.Manager
	if cfg.Gmail.PubSubTopic != "" {
		watcher = watch.NewManager(mailbox, cfg.Gmail.Label, cfg.Gmail.PubSubTopic, cfg.WatchRenewInterval)
		if err := watcher.Start(ctx); err != nil {
			slog.Error("failed to register gmail watch", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no Pub/Sub topic configured, push notifications disabled")
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)

	if watcher != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
		watcher.Stop(stopCtx)
		stopCancel()
	}

	cancel() // stops the HTTP server and background goroutines
	rdb.Close()
	pgPool.Close()

	slog.Info("ingestion service stopped")
}
