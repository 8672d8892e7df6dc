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

// Package backfill replays historical notification emails through the
// ingestion pipeline. It lists every message under the watched label and
// hands the unseen ones to the coordinator, which keeps the run idempotent:
// already-persisted emails are skipped at the store, not re-inserted.
package backfill

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/icodeportal/ingestion/internal/ingest"
	"github.com/icodeportal/ingestion/internal/models"
)

// Lister enumerates message ids under a label.
type Lister interface {
	ListMessageIDs(ctx context.Context, label string, maxResults int) ([]string, error)
}

// Processor runs one message through the ingestion pipeline.
type Processor interface {
	ProcessEmail(ctx context.Context, sourceID string) (*models.Registration, error)
}

// Deduper filters message ids processed earlier in overlapping runs.
// Optional; the store-level idempotency check is the real guard.
type Deduper interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
}

// Result summarises a completed backfill run.
type Result struct {
	Listed    int
	Persisted int
	Skipped   int
	Errors    int
	Elapsed   time.Duration
}

// Runner performs historical email backfill.
type Runner struct {
	lister    Lister
	processor Processor
	dedup     Deduper
	delay     time.Duration // pause between messages to avoid API throttling
}

// RunnerConfig holds dependencies for the backfill runner.
type RunnerConfig struct {
	Lister    Lister
	Processor Processor
	Dedup     Deduper
	Delay     time.Duration
}

// NewRunner creates a backfill runner.
func NewRunner(cfg RunnerConfig) *Runner {
	delay := cfg.Delay
	if delay == 0 {
		delay = 200 * time.Millisecond
	}
	return &Runner{
		lister:    cfg.Lister,
		processor: cfg.Processor,
		dedup:     cfg.Dedup,
		delay:     delay,
	}
}

// Run replays up to max messages under the label through the pipeline.
// A source outage aborts the run; per-message parse or persist failures
// are counted and skipped.
func (r *Runner) Run(ctx context.Context, label string, max int) (*Result, error) {
	start := time.Now()

	slog.Info("starting backfill", "label", label, "max", max)

	ids, err := r.lister.ListMessageIDs(ctx, label, max)
	if err != nil {
		return nil, err
	}

	result := &Result{Listed: len(ids)}

	for i, id := range ids {
		if i > 0 {
			select {
			case <-ctx.Done():
				result.Elapsed = time.Since(start)
				return result, ctx.Err()
			case <-time.After(r.delay):
			}
		}

		if r.dedup != nil {
			isNew, err := r.dedup.IsNew(ctx, id)
			if err != nil {
				slog.Warn("dedup check failed", "error", err)
			} else if !isNew {
				result.Skipped++
				continue
			}
		}

		reg, err := r.processor.ProcessEmail(ctx, id)
		if err != nil {
			if errors.Is(err, ingest.ErrSourceUnavailable) {
				result.Elapsed = time.Since(start)
				return result, err
			}
			slog.Warn("backfill: process message failed", "message_id", id, "error", err)
			result.Errors++
			continue
		}

		if reg == nil {
			// Already persisted, quarantined, or gone.
			result.Skipped++
			continue
		}
		result.Persisted++
	}

	result.Elapsed = time.Since(start)

	slog.Info("backfill complete",
		"label", label,
		"listed", result.Listed,
		"persisted", result.Persisted,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"elapsed", result.Elapsed,
	)

	return result, nil
}
