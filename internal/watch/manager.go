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

// Package watch keeps the mailbox's Gmail push watch alive. Gmail expires
// watch registrations after about seven days, so the manager re-registers
// on an interval well inside that window. Registration is idempotent on
// Gmail's side, which keeps the loop stateless.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/icodeportal/ingestion/internal/gmail"
)

// Registrar is the Gmail surface the manager drives.
type Registrar interface {
	Watch(ctx context.Context, label, topic string) (*gmail.WatchResponse, error)
	Stop(ctx context.Context) error
}

// Manager re-registers the push watch on an interval.
type Manager struct {
	registrar Registrar
	label     string
	topic     string
	interval  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a watch manager. interval must be comfortably under
// Gmail's ~7 day watch lifetime; a day is typical.
func NewManager(registrar Registrar, label, topic string, interval time.Duration) *Manager {
	return &Manager{
		registrar: registrar,
		label:     label,
		topic:     topic,
		interval:  interval,
	}
}

// Start registers the watch immediately and launches the renewal loop.
// The initial registration failing is fatal; renewal failures are logged
// and retried on the next tick.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.register(ctx); err != nil {
		return fmt.Errorf("initial watch registration: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if err := m.register(loopCtx); err != nil {
					slog.Error("watch renewal failed", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop halts the renewal loop and tears down the watch registration.
func (m *Manager) Stop(ctx context.Context) {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	if err := m.registrar.Stop(ctx); err != nil {
		slog.Warn("watch teardown failed", "error", err)
	}
}

func (m *Manager) register(ctx context.Context) error {
	resp, err := m.registrar.Watch(ctx, m.label, m.topic)
	if err != nil {
		return err
	}

	expiry := ""
	if ms, err := strconv.ParseInt(resp.Expiration, 10, 64); err == nil {
		expiry = time.UnixMilli(ms).UTC().Format(time.RFC3339)
	}
	slog.Info("gmail watch registered",
		"label", m.label,
		"topic", m.topic,
		"history_id", resp.HistoryID,
		"expires", expiry,
	)
	return nil
}
