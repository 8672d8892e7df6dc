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

// Package webhook handles Gmail push notifications delivered through
// Cloud Pub/Sub. When the watched label receives a new message, Pub/Sub
// POSTs an envelope to the registered endpoint; the handler acks fast and
// walks recent messages through the ingestion coordinator in the
// background.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/icodeportal/ingestion/internal/ingest"
	"github.com/icodeportal/ingestion/internal/models"
)

// scanLimit bounds how many recent messages one push notification triggers
// a look at. Pub/Sub pushes arrive per history change, so the newest few
// ids always cover the change that produced the push.
const scanLimit = 10

// Lister enumerates recent message ids under the watched label.
type Lister interface {
	ListMessageIDs(ctx context.Context, label string, maxResults int) ([]string, error)
}

// Processor runs one message through the ingestion pipeline.
type Processor interface {
	ProcessEmail(ctx context.Context, sourceID string) (*models.Registration, error)
}

// Deduper filters message ids that were already handled.
type Deduper interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
}

// Handler processes Gmail push notifications and manual reprocess requests.
type Handler struct {
	lister    Lister
	processor Processor
	filter    Deduper
	label     string
	token     string // Pub/Sub verification token; empty disables the check
}

// NewHandler creates a push notification handler.
func NewHandler(lister Lister, processor Processor, filter Deduper, label, token string) *Handler {
	return &Handler{
		lister:    lister,
		processor: processor,
		filter:    filter,
		label:     label,
		token:     token,
	}
}

// Register mounts the webhook routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook/gmail", h.ServePush)
	mux.HandleFunc("POST /webhook/process-email/{id}", h.ServeProcess)
	mux.HandleFunc("GET /webhook/health", h.ServeHealth)
}

// ServePush handles Pub/Sub push deliveries.
//
// Pub/Sub expects a fast 2xx ack; anything else triggers redelivery. The
// envelope only says "something changed", so the handler lists the newest
// messages under the watched label and processes the unseen ones in the
// background.
func (h *Handler) ServePush(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && r.URL.Query().Get("token") != h.token {
		slog.Warn("push notification with bad verification token")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read push body", "error", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	push, err := ingest.DecodePushPayload(body)
	if err != nil {
		// Ack malformed payloads: redelivery will not fix them.
		slog.Warn("undecodable push payload", "error", err, "body_len", len(body))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Respond immediately — Pub/Sub expects a fast ack
	w.WriteHeader(http.StatusNoContent)

	slog.Info("push notification received",
		"email_address", push.EmailAddress,
		"history_id", push.HistoryID,
	)

	go h.scanRecent(context.Background())
}

// scanRecent walks the newest messages under the watched label through the
// coordinator, skipping ids the dedup filter has already seen.
func (h *Handler) scanRecent(ctx context.Context) {
	ids, err := h.lister.ListMessageIDs(ctx, h.label, scanLimit)
	if err != nil {
		slog.Error("list recent messages failed", "label", h.label, "error", err)
		return
	}

	for _, id := range ids {
		isNew, err := h.filter.IsNew(ctx, id)
		if err != nil {
			slog.Warn("dedup check failed, proceeding", "error", err)
		} else if !isNew {
			continue
		}

		if _, err := h.processor.ProcessEmail(ctx, id); err != nil {
			slog.Error("process message failed", "message_id", id, "error", err)
			if errors.Is(err, ingest.ErrSourceUnavailable) {
				// The remaining ids would hit the same outage.
				return
			}
		}
	}
}

// ServeProcess reprocesses a single message id on demand. Unlike the push
// path this is synchronous: operators use it to retry a specific email and
// want the outcome in the response.
func (h *Handler) ServeProcess(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing message id", http.StatusBadRequest)
		return
	}

	reg, err := h.processor.ProcessEmail(r.Context(), id)
	if err != nil {
		slog.Error("manual process failed", "message_id", id, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrSourceUnavailable) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if reg == nil {
		// Already processed, gone, or quarantined — nothing new persisted.
		json.NewEncoder(w).Encode(map[string]any{"processed": false})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"processed": true, "registration": reg})
}

// ServeHealth reports liveness.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Serve starts the HTTP server on the given port. It binds the port
// immediately and signals readiness via the returned channel before
// starting to accept connections.
func Serve(ctx context.Context, port int, root http.Handler) (<-chan struct{}, error) {
	server := &http.Server{
		Handler: root,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind webhook port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("http server shutting down")
		server.Close()
	}()

	go func() {
		slog.Info("http server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	return ready, nil
}
