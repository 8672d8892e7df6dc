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

// Package ingest orchestrates per-email processing: fetch, parse, validate,
// then persist or quarantine, at most once per source message id.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/icodeportal/ingestion/internal/models"
	"github.com/icodeportal/ingestion/internal/parse"
)

// ErrSourceUnavailable wraps message-fetch failures. Retryable by the
// caller; nothing has been written when it is returned.
var ErrSourceUnavailable = errors.New("message source unavailable")

// Source fetches raw email content from the external message provider.
// A nil email with nil error means the message no longer exists.
type Source interface {
	GetMessage(ctx context.Context, id string) (*models.RawEmail, error)
}

// Store is the persistence surface the coordinator writes to.
type Store interface {
	FindBySourceID(ctx context.Context, emailID string) (*models.Registration, error)
	Insert(ctx context.Context, reg *models.Registration) error
	InsertQuarantine(ctx context.Context, q *models.QuarantinedEmail) error
}

// Events receives a notification for each persisted registration. Optional;
// publish failures are logged, never surfaced, since the record is already
// durable.
type Events interface {
	PublishRegistration(ctx context.Context, reg *models.Registration) error
}

// Coordinator drives the ingestion state machine for one source email id:
// unseen -> fetched -> parsed -> persisted | quarantined.
type Coordinator struct {
	source Source
	store  Store
	parser *parse.Parser
	policy parse.CostPolicy
	events Events
	now    func() time.Time
}

// Config holds the coordinator's collaborators. Events may be nil.
type Config struct {
	Source Source
	Store  Store
	Parser *parse.Parser
	Policy parse.CostPolicy
	Events Events
	Now    func() time.Time // defaults to time.Now; fixed in tests
}

// NewCoordinator creates an ingestion coordinator.
func NewCoordinator(cfg Config) *Coordinator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		source: cfg.Source,
		store:  cfg.Store,
		parser: cfg.Parser,
		policy: cfg.Policy,
		events: cfg.Events,
		now:    now,
	}
}

// ProcessEmail runs the full pipeline for one source email id.
//
// Returns (nil, nil) when the email was already processed, no longer exists
// at the source, or failed validation and was quarantined — callers that
// need to distinguish can look the id up in the store. Errors are limited
// to source and store I/O; extraction itself never fails hard.
//
// Concurrent processing of the same id can race past the existence check
// and write twice; that narrow race is accepted rather than requiring a
// distributed lock, since duplicate notifications are rare and the
// reporting layer is idempotent by content.
func (c *Coordinator) ProcessEmail(ctx context.Context, sourceID string) (*models.Registration, error) {
	existing, err := c.store.FindBySourceID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("look up prior registration for %s: %w", sourceID, err)
	}
	if existing != nil {
		slog.Debug("email already processed", "email_id", sourceID)
		return nil, nil
	}

	raw, err := c.source.GetMessage(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrSourceUnavailable, sourceID, err)
	}
	if raw == nil {
		slog.Warn("message not found at source", "email_id", sourceID)
		return nil, nil
	}

	now := c.now().UTC()
	candidate := c.parser.Assemble(*raw, c.policy, now)

	if reason, ok := parse.Validate(candidate); !ok {
		slog.Warn("email failed validation, quarantining",
			"email_id", sourceID,
			"reason", reason,
		)
		if err := c.quarantine(ctx, raw, reason, now); err != nil {
			return nil, fmt.Errorf("quarantine %s: %w", sourceID, err)
		}
		return nil, nil
	}

	reg := buildRegistration(raw, candidate, now)
	if err := c.store.Insert(ctx, reg); err != nil {
		return nil, fmt.Errorf("persist registration for %s: %w", sourceID, err)
	}

	slog.Info("registration persisted",
		"email_id", sourceID,
		"registration_id", reg.RegistrationID,
		"status", reg.Status,
		"children", len(reg.Children),
	)

	if c.events != nil {
		if err := c.events.PublishRegistration(ctx, reg); err != nil {
			slog.Warn("registration event publish failed",
				"registration_id", reg.RegistrationID,
				"error", err,
			)
		}
	}

	return reg, nil
}

func (c *Coordinator) quarantine(ctx context.Context, raw *models.RawEmail, reason string, now time.Time) error {
	return c.store.InsertQuarantine(ctx, &models.QuarantinedEmail{
		EmailID:       raw.ID,
		Subject:       raw.Subject,
		Body:          raw.Body,
		ReceivedAt:    raw.ReceivedAt,
		QuarantinedAt: now,
		Reason:        reason,
	})
}

// buildRegistration turns a validated candidate into the persisted record.
func buildRegistration(raw *models.RawEmail, c models.Candidate, now time.Time) *models.Registration {
	received := raw.ReceivedAt
	return &models.Registration{
		RegistrationID:   c.RegistrationID,
		Status:           c.Status,
		EnrollmentDate:   c.EnrollmentDate,
		CancellationDate: c.CancellationDate,
		Children:         c.Children,
		ChildName:        c.ChildName,
		ChildAge:         c.ChildAge,
		ParentName:       c.ParentName,
		ParentEmail:      c.ParentEmail,
		ParentPhone:      c.ParentPhone,
		CampDates:        c.CampDates,
		CampType:         c.CampType,
		TotalCost:        c.TotalCost,
		AmountPaid:       c.AmountPaid,
		Employer:         c.Employer,
		Location:         c.Location,
		EmailID:          raw.ID,
		EmailReceivedAt:  &received,
		ParsedAt:         &now,
		RawEmailBody:     raw.Body,
		ManualEntry:      false,
		UpdatedAt:        now,
	}
}
