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

// Package store provides the Postgres-backed persistence layer for
// registrations and quarantined emails.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/icodeportal/ingestion/internal/models"
)

// Store provides CRUD and reporting queries over the registrations and
// unparsed_emails tables.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a registration store backed by the given Postgres pool.
// It ensures the tables exist on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure registration schema: %w", err)
	}
	slog.Info("registration store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	// email_id is deliberately non-unique: the coordinator checks before
	// inserting, and a rare duplicate from a concurrent webhook burst is
	// acceptable.
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS registrations (
			id                BIGSERIAL PRIMARY KEY,
			registration_id   TEXT NOT NULL,
			status            TEXT NOT NULL,
			enrollment_date   TIMESTAMPTZ NOT NULL,
			cancellation_date TIMESTAMPTZ,
			children          TEXT[] NOT NULL DEFAULT '{}',
			child_name        TEXT DEFAULT '',
			child_age         INT,
			parent_name       TEXT DEFAULT '',
			parent_email      TEXT DEFAULT '',
			parent_phone      TEXT DEFAULT '',
			camp_dates        TIMESTAMPTZ[] NOT NULL DEFAULT '{}',
			camp_type         TEXT DEFAULT '',
			total_cost        DOUBLE PRECISION,
			amount_paid       DOUBLE PRECISION,
			employer          TEXT DEFAULT '',
			location          TEXT DEFAULT '',
			email_id          TEXT DEFAULT '',
			email_received_at TIMESTAMPTZ,
			parsed_at         TIMESTAMPTZ,
			raw_email_body    TEXT DEFAULT '',
			manual_entry      BOOLEAN NOT NULL DEFAULT FALSE,
			created_by        TEXT DEFAULT '',
			updated_at        TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_reg_email ON registrations(email_id);
		CREATE INDEX IF NOT EXISTS idx_reg_status ON registrations(status);
		CREATE INDEX IF NOT EXISTS idx_reg_enrollment ON registrations(enrollment_date);

		CREATE TABLE IF NOT EXISTS unparsed_emails (
			id             BIGSERIAL PRIMARY KEY,
			email_id       TEXT NOT NULL,
			subject        TEXT DEFAULT '',
			body           TEXT DEFAULT '',
			received_at    TIMESTAMPTZ,
			quarantined_at TIMESTAMPTZ DEFAULT NOW(),
			reason         TEXT DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_unparsed_email ON unparsed_emails(email_id);
	`)
	return err
}

const registrationColumns = `
	id, registration_id, status, enrollment_date, cancellation_date,
	children, child_name, child_age, parent_name, parent_email, parent_phone,
	camp_dates, camp_type, total_cost, amount_paid, employer, location,
	email_id, email_received_at, parsed_at, raw_email_body,
	manual_entry, created_by, updated_at`

// Insert persists a registration and fills in its generated row id.
func (s *Store) Insert(ctx context.Context, r *models.Registration) error {
	if r.Children == nil {
		r.Children = []string{}
	}
	if r.CampDates == nil {
		r.CampDates = []time.Time{}
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO registrations
			(registration_id, status, enrollment_date, cancellation_date,
			 children, child_name, child_age, parent_name, parent_email, parent_phone,
			 camp_dates, camp_type, total_cost, amount_paid, employer, location,
			 email_id, email_received_at, parsed_at, raw_email_body,
			 manual_entry, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id
	`,
		r.RegistrationID, r.Status, r.EnrollmentDate, r.CancellationDate,
		r.Children, r.ChildName, r.ChildAge, r.ParentName, r.ParentEmail, r.ParentPhone,
		r.CampDates, r.CampType, r.TotalCost, r.AmountPaid, r.Employer, r.Location,
		r.EmailID, r.EmailReceivedAt, r.ParsedAt, r.RawEmailBody,
		r.ManualEntry, r.CreatedBy, r.UpdatedAt,
	).Scan(&r.ID)
}

// FindBySourceID returns the registration created from the given provider
// email id, nil when none exists.
func (s *Store) FindBySourceID(ctx context.Context, emailID string) (*models.Registration, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE email_id = $1
		ORDER BY id
		LIMIT 1
	`, emailID)
	return scanRegistration(row)
}

// GetByID retrieves a single registration by row id, nil when not found.
func (s *Store) GetByID(ctx context.Context, id int64) (*models.Registration, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE id = $1
	`, id)
	return scanRegistration(row)
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status      models.Status
	Employer    string
	ParentEmail string
	FromDate    time.Time // enrollment_date >= FromDate
	ToDate      time.Time // enrollment_date <= ToDate
	Limit       int
	Offset      int
}

// List returns registrations matching the filter, newest enrollment first.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Registration, error) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		conds = append(conds, "status = "+arg(string(f.Status)))
	}
	if f.Employer != "" {
		conds = append(conds, "employer ILIKE "+arg("%"+f.Employer+"%"))
	}
	if f.ParentEmail != "" {
		conds = append(conds, "parent_email = "+arg(f.ParentEmail))
	}
	if !f.FromDate.IsZero() {
		conds = append(conds, "enrollment_date >= "+arg(f.FromDate))
	}
	if !f.ToDate.IsZero() {
		conds = append(conds, "enrollment_date <= "+arg(f.ToDate))
	}

	q := "SELECT " + registrationColumns + " FROM registrations"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY enrollment_date DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		q += " OFFSET " + arg(f.Offset)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

// Update replaces the mutable fields of a registration. Provenance fields
// (email_id, raw_email_body, parsed_at) are never overwritten.
func (s *Store) Update(ctx context.Context, r *models.Registration) error {
	if r.Children == nil {
		r.Children = []string{}
	}
	if r.CampDates == nil {
		r.CampDates = []time.Time{}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE registrations SET
			registration_id   = $1,
			status            = $2,
			enrollment_date   = $3,
			cancellation_date = $4,
			children          = $5,
			child_name        = $6,
			child_age         = $7,
			parent_name       = $8,
			parent_email      = $9,
			parent_phone      = $10,
			camp_dates        = $11,
			camp_type         = $12,
			total_cost        = $13,
			amount_paid       = $14,
			employer          = $15,
			location          = $16,
			updated_at        = NOW()
		WHERE id = $17
	`,
		r.RegistrationID, r.Status, r.EnrollmentDate, r.CancellationDate,
		r.Children, r.ChildName, r.ChildAge, r.ParentName, r.ParentEmail, r.ParentPhone,
		r.CampDates, r.CampType, r.TotalCost, r.AmountPaid, r.Employer, r.Location,
		r.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registration %d not found", r.ID)
	}
	return nil
}

// Cancel soft-deletes a registration: status becomes cancelled and the
// cancellation date is recorded. The row is kept for reporting.
func (s *Store) Cancel(ctx context.Context, id int64, when time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE registrations
		SET status = $1, cancellation_date = $2, updated_at = NOW()
		WHERE id = $3
	`, models.StatusCancelled, when, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registration %d not found", id)
	}
	return nil
}

// ListByCampDate returns registrations with a care date on the given day.
func (s *Store) ListByCampDate(ctx context.Context, day time.Time) ([]models.Registration, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	rows, err := s.pool.Query(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE EXISTS (
			SELECT 1 FROM unnest(camp_dates) AS d
			WHERE d >= $1 AND d < $2
		)
		ORDER BY child_name
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

// SearchByChild returns registrations whose primary child or any listed
// recipient matches the query, case-insensitively.
func (s *Store) SearchByChild(ctx context.Context, query string) ([]models.Registration, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE child_name ILIKE $1
		   OR EXISTS (SELECT 1 FROM unnest(children) AS c WHERE c ILIKE $1)
		ORDER BY enrollment_date DESC, id DESC
	`, "%"+query+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

// InsertQuarantine stores an email the pipeline could not parse.
func (s *Store) InsertQuarantine(ctx context.Context, q *models.QuarantinedEmail) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO unparsed_emails (email_id, subject, body, received_at, quarantined_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, q.EmailID, q.Subject, q.Body, q.ReceivedAt, q.QuarantinedAt, q.Reason).Scan(&q.ID)
}

// ListQuarantined returns quarantined emails, newest first.
func (s *Store) ListQuarantined(ctx context.Context, limit int) ([]models.QuarantinedEmail, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, email_id, subject, body, received_at, quarantined_at, reason
		FROM unparsed_emails
		ORDER BY quarantined_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QuarantinedEmail
	for rows.Next() {
		var q models.QuarantinedEmail
		if err := rows.Scan(&q.ID, &q.EmailID, &q.Subject, &q.Body, &q.ReceivedAt, &q.QuarantinedAt, &q.Reason); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var r models.Registration
	err := row.Scan(
		&r.ID, &r.RegistrationID, &r.Status, &r.EnrollmentDate, &r.CancellationDate,
		&r.Children, &r.ChildName, &r.ChildAge, &r.ParentName, &r.ParentEmail, &r.ParentPhone,
		&r.CampDates, &r.CampType, &r.TotalCost, &r.AmountPaid, &r.Employer, &r.Location,
		&r.EmailID, &r.EmailReceivedAt, &r.ParsedAt, &r.RawEmailBody,
		&r.ManualEntry, &r.CreatedBy, &r.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectRegistrations(rows pgx.Rows) ([]models.Registration, error) {
	var out []models.Registration
	for rows.Next() {
		var r models.Registration
		if err := rows.Scan(
			&r.ID, &r.RegistrationID, &r.Status, &r.EnrollmentDate, &r.CancellationDate,
			&r.Children, &r.ChildName, &r.ChildAge, &r.ParentName, &r.ParentEmail, &r.ParentPhone,
			&r.CampDates, &r.CampType, &r.TotalCost, &r.AmountPaid, &r.Employer, &r.Location,
			&r.EmailID, &r.EmailReceivedAt, &r.ParsedAt, &r.RawEmailBody,
			&r.ManualEntry, &r.CreatedBy, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
