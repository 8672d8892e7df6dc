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

package store

import (
	"context"
	"time"

	"github.com/icodeportal/ingestion/internal/models"
)

// RevenuePoint is revenue attributed to one calendar period.
type RevenuePoint struct {
	Period  time.Time `json:"period"`
	Revenue float64   `json:"revenue"`
	Count   int       `json:"count"`
}

// Revenue aggregates amount_paid by month (interval "month") or week
// (interval "week") over enrolled registrations, oldest period first.
func (s *Store) Revenue(ctx context.Context, interval string) ([]RevenuePoint, error) {
	if interval != "week" {
		interval = "month"
	}
	rows, err := s.pool.Query(ctx, `
		SELECT date_trunc($1, enrollment_date) AS period,
		       COALESCE(SUM(amount_paid), 0),
		       COUNT(*)
		FROM registrations
		WHERE status = $2
		GROUP BY period
		ORDER BY period
	`, interval, models.StatusEnrolled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RevenuePoint
	for rows.Next() {
		var p RevenuePoint
		if err := rows.Scan(&p.Period, &p.Revenue, &p.Count); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CapacityPoint is the number of children booked for care on one day.
type CapacityPoint struct {
	Day      time.Time `json:"day"`
	Children int       `json:"children"`
}

// DailyCapacity counts booked children per care day in [from, to),
// counting one child per listed recipient on enrolled registrations.
func (s *Store) DailyCapacity(ctx context.Context, from, to time.Time) ([]CapacityPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date_trunc('day', d) AS day,
		       SUM(GREATEST(cardinality(children), 1))
		FROM registrations, unnest(camp_dates) AS d
		WHERE status = $1 AND d >= $2 AND d < $3
		GROUP BY day
		ORDER BY day
	`, models.StatusEnrolled, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CapacityPoint
	for rows.Next() {
		var p CapacityPoint
		if err := rows.Scan(&p.Day, &p.Children); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CancellationStats summarises enrollment vs cancellation volume.
type CancellationStats struct {
	Enrolled         int     `json:"enrolled"`
	Cancelled        int     `json:"cancelled"`
	CancellationRate float64 `json:"cancellationRate"` // 0..1
}

// Cancellations returns overall enrollment/cancellation counts and rate.
func (s *Store) Cancellations(ctx context.Context) (*CancellationStats, error) {
	var stats CancellationStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = $1),
		       COUNT(*) FILTER (WHERE status = $2)
		FROM registrations
	`, models.StatusEnrolled, models.StatusCancelled).Scan(&stats.Enrolled, &stats.Cancelled)
	if err != nil {
		return nil, err
	}
	if total := stats.Enrolled + stats.Cancelled; total > 0 {
		stats.CancellationRate = float64(stats.Cancelled) / float64(total)
	}
	return &stats, nil
}

// DashboardSummary is the headline numbers for the portal dashboard.
type DashboardSummary struct {
	TotalRegistrations int     `json:"totalRegistrations"`
	ActiveEnrollments  int     `json:"activeEnrollments"`
	TotalRevenue       float64 `json:"totalRevenue"`
	QuarantinedEmails  int     `json:"quarantinedEmails"`
	UpcomingCareDays   int     `json:"upcomingCareDays"` // distinct future care days
}

// Summary computes the dashboard headline numbers in one round trip each.
func (s *Store) Summary(ctx context.Context, now time.Time) (*DashboardSummary, error) {
	var sum DashboardSummary
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $1),
		       COALESCE(SUM(amount_paid) FILTER (WHERE status = $1), 0)
		FROM registrations
	`, models.StatusEnrolled).Scan(&sum.TotalRegistrations, &sum.ActiveEnrollments, &sum.TotalRevenue)
	if err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT date_trunc('day', d))
		FROM registrations, unnest(camp_dates) AS d
		WHERE status = $1 AND d >= $2
	`, models.StatusEnrolled, now).Scan(&sum.UpcomingCareDays)
	if err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM unparsed_emails`).Scan(&sum.QuarantinedEmails)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}
