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

package parse

import (
	"strconv"
	"strings"
	"time"
)

// DayStatus is the per-day confirmation state on a detailed schedule line.
type DayStatus string

const (
	DayConfirmed DayStatus = "Confirmed"
	DayCancelled DayStatus = "Cancelled"
)

// ScheduleEntry is one day of authorized care from the detailed layout.
type ScheduleEntry struct {
	Date   time.Time
	Start  string // "09:00 AM"
	End    string // "05:00 PM"
	Hours  int
	Status DayStatus
}

// dateLayouts is the fixed, ordered list of accepted date formats. Order
// matters and must not change: ambiguous strings such as "01-02-2025"
// resolve as month-day because MM-DD-YYYY is tried before YYYY-MM-DD, and
// the comma variants differ only in the space the provider sometimes drops.
var dateLayouts = []string{
	"January 2, 2006",
	"January 2,2006",
	"Jan 2, 2006",
	"Jan 2,2006",
	"01/02/2006",
	"01-02-2006",
	"2006-01-02",
}

// ParseDate parses a date string against the supported layouts, first
// success wins. ok=false when nothing matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Schedule extracts every detailed per-day care line from the body:
//
//	December 22, 2025 09:00 AM - 05:00 PM - 8 hours - Confirmed
//
// Lines whose date fails to parse are skipped.
func (p *Parser) Schedule(body string) []ScheduleEntry {
	pat, ok := p.lib.Lookup(KeyCareDatesDetailed)
	if !ok {
		return nil
	}

	var entries []ScheduleEntry
	for _, m := range pat.Expr().FindAllStringSubmatch(body, -1) {
		date, ok := ParseDate(m[1])
		if !ok {
			continue
		}
		hours, _ := strconv.Atoi(m[4])
		entries = append(entries, ScheduleEntry{
			Date:   date,
			Start:  m[2],
			End:    m[3],
			Hours:  hours,
			Status: DayStatus(m[5]),
		})
	}
	return entries
}

// Dates returns every care date in the body, in document order. The
// detailed layout is tried first; when it yields nothing, the simple
// "Date of Care: <start> - <end>" range layout is used, emitting the start
// date and, only if distinct, the end date.
func (p *Parser) Dates(body string) []time.Time {
	var dates []time.Time
	for _, e := range p.Schedule(body) {
		dates = append(dates, e.Date)
	}
	if len(dates) > 0 {
		return dates
	}

	pat, ok := p.lib.Lookup(KeyDateRange)
	if !ok {
		return nil
	}
	for _, m := range pat.Expr().FindAllStringSubmatch(body, -1) {
		start, startOK := ParseDate(m[1])
		end, endOK := ParseDate(m[2])
		if startOK {
			dates = append(dates, start)
		}
		if endOK && (!startOK || !end.Equal(start)) {
			dates = append(dates, end)
		}
	}
	return dates
}

// ConfirmedHours sums the declared hours of Confirmed schedule lines;
// Cancelled lines contribute zero. An email with no detailed layout at all
// yields 0 — the whole-day fallback is the cost policy's call, not the
// extractor's.
func (p *Parser) ConfirmedHours(body string) float64 {
	var total float64
	for _, e := range p.Schedule(body) {
		if e.Status == DayConfirmed {
			total += float64(e.Hours)
		}
	}
	return total
}
