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
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"December 29, 2025", date(2025, time.December, 29), true},
		{"December 23,2025", date(2025, time.December, 23), true},
		{"Dec 29, 2025", date(2025, time.December, 29), true},
		{"Dec 23,2025", date(2025, time.December, 23), true},
		{"12/29/2025", date(2025, time.December, 29), true},
		{"12-29-2025", date(2025, time.December, 29), true},
		{"2025-12-29", date(2025, time.December, 29), true},
		{"  January 5,2025 ", date(2025, time.January, 5), true},
		{"not a date", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestParseDateFormatPriority pins the documented format order: an
// ambiguous numeric string resolves as MM-DD-YYYY because that layout is
// tried before YYYY-MM-DD.
func TestParseDateFormatPriority(t *testing.T) {
	got, ok := ParseDate("01-02-2025")
	if !ok {
		t.Fatal("ParseDate(01-02-2025) failed")
	}
	if want := date(2025, time.January, 2); !got.Equal(want) {
		t.Errorf("ParseDate(01-02-2025) = %v, want %v (month-day priority)", got, want)
	}
}

func TestSchedule(t *testing.T) {
	p := NewParser(DefaultLibrary())
	body := `Your schedule:
December 22, 2025 09:00 AM - 05:00 PM - 8 hours - Confirmed
December 23, 2025 09:00 AM - 01:00 PM - 4 hours - Confirmed
December 24, 2025 09:00 AM - 05:00 PM - 8 hours - Cancelled
`

	entries := p.Schedule(body)
	if len(entries) != 3 {
		t.Fatalf("Schedule() returned %d entries, want 3", len(entries))
	}

	first := entries[0]
	if !first.Date.Equal(date(2025, time.December, 22)) {
		t.Errorf("entry date = %v, want 2025-12-22", first.Date)
	}
	if first.Start != "09:00 AM" || first.End != "05:00 PM" {
		t.Errorf("entry times = %q-%q, want 09:00 AM-05:00 PM", first.Start, first.End)
	}
	if first.Hours != 8 || first.Status != DayConfirmed {
		t.Errorf("entry = %d hours %s, want 8 hours Confirmed", first.Hours, first.Status)
	}
	if entries[2].Status != DayCancelled {
		t.Errorf("third entry status = %s, want Cancelled", entries[2].Status)
	}

	// Confirmed hours exclude the cancelled day.
	if hours := p.ConfirmedHours(body); hours != 12 {
		t.Errorf("ConfirmedHours() = %v, want 12", hours)
	}
}

func TestDatesRangeFallback(t *testing.T) {
	p := NewParser(DefaultLibrary())

	tests := []struct {
		name string
		body string
		want []time.Time
	}{
		{
			name: "detailed layout wins",
			body: "December 22, 2025 09:00 AM - 05:00 PM - 8 hours - Confirmed\nDate of Care: December 23,2025 - December 24,2025",
			want: []time.Time{date(2025, time.December, 22)},
		},
		{
			name: "range with distinct end",
			body: "Date of Care: December 23,2025 - December 24,2025",
			want: []time.Time{date(2025, time.December, 23), date(2025, time.December, 24)},
		},
		{
			name: "range collapsed when start equals end",
			body: "Date of Care: January 5,2025 - January 5,2025",
			want: []time.Time{date(2025, time.January, 5)},
		},
		{
			name: "no dates",
			body: "nothing here",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Dates(tt.body)
			if len(got) != len(tt.want) {
				t.Fatalf("Dates() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("Dates()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestConfirmedHoursNoDetailedLayout(t *testing.T) {
	p := NewParser(DefaultLibrary())

	// The extractor reports zero; the whole-day assumption belongs to the
	// cost policy, not here.
	if hours := p.ConfirmedHours("Date of Care: January 5,2025 - January 5,2025"); hours != 0 {
		t.Errorf("ConfirmedHours() = %v, want 0", hours)
	}
}
