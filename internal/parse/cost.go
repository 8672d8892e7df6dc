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
	"fmt"

	"github.com/icodeportal/ingestion/internal/models"
)

// CostInputs are the extraction results a cost policy prices from.
type CostInputs struct {
	Children       int
	Days           int     // number of extracted care dates
	ConfirmedHours float64 // hours from Confirmed detailed schedule lines
}

// CostPolicy derives the billed amount for a registration. Two policies
// coexist in this domain; which one applies is a deployment choice, so both
// ship as named strategies selected by configuration. A nil result means
// the cost is genuinely unknown — callers must not coerce it to zero.
type CostPolicy interface {
	Name() string
	Total(in CostInputs) *float64
}

// PerChildPerDay bills childCount x dayCount x DailyRate.
type PerChildPerDay struct {
	DailyRate float64
}

func (p PerChildPerDay) Name() string { return "per_child_per_day" }

func (p PerChildPerDay) Total(in CostInputs) *float64 {
	if in.Days == 0 {
		return nil
	}
	children := in.Children
	if children == 0 {
		children = 1
	}
	total := float64(children*in.Days) * p.DailyRate
	return &total
}

// PerHour bills confirmedHours x HourlyRate. When the email had no hourly
// breakdown at all, each extracted date counts as WholeDayHours.
type PerHour struct {
	HourlyRate    float64
	WholeDayHours float64 // typically 8
}

func (p PerHour) Name() string { return "per_hour" }

func (p PerHour) Total(in CostInputs) *float64 {
	hours := in.ConfirmedHours
	if hours == 0 {
		if in.Days == 0 {
			return nil
		}
		hours = float64(in.Days) * p.WholeDayHours
	}
	total := hours * p.HourlyRate
	return &total
}

// AmountPaid is the paid amount implied by the status: the full cost for an
// enrollment, zero for a cancellation, unknown when the cost is unknown.
func AmountPaid(status models.Status, cost *float64) *float64 {
	if cost == nil {
		return nil
	}
	paid := 0.0
	if status == models.StatusEnrolled {
		paid = *cost
	}
	return &paid
}

// PolicyFromConfig maps a configured policy name to a strategy.
func PolicyFromConfig(name string, dailyRate, hourlyRate, wholeDayHours float64) (CostPolicy, error) {
	switch name {
	case "", "per_child_per_day":
		return PerChildPerDay{DailyRate: dailyRate}, nil
	case "per_hour":
		return PerHour{HourlyRate: hourlyRate, WholeDayHours: wholeDayHours}, nil
	default:
		return nil, fmt.Errorf("unknown cost policy %q", name)
	}
}
