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

	"github.com/icodeportal/ingestion/internal/models"
)

func TestPerChildPerDay(t *testing.T) {
	policy := PerChildPerDay{DailyRate: 100}

	tests := []struct {
		name string
		in   CostInputs
		want *float64
	}{
		{"two children three days", CostInputs{Children: 2, Days: 3}, f(600)},
		{"single child single day", CostInputs{Children: 1, Days: 1}, f(100)},
		{"zero children assumes one", CostInputs{Children: 0, Days: 2}, f(200)},
		{"no days means unknown cost", CostInputs{Children: 2, Days: 0}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCost(t, policy.Total(tt.in), tt.want)
		})
	}
}

func TestPerHour(t *testing.T) {
	policy := PerHour{HourlyRate: 15, WholeDayHours: 8}

	tests := []struct {
		name string
		in   CostInputs
		want *float64
	}{
		{"hourly breakdown", CostInputs{Days: 2, ConfirmedHours: 12}, f(180)},
		{"whole-day fallback", CostInputs{Days: 3}, f(360)},
		{"nothing detected means unknown cost", CostInputs{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCost(t, policy.Total(tt.in), tt.want)
		})
	}
}

func TestAmountPaid(t *testing.T) {
	if got := AmountPaid(models.StatusEnrolled, f(600)); got == nil || *got != 600 {
		t.Errorf("AmountPaid(enrolled, 600) = %v, want 600", got)
	}
	if got := AmountPaid(models.StatusCancelled, f(600)); got == nil || *got != 0 {
		t.Errorf("AmountPaid(cancelled, 600) = %v, want 0", got)
	}
	if got := AmountPaid(models.StatusEnrolled, nil); got != nil {
		t.Errorf("AmountPaid(enrolled, nil) = %v, want nil", got)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p, err := PolicyFromConfig("", 100, 0, 8)
	if err != nil || p.Name() != "per_child_per_day" {
		t.Errorf("default policy = %v, %v; want per_child_per_day", p, err)
	}

	p, err = PolicyFromConfig("per_hour", 0, 15, 8)
	if err != nil || p.Name() != "per_hour" {
		t.Errorf("per_hour policy = %v, %v", p, err)
	}

	if _, err := PolicyFromConfig("flat_fee", 0, 0, 0); err == nil {
		t.Error("unknown policy accepted, want error")
	}
}

func f(v float64) *float64 { return &v }

func assertCost(t *testing.T, got, want *float64) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("cost = %v, want absent", *got)
	case want != nil && got == nil:
		t.Errorf("cost absent, want %v", *want)
	case want != nil && *got != *want:
		t.Errorf("cost = %v, want %v", *got, *want)
	}
}
