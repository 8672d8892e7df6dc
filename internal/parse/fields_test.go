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

import "testing"

const authorizationBody = `Your Back-Up Care request has been authorized.

Care Request Number: BH-2025-004821
Scheduled Care for Employee: Kalyani Pola (kapola@example.com)
Email: kapola@example.com
Mobile Phone: 4085551234
Employer: Cisco Systems
Care Location: iCode San Jose

Care Recipient Details:
Name: Saahithi Pola
Female, 9 Years 6 months
DOB: March 14, 2016

December 22, 2025 09:00 AM - 05:00 PM - 8 hours - Confirmed
December 23, 2025 09:00 AM - 05:00 PM - 8 hours - Confirmed
`

func TestExtract(t *testing.T) {
	p := NewParser(DefaultLibrary())

	tests := []struct {
		key  string
		want string
	}{
		{KeyCareRequestNumber, "BH-2025-004821"},
		{KeyParentName, "Kalyani Pola"},
		{KeyParentEmail, "kapola@example.com"},
		{KeyParentPhone, "4085551234"},
		{KeyEmployer, "Cisco Systems"},
		{KeyLocation, "iCode San Jose"},
		{KeyChildAge, "9"},
		{KeyChildGender, "Female"},
		{KeyChildDOB, "March 14, 2016"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := p.Extract(authorizationBody, tt.key); got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestExtractAbsent(t *testing.T) {
	p := NewParser(DefaultLibrary())

	// Absence is a normal result, not an error.
	if got := p.Extract("no labels here at all", KeyCareRequestNumber); got != "" {
		t.Errorf("Extract on non-matching text = %q, want empty", got)
	}
	if got := p.Extract(authorizationBody, "no_such_key"); got != "" {
		t.Errorf("Extract with unknown key = %q, want empty", got)
	}
}

func TestLibraryLookup(t *testing.T) {
	lib := DefaultLibrary()

	if _, ok := lib.Lookup(KeyDateRange); !ok {
		t.Error("Lookup(date_range) = absent, want present")
	}
	if _, ok := lib.Lookup("missing"); ok {
		t.Error("Lookup(missing) = present, want absent")
	}
}

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(408) 555-1234", "4085551234"},
		{"+1 408 555 1234", "+14085551234"},
		{"4085551234", "4085551234"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanPhone(tt.in); got != tt.want {
			t.Errorf("CleanPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
