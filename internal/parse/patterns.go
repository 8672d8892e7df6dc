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

// Package parse extracts structured registration data from Bright Horizons
// Back-Up Care notification emails. The provider sends several loosely
// specified plain-text layouts; every extraction rule lives in a named
// pattern library so the layouts stay visible in one place and alternative
// pattern sets can be substituted in tests.
package parse

import "regexp"

// Pattern keys. Each constant documents the literal layout line the pattern
// targets, since real-world input drifts and the examples are the contract.
const (
	// "Care Request Number: BH-2025-001234"
	KeyCareRequestNumber = "care_request_number"

	// Legacy single-child layouts, matched through Extract as a fallback
	// when the multi-recipient extraction finds nothing.
	// "Care Recipient(s):\nElizabeth Ellis\nFemale, 9 Years"
	KeyChildNameSimple = "child_name_simple"
	// "Name: Saahithi Pola"
	KeyChildNameDetailed = "child_name_detailed"

	// "Female, 9 Years 6 months"
	KeyChildAge    = "child_age"
	KeyChildGender = "child_gender"
	// "DOB: March 14, 2016"
	KeyChildDOB = "child_dob"

	// "Scheduled Care for Employee: Kalyani Pola (kapola@example.com)"
	KeyParentName = "parent_name"
	// "Email: kapola@example.com"
	KeyParentEmail = "parent_email"
	// "Mobile Phone: 4085551234"
	KeyParentPhone = "parent_phone"
	// "Employer: Cisco Systems"
	KeyEmployer = "employer"
	// "Care Location: iCode San Jose"
	KeyLocation = "location"

	// "Date of Care: December 23,2025 - December 23,2025"
	// (the provider omits the space after the comma in this layout)
	KeyDateRange = "date_range"
	// "December 22, 2025 09:00 AM - 05:00 PM - 8 hours - Confirmed"
	KeyCareDatesDetailed = "care_dates_detailed"
	// "Female, 9 Years 6 months, 09:00 AM - 05:00 PM - Cancelled"
	KeyInlineTime = "inline_time"

	KeyCancellation  = "cancellation"
	KeyAuthorization = "authorization"

	// Multi-recipient layouts used by ExtractChildren.
	// "Care Recipient(s):\nAva Smith\nFemale, 7 Years"
	KeyRecipientsSimple = "recipients_simple"
	// "Care Recipient Details:\n...\nName: Ava Smith"
	KeyRecipientsDetailed = "recipients_detailed"
)

// Pattern is a single named extraction rule: a compiled expression and the
// ordinal of the capture group Extract should return.
type Pattern struct {
	Key   string
	Group int
	expr  *regexp.Regexp
}

// Expr returns the compiled expression, for extractors that need more than
// the single capture group (schedule lines, recipient lists).
func (p Pattern) Expr() *regexp.Regexp { return p.expr }

// Library is an immutable set of patterns keyed by name. Build it once at
// startup and inject it into every component that extracts; there is no
// mutation API.
type Library struct {
	patterns map[string]Pattern
}

// NewLibrary compiles a pattern set. Keys must be unique.
func NewLibrary(specs map[string]string) *Library {
	patterns := make(map[string]Pattern, len(specs))
	for key, spec := range specs {
		patterns[key] = Pattern{
			Key:   key,
			Group: 1,
			expr:  regexp.MustCompile(spec),
		}
	}
	return &Library{patterns: patterns}
}

// Lookup returns the pattern for a key, or ok=false when the key is unknown.
func (l *Library) Lookup(key string) (Pattern, bool) {
	p, ok := l.patterns[key]
	return p, ok
}

// defaultSpecs holds the production pattern set. Scalar-field patterns carry
// (?ims) so a label can appear anywhere in the body regardless of case; the
// layout patterns carry only the flags their matching needs.
var defaultSpecs = map[string]string{
	KeyCareRequestNumber: `(?ims)Care Request Number:\s*([A-Z0-9\-]+)`,

	KeyChildNameSimple:   `(?ims)Care Recipient\(s\):\s*\n([A-Za-z\s]+)\n`,
	KeyChildNameDetailed: `(?ims)(?:Care Recipient.*?)?Name:\s*([A-Za-z\s]+)`,

	KeyChildAge:    `(?ims)(\d+)\s*Years?\s*\d*\s*months?`,
	KeyChildGender: `(?ims)(Male|Female),`,
	KeyChildDOB:    `(?ims)DOB:\s*([A-Za-z]+\s+\d+,\s*\d{4})`,

	KeyParentName:  `(?ims)Scheduled Care for Employee:\s*([A-Za-z\s]+?)(?:\(|$)`,
	KeyParentEmail: `(?ims)Email:\s*([\w\.\-]+@[\w\.\-]+\.\w+)`,
	KeyParentPhone: `(?ims)(?:Home Phone|Mobile Phone):\s*(\d+)`,
	KeyEmployer:    `(?ims)Employer:\s*([^\n]+)`,
	KeyLocation:    `(?ims)Care Location:\s*([^\n]+)`,

	KeyDateRange:         `(?i)Date of Care:\s*(\w+\s+\d+,\d{4})\s*-\s*(\w+\s+\d+,\d{4})`,
	KeyCareDatesDetailed: `(?m)(\w+\s+\d+,\s+\d{4})\s+(\d{2}:\d{2}\s+[AP]M)\s*-\s*(\d{2}:\d{2}\s+[AP]M)\s*-\s*(\d+)\s*hours?\s*-\s*(Confirmed|Cancelled)`,
	KeyInlineTime:        `(\d{2}:\d{2}\s+[AP]M)\s*-\s*(\d{2}:\d{2}\s+[AP]M)\s*-\s*(Cancelled|Confirmed)`,

	KeyCancellation:  `(?i)(?:cancellation|Cancelled)`,
	KeyAuthorization: `(?i)(?:authorized|Confirmed)`,

	KeyRecipientsSimple:   `(?m)Care Recipient\(s\):\s*\n([A-Za-z\s\-\.]+?)(?:\n|$)`,
	KeyRecipientsDetailed: `(?ms)Care Recipient Details:.*?Name:\s*([A-Za-z\s\-\.]+?)(?:\n|$)`,
}

// DefaultLibrary returns the production pattern set.
func DefaultLibrary() *Library {
	return NewLibrary(defaultSpecs)
}
