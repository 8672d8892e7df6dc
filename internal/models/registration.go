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

// Package models defines the data structures shared across the ingestion service.
package models

import "time"

// Status is the enrollment state of a registration.
type Status string

const (
	StatusEnrolled  Status = "enrolled"
	StatusCancelled Status = "cancelled"
)

// RawEmail is a fetched notification email, the immutable input to the
// parsing pipeline. ID is the provider's message ID and is globally unique.
type RawEmail struct {
	ID         string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// Candidate is an assembled, not-yet-validated registration. Absent values
// are represented as empty strings / nil pointers, never as sentinel
// strings, so the validator can check for absence directly.
type Candidate struct {
	Status           Status
	EnrollmentDate   time.Time
	CancellationDate *time.Time

	// Children lists every care recipient named in the email, first-seen
	// order. ChildName is the primary (first) entry.
	Children  []string
	ChildName string
	ChildAge  *int

	ParentName  string
	ParentEmail string
	ParentPhone string

	// CampDates always has at least one entry (the enrollment date is used
	// when extraction found nothing). DatesExtracted reports how many dates
	// the schedule extractor actually found, which is what validation gates
	// on.
	CampDates      []time.Time
	DatesExtracted int
	CampType       string

	TotalCost  *float64
	AmountPaid *float64

	RegistrationID string
	Employer       string
	Location       string
}

// Registration is a persisted registration record. Pipeline-created records
// have ManualEntry=false and no CreatedBy; staff-created records come in
// through the API with ManualEntry=true.
type Registration struct {
	ID               int64      `json:"id"`
	RegistrationID   string     `json:"registrationId"`
	Status           Status     `json:"status"`
	EnrollmentDate   time.Time  `json:"enrollmentDate"`
	CancellationDate *time.Time `json:"cancellationDate,omitempty"`

	Children  []string `json:"children"`
	ChildName string   `json:"childName"`
	ChildAge  *int     `json:"childAge,omitempty"`

	ParentName  string `json:"parentName"`
	ParentEmail string `json:"parentEmail"`
	ParentPhone string `json:"parentPhone,omitempty"`

	CampDates []time.Time `json:"campDates"`
	CampType  string      `json:"campType,omitempty"`

	TotalCost  *float64 `json:"totalCost,omitempty"`
	AmountPaid *float64 `json:"amountPaid,omitempty"`

	Employer string `json:"employer,omitempty"`
	Location string `json:"location,omitempty"`

	EmailID         string     `json:"emailId,omitempty"`
	EmailReceivedAt *time.Time `json:"emailReceivedAt,omitempty"`
	ParsedAt        *time.Time `json:"parsedAt,omitempty"`
	RawEmailBody    string     `json:"rawEmailBody,omitempty"`

	ManualEntry bool      `json:"manualEntry"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// QuarantinedEmail is an email the pipeline could not confidently parse,
// stored verbatim for manual review. Reason is a short machine tag such as
// "missing_child_name".
type QuarantinedEmail struct {
	ID            int64     `json:"id"`
	EmailID       string    `json:"emailId"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	ReceivedAt    time.Time `json:"receivedAt"`
	QuarantinedAt time.Time `json:"quarantinedAt"`
	Reason        string    `json:"reason"`
}
