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
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/icodeportal/ingestion/internal/models"
)

// Validation reason tags recorded on quarantined emails.
const (
	ReasonMissingChildName  = "missing_child_name"
	ReasonMissingParentName = "missing_parent_name"
	ReasonNoCareDates       = "no_care_dates"
)

// Assemble combines every extractor's output into one candidate
// registration. It is deterministic: identical inputs always produce an
// identical candidate (now feeds only the cancellation date and the
// enrollment-date fallback when the email carries no received timestamp),
// so reprocessing after a pattern fix yields the same record.
func (p *Parser) Assemble(raw models.RawEmail, policy CostPolicy, now time.Time) models.Candidate {
	status := p.Classify(raw.Subject, raw.Body)

	campDates := p.Dates(raw.Body)
	datesExtracted := len(campDates)

	enrollmentDate := raw.ReceivedAt
	if datesExtracted > 0 {
		enrollmentDate = campDates[0]
	} else if enrollmentDate.IsZero() {
		enrollmentDate = now
	}
	if datesExtracted == 0 {
		campDates = []time.Time{enrollmentDate}
	}

	children := p.Children(raw.Body)
	if len(children) == 0 {
		if name := p.legacyChild(raw.Body); name != "" {
			children = []string{name}
		}
	}
	childName := ""
	if len(children) > 0 {
		childName = children[0]
	}

	var childAge *int
	if s := p.Extract(raw.Body, KeyChildAge); s != "" {
		if age, err := strconv.Atoi(s); err == nil {
			childAge = &age
		}
	}

	cost := policy.Total(CostInputs{
		Children:       len(children),
		Days:           datesExtracted,
		ConfirmedHours: p.ConfirmedHours(raw.Body),
	})

	employer := p.Extract(raw.Body, KeyEmployer)
	campType := "Back-Up Care"
	if employer != "" {
		campType = "Back-Up Care - " + employer
	}

	registrationID := p.Extract(raw.Body, KeyCareRequestNumber)
	if registrationID == "" {
		registrationID = FallbackRegistrationID(raw.ID)
	}

	var cancellationDate *time.Time
	if status == models.StatusCancelled {
		t := now
		cancellationDate = &t
	}

	return models.Candidate{
		Status:           status,
		EnrollmentDate:   enrollmentDate,
		CancellationDate: cancellationDate,
		Children:         children,
		ChildName:        childName,
		ChildAge:         childAge,
		ParentName:       p.Extract(raw.Body, KeyParentName),
		ParentEmail:      p.Extract(raw.Body, KeyParentEmail),
		ParentPhone:      CleanPhone(p.Extract(raw.Body, KeyParentPhone)),
		CampDates:        campDates,
		DatesExtracted:   datesExtracted,
		CampType:         campType,
		TotalCost:        cost,
		AmountPaid:       AmountPaid(status, cost),
		RegistrationID:   registrationID,
		Employer:         employer,
		Location:         p.Extract(raw.Body, KeyLocation),
	}
}

// FallbackRegistrationID derives a registration id from the source email id
// when the email carries no care request number. It is a fixed-length hash,
// not a timestamp, so reprocessing the same email always regenerates the
// same id.
func FallbackRegistrationID(emailID string) string {
	sum := sha256.Sum256([]byte(emailID))
	return "BH-" + hex.EncodeToString(sum[:6])
}

// Validate gates a candidate on minimum completeness. It returns the reason
// tag for the first failed rule; the empty reason with ok=true means the
// candidate may be persisted. Validation is a hard gate — there is no
// save-with-warnings mode.
func Validate(c models.Candidate) (reason string, ok bool) {
	switch {
	case c.ChildName == "":
		return ReasonMissingChildName, false
	case c.ParentName == "":
		return ReasonMissingParentName, false
	case c.DatesExtracted == 0:
		return ReasonNoCareDates, false
	}
	return "", true
}
