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
	"strings"

	"github.com/icodeportal/ingestion/internal/models"
)

// Classify decides whether an email is an authorization or a cancellation.
// A cancellation keyword anywhere in subject or body wins; otherwise the
// email is treated as an enrollment. There are no intermediate states.
func (p *Parser) Classify(subject, body string) models.Status {
	combined := strings.ToLower(subject + " " + body)

	if pat, ok := p.lib.Lookup(KeyCancellation); ok && pat.Expr().MatchString(combined) {
		return models.StatusCancelled
	}
	return models.StatusEnrolled
}
