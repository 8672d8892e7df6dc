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

import "strings"

// headerArtifacts are literal header fragments a greedy recipient match can
// mis-capture; they are never child names.
var headerArtifacts = map[string]struct{}{
	"Care Recipient Details": {},
	"Details":                {},
}

// Children returns every care recipient named in the body, in first-seen
// order with duplicates removed. Both known layouts are tried and their
// matches concatenated, since a single email may use either:
//
//	Care Recipient(s):
//	Ava Smith
//
//	Care Recipient Details:
//	Name: Ava Smith
//
// The result ordering is stable across repeated calls on identical input.
func (p *Parser) Children(body string) []string {
	var names []string

	for _, key := range []string{KeyRecipientsSimple, KeyRecipientsDetailed} {
		pat, ok := p.lib.Lookup(key)
		if !ok {
			continue
		}
		for _, m := range pat.Expr().FindAllStringSubmatch(body, -1) {
			if pat.Group < len(m) {
				names = append(names, m[pat.Group])
			}
		}
	}

	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, artifact := headerArtifacts[name]; artifact {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}

	return unique
}

// legacyChild is the single-child fallback used when both multi-recipient
// layouts yield nothing. It matches older emails that only ever named one
// child.
func (p *Parser) legacyChild(body string) string {
	if name := p.Extract(body, KeyChildNameSimple); name != "" {
		return name
	}
	return p.Extract(body, KeyChildNameDetailed)
}
