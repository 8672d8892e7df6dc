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

// Parser applies a pattern library to raw email text. It is stateless and
// safe for concurrent use.
type Parser struct {
	lib *Library
}

// NewParser creates a parser over the given pattern library.
func NewParser(lib *Library) *Parser {
	return &Parser{lib: lib}
}

// Extract returns the first capture group of the named pattern, trimmed of
// surrounding whitespace. Absence — an unknown key or no match — is a
// normal result and yields the empty string, never an error.
func (p *Parser) Extract(text, key string) string {
	pat, ok := p.lib.Lookup(key)
	if !ok {
		return ""
	}

	m := pat.Expr().FindStringSubmatch(text)
	if m == nil || pat.Group >= len(m) {
		return ""
	}
	return strings.TrimSpace(m[pat.Group])
}

// CleanPhone strips a raw phone field down to digits, keeping a leading "+".
func CleanPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
