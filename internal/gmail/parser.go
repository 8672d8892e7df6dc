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

package gmail

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/icodeportal/ingestion/internal/models"
)

// gmailMessage mirrors the users.messages.get format=full response,
// limited to the fields the pipeline reads.
type gmailMessage struct {
	ID           string       `json:"id"`
	InternalDate string       `json:"internalDate"` // epoch millis as a string
	Payload      *messagePart `json:"payload"`
}

type messagePart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"` // base64url, no padding
	} `json:"body"`
	Parts []messagePart `json:"parts"`
}

// parseMessage converts a Gmail API message into the pipeline's raw form:
// subject and received time from headers, body from the first text part.
func parseMessage(msg *gmailMessage) (*models.RawEmail, error) {
	if msg.Payload == nil {
		return nil, fmt.Errorf("message %s has no payload", msg.ID)
	}

	subject := header(msg.Payload, "Subject")

	received := time.Time{}
	if date := header(msg.Payload, "Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			received = t.UTC()
		}
	}
	if received.IsZero() && msg.InternalDate != "" {
		if ms, err := strconv.ParseInt(msg.InternalDate, 10, 64); err == nil {
			received = time.UnixMilli(ms).UTC()
		}
	}

	body := bodyText(msg.Payload)

	return &models.RawEmail{
		ID:         msg.ID,
		Subject:    subject,
		Body:       body,
		ReceivedAt: received,
	}, nil
}

func header(p *messagePart, name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// bodyText extracts the message body, preferring text/plain over text/html.
// HTML bodies are reduced to plain text so the extraction patterns see the
// same line structure either way.
func bodyText(payload *messagePart) string {
	if plain := findPart(payload, "text/plain"); plain != "" {
		return plain
	}
	if html := findPart(payload, "text/html"); html != "" {
		return stripHTML(html)
	}
	return ""
}

// findPart walks the MIME tree depth-first for the first part of the given
// type with a decodable body.
func findPart(p *messagePart, mimeType string) string {
	if p == nil {
		return ""
	}
	if strings.HasPrefix(p.MimeType, mimeType) && p.Body.Data != "" {
		if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(p.Body.Data); err == nil {
			return string(decoded)
		}
	}
	for i := range p.Parts {
		if text := findPart(&p.Parts[i], mimeType); text != "" {
			return text
		}
	}
	return ""
}

var (
	htmlBreakRe = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</tr>|</li>`)
	htmlTagRe   = regexp.MustCompile(`<[^>]+>`)
)

// stripHTML turns an HTML body into line-oriented plain text: block-level
// closers become newlines, remaining tags are dropped, entities the
// notification templates actually use are unescaped.
func stripHTML(s string) string {
	s = htmlBreakRe.ReplaceAllString(s, "\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&#39;", "'",
		"&quot;", `"`,
	)
	s = replacer.Replace(s)

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
