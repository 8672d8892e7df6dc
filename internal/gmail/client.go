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

// Package gmail provides a message source over the Gmail REST API: fetching
// full messages, listing message ids by label, and managing the push-watch
// registration that feeds the webhook.
package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/icodeportal/ingestion/internal/models"
)

const defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// googleTokenURL is Google's OAuth2 token endpoint; the client authenticates
// with a long-lived refresh token obtained out of band.
const googleTokenURL = "https://oauth2.googleapis.com/token"

// Credentials holds the OAuth2 material for one mailbox.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Client talks to the Gmail API for a single mailbox ("me").
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Gmail client whose HTTP transport refreshes access
// tokens from the given refresh token.
func NewClient(ctx context.Context, creds Credentials) *Client {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: googleTokenURL},
	}
	token := &oauth2.Token{RefreshToken: creds.RefreshToken}

	return &Client{
		httpClient: conf.Client(ctx, token),
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithHTTP creates a client over an explicit HTTP client and base
// URL. Used by tests against a local server.
func NewClientWithHTTP(httpClient *http.Client, baseURL string) *Client {
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// GetMessage fetches the full content of one message. Returns (nil, nil)
// when the message no longer exists — deletions are routine, not errors.
func (c *Client) GetMessage(ctx context.Context, id string) (*models.RawEmail, error) {
	u := fmt.Sprintf("%s/users/me/messages/%s?format=full", c.baseURL, url.PathEscape(id))

	var msg gmailMessage
	status, err := c.getJSON(ctx, u, &msg)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		slog.Warn("message not found (may have been deleted)", "message_id", id)
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("gmail API returned HTTP %d for message %s", status, id)
	}

	email, err := parseMessage(&msg)
	if err != nil {
		return nil, fmt.Errorf("parse message %s: %w", id, err)
	}
	return email, nil
}

// ListMessageIDs returns up to maxResults message ids carrying the given
// label, newest first, paginating internally. An empty label lists the
// whole mailbox.
func (c *Client) ListMessageIDs(ctx context.Context, label string, maxResults int) ([]string, error) {
	labelID := ""
	if label != "" {
		var err error
		labelID, err = c.labelID(ctx, label)
		if err != nil {
			return nil, err
		}
		if labelID == "" {
			slog.Warn("gmail label not found", "label", label)
			return nil, nil
		}
	}

	var ids []string
	pageToken := ""
	for {
		remaining := maxResults - len(ids)
		if remaining <= 0 {
			break
		}

		params := url.Values{}
		params.Set("maxResults", strconv.Itoa(min(500, remaining)))
		if labelID != "" {
			params.Set("labelIds", labelID)
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page struct {
			Messages []struct {
				ID string `json:"id"`
			} `json:"messages"`
			NextPageToken string `json:"nextPageToken"`
		}
		status, err := c.getJSON(ctx, c.baseURL+"/users/me/messages?"+params.Encode(), &page)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("gmail message list returned HTTP %d", status)
		}

		for _, m := range page.Messages {
			ids = append(ids, m.ID)
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	slog.Debug("listed gmail messages", "label", label, "count", len(ids))
	return ids, nil
}

// WatchResponse is Gmail's answer to a watch registration.
type WatchResponse struct {
	HistoryID  string `json:"historyId"`
	Expiration string `json:"expiration"` // epoch millis as a string
}

// Watch registers push notifications for a label to a Pub/Sub topic
// (format: projects/{project}/topics/{topic}). Gmail expires watches after
// about seven days; callers re-register on an interval.
func (c *Client) Watch(ctx context.Context, label, topic string) (*WatchResponse, error) {
	labelID, err := c.labelID(ctx, label)
	if err != nil {
		return nil, err
	}
	if labelID == "" {
		return nil, fmt.Errorf("gmail label %q not found", label)
	}

	body, _ := json.Marshal(map[string]any{
		"labelIds":  []string{labelID},
		"topicName": topic,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/me/watch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build watch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("register watch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gmail watch returned HTTP %d: %s", resp.StatusCode, raw)
	}

	var watch WatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&watch); err != nil {
		return nil, fmt.Errorf("decode watch response: %w", err)
	}
	return &watch, nil
}

// Stop tears down the mailbox's push notification channel.
func (c *Client) Stop(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/me/stop", nil)
	if err != nil {
		return fmt.Errorf("build stop request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stop watch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("gmail stop returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// labelID resolves a label name to its id, "" when the label does not exist.
func (c *Client) labelID(ctx context.Context, name string) (string, error) {
	var result struct {
		Labels []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"labels"`
	}
	status, err := c.getJSON(ctx, c.baseURL+"/users/me/labels", &result)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("gmail label list returned HTTP %d", status)
	}

	for _, l := range result.Labels {
		if l.Name == name {
			return l.ID, nil
		}
	}
	return "", nil
}

// getJSON performs a GET and decodes a 2xx body into out. The status code
// is always returned so callers can special-case 404.
func (c *Client) getJSON(ctx context.Context, u string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gmail API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}
