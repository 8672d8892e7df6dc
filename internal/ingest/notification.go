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

package ingest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PushNotification is the decoded Gmail Pub/Sub hint. It never carries
// email content — only a signal that the watched mailbox changed; the
// receiver goes back to the API to fetch what is new.
type PushNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// pushEnvelope is the wrapper Cloud Pub/Sub POSTs to push endpoints.
type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodePushPayload unwraps a Pub/Sub push envelope: the notification JSON
// is base64-encoded in message.data.
func DecodePushPayload(payload []byte) (*PushNotification, error) {
	var env pushEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode push envelope: %w", err)
	}
	if env.Message.Data == "" {
		return nil, fmt.Errorf("push envelope has no message data")
	}

	data, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return nil, fmt.Errorf("decode message data: %w", err)
	}

	var n PushNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode gmail notification: %w", err)
	}
	return &n, nil
}
