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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GmailConfig holds OAuth2 credentials and mailbox settings for the
// monitored Gmail account.
type GmailConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Label        string `yaml:"label"`       // label the notifications land under
	PubSubTopic  string `yaml:"pubsub_topic"` // projects/{project}/topics/{topic}
}

// CostConfig selects the pricing policy applied to parsed registrations.
type CostConfig struct {
	Policy        string  `yaml:"policy"` // "per_child_per_day" or "per_hour"
	DailyRate     float64 `yaml:"daily_rate"`
	HourlyRate    float64 `yaml:"hourly_rate"`
	WholeDayHours float64 `yaml:"whole_day_hours"`
}

// Config holds all configuration for the ingestion service.
type Config struct {
	Gmail GmailConfig
	Cost  CostConfig

	// Postgres
	DatabaseURL string

	// Redis
	RedisURL    string
	EventsQueue string

	// Gmail watches expire after ~7 days; re-register on this interval.
	WatchRenewInterval time.Duration

	// Pub/Sub push verification token (optional; empty disables the check).
	WebhookToken string

	// Clerk JWT verification secret (optional; empty accepts unverified tokens).
	ClerkSecret string

	// HTTP server
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Gmail GmailConfig `yaml:"gmail"`
	Cost  CostConfig  `yaml:"cost"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Events string `yaml:"events"`
		} `yaml:"queues"`
	} `yaml:"redis"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		Gmail:              raw.Gmail,
		Cost:               raw.Cost,
		DatabaseURL:        firstNonEmpty(raw.Database.URL, envOrDefault("DATABASE_URL", "postgres://localhost:5432/icode?sslmode=disable")),
		RedisURL:           firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		EventsQueue:        firstNonEmpty(raw.Redis.Queues.Events, envOrDefault("EVENTS_QUEUE", "registration-events")),
		WatchRenewInterval: envOrDefaultDuration("WATCH_RENEW_INTERVAL", 24*time.Hour),
		WebhookToken:       envOrDefault("WEBHOOK_TOKEN", ""),
		ClerkSecret:        envOrDefault("CLERK_SECRET_KEY", ""),
		Port:               envOrDefaultInt("PORT", 8080),
	}

	if cfg.Gmail.ClientID == "" {
		cfg.Gmail.ClientID = envOrDefault("GMAIL_CLIENT_ID", "")
	}
	if cfg.Gmail.ClientSecret == "" {
		cfg.Gmail.ClientSecret = envOrDefault("GMAIL_CLIENT_SECRET", "")
	}
	if cfg.Gmail.RefreshToken == "" {
		cfg.Gmail.RefreshToken = envOrDefault("GMAIL_REFRESH_TOKEN", "")
	}
	if cfg.Gmail.Label == "" {
		cfg.Gmail.Label = envOrDefault("GMAIL_LABEL", "bh-notifications")
	}
	if cfg.Gmail.PubSubTopic == "" {
		cfg.Gmail.PubSubTopic = envOrDefault("GMAIL_PUBSUB_TOPIC", "")
	}

	if cfg.Gmail.ClientID == "" || cfg.Gmail.ClientSecret == "" || cfg.Gmail.RefreshToken == "" {
		return nil, fmt.Errorf("gmail credentials not configured — check config.yaml and environment variables")
	}

	if cfg.Cost.Policy == "" {
		cfg.Cost.Policy = envOrDefault("COST_POLICY", "per_child_per_day")
	}
	if cfg.Cost.DailyRate == 0 {
		cfg.Cost.DailyRate = envOrDefaultFloat("COST_DAILY_RATE", 100)
	}
	if cfg.Cost.HourlyRate == 0 {
		cfg.Cost.HourlyRate = envOrDefaultFloat("COST_HOURLY_RATE", 15)
	}
	if cfg.Cost.WholeDayHours == 0 {
		cfg.Cost.WholeDayHours = envOrDefaultFloat("COST_WHOLE_DAY_HOURS", 8)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
