/*
 * Copyright 2025 Intelvis Ltd.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads and validates SDK configuration from JSON files with
// environment variable overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/intelvis/pulse/pkg/collector"
	"github.com/intelvis/pulse/pkg/logger"
	"github.com/intelvis/pulse/pkg/models"
	"github.com/intelvis/pulse/pkg/snapshot"
)

const (
	// DefaultBaseURL is the production ingestion backend.
	DefaultBaseURL = "https://sdk.intelvis.org"

	defaultSendInterval   = 3 * time.Minute
	defaultRequestTimeout = 30 * time.Second
	defaultTokenDelay     = 3 * time.Second
	defaultSendDelay      = time.Second
	defaultMaxAttempts    = 3
)

var errBaseURLRequired = errors.New("base_url is required")

// Config is the full SDK configuration. Every field except AppID has a
// working default; AppID may also arrive programmatically at init time.
type Config struct {
	AppID   string                 `json:"app_id"`
	BaseURL string                 `json:"base_url"`
	Contact map[string]interface{} `json:"contact,omitempty"`

	SendInterval   models.Duration `json:"send_interval"`
	RequestTimeout models.Duration `json:"request_timeout"`

	TokenMaxAttempts int             `json:"token_max_attempts"`
	TokenRetryDelay  models.Duration `json:"token_retry_delay"`
	SendMaxAttempts  int             `json:"send_max_attempts"`
	SendRetryDelay   models.Duration `json:"send_retry_delay"`

	App      collector.AppInfo `json:"app"`
	Snapshot snapshot.Config   `json:"snapshot"`
	Logging  *logger.Config    `json:"logging,omitempty"`
}

// Default returns a Config pointed at the production backend with all
// defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()

	return cfg
}

// ApplyDefaults fills unset fields in place.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	if c.SendInterval == 0 {
		c.SendInterval = models.Duration(defaultSendInterval)
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = models.Duration(defaultRequestTimeout)
	}

	if c.TokenMaxAttempts == 0 {
		c.TokenMaxAttempts = defaultMaxAttempts
	}

	if c.TokenRetryDelay == 0 {
		c.TokenRetryDelay = models.Duration(defaultTokenDelay)
	}

	if c.SendMaxAttempts == 0 {
		c.SendMaxAttempts = defaultMaxAttempts
	}

	if c.SendRetryDelay == 0 {
		c.SendRetryDelay = models.Duration(defaultSendDelay)
	}
}

// Validate checks fields that have no usable fallback. AppID is checked at
// session init rather than here.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errBaseURLRequired
	}

	return nil
}

// LoadFile reads a JSON config file, applies PULSE_* environment overrides
// and defaults, and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv builds a Config from environment variables and defaults alone, for
// callers that have no config file.
func FromEnv() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()

	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PULSE_APP_ID"); v != "" {
		cfg.AppID = v
	}

	if v := os.Getenv("PULSE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}

	if v := os.Getenv("PULSE_PLATFORM"); v != "" {
		cfg.Snapshot.Platform = v
	}
}
