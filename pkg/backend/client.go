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

// Package backend speaks the ingestion wire protocol: token acquisition via
// POST /get-token and snapshot delivery via POST /events, both JSON over an
// already-secure channel. Retry policy is bounded; the package never retries
// without a cap.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/intelvis/pulse/pkg/logger"
)

const (
	tokenPath  = "/get-token"
	eventsPath = "/events"

	defaultRequestTimeout = 30 * time.Second

	// Responses are acks, not bulk data; cap reads defensively.
	maxResponseBytes = 1 << 20
)

// ErrRequestTimeout marks an outbound call aborted by its per-call deadline.
var ErrRequestTimeout = errors.New("backend request timed out")

// StatusError is a non-2xx backend response. Server-side (5xx) statuses are
// retryable; everything else is a client error and terminates retry loops
// that honor IsRetryable.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
}

// IsRetryable reports whether the status indicates a transient server fault.
func (e *StatusError) IsRetryable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// Client is a thin JSON POST client bound to one backend base URL.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	logger         zerolog.Logger
}

// NewClient creates a Client. A nil httpClient uses a default client; the
// per-request timeout is enforced via context regardless.
func NewClient(baseURL string, httpClient *http.Client, requestTimeout time.Duration, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return &Client{
		baseURL:        baseURL,
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
		logger:         log.WithComponent("backend"),
	}
}

// postJSON marshals body, POSTs it to path and returns the raw response
// body. Non-2xx statuses yield a *StatusError.
func (c *Client) postJSON(ctx context.Context, path string, body interface{}, headers map[string]string) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request for %s: %w", path, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: POST %s after %s", ErrRequestTimeout, path, c.requestTimeout)
		}

		return nil, fmt.Errorf("POST %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", path, err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Backend call completed")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	return payload, nil
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
