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

package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

var errAllEchoEndpointsFailed = errors.New("all public IP echo endpoints failed")

// DefaultIPEchoEndpoints are interchangeable HTTP services answering with
// {"ip": "..."} or {"origin": "..."}.
var DefaultIPEchoEndpoints = []string{
	"https://api.ipify.org?format=json",
	"https://httpbin.org/ip",
}

const (
	defaultIPQueryTimeout = 10 * time.Second
	defaultIPMaxAttempts  = 3
	defaultIPRetryDelay   = time.Second
)

// ipResolver races the echo endpoints and accepts the first success. A fully
// failed round is retried after a fixed delay, up to maxAttempts; after that
// the resolver degrades to an empty IP rather than failing the network fetch.
type ipResolver struct {
	client       *http.Client
	endpoints    []string
	queryTimeout time.Duration
	maxAttempts  int
	retryDelay   time.Duration
	logger       zerolog.Logger
}

type ipEchoResponse struct {
	IP     string `json:"ip"`
	Origin string `json:"origin"`
}

func (r *ipResolver) resolve(ctx context.Context) string {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		ip, err := r.race(ctx)
		if err == nil {
			r.logger.Debug().Str("public_ip", ip).Int("attempt", attempt).Msg("Public IP resolved")
			return ip
		}

		r.logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", r.maxAttempts).
			Msg("Public IP round failed")

		if attempt == r.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ""
		case <-time.After(r.retryDelay):
		}
	}

	return ""
}

// race queries every endpoint concurrently and returns the first successful
// answer. Remaining in-flight queries are canceled once a winner exists.
func (r *ipResolver) race(ctx context.Context) (string, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		ip  string
		err error
	}

	results := make(chan outcome, len(r.endpoints))

	for _, endpoint := range r.endpoints {
		go func(endpoint string) {
			ip, err := r.query(raceCtx, endpoint)
			results <- outcome{ip: ip, err: err}
		}(endpoint)
	}

	var lastErr error

	for range r.endpoints {
		o := <-results
		if o.err == nil && o.ip != "" {
			return o.ip, nil
		}

		if o.err != nil {
			lastErr = o.err
		}
	}

	if lastErr == nil {
		lastErr = errAllEchoEndpointsFailed
	}

	return "", lastErr
}

func (r *ipResolver) query(ctx context.Context, endpoint string) (string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(queryCtx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("building echo request for %s: %w", endpoint, err)
	}

	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("echo request to %s failed: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("echo endpoint %s returned HTTP %d", endpoint, resp.StatusCode)
	}

	var echo ipEchoResponse
	if err := json.NewDecoder(resp.Body).Decode(&echo); err != nil {
		return "", fmt.Errorf("decoding echo response from %s: %w", endpoint, err)
	}

	if echo.IP != "" {
		return echo.IP, nil
	}

	if echo.Origin != "" {
		return echo.Origin, nil
	}

	return "", fmt.Errorf("echo endpoint %s returned an empty address", endpoint)
}
