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

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/intelvis/pulse/pkg/cache"
	"github.com/intelvis/pulse/pkg/logger"
)

const (
	// A token this close to its expiry is treated as already expired and
	// refreshed before use.
	tokenExpiryMargin = 30 * time.Second

	// Applied when the server omits an expiry.
	defaultTokenLifetime = time.Hour

	defaultTokenAttempts   = 3
	defaultTokenRetryDelay = 3 * time.Second
)

var errTokenExhausted = errors.New("token retrieval attempts exhausted")

// Token is an issued bearer token and its expiry instant.
type Token struct {
	Value  string
	Expiry time.Time
}

type tokenRequest struct {
	AppID    string `json:"appId"`
	DeviceID string `json:"deviceId"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"`
}

// TokenManager obtains and refreshes the bearer token. It is the sole owner
// of the token cache slot.
type TokenManager struct {
	client      *Client
	cache       *cache.Store
	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewTokenManager wires a TokenManager around the shared backend client and
// cache store. Non-positive attempts or delay take the defaults.
func NewTokenManager(client *Client, store *cache.Store, maxAttempts int, retryDelay time.Duration, log logger.Logger) *TokenManager {
	if maxAttempts <= 0 {
		maxAttempts = defaultTokenAttempts
	}

	if retryDelay <= 0 {
		retryDelay = defaultTokenRetryDelay
	}

	return &TokenManager{
		client:      client,
		cache:       store,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		now:         time.Now,
		logger:      log.WithComponent("token"),
	}
}

// Get returns a live token for the device, fetching a fresh one when the
// cached token is absent or within the expiry margin. A server fault (5xx)
// or transport error is retried up to the attempt cap with a fixed delay;
// any other non-2xx response is fatal and returns an error immediately.
func (m *TokenManager) Get(ctx context.Context, appID, deviceID string) (string, error) {
	if cached, ok := m.cache.Get(cache.KindToken); ok {
		if token, isToken := cached.(Token); isToken {
			m.logger.Debug().Msg("Using cached token")
			return token.Value, nil
		}
	}

	body := tokenRequest{AppID: appID, DeviceID: deviceID}

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		payload, err := m.client.postJSON(ctx, tokenPath, body, nil)
		if err == nil {
			return m.store(payload)
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.IsRetryable() {
			m.logger.Error().Err(err).Msg("Token request rejected, not retrying")
			return "", err
		}

		m.logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", m.maxAttempts).
			Msg("Token request failed")

		if attempt == m.maxAttempts {
			return "", fmt.Errorf("%w: %w", errTokenExhausted, err)
		}

		if sleepErr := sleepCtx(ctx, m.retryDelay); sleepErr != nil {
			return "", sleepErr
		}
	}

	return "", errTokenExhausted
}

func (m *TokenManager) store(payload []byte) (string, error) {
	var resp tokenResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	if resp.Token == "" {
		return "", fmt.Errorf("decoding token response: empty token")
	}

	now := m.now()

	expiry := now.Add(defaultTokenLifetime)
	if resp.Expiry > 0 {
		expiry = time.Unix(resp.Expiry, 0)
	}

	// The expiry margin is baked into the cache TTL, so a cache hit is
	// always a token safe to use.
	ttl := expiry.Sub(now) - tokenExpiryMargin
	m.cache.Put(cache.KindToken, Token{Value: resp.Token, Expiry: expiry}, ttl)

	m.logger.Debug().Time("expiry", expiry).Msg("Token refreshed")

	return resp.Token, nil
}

// CachedExpiry exposes the stored token expiry for health reporting.
func (m *TokenManager) CachedExpiry() (time.Time, bool) {
	cached, ok := m.cache.Get(cache.KindToken)
	if !ok {
		return time.Time{}, false
	}

	token, isToken := cached.(Token)
	if !isToken {
		return time.Time{}, false
	}

	return token.Expiry, true
}
