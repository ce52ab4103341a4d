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
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/intelvis/pulse/pkg/logger"
	"github.com/intelvis/pulse/pkg/models"
)

const (
	defaultSendAttempts   = 3
	defaultSendRetryDelay = time.Second
)

// EventPayload is the /events request body. Data carries the flattened
// snapshot plus contact metadata and caller extras.
type EventPayload struct {
	APIKey    string                 `json:"apiKey"`
	DeviceID  string                 `json:"deviceId"`
	Platform  string                 `json:"platform"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Transmitter delivers snapshots to the ingestion endpoint with bounded
// retries. Any failure (5xx, 4xx, transport) is retried up to the attempt
// cap; the final attempt's failure becomes the terminal result. It never
// returns an error: every outcome is a structured SendResult.
type Transmitter struct {
	client      *Client
	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewTransmitter wires a Transmitter around the shared backend client.
func NewTransmitter(client *Client, maxAttempts int, retryDelay time.Duration, log logger.Logger) *Transmitter {
	if maxAttempts <= 0 {
		maxAttempts = defaultSendAttempts
	}

	if retryDelay <= 0 {
		retryDelay = defaultSendRetryDelay
	}

	return &Transmitter{
		client:      client,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		now:         time.Now,
		logger:      log.WithComponent("transmit"),
	}
}

// Send posts the snapshot under the given bearer token. Contact and extra
// fields are merged into the data object, extras last so callers can
// override.
func (t *Transmitter) Send(ctx context.Context, token string, snap *models.DeviceSnapshot,
	contact, extra map[string]interface{}) *models.SendResult {
	start := t.now()

	data := snap.Flatten()

	for key, value := range contact {
		data[key] = value
	}

	for key, value := range extra {
		data[key] = value
	}

	payload := EventPayload{
		APIKey:    token,
		DeviceID:  snap.DeviceID,
		Platform:  snap.Platform,
		Timestamp: snap.Timestamp,
		Data:      data,
	}

	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Connection":    "keep-alive",
	}

	var (
		lastErr  error
		attempts int
	)

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		attempts = attempt
		response, err := t.client.postJSON(ctx, eventsPath, payload, headers)
		if err == nil {
			elapsed := t.now().Sub(start)

			t.logger.Info().
				Str("device_id", snap.DeviceID).
				Int("attempts", attempt).
				Dur("elapsed", elapsed).
				Msg("Snapshot delivered")

			return &models.SendResult{
				Success:   true,
				Snapshot:  snap,
				Response:  response,
				Duration:  elapsed,
				Attempts:  attempt,
				Retryable: false,
			}
		}

		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.IsRetryable() {
			t.logger.Error().Err(err).Int("attempt", attempt).Msg("Ingestion rejected the payload")
		} else {
			t.logger.Warn().Err(err).
				Int("attempt", attempt).
				Int("max_attempts", t.maxAttempts).
				Msg("Snapshot delivery failed")
		}

		if attempt == t.maxAttempts {
			break
		}

		if sleepErr := sleepCtx(ctx, t.retryDelay); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	return &models.SendResult{
		Success:   false,
		Snapshot:  snap,
		Duration:  t.now().Sub(start),
		Attempts:  attempts,
		Retryable: true,
		Error:     models.NewSendError(lastErr.Error()),
	}
}
