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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelvis/pulse/pkg/logger"
	"github.com/intelvis/pulse/pkg/models"
)

func newTransmitter(t *testing.T, handler http.Handler) *Transmitter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, &http.Client{}, 5*time.Second, logger.NewTestLogger())

	return NewTransmitter(client, 3, time.Millisecond, logger.NewTestLogger())
}

func testSnapshot() *models.DeviceSnapshot {
	return &models.DeviceSnapshot{
		DeviceID:  "device-9",
		Brand:     "google",
		Platform:  "android",
		Timestamp: "2025-06-01T12:00:00Z",
	}
}

func TestSendSuccess(t *testing.T) {
	var captured EventPayload

	tx := newTransmitter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{"ack":"ok"}`))
	}))

	result := tx.Send(context.Background(), "tok-1", testSnapshot(),
		map[string]interface{}{"email": "ops@example.com"},
		map[string]interface{}{"campaign": "q2"})

	require.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.JSONEq(t, `{"ack":"ok"}`, string(result.Response))
	assert.NotNil(t, result.Snapshot)

	assert.Equal(t, "tok-1", captured.APIKey)
	assert.Equal(t, "device-9", captured.DeviceID)
	assert.Equal(t, "android", captured.Platform)
	assert.Equal(t, "google", captured.Data["brand"])
	assert.Equal(t, "ops@example.com", captured.Data["email"])
	assert.Equal(t, "q2", captured.Data["campaign"])
}

func TestSendExtraFieldsOverrideContact(t *testing.T) {
	var captured EventPayload

	tx := newTransmitter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{}`))
	}))

	result := tx.Send(context.Background(), "tok-1", testSnapshot(),
		map[string]interface{}{"channel": "contact"},
		map[string]interface{}{"channel": "extra"})

	require.True(t, result.Success)
	assert.Equal(t, "extra", captured.Data["channel"])
}

func TestSendRetriesServerErrorToCap(t *testing.T) {
	var calls atomic.Int32

	tx := newTransmitter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	result := tx.Send(context.Background(), "tok-1", testSnapshot(), nil, nil)

	require.False(t, result.Success)
	assert.True(t, result.Retryable)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), calls.Load())
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Message, "500")
	assert.NotNil(t, result.Snapshot)
}

func TestSendRecordsClientError(t *testing.T) {
	var calls atomic.Int32

	tx := newTransmitter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	result := tx.Send(context.Background(), "tok-1", testSnapshot(), nil, nil)

	require.False(t, result.Success)
	assert.True(t, result.Retryable)
	// Bounded by the same cap as server errors.
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), calls.Load())
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Message, "404")
}

func TestSendRecoversMidSequence(t *testing.T) {
	var calls atomic.Int32

	tx := newTransmitter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		_, _ = w.Write([]byte(`{"ack":"late"}`))
	}))

	result := tx.Send(context.Background(), "tok-1", testSnapshot(), nil, nil)

	require.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.GreaterOrEqual(t, result.Duration, time.Duration(0))
}

func TestSendStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	tx := newTransmitter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	tx.retryDelay = time.Minute

	done := make(chan *models.SendResult, 1)

	go func() { done <- tx.Send(ctx, "tok-1", testSnapshot(), nil, nil) }()

	select {
	case result := <-done:
		require.False(t, result.Success)
		assert.Equal(t, 1, result.Attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not observe cancellation")
	}
}
