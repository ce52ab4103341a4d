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

package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelvis/pulse/pkg/collector"
	"github.com/intelvis/pulse/pkg/config"
	"github.com/intelvis/pulse/pkg/logger"
	"github.com/intelvis/pulse/pkg/models"
)

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) Chan() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()                  {}

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *fakeClock) Now() time.Time { return time.Now() }

func (f *fakeClock) Ticker(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTicker{ch: make(chan time.Time, 1)}
	f.tickers = append(f.tickers, t)

	return t
}

func (f *fakeClock) tick() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tickers {
		t.ch <- time.Now()
	}
}

type fakeDeviceInfo struct{}

func (fakeDeviceInfo) GetDeviceStaticInfo(context.Context) (*collector.StaticInfo, error) {
	return &collector.StaticInfo{Brand: "google", StableID: "stable-1"}, nil
}

type fakeConnectivity struct{}

func (fakeConnectivity) CheckConnectivity(context.Context) (*models.NetworkInfo, error) {
	connected := true
	return &models.NetworkInfo{IsConnected: &connected, NetworkType: models.NetworkTypeWifi}, nil
}

type fakeNetwork struct{}

func (fakeNetwork) GetNetworkInfo(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"carrier": "TestCell"}, nil
}

// backendCounts tracks calls per endpoint on the fake backend.
type backendCounts struct {
	tokens atomic.Int32
	events atomic.Int32
}

func newBackend(t *testing.T, tokenStatus, eventStatus int) (*httptest.Server, *backendCounts) {
	t.Helper()

	counts := &backendCounts{}
	mux := http.NewServeMux()

	mux.HandleFunc("/ip", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7"}`))
	})
	mux.HandleFunc("/get-token", func(w http.ResponseWriter, _ *http.Request) {
		counts.tokens.Add(1)

		if tokenStatus != http.StatusOK {
			w.WriteHeader(tokenStatus)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token":  "tok-test",
			"expiry": time.Now().Add(time.Hour).Unix(),
		})
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, _ *http.Request) {
		counts.events.Add(1)

		if eventStatus != http.StatusOK {
			w.WriteHeader(eventStatus)
			return
		}

		_, _ = w.Write([]byte(`{"ack":"ok"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, counts
}

func newTestSession(t *testing.T, srv *httptest.Server) *Session {
	t.Helper()

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.RequestTimeout = models.Duration(2 * time.Second)
	cfg.TokenRetryDelay = models.Duration(time.Millisecond)
	cfg.SendRetryDelay = models.Duration(time.Millisecond)
	cfg.Snapshot.Platform = "android"
	cfg.Snapshot.IPEchoEndpoints = []string{srv.URL + "/ip"}
	cfg.Snapshot.IPMaxAttempts = 1
	cfg.Snapshot.IPRetryDelay = models.Duration(time.Millisecond)
	cfg.Snapshot.AdapterTimeout = models.Duration(time.Second)

	s := NewSession(cfg, collector.Adapters{
		DeviceInfo:   fakeDeviceInfo{},
		Connectivity: fakeConnectivity{},
		Network:      fakeNetwork{},
	}, logger.NewTestLogger())
	t.Cleanup(func() { s.StopSendingData() })

	return s
}

func TestSendDataUninitialized(t *testing.T) {
	srv, counts := newBackend(t, http.StatusOK, http.StatusOK)
	s := newTestSession(t, srv)

	result := s.SendData(context.Background(), nil)

	require.False(t, result.Success)
	assert.False(t, result.Retryable)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Message, "not initialized")

	// No snapshot work and no network traffic before init.
	assert.Nil(t, result.Snapshot)
	assert.Equal(t, int32(0), counts.tokens.Load())
	assert.Equal(t, int32(0), counts.events.Load())
}

func TestInitRejectsEmptyAppID(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, http.StatusOK)
	s := newTestSession(t, srv)

	assert.False(t, s.Init("", nil))
	assert.False(t, s.HealthCheck().Session.Initialized)
}

func TestInitFiresImmediateSend(t *testing.T) {
	srv, counts := newBackend(t, http.StatusOK, http.StatusOK)
	s := newTestSession(t, srv)
	s.clock = &fakeClock{}

	require.True(t, s.Init("app-1", map[string]interface{}{"email": "ops@example.com"}))

	require.Eventually(t, func() bool {
		return counts.events.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInitSucceedsWhenBackendIsDown(t *testing.T) {
	srv, counts := newBackend(t, http.StatusInternalServerError, http.StatusOK)
	s := newTestSession(t, srv)
	s.clock = &fakeClock{}

	// Init reports success regardless of the first delivery outcome.
	require.True(t, s.Init("app-1", nil))

	require.Eventually(t, func() bool {
		return counts.tokens.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), counts.events.Load())
}

func TestSchedulerTickTriggersSend(t *testing.T) {
	srv, counts := newBackend(t, http.StatusOK, http.StatusOK)
	s := newTestSession(t, srv)

	clock := &fakeClock{}
	s.clock = clock

	require.True(t, s.Init("app-1", nil))

	// Wait out the immediate send, then drive the ticker by hand.
	require.Eventually(t, func() bool {
		return counts.events.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	clock.tick()

	require.Eventually(t, func() bool {
		return counts.events.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopSendingDataIsIdempotent(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, http.StatusOK)
	s := newTestSession(t, srv)

	// Stopping before init is a no-op that still reports success.
	assert.True(t, s.StopSendingData())

	require.True(t, s.Init("app-1", nil))

	assert.True(t, s.StopSendingData())
	assert.True(t, s.StopSendingData())
	assert.False(t, s.HealthCheck().Session.SchedulerActive)
}

func TestManualSendWorksAfterStop(t *testing.T) {
	srv, counts := newBackend(t, http.StatusOK, http.StatusOK)
	s := newTestSession(t, srv)
	s.clock = &fakeClock{}

	require.True(t, s.Init("app-1", nil))

	require.Eventually(t, func() bool {
		return counts.events.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.True(t, s.StopSendingData())

	before := counts.events.Load()
	result := s.SendData(context.Background(), map[string]interface{}{"trigger": "manual"})

	require.True(t, result.Success)
	assert.Equal(t, before+1, counts.events.Load())
}

func TestReInitReplacesScheduler(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, http.StatusOK)
	s := newTestSession(t, srv)

	clock := &fakeClock{}
	s.clock = clock

	require.True(t, s.Init("app-1", nil))
	require.True(t, s.Init("app-2", nil))

	health := s.HealthCheck()
	assert.Equal(t, "app-2", health.Session.AppID)
	assert.True(t, health.Session.SchedulerActive)
}

func TestSendDataTokenFailureIsRetryable(t *testing.T) {
	srv, counts := newBackend(t, http.StatusForbidden, http.StatusOK)
	s := newTestSession(t, srv)
	s.clock = &fakeClock{}

	require.True(t, s.Init("app-1", nil))

	result := s.SendData(context.Background(), nil)

	require.False(t, result.Success)
	assert.True(t, result.Retryable)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Message, "authentication token")

	// The snapshot was still assembled; only delivery was skipped.
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, "stable-1", result.Snapshot.DeviceID)
	assert.Equal(t, int32(0), counts.events.Load())
}

func TestHealthCheckReportsState(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, http.StatusOK)
	s := newTestSession(t, srv)
	s.clock = &fakeClock{}

	health := s.HealthCheck()
	assert.False(t, health.Session.Initialized)
	assert.False(t, health.Cache.TokenCached)
	assert.Equal(t, "android", health.Platform)
	assert.False(t, health.Adapters["adId"])
	assert.True(t, health.Adapters["deviceInfo"])
	assert.True(t, health.Adapters["network"])

	require.True(t, s.Init("app-1", map[string]interface{}{"email": "x"}))

	require.Eventually(t, func() bool {
		return s.HealthCheck().Cache.TokenCached
	}, 2*time.Second, 10*time.Millisecond)

	health = s.HealthCheck()
	assert.True(t, health.Session.Initialized)
	assert.True(t, health.Session.HasContact)
	assert.True(t, health.Session.SchedulerActive)
	assert.True(t, health.Cache.DeviceInfoCached)
	assert.NotEmpty(t, health.Cache.TokenExpiry)
}

func TestTestAdaptersReportsPerAdapter(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, http.StatusOK)
	s := newTestSession(t, srv)

	results := s.TestAdapters(context.Background())

	require.Contains(t, results, "adId")
	assert.False(t, results["adId"].Success)
	assert.NotEmpty(t, results["adId"].Error)

	require.Contains(t, results, "network")
	assert.True(t, results["network"].Success)
	raw, ok := results["network"].Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "TestCell", raw["carrier"])

	require.Contains(t, results, "location")
	assert.False(t, results["location"].Success)
}
