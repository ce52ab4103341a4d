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

// Package sdk exposes the public surface: Init, SendData, StopSendingData,
// HealthCheck and TestAdapters. A Session owns the caches, the snapshot
// builder, the backend clients and the periodic delivery scheduler.
package sdk

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/intelvis/pulse/pkg/backend"
	"github.com/intelvis/pulse/pkg/cache"
	"github.com/intelvis/pulse/pkg/collector"
	"github.com/intelvis/pulse/pkg/config"
	"github.com/intelvis/pulse/pkg/logger"
	"github.com/intelvis/pulse/pkg/models"
	"github.com/intelvis/pulse/pkg/snapshot"
)

const notInitializedMessage = "SDK not initialized, call Init with an application id first"

// Session is the SDK entry point. All methods are safe for concurrent use.
type Session struct {
	cfg      *config.Config
	adapters collector.Adapters
	store    *cache.Store
	builder  *snapshot.Builder
	tokens   *backend.TokenManager
	transmit *backend.Transmitter
	clock    Clock
	logger   zerolog.Logger

	mu      sync.Mutex
	appID   string
	contact map[string]interface{}
	sched   *scheduler
	cancel  context.CancelFunc
}

// NewSession wires a Session from config. Nil adapter slots fall back to the
// gopsutil host collector for device info and connectivity; ad id, location
// and native network stay absent unless the embedder supplies them.
func NewSession(cfg *config.Config, adapters collector.Adapters, log logger.Logger) *Session {
	if cfg == nil {
		cfg = config.Default()
	} else {
		cfg.ApplyDefaults()
	}

	if adapters.DeviceInfo == nil || adapters.Connectivity == nil {
		hc := collector.NewHostCollector(cfg.App)
		if adapters.DeviceInfo == nil {
			adapters.DeviceInfo = hc
		}

		if adapters.Connectivity == nil {
			adapters.Connectivity = hc
		}
	}

	httpClient := &http.Client{}
	store := cache.NewStore()
	client := backend.NewClient(cfg.BaseURL, httpClient, time.Duration(cfg.RequestTimeout), log)

	return &Session{
		cfg:      cfg,
		adapters: adapters,
		store:    store,
		builder:  snapshot.NewBuilder(cfg.Snapshot, adapters, store, httpClient, log),
		tokens:   backend.NewTokenManager(client, store, cfg.TokenMaxAttempts, time.Duration(cfg.TokenRetryDelay), log),
		transmit: backend.NewTransmitter(client, cfg.SendMaxAttempts, time.Duration(cfg.SendRetryDelay), log),
		clock:    realClock{},
		logger:   log.WithComponent("session"),
	}
}

// Init activates the session under the given application id and starts the
// periodic delivery loop. An empty appID fails closed. Re-initializing
// replaces the previous scheduler. The immediate first delivery runs in the
// background and its outcome does not affect the return value.
func (s *Session) Init(appID string, contact map[string]interface{}) bool {
	if appID == "" {
		s.logger.Error().Msg("Init rejected: empty application id")
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()

	if s.sched != nil {
		prev, prevCancel := s.sched, s.cancel
		s.mu.Unlock()
		prevCancel()
		prev.stop()
		s.mu.Lock()
	}

	s.appID = appID
	s.contact = contact
	s.cancel = cancel
	s.sched = newScheduler(time.Duration(s.cfg.SendInterval), s.clock,
		func(tickCtx context.Context) *models.SendResult {
			return s.SendData(tickCtx, nil)
		}, s.logger.With().Str("unit", "scheduler").Logger())

	sched := s.sched
	s.mu.Unlock()

	s.logger.Info().Str("app_id", appID).Bool("has_contact", contact != nil).Msg("Session initialized")

	// First delivery fires immediately; init success does not depend on it.
	go func() {
		result := s.SendData(ctx, nil)
		if !result.Success && result.Error != nil {
			s.logger.Warn().Str("error", result.Error.Message).Msg("Initial delivery failed")
		}
	}()

	sched.start(ctx)

	return true
}

// SendData assembles a snapshot and delivers it, merging extra fields into
// the payload data. It never returns nil: an uninitialized session yields a
// non-retryable failure without any network activity.
func (s *Session) SendData(ctx context.Context, extra map[string]interface{}) *models.SendResult {
	s.mu.Lock()
	appID, contact := s.appID, s.contact
	s.mu.Unlock()

	if appID == "" {
		return &models.SendResult{
			Success:   false,
			Retryable: false,
			Error:     models.NewSendError(notInitializedMessage),
		}
	}

	start := s.clock.Now()
	snap := s.builder.Build(ctx)

	token, err := s.tokens.Get(ctx, appID, snap.DeviceID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Token acquisition failed, delivery skipped")

		return &models.SendResult{
			Success:   false,
			Snapshot:  snap,
			Duration:  s.clock.Now().Sub(start),
			Retryable: true,
			Error:     models.NewSendError("failed to obtain authentication token: " + err.Error()),
		}
	}

	return s.transmit.Send(ctx, token, snap, contact, extra)
}

// StopSendingData halts periodic delivery. It is idempotent and always
// returns true; manual SendData calls keep working afterwards.
func (s *Session) StopSendingData() bool {
	s.mu.Lock()
	sched, cancel := s.sched, s.cancel
	s.sched, s.cancel = nil, nil
	s.mu.Unlock()

	if sched == nil {
		return true
	}

	cancel()
	sched.stop()

	return true
}

// HealthCheck reports session, cache and adapter state without touching the
// network.
func (s *Session) HealthCheck() *models.HealthStatus {
	s.mu.Lock()
	appID, contact, active := s.appID, s.contact, s.sched != nil
	s.mu.Unlock()

	cacheHealth := models.CacheHealth{
		DeviceInfoCached:  s.store.Has(cache.KindDeviceInfo),
		NetworkInfoCached: s.store.Has(cache.KindNetworkInfo),
		TokenCached:       s.store.Has(cache.KindToken),
	}

	if expiry, ok := s.tokens.CachedExpiry(); ok {
		cacheHealth.TokenExpiry = expiry.UTC().Format(time.RFC3339)
	}

	return &models.HealthStatus{
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339),
		Session: models.SessionHealth{
			Initialized:     appID != "",
			AppID:           appID,
			HasContact:      contact != nil,
			SendInterval:    s.cfg.SendInterval,
			SchedulerActive: active,
		},
		Cache: cacheHealth,
		Adapters: map[string]bool{
			"adId":         s.adapters.AdID != nil,
			"location":     s.adapters.Location != nil,
			"network":      s.adapters.Network != nil,
			"deviceInfo":   s.adapters.DeviceInfo != nil,
			"connectivity": s.adapters.Connectivity != nil,
		},
		Platform: s.cfg.Snapshot.Platform,
	}
}

// TestAdapters probes each optional adapter once and reports the raw
// outcome. Intended for integration debugging, not production flows.
func (s *Session) TestAdapters(ctx context.Context) map[string]models.AdapterTestResult {
	results := make(map[string]models.AdapterTestResult, 3)

	results["adId"] = s.probe(func() (interface{}, error) {
		if s.adapters.AdID == nil {
			return nil, collector.ErrUnavailable
		}

		return s.adapters.AdID.GetAdID(ctx)
	})

	results["location"] = s.probe(func() (interface{}, error) {
		if s.adapters.Location == nil {
			return nil, collector.ErrUnavailable
		}

		return s.adapters.Location.GetLocation(ctx)
	})

	results["network"] = s.probe(func() (interface{}, error) {
		if s.adapters.Network == nil {
			return nil, collector.ErrUnavailable
		}

		return s.adapters.Network.GetNetworkInfo(ctx)
	})

	return results
}

func (s *Session) probe(call func() (interface{}, error)) models.AdapterTestResult {
	value, err := call()
	if err != nil {
		return models.AdapterTestResult{Success: false, Error: err.Error()}
	}

	return models.AdapterTestResult{Success: true, Result: value}
}
