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

// Package snapshot assembles Device Snapshots from independently-failing
// data sources. Every source is fetched concurrently and isolated: one
// adapter failing substitutes a documented default and never aborts its
// siblings. Build itself cannot fail.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/intelvis/pulse/pkg/cache"
	"github.com/intelvis/pulse/pkg/collector"
	"github.com/intelvis/pulse/pkg/logger"
	"github.com/intelvis/pulse/pkg/models"
	"github.com/intelvis/pulse/pkg/normalize"
)

const (
	staticInfoTTL  = 5 * time.Minute
	networkInfoTTL = 30 * time.Second

	defaultAdapterTimeout = 10 * time.Second

	defaultUnknown     = "Unknown"
	defaultAppVersion  = "1.0.0"
	defaultBuildNumber = "1"
	defaultPackageName = "unknown.package"
	defaultDeviceType  = "Handset"
)

// Source tags used in collection error records.
const (
	sourceDeviceInfo = "deviceInfo"
	sourceLocation   = "location"
	sourceAdID       = "adId"
	sourceBuilder    = "builder"
)

// Config tunes the builder. Zero values take documented defaults.
type Config struct {
	Platform        string          `json:"platform"`
	DeviceType      string          `json:"device_type"`
	CarrierSuffixes []string        `json:"carrier_suffixes"`
	IPEchoEndpoints []string        `json:"ip_echo_endpoints"`
	IPQueryTimeout  models.Duration `json:"ip_query_timeout"`
	IPMaxAttempts   int             `json:"ip_max_attempts"`
	IPRetryDelay    models.Duration `json:"ip_retry_delay"`
	AdapterTimeout  models.Duration `json:"adapter_timeout"`
}

func (c Config) withDefaults() Config {
	if c.Platform == "" {
		c.Platform = "go"
	}

	if c.DeviceType == "" {
		c.DeviceType = defaultDeviceType
	}

	if c.CarrierSuffixes == nil {
		c.CarrierSuffixes = normalize.DefaultCarrierSuffixes
	}

	if len(c.IPEchoEndpoints) == 0 {
		c.IPEchoEndpoints = DefaultIPEchoEndpoints
	}

	if c.IPQueryTimeout == 0 {
		c.IPQueryTimeout = models.Duration(defaultIPQueryTimeout)
	}

	if c.IPMaxAttempts == 0 {
		c.IPMaxAttempts = defaultIPMaxAttempts
	}

	if c.IPRetryDelay == 0 {
		c.IPRetryDelay = models.Duration(defaultIPRetryDelay)
	}

	if c.AdapterTimeout == 0 {
		c.AdapterTimeout = models.Duration(defaultAdapterTimeout)
	}

	return c
}

// Builder constructs Device Snapshots, caching the static subset for five
// minutes and network info for thirty seconds.
type Builder struct {
	cfg      Config
	adapters collector.Adapters
	cache    *cache.Store
	resolver *ipResolver
	logger   zerolog.Logger
	now      func() time.Time

	idMu     sync.Mutex
	deviceID string
}

// NewBuilder wires a Builder. A nil httpClient falls back to a default
// client; timeouts are applied per request via context.
func NewBuilder(cfg Config, adapters collector.Adapters, store *cache.Store, httpClient *http.Client, log logger.Logger) *Builder {
	cfg = cfg.withDefaults()

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Builder{
		cfg:      cfg,
		adapters: adapters,
		cache:    store,
		resolver: &ipResolver{
			client:       httpClient,
			endpoints:    cfg.IPEchoEndpoints,
			queryTimeout: time.Duration(cfg.IPQueryTimeout),
			maxAttempts:  cfg.IPMaxAttempts,
			retryDelay:   time.Duration(cfg.IPRetryDelay),
			logger:       log.WithComponent("publicip"),
		},
		logger: log.WithComponent("snapshot"),
		now:    time.Now,
	}
}

// Build assembles one Device Snapshot. It never returns nil and never fails:
// a total collapse yields a minimal snapshot carrying a synthetic error id.
func (b *Builder) Build(ctx context.Context) (snap *models.DeviceSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("Snapshot build panicked")
			snap = b.minimalSnapshot(fmt.Sprintf("snapshot build panicked: %v", r))
		}
	}()

	start := b.now()

	if cached, ok := b.cache.Get(cache.KindDeviceInfo); ok {
		if static, isSnap := cached.(*models.DeviceSnapshot); isSnap {
			b.logger.Debug().Msg("Using cached static device info")
			return b.refreshDynamic(ctx, static, start)
		}
	}

	return b.buildFresh(ctx, start)
}

// refreshDynamic reuses cached static attributes and refetches only the
// inherently dynamic sources, each isolated from the other.
func (b *Builder) refreshDynamic(ctx context.Context, static *models.DeviceSnapshot, start time.Time) *models.DeviceSnapshot {
	snap := *static

	var (
		wg       sync.WaitGroup
		network  *models.NetworkInfo
		location *models.LocationRecord
		locErr   error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		defer b.recoverBranch("network", nil)
		network = b.networkInfo(ctx)
	}()

	go func() {
		defer wg.Done()
		defer b.recoverBranch(sourceLocation, &locErr)
		location, locErr = b.location(ctx)
	}()

	wg.Wait()

	snap.Network = network
	snap.Location = location
	snap.Timestamp = b.now().UTC().Format(time.RFC3339)

	if locErr != nil {
		snap.CollectionErrors = append(snap.CollectionErrors,
			models.CollectionError{Source: sourceLocation, Message: locErr.Error()})
	}

	b.logger.Debug().Dur("elapsed", b.now().Sub(start)).Msg("Snapshot assembled from cache")

	return &snap
}

// buildFresh fans out every source concurrently and merges the outcomes.
func (b *Builder) buildFresh(ctx context.Context, start time.Time) *models.DeviceSnapshot {
	var (
		wg sync.WaitGroup

		static    *collector.StaticInfo
		staticErr error
		network   *models.NetworkInfo
		location  *models.LocationRecord
		locErr    error
		adID      string
		adErr     error
	)

	wg.Add(4)

	go func() {
		defer wg.Done()
		defer b.recoverBranch(sourceDeviceInfo, &staticErr)
		static, staticErr = b.staticInfo(ctx)
	}()

	go func() {
		defer wg.Done()
		defer b.recoverBranch("network", nil)
		network = b.networkInfo(ctx)
	}()

	go func() {
		defer wg.Done()
		defer b.recoverBranch(sourceLocation, &locErr)
		location, locErr = b.location(ctx)
	}()

	go func() {
		defer wg.Done()
		defer b.recoverBranch(sourceAdID, &adErr)
		adID, adErr = b.advertisingID(ctx)
	}()

	wg.Wait()

	now := b.now()
	snap := &models.DeviceSnapshot{
		DeviceID:   b.resolveDeviceID(static, now),
		Platform:   b.cfg.Platform,
		DeviceType: b.cfg.DeviceType,
		Timezone:   localTimezone(),
		Timestamp:  now.UTC().Format(time.RFC3339),
		Network:    network,
		Location:   location,
		AdID:       adID,
	}

	b.applyStatic(snap, static)

	if staticErr != nil {
		snap.CollectionErrors = append(snap.CollectionErrors,
			models.CollectionError{Source: sourceDeviceInfo, Message: staticErr.Error()})
	}

	if locErr != nil {
		snap.CollectionErrors = append(snap.CollectionErrors,
			models.CollectionError{Source: sourceLocation, Message: locErr.Error()})
	}

	if adErr != nil && !errors.Is(adErr, collector.ErrUnavailable) {
		snap.CollectionErrors = append(snap.CollectionErrors,
			models.CollectionError{Source: sourceAdID, Message: adErr.Error()})
	}

	b.cache.Put(cache.KindDeviceInfo, snap.StaticCopy(), staticInfoTTL)

	b.logger.Debug().Dur("elapsed", b.now().Sub(start)).
		Int("collection_errors", len(snap.CollectionErrors)).
		Msg("Fresh snapshot assembled")

	return snap
}

// staticInfo fetches the essential and hardware bundles through the device
// info adapter under the adapter timeout.
func (b *Builder) staticInfo(ctx context.Context) (*collector.StaticInfo, error) {
	if b.adapters.DeviceInfo == nil {
		return nil, collector.ErrUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(b.cfg.AdapterTimeout))
	defer cancel()

	info, err := b.adapters.DeviceInfo.GetDeviceStaticInfo(callCtx)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, collector.ErrTimeout
		}

		return nil, err
	}

	return info, nil
}

func (b *Builder) location(ctx context.Context) (*models.LocationRecord, error) {
	// Location absence is not an error, so a missing adapter yields nil.
	if b.adapters.Location == nil {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(b.cfg.AdapterTimeout))
	defer cancel()

	raw, err := b.adapters.Location.GetLocation(callCtx)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, collector.ErrTimeout
		}

		if errors.Is(err, collector.ErrUnavailable) {
			return nil, nil
		}

		return nil, err
	}

	return normalize.Location(raw), nil
}

func (b *Builder) advertisingID(ctx context.Context) (string, error) {
	if b.adapters.AdID == nil {
		return "", collector.ErrUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(b.cfg.AdapterTimeout))
	defer cancel()

	id, err := b.adapters.AdID.GetAdID(callCtx)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", collector.ErrTimeout
		}

		return "", err
	}

	return id, nil
}

// resolveDeviceID fixes the device identifier on first use and keeps it
// stable for the process lifetime, even if later static fetches fail.
func (b *Builder) resolveDeviceID(static *collector.StaticInfo, now time.Time) string {
	b.idMu.Lock()
	defer b.idMu.Unlock()

	if b.deviceID != "" {
		return b.deviceID
	}

	if static != nil && static.StableID != "" {
		b.deviceID = static.StableID
	} else {
		b.deviceID = fallbackDeviceID(b.cfg.Platform, now)
		b.logger.Warn().Str("device_id", b.deviceID).Msg("No stable device id available, generated fallback")
	}

	return b.deviceID
}

// applyStatic merges the static bundle into the snapshot, substituting the
// documented default wherever a field is missing.
func (b *Builder) applyStatic(snap *models.DeviceSnapshot, static *collector.StaticInfo) {
	if static == nil {
		static = &collector.StaticInfo{}
	}

	snap.Brand = orDefault(static.Brand, defaultUnknown)
	snap.Model = orDefault(static.Model, defaultUnknown)
	snap.SystemName = orDefault(static.OSName, b.cfg.Platform)
	snap.SystemVersion = orDefault(static.OSVersion, defaultUnknown)
	snap.AppVersion = orDefault(static.AppVersion, defaultAppVersion)
	snap.BuildNumber = orDefault(static.BuildNumber, defaultBuildNumber)
	snap.PackageName = orDefault(static.PackageID, defaultPackageName)
	snap.Manufacturer = orDefault(static.Manufacturer, defaultUnknown)
	snap.DeviceName = orDefault(static.DeviceName, defaultUnknown)
	snap.TotalMemory = static.TotalMemory
	snap.UsedMemory = static.UsedMemory
	snap.IsTablet = static.IsTablet
}

func (b *Builder) minimalSnapshot(message string) *models.DeviceSnapshot {
	now := b.now()

	return &models.DeviceSnapshot{
		DeviceID:  errorDeviceID(b.cfg.Platform, now),
		Platform:  b.cfg.Platform,
		Timestamp: now.UTC().Format(time.RFC3339),
		CollectionErrors: []models.CollectionError{
			{Source: sourceBuilder, Message: message},
		},
	}
}

// recoverBranch converts a panicking collector branch into a recorded error
// so one source cannot take down its siblings.
func (b *Builder) recoverBranch(source string, errOut *error) {
	r := recover()
	if r == nil {
		return
	}

	b.logger.Error().Interface("panic", r).Str("source", source).Msg("Collector branch panicked")

	if errOut != nil {
		*errOut = fmt.Errorf("%s collector panicked: %v", source, r)
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

// localTimezone resolves the IANA zone name without touching the network.
func localTimezone() string {
	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}

	if tz := os.Getenv("TZ"); tz != "" {
		return tz
	}

	return "UTC"
}
