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

// Package collector defines the adapter interfaces through which the SDK
// consumes platform capabilities, plus a gopsutil-backed host collector used
// when no platform-specific adapter is wired in. Adapters may fail, hang or
// return partial data; the snapshot builder isolates every call.
package collector

import (
	"context"

	"github.com/intelvis/pulse/pkg/models"
)

// StaticInfo is the raw bundle returned by a device static info query.
type StaticInfo struct {
	Brand        string
	Model        string
	OSName       string
	OSVersion    string
	AppVersion   string
	BuildNumber  string
	PackageID    string
	Manufacturer string
	DeviceName   string
	TotalMemory  *uint64
	UsedMemory   *uint64
	IsTablet     bool
	StableID     string
}

// AdIDProvider yields the platform advertising identifier. Implementations
// handle consent prompts internally.
type AdIDProvider interface {
	GetAdID(ctx context.Context) (string, error)
}

// LocationProvider yields a raw location fix as a loosely-typed record. The
// normalizer converts it to a canonical models.LocationRecord.
type LocationProvider interface {
	GetLocation(ctx context.Context) (map[string]interface{}, error)
}

// NetworkInfoProvider yields raw network/carrier metadata as a loosely-typed
// record, including the suffixed multi-SIM carrier keys some platforms emit.
type NetworkInfoProvider interface {
	GetNetworkInfo(ctx context.Context) (map[string]interface{}, error)
}

// DeviceInfoProvider yields the static hardware/software attribute bundle.
type DeviceInfoProvider interface {
	GetDeviceStaticInfo(ctx context.Context) (*StaticInfo, error)
}

// ConnectivityProvider is the generic connectivity check raced against the
// native network adapter.
type ConnectivityProvider interface {
	CheckConnectivity(ctx context.Context) (*models.NetworkInfo, error)
}

// Adapters bundles the capability set handed to the snapshot builder. Any
// entry may be nil; the builder substitutes documented defaults.
type Adapters struct {
	AdID         AdIDProvider
	Location     LocationProvider
	Network      NetworkInfoProvider
	DeviceInfo   DeviceInfoProvider
	Connectivity ConnectivityProvider
}
