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

package models

// CollectionError records one data source that failed during snapshot
// assembly. Collection errors are informational; they never abort a build.
type CollectionError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// DeviceSnapshot is one consistent bundle of device, network, location and
// identity data captured at a point in time. JSON tags follow the backend
// wire contract.
type DeviceSnapshot struct {
	DeviceID      string `json:"deviceId"`
	Brand         string `json:"brand,omitempty"`
	Model         string `json:"model,omitempty"`
	SystemName    string `json:"systemName,omitempty"`
	SystemVersion string `json:"systemVersion,omitempty"`
	AppVersion    string `json:"appVersion,omitempty"`
	BuildNumber   string `json:"buildNumber,omitempty"`
	PackageName   string `json:"packageName,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
	DeviceName    string `json:"deviceName,omitempty"`
	DeviceType    string `json:"deviceType,omitempty"`

	TotalMemory *uint64 `json:"totalMemory,omitempty"`
	UsedMemory  *uint64 `json:"usedMemory,omitempty"`
	IsTablet    bool    `json:"isTablet"`

	AdID     string          `json:"adId,omitempty"`
	Network  *NetworkInfo    `json:"network,omitempty"`
	Location *LocationRecord `json:"location,omitempty"`
	Timezone string          `json:"timezone,omitempty"`

	Platform  string `json:"platform"`
	Timestamp string `json:"timestamp"`

	CollectionErrors []CollectionError `json:"collectionErrors,omitempty"`
}

// StaticCopy returns a copy with the dynamic fields (network, location,
// timestamp, collection errors) stripped. This is the subset that is safe to
// cache across sends.
func (s *DeviceSnapshot) StaticCopy() *DeviceSnapshot {
	out := *s
	out.Network = nil
	out.Location = nil
	out.Timestamp = ""
	out.CollectionErrors = nil

	return &out
}

// Flatten produces the `data` object of the ingestion payload: every snapshot
// field keyed by its wire name. Contact metadata and caller extras are merged
// on top by the transmitter.
func (s *DeviceSnapshot) Flatten() map[string]interface{} {
	data := map[string]interface{}{
		"brand":         s.Brand,
		"model":         s.Model,
		"systemName":    s.SystemName,
		"systemVersion": s.SystemVersion,
		"appVersion":    s.AppVersion,
		"buildNumber":   s.BuildNumber,
		"packageName":   s.PackageName,
		"manufacturer":  s.Manufacturer,
		"deviceName":    s.DeviceName,
		"deviceType":    s.DeviceType,
		"isTablet":      s.IsTablet,
		"timezone":      s.Timezone,
	}

	if s.TotalMemory != nil {
		data["totalMemory"] = *s.TotalMemory
	}

	if s.UsedMemory != nil {
		data["usedMemory"] = *s.UsedMemory
	}

	if s.AdID != "" {
		data["adId"] = s.AdID
	}

	if s.Network != nil {
		data["network"] = s.Network
	}

	if s.Location != nil {
		data["location"] = s.Location
	}

	collectionErrors := s.CollectionErrors
	if collectionErrors == nil {
		collectionErrors = []CollectionError{}
	}

	data["collectionErrors"] = collectionErrors

	return data
}
