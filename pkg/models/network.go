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

import "time"

// NetworkType classifies the active network transport.
type NetworkType string

const (
	NetworkTypeWifi     NetworkType = "wifi"
	NetworkTypeCellular NetworkType = "cellular"
	NetworkTypeEthernet NetworkType = "ethernet"
	NetworkTypeLoopback NetworkType = "loopback"
	NetworkTypeOther    NetworkType = "other"
	NetworkTypeUnknown  NetworkType = "unknown"
)

// NetworkInfo is the normalized network and carrier state at capture time.
// Pointer booleans distinguish "unknown" from an explicit false.
type NetworkInfo struct {
	IsConnected       *bool       `json:"isConnected,omitempty"`
	PublicIP          string      `json:"publicIp,omitempty"`
	LocalIP           string      `json:"localIp,omitempty"`
	SSID              string      `json:"ssid,omitempty"`
	BSSID             string      `json:"bssid,omitempty"`
	CarrierName       string      `json:"carrierName,omitempty"`
	ISOCountryCode    string      `json:"isoCountryCode,omitempty"`
	MobileCountryCode string      `json:"mobileCountryCode,omitempty"`
	MobileNetworkCode string      `json:"mobileNetworkCode,omitempty"`
	AllowsVOIP        *bool       `json:"allowsVOIP,omitempty"`
	NetworkType       NetworkType `json:"networkType,omitempty"`
	CapturedAt        time.Time   `json:"capturedAt,omitempty"`
}

// Merge overlays non-zero fields of other onto a copy of n. Used to prefer
// the native adapter's carrier data over the generic connectivity check.
func (n *NetworkInfo) Merge(other *NetworkInfo) *NetworkInfo {
	if n == nil {
		return other
	}

	if other == nil {
		out := *n
		return &out
	}

	out := *n

	if other.IsConnected != nil {
		out.IsConnected = other.IsConnected
	}

	if other.PublicIP != "" {
		out.PublicIP = other.PublicIP
	}

	if other.LocalIP != "" {
		out.LocalIP = other.LocalIP
	}

	if other.SSID != "" {
		out.SSID = other.SSID
	}

	if other.BSSID != "" {
		out.BSSID = other.BSSID
	}

	if other.CarrierName != "" {
		out.CarrierName = other.CarrierName
	}

	if other.ISOCountryCode != "" {
		out.ISOCountryCode = other.ISOCountryCode
	}

	if other.MobileCountryCode != "" {
		out.MobileCountryCode = other.MobileCountryCode
	}

	if other.MobileNetworkCode != "" {
		out.MobileNetworkCode = other.MobileNetworkCode
	}

	if other.AllowsVOIP != nil {
		out.AllowsVOIP = other.AllowsVOIP
	}

	if other.NetworkType != "" && other.NetworkType != NetworkTypeUnknown {
		out.NetworkType = other.NetworkType
	}

	if !other.CapturedAt.IsZero() {
		out.CapturedAt = other.CapturedAt
	}

	return &out
}
