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

// Package normalize converts the loosely-typed records returned by platform
// adapters into canonical models. Missing keys resolve to zero values; a nil
// input yields a nil record. Normalization never fails.
package normalize

import (
	"strconv"
	"strings"

	"github.com/intelvis/pulse/pkg/models"
)

// DefaultCarrierSuffixes is the observed set of per-subscription key suffixes
// emitted by multi-SIM devices. The set is an allow-list, not assumed
// exhaustive; deployments can extend it via configuration.
var DefaultCarrierSuffixes = []string{
	"_0000000100000001",
	"_0000000100000002",
}

// Placeholder values some carriers report instead of omitting the field.
var carrierPlaceholders = map[string]struct{}{
	"--":    {},
	"65535": {},
}

// Location converts a raw adapter fix into a LocationRecord. Adapters
// disagree on key names (latitude/lat, longitude/lng, bearing/heading), so
// both spellings are accepted. Speed and bearing are clamped to >= 0.
func Location(raw map[string]interface{}) *models.LocationRecord {
	if raw == nil {
		return nil
	}

	rec := &models.LocationRecord{
		Latitude:  floatKey(raw, "latitude", "lat"),
		Longitude: floatKey(raw, "longitude", "lng"),
		Accuracy:  floatKey(raw, "accuracy"),
		Altitude:  floatKey(raw, "altitude"),
		Speed:     floatKey(raw, "speed"),
		Bearing:   floatKey(raw, "bearing", "heading"),
		Provider:  stringKey(raw, "provider"),
		Timestamp: int64(floatKey(raw, "timestamp")),
	}

	if rec.Speed < 0 {
		rec.Speed = 0
	}

	if rec.Bearing < 0 {
		rec.Bearing = 0
	}

	return rec
}

// Network converts a raw adapter record into a NetworkInfo. Carrier fields
// may appear under per-subscription suffixed keys; the first value that is
// not a designated placeholder wins, checking the unsuffixed key first.
// A nil suffix slice falls back to DefaultCarrierSuffixes.
func Network(raw map[string]interface{}, suffixes []string) *models.NetworkInfo {
	if raw == nil {
		return nil
	}

	if suffixes == nil {
		suffixes = DefaultCarrierSuffixes
	}

	info := &models.NetworkInfo{
		PublicIP:          stringKey(raw, "publicIp"),
		LocalIP:           stringKey(raw, "ipAddress", "localIp"),
		SSID:              stringKey(raw, "ssid"),
		BSSID:             stringKey(raw, "bssid"),
		CarrierName:       pickCarrier(raw, "carrierName", suffixes),
		ISOCountryCode:    pickCarrier(raw, "isoCountryCode", suffixes),
		MobileCountryCode: pickCarrier(raw, "mobileCountryCode", suffixes),
		MobileNetworkCode: pickCarrier(raw, "mobileNetworkCode", suffixes),
		NetworkType:       networkType(stringKey(raw, "networkType")),
	}

	if v, ok := boolKey(raw, "isConnected"); ok {
		info.IsConnected = &v
	}

	if s := pickCarrier(raw, "allowsVOIP", suffixes); s != "" {
		voip := strings.EqualFold(s, "true") || s == "1"
		info.AllowsVOIP = &voip
	} else if v, ok := boolKey(raw, "allowsVOIP"); ok {
		info.AllowsVOIP = &v
	}

	return info
}

// pickCarrier returns the first non-placeholder value for key across the
// unsuffixed key and the suffix allow-list.
func pickCarrier(raw map[string]interface{}, key string, suffixes []string) string {
	candidates := make([]string, 0, len(suffixes)+1)
	candidates = append(candidates, key)

	for _, suffix := range suffixes {
		candidates = append(candidates, key+suffix)
	}

	for _, candidate := range candidates {
		value := stringKey(raw, candidate)
		if value == "" {
			continue
		}

		if _, placeholder := carrierPlaceholders[value]; placeholder {
			continue
		}

		return value
	}

	return ""
}

func networkType(raw string) models.NetworkType {
	switch strings.ToLower(raw) {
	case "":
		return models.NetworkTypeUnknown
	case "wifi":
		return models.NetworkTypeWifi
	case "cellular", "mobile":
		return models.NetworkTypeCellular
	case "ethernet", "wired":
		return models.NetworkTypeEthernet
	case "loopback":
		return models.NetworkTypeLoopback
	case "unknown", "none":
		return models.NetworkTypeUnknown
	default:
		return models.NetworkTypeOther
	}
}

// stringKey returns the first key that holds a non-empty string. Booleans and
// numbers are stringified since adapters are inconsistent about value types.
func stringKey(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}

		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case bool:
			if v {
				return "true"
			}

			return "false"
		case float64:
			return trimFloat(v)
		case int:
			return trimFloat(float64(v))
		}
	}

	return ""
}

func floatKey(raw map[string]interface{}, keys ...string) float64 {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}

		switch v := value.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}

	return 0
}

func boolKey(raw map[string]interface{}, key string) (value, ok bool) {
	v, exists := raw[key]
	if !exists {
		return false, false
	}

	b, isBool := v.(bool)
	if !isBool {
		return false, false
	}

	return b, true
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}

	return strconv.FormatFloat(v, 'f', -1, 64)
}
