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

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelvis/pulse/pkg/models"
)

func TestLocationNilInput(t *testing.T) {
	assert.Nil(t, Location(nil))
}

func TestLocationAlternateKeyNames(t *testing.T) {
	rec := Location(map[string]interface{}{
		"lat":       40.7128,
		"lng":       -74.006,
		"heading":   182.5,
		"accuracy":  12.0,
		"provider":  "fused",
		"timestamp": 1717243200000.0,
	})

	require.NotNil(t, rec)
	assert.InDelta(t, 40.7128, rec.Latitude, 0.0001)
	assert.InDelta(t, -74.006, rec.Longitude, 0.0001)
	assert.InDelta(t, 182.5, rec.Bearing, 0.0001)
	assert.Equal(t, "fused", rec.Provider)
	assert.Equal(t, int64(1717243200000), rec.Timestamp)
}

func TestLocationClampsNegativeSpeedAndBearing(t *testing.T) {
	rec := Location(map[string]interface{}{
		"latitude":  1.0,
		"longitude": 2.0,
		"speed":     -1.0,
		"bearing":   -90.0,
	})

	require.NotNil(t, rec)
	assert.Zero(t, rec.Speed)
	assert.Zero(t, rec.Bearing)
}

func TestLocationMissingKeysDoNotPanic(t *testing.T) {
	rec := Location(map[string]interface{}{})

	require.NotNil(t, rec)
	assert.Zero(t, rec.Latitude)
	assert.Empty(t, rec.Provider)
}

func TestNetworkNilInput(t *testing.T) {
	assert.Nil(t, Network(nil, nil))
}

func TestNetworkPrefersUnsuffixedCarrierKey(t *testing.T) {
	info := Network(map[string]interface{}{
		"carrierName":                  "Vodafone",
		"carrierName_0000000100000001": "O2",
	}, nil)

	require.NotNil(t, info)
	assert.Equal(t, "Vodafone", info.CarrierName)
}

func TestNetworkSkipsPlaceholdersAcrossSuffixes(t *testing.T) {
	info := Network(map[string]interface{}{
		"carrierName":                        "--",
		"carrierName_0000000100000001":       "--",
		"carrierName_0000000100000002":       "T-Mobile",
		"mobileCountryCode":                  "65535",
		"mobileCountryCode_0000000100000001": "262",
	}, nil)

	require.NotNil(t, info)
	assert.Equal(t, "T-Mobile", info.CarrierName)
	assert.Equal(t, "262", info.MobileCountryCode)
}

func TestNetworkCustomSuffixAllowList(t *testing.T) {
	info := Network(map[string]interface{}{
		"carrierName_slot9": "Orange",
	}, []string{"_slot9"})

	require.NotNil(t, info)
	assert.Equal(t, "Orange", info.CarrierName)
}

func TestNetworkAllPlaceholdersYieldsEmpty(t *testing.T) {
	info := Network(map[string]interface{}{
		"carrierName":                  "--",
		"carrierName_0000000100000001": "65535",
	}, nil)

	require.NotNil(t, info)
	assert.Empty(t, info.CarrierName)
}

func TestNetworkConnectivityAndType(t *testing.T) {
	info := Network(map[string]interface{}{
		"isConnected": true,
		"networkType": "WiFi",
		"ssid":        "corp-net",
		"ipAddress":   "10.0.0.4",
	}, nil)

	require.NotNil(t, info)
	require.NotNil(t, info.IsConnected)
	assert.True(t, *info.IsConnected)
	assert.Equal(t, models.NetworkTypeWifi, info.NetworkType)
	assert.Equal(t, "corp-net", info.SSID)
	assert.Equal(t, "10.0.0.4", info.LocalIP)
}

func TestNetworkTypeMapping(t *testing.T) {
	cases := map[string]models.NetworkType{
		"cellular": models.NetworkTypeCellular,
		"mobile":   models.NetworkTypeCellular,
		"ethernet": models.NetworkTypeEthernet,
		"loopback": models.NetworkTypeLoopback,
		"none":     models.NetworkTypeUnknown,
		"vpn":      models.NetworkTypeOther,
		"":         models.NetworkTypeUnknown,
	}

	for raw, want := range cases {
		info := Network(map[string]interface{}{"networkType": raw}, nil)
		require.NotNil(t, info)
		assert.Equalf(t, want, info.NetworkType, "networkType %q", raw)
	}
}

func TestNetworkVOIPFlagFromSuffixedString(t *testing.T) {
	info := Network(map[string]interface{}{
		"allowsVOIP_0000000100000001": "true",
	}, nil)

	require.NotNil(t, info)
	require.NotNil(t, info.AllowsVOIP)
	assert.True(t, *info.AllowsVOIP)
}

func TestNetworkVOIPFlagFromBareBool(t *testing.T) {
	info := Network(map[string]interface{}{
		"allowsVOIP": false,
	}, nil)

	require.NotNil(t, info)
	require.NotNil(t, info.AllowsVOIP)
	assert.False(t, *info.AllowsVOIP)
}
