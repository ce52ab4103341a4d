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

// SessionHealth reports session state.
type SessionHealth struct {
	Initialized     bool     `json:"initialized"`
	AppID           string   `json:"appId,omitempty"`
	HasContact      bool     `json:"hasContact"`
	SendInterval    Duration `json:"sendInterval"`
	SchedulerActive bool     `json:"schedulerActive"`
}

// CacheHealth reports cache occupancy without exposing cached values.
type CacheHealth struct {
	DeviceInfoCached  bool   `json:"deviceInfoCached"`
	NetworkInfoCached bool   `json:"networkInfoCached"`
	TokenCached       bool   `json:"tokenCached"`
	TokenExpiry       string `json:"tokenExpiry,omitempty"`
}

// HealthStatus is the result of a healthCheck call.
type HealthStatus struct {
	Timestamp string          `json:"timestamp"`
	Session   SessionHealth   `json:"session"`
	Cache     CacheHealth     `json:"cache"`
	Adapters  map[string]bool `json:"adapters"`
	Platform  string          `json:"platform"`
}

// AdapterTestResult is one adapter's outcome from testAdapters.
type AdapterTestResult struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}
