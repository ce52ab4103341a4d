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

package collector

import (
	"context"
	"errors"
)

// Adapter failure taxonomy. Adapters wrap platform errors into these
// sentinels so callers can classify without string matching.
var (
	// ErrPermissionDenied means the user declined the capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnavailable means the capability is not present on this platform.
	ErrUnavailable = errors.New("capability unavailable")
	// ErrTimeout means the adapter's bounded wait was exceeded.
	ErrTimeout = errors.New("adapter timed out")
	// ErrNoAdID means no advertising identifier exists for this device.
	ErrNoAdID = errors.New("advertising id unavailable")
	// ErrLocationDisabled means location services are switched off.
	ErrLocationDisabled = errors.New("location services disabled")
)

// Unavailable is a stub provider for capabilities absent on this platform.
// Every call fails with ErrUnavailable.
type Unavailable struct{}

func (Unavailable) GetAdID(context.Context) (string, error) { return "", ErrUnavailable }

func (Unavailable) GetLocation(context.Context) (map[string]interface{}, error) {
	return nil, ErrUnavailable
}

func (Unavailable) GetNetworkInfo(context.Context) (map[string]interface{}, error) {
	return nil, ErrUnavailable
}
