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

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMissOnUnknownKind(t *testing.T) {
	s := NewStore()

	value, ok := s.Get(KindNetworkInfo)
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore()
	s.Put(KindDeviceInfo, "payload", time.Minute)

	value, ok := s.Get(KindDeviceInfo)
	require.True(t, ok)
	assert.Equal(t, "payload", value)
}

func TestStoreExpiryBoundary(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base

	s := NewStoreWithClock(func() time.Time { return current })
	s.Put(KindNetworkInfo, "net", 30*time.Second)

	// One millisecond before expiry the entry is still live.
	current = base.Add(30*time.Second - time.Millisecond)
	value, ok := s.Get(KindNetworkInfo)
	require.True(t, ok)
	assert.Equal(t, "net", value)

	// At and past expiry the entry behaves like a miss.
	current = base.Add(30 * time.Second)
	_, ok = s.Get(KindNetworkInfo)
	assert.False(t, ok)

	current = base.Add(30*time.Second + time.Millisecond)
	_, ok = s.Get(KindNetworkInfo)
	assert.False(t, ok)
}

func TestStoreNonPositiveTTL(t *testing.T) {
	s := NewStore()
	s.Put(KindToken, "tok", 0)

	_, ok := s.Get(KindToken)
	assert.False(t, ok)
}

func TestStoreOverwrite(t *testing.T) {
	s := NewStore()
	s.Put(KindToken, "first", time.Minute)
	s.Put(KindToken, "second", time.Minute)

	value, ok := s.Get(KindToken)
	require.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestStoreExpiryInstant(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := NewStoreWithClock(func() time.Time { return base })
	s.Put(KindToken, "tok", time.Hour)

	expiry, ok := s.Expiry(KindToken)
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Hour), expiry)

	_, ok = s.Expiry(KindDeviceInfo)
	assert.False(t, ok)
}
