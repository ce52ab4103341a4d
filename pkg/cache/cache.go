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

// Package cache provides a small in-memory TTL store for expensive lookups.
// Entries are invalidated purely by time: expiry is checked when a value is
// read, there is no background eviction. A miss is indistinguishable from
// "never cached".
package cache

import (
	"sync"
	"time"
)

// Kind names one cache slot. Each kind carries its own TTL, chosen by the
// caller at Put time.
type Kind string

const (
	KindDeviceInfo  Kind = "device_info"
	KindNetworkInfo Kind = "network_info"
	KindToken       Kind = "token"
)

type entry struct {
	value  interface{}
	expiry time.Time
}

// Store is a mutex-guarded TTL cache. The read path performs the expiry
// check atomically with the lookup, so concurrent readers never observe a
// stale value.
type Store struct {
	mu      sync.RWMutex
	entries map[Kind]entry
	now     func() time.Time
}

// NewStore creates an empty Store using wall-clock time.
func NewStore() *Store {
	return &Store{
		entries: make(map[Kind]entry),
		now:     time.Now,
	}
}

// NewStoreWithClock creates a Store with an injectable time source for tests.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		entries: make(map[Kind]entry),
		now:     now,
	}
}

// Get returns the cached value for kind if it has not expired. A value is
// live strictly before its expiry instant.
func (s *Store) Get(kind Kind) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[kind]
	if !ok {
		return nil, false
	}

	if !s.now().Before(e.expiry) {
		return nil, false
	}

	return e.value, true
}

// Put stores value under kind with the given TTL. A non-positive TTL stores
// an already-expired entry, which behaves identically to a miss.
func (s *Store) Put(kind Kind, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[kind] = entry{
		value:  value,
		expiry: s.now().Add(ttl),
	}
}

// Has reports whether a live entry exists for kind.
func (s *Store) Has(kind Kind) bool {
	_, ok := s.Get(kind)
	return ok
}

// Expiry returns the expiry instant recorded for kind, if any entry exists,
// live or not. Used by health reporting.
func (s *Store) Expiry(kind Kind) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[kind]
	if !ok {
		return time.Time{}, false
	}

	return e.expiry, true
}
