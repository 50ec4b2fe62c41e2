// Package cooldown tracks how long an eliminated identity is barred from joining rooms.
package cooldown

import (
	"math"
	"sync"
	"time"
)

// Store maps an identity to the absolute time its ban ends.
// It owns no timers; expired entries are removed by Sweep and ignored by every lookup.
type Store struct {
	entries map[string]time.Time
	now     func() time.Time
	mutex   sync.RWMutex
}

// NewStore creates an empty store using the wall clock.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates an empty store that reads the current time from now.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

// Block bans identity for d starting now, replacing any existing entry.
func (s *Store) Block(identity string, d time.Duration) time.Time {
	until := s.now().Add(d)

	s.mutex.Lock()
	s.entries[identity] = until
	s.mutex.Unlock()
	return until
}

// Unblock drops the entry for identity, if any.
func (s *Store) Unblock(identity string) {
	s.mutex.Lock()
	delete(s.entries, identity)
	s.mutex.Unlock()
}

// IsBlocked reports whether identity has an unexpired entry.
func (s *Store) IsBlocked(identity string) bool {
	return s.Remaining(identity) > 0
}

// Remaining returns the whole seconds, rounded up, until identity may join again.
func (s *Store) Remaining(identity string) int {
	s.mutex.RLock()
	until, ok := s.entries[identity]
	s.mutex.RUnlock()
	if !ok {
		return 0
	}

	left := until.Sub(s.now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Sweep removes every entry whose expiry is at or before now and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	for identity, until := range s.entries {
		if !until.After(now) {
			delete(s.entries, identity)
			removed++
		}
	}
	return removed
}

// Tick lets the heartbeat drive Sweep.
func (s *Store) Tick(now time.Time) {
	s.Sweep(now)
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}
