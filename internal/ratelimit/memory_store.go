package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often stale in-memory entries are dropped.
const DefaultSweepInterval = 5 * time.Minute

// MemoryStore keeps counters in process memory. It does not coordinate
// across instances; use RedisStore for that.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a store and starts its sweep loop. A non-positive
// interval disables the background sweep.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	} else {
		close(s.doneCh)
	}
	return s
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, key string, p Profile, blockFor time.Duration, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, res := advance(s.entries[key], now, p, blockFor)
	s.entries[key] = e
	return res, nil
}

// Sweep removes entries whose window and lockout have both elapsed and
// returns how many were dropped. Live and blocked entries are left alone.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.stale(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the sweep loop and drops all state.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		s.mu.Lock()
		s.entries = make(map[string]*entry)
		s.mu.Unlock()
	})
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(time.Now())
		case <-s.stopCh:
			return
		}
	}
}
