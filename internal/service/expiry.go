package service

import (
	"sync"
	"time"
)

// ExpiryScheduler owns the per-trip countdown timers that auto-cancel
// unmatched trips. It is constructed at startup, injected where
// needed, and torn down at shutdown; the map mutation is the only
// critical section. Disarm is best effort: a timer that already fired
// is neutralized by the check-and-cancel condition at the data layer,
// never here.
type ExpiryScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewExpiryScheduler creates a new ExpiryScheduler.
func NewExpiryScheduler() *ExpiryScheduler {
	return &ExpiryScheduler{timers: make(map[string]*time.Timer)}
}

// Arm schedules fn to run after d unless the trip's timer is disarmed
// first. Re-arming an already armed trip replaces its timer.
func (s *ExpiryScheduler) Arm(tripID string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[tripID]; ok {
		timer.Stop()
	}

	s.timers[tripID] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, tripID)
		s.mu.Unlock()

		fn()
	})
}

// Disarm cancels the trip's pending timer. Returns false if no timer
// was pending, including when the timer already fired.
func (s *ExpiryScheduler) Disarm(tripID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[tripID]
	if !ok {
		return false
	}

	delete(s.timers, tripID)
	return timer.Stop()
}

// Stop cancels every pending timer. Called once at shutdown.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tripID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, tripID)
	}
}

// Armed reports whether the trip currently has a pending timer.
func (s *ExpiryScheduler) Armed(tripID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.timers[tripID]
	return ok
}
