package store

import "sync"

// PresenceStore tracks whether the partner is connected to the push channel
type PresenceStore struct {
	mu            sync.Mutex
	partnerOnline bool
	watchers      []func(online bool)
}

// NewPresenceStore creates a presence store
func NewPresenceStore() *PresenceStore {
	return &PresenceStore{}
}

// PartnerOnline returns the partner's current presence
func (s *PresenceStore) PartnerOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partnerOnline
}

// SetPartnerOnline records the partner's presence
func (s *PresenceStore) SetPartnerOnline(online bool) {
	s.mu.Lock()
	s.partnerOnline = online
	watchers := make([]func(bool), len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()
	for _, fn := range watchers {
		fn(online)
	}
}

// Watch registers a callback invoked on every presence change
func (s *PresenceStore) Watch(fn func(online bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}
