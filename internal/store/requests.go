package store

import (
	"context"
	"sync"

	"shared-space-client/internal/models"
	"shared-space-client/internal/session"
	"shared-space-client/internal/storage"

	"github.com/rs/zerolog/log"
)

// RequestLister fetches the server's current pending inbound invitations
type RequestLister interface {
	ListIncomingPending(ctx context.Context) ([]models.JoinRequest, error)
}

// RequestStore caches pending inbound invitations and derives the unread
// count from the persisted set of read ids. The count is recomputed from
// the set difference on every change, never tracked incrementally, so it
// survives store resets.
type RequestStore struct {
	mu          sync.Mutex
	requests    []models.JoinRequest
	unreadCount int

	api      RequestLister
	session  *session.Store
	local    *storage.Store
	watchers []func()
}

// NewRequestStore creates a request store
func NewRequestStore(api RequestLister, sess *session.Store, local *storage.Store) *RequestStore {
	return &RequestStore{api: api, session: sess, local: local}
}

// Watch registers a callback invoked after every state change
func (s *RequestStore) Watch(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// Requests returns a copy of the current pending list
func (s *RequestStore) Requests() []models.JoinRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.JoinRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// UnreadCount returns the derived unread count
func (s *RequestStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCount
}

// AddRequest prepends a request to the local list and recomputes the
// unread count
func (s *RequestStore) AddRequest(ctx context.Context, req models.JoinRequest) {
	s.mu.Lock()
	s.requests = append([]models.JoinRequest{req}, s.requests...)
	s.mu.Unlock()
	s.recalculateUnread(ctx)
	s.notify()
}

// RemoveRequestByID drops a request from the local list (cancelled or
// consumed) and recomputes the unread count
func (s *RequestStore) RemoveRequestByID(ctx context.Context, id string) {
	s.mu.Lock()
	kept := s.requests[:0]
	for _, r := range s.requests {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.requests = kept
	s.mu.Unlock()
	s.recalculateUnread(ctx)
	s.notify()
}

// SetRequests replaces the local list wholesale
func (s *RequestStore) SetRequests(ctx context.Context, requests []models.JoinRequest) {
	s.mu.Lock()
	s.requests = requests
	s.mu.Unlock()
	s.recalculateUnread(ctx)
	s.notify()
}

// FetchRequests replaces the local list with the server's current pending
// set. It is a no-op when no identity is present; fetch failures leave
// state unchanged.
func (s *RequestStore) FetchRequests(ctx context.Context) {
	if !s.session.Authenticated() {
		return
	}
	fresh, err := s.api.ListIncomingPending(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch incoming requests")
		return
	}
	s.SetRequests(ctx, fresh)
}

// recalculateUnread diffs the current list against the persisted read ids
func (s *RequestStore) recalculateUnread(ctx context.Context) {
	readIDs, err := s.local.ReadRequestIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load read request ids")
		return
	}
	read := make(map[string]struct{}, len(readIDs))
	for _, id := range readIDs {
		read[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, r := range s.requests {
		if _, ok := read[r.ID]; !ok {
			count++
		}
	}
	s.unreadCount = count
}

// MarkAllAsRead persists the current list's ids as read and zeroes the
// unread count
func (s *RequestStore) MarkAllAsRead(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.requests))
	for _, r := range s.requests {
		ids = append(ids, r.ID)
	}
	s.mu.Unlock()

	if err := s.local.SetReadRequestIDs(ctx, ids); err != nil {
		return err
	}

	s.mu.Lock()
	s.unreadCount = 0
	s.mu.Unlock()
	s.notify()
	return nil
}

// MarkRead merges the given ids into the persisted read set and recomputes
// the unread count
func (s *RequestStore) MarkRead(ctx context.Context, ids []string) error {
	readIDs, err := s.local.ReadRequestIDs(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(readIDs))
	for _, id := range readIDs {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			readIDs = append(readIDs, id)
		}
	}
	if err := s.local.SetReadRequestIDs(ctx, readIDs); err != nil {
		return err
	}

	s.recalculateUnread(ctx)
	s.notify()
	return nil
}

func (s *RequestStore) notify() {
	s.mu.Lock()
	watchers := make([]func(), len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()
	for _, fn := range watchers {
		fn()
	}
}
