package store

import (
	"context"
	"sync"

	"shared-space-client/internal/models"
	"shared-space-client/internal/session"
	"shared-space-client/internal/storage"

	"github.com/rs/zerolog/log"
)

// SpaceFetcher fetches the user's space snapshot from the backend
type SpaceFetcher interface {
	FetchMySpace(ctx context.Context) (*models.Space, error)
}

// SpaceStore caches the current space snapshot. A missing or incomplete
// space invalidates the cache and forces navigation back to the home
// screen; fetch errors are treated the same way (fail closed, never keep
// stale data).
type SpaceStore struct {
	mu      sync.Mutex
	space   *models.Space
	loading bool

	api     SpaceFetcher
	session *session.Store
	local   *storage.Store
	notices *NoticeStore
	nav     Navigator
}

// NewSpaceStore creates a space store
func NewSpaceStore(api SpaceFetcher, sess *session.Store, local *storage.Store, notices *NoticeStore, nav Navigator) *SpaceStore {
	return &SpaceStore{api: api, session: sess, local: local, notices: notices, nav: nav, loading: true}
}

// Space returns the cached snapshot, or nil
func (s *SpaceStore) Space() *models.Space {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.space
}

// Loading reports whether a foreground fetch is in progress
func (s *SpaceStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// FetchSpaceInfo fetches the space snapshot and reconciles local state.
// showLoading toggles the loading flag so background refreshes do not
// flicker the UI.
func (s *SpaceStore) FetchSpaceInfo(ctx context.Context, showLoading bool) {
	if s.session.UserID() == "" {
		log.Warn().Msg("No identity yet, skipping space fetch")
		return
	}

	if showLoading {
		s.setLoading(true)
		defer s.setLoading(false)
	}

	space, err := s.api.FetchMySpace(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load space")
		s.invalidate(ctx, "无法进入小屋，可能已被删除，将返回首页")
		return
	}
	if !space.Valid() {
		s.invalidate(ctx, "小屋不存在或已解散，将返回首页")
		return
	}

	s.mu.Lock()
	s.space = space
	s.mu.Unlock()
	if err := s.local.Set(ctx, storage.KeyCurrentSpaceID, space.ID); err != nil {
		log.Error().Err(err).Msg("Failed to persist current space id")
	}
}

// Refetch runs a background refresh without toggling the loading flag
func (s *SpaceStore) Refetch(ctx context.Context) {
	s.FetchSpaceInfo(ctx, false)
}

// Clear drops the cached snapshot without side effects
func (s *SpaceStore) Clear() {
	s.mu.Lock()
	s.space = nil
	s.loading = false
	s.mu.Unlock()
}

// invalidate evicts local space state and redirects home. The notice and
// navigation fire once per invalidation.
func (s *SpaceStore) invalidate(ctx context.Context, message string) {
	s.mu.Lock()
	s.space = nil
	s.mu.Unlock()

	if err := s.local.Delete(ctx, storage.KeyCurrentSpaceID); err != nil {
		log.Error().Err(err).Msg("Failed to clear current space id")
	}
	s.notices.Show(NoticeError, "", message)
	s.nav.ReplaceHome(message)
}

func (s *SpaceStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
