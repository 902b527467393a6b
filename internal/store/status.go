package store

import (
	"context"
	"sync"

	"shared-space-client/internal/models"
	"shared-space-client/internal/session"

	"github.com/rs/zerolog/log"
)

// IdentityAPI bootstraps and describes the current identity
type IdentityAPI interface {
	GetOrCreateIdentity(ctx context.Context) (string, error)
	GetMyInviteCode(ctx context.Context, forceRefresh bool) (string, error)
}

// SentRequestFetcher fetches the user's outbound invitation
type SentRequestFetcher interface {
	FetchSentRequest(ctx context.Context) (*models.JoinRequest, error)
}

// StatusStore aggregates the drivers of the home screen's branching UI:
// the invite code, whether a space exists, and the outbound invitation
// in flight.
type StatusStore struct {
	mu          sync.Mutex
	checking    bool
	myCode      string
	hasSpace    bool
	sentRequest *models.JoinRequest
	accepted    bool

	identity IdentityAPI
	spaces   SpaceFetcher
	requests SentRequestFetcher
	session  *session.Store

	initOnce sync.Once
}

// NewStatusStore creates a status store
func NewStatusStore(identity IdentityAPI, spaces SpaceFetcher, requests SentRequestFetcher, sess *session.Store) *StatusStore {
	return &StatusStore{
		checking: true,
		identity: identity,
		spaces:   spaces,
		requests: requests,
		session:  sess,
	}
}

// StatusSnapshot is a consistent read of the aggregate state
type StatusSnapshot struct {
	Checking    bool                `json:"checking"`
	MyCode      string              `json:"myCode"`
	HasSpace    bool                `json:"hasSpace"`
	SentRequest *models.JoinRequest `json:"sentRequest"`
	Accepted    bool                `json:"accepted"`
}

// Snapshot returns the current aggregate state
func (s *StatusStore) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusSnapshot{
		Checking:    s.checking,
		MyCode:      s.myCode,
		HasSpace:    s.hasSpace,
		SentRequest: s.sentRequest,
		Accepted:    s.accepted,
	}
}

// Initialize bootstraps the identity and runs the first status refresh.
// Initialization happens at most once per process.
func (s *StatusStore) Initialize(ctx context.Context) error {
	var err error
	s.initOnce.Do(func() {
		if _, err = s.identity.GetOrCreateIdentity(ctx); err != nil {
			return
		}
		s.RefreshStatus(ctx)
	})
	return err
}

// RefreshStatus re-derives the aggregate from the backend: invite code,
// space existence and the outbound invitation. Any failure conservatively
// resets the aggregate.
func (s *StatusStore) RefreshStatus(ctx context.Context) {
	if !s.session.Authenticated() {
		return
	}

	s.setChecking(true)
	defer s.setChecking(false)

	code, err := s.identity.GetMyInviteCode(ctx, false)
	if err != nil {
		log.Warn().Err(err).Msg("User status check failed")
		s.reset()
		return
	}
	space, err := s.spaces.FetchMySpace(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("User status check failed")
		s.reset()
		return
	}
	sent, err := s.requests.FetchSentRequest(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("User status check failed")
		s.reset()
		return
	}

	s.mu.Lock()
	s.myCode = code
	s.hasSpace = space.Valid()
	s.sentRequest = sent
	s.mu.Unlock()
}

// UpdateSpaceStatus refreshes only the has-space flag
func (s *StatusStore) UpdateSpaceStatus(ctx context.Context) {
	if !s.session.Authenticated() {
		return
	}
	space, err := s.spaces.FetchMySpace(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Space status update failed")
		s.mu.Lock()
		s.hasSpace = false
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	s.hasSpace = space.Valid()
	s.mu.Unlock()
}

// SentRequest returns the tracked outbound invitation, or nil
func (s *StatusStore) SentRequest() *models.JoinRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sentRequest
}

// HasSpace reports whether a complete space exists
func (s *StatusStore) HasSpace() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSpace
}

// SetSentRequest replaces the tracked outbound invitation
func (s *StatusStore) SetSentRequest(req *models.JoinRequest) {
	s.mu.Lock()
	s.sentRequest = req
	s.mu.Unlock()
}

// ClearSentRequestIf clears the tracked invitation only when its id still
// matches. This is the correctness guard against races where the outbound
// request pointer has already changed or been cleared; a stale event must
// not mutate state.
func (s *StatusStore) ClearSentRequestIf(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sentRequest == nil || s.sentRequest.ID != id {
		return false
	}
	s.sentRequest = nil
	return true
}

// SetAccepted records that the outbound invitation was accepted. Guarded by
// the same id check as ClearSentRequestIf.
func (s *StatusStore) SetAccepted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sentRequest == nil || s.sentRequest.ID != id {
		return false
	}
	s.sentRequest = nil
	s.accepted = true
	return true
}

// Accepted reports whether an outbound invitation was accepted this session
func (s *StatusStore) Accepted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

func (s *StatusStore) reset() {
	s.mu.Lock()
	s.myCode = ""
	s.hasSpace = false
	s.sentRequest = nil
	s.mu.Unlock()
}

func (s *StatusStore) setChecking(v bool) {
	s.mu.Lock()
	s.checking = v
	s.mu.Unlock()
}
