// Package session holds the current identity. All outbound network calls
// read this state at call time to stamp identity headers.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shared-space-client/internal/storage"

	"github.com/golang-jwt/jwt/v5"
)

// Store is the process-wide identity state
type Store struct {
	mu     sync.RWMutex
	userID string
	token  string

	local *storage.Store
}

// NewStore creates a session store backed by local storage
func NewStore(local *storage.Store) *Store {
	return &Store{local: local}
}

// LoadPersisted restores identity from local storage, if present
func (s *Store) LoadPersisted(ctx context.Context) error {
	userID, err := s.local.Get(ctx, storage.KeyUserID)
	if err != nil {
		return fmt.Errorf("failed to load user id: %w", err)
	}
	token, err := s.local.Get(ctx, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	s.mu.Lock()
	s.userID = userID
	s.token = token
	s.mu.Unlock()
	return nil
}

// Identity returns the current user id and token
func (s *Store) Identity() (userID, token string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.token
}

// UserID returns the current user id
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Authenticated reports whether both user id and token are present
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID != "" && s.token != ""
}

// SetAuth replaces the identity and persists it
func (s *Store) SetAuth(ctx context.Context, userID, token string) error {
	if err := s.local.Set(ctx, storage.KeyUserID, userID); err != nil {
		return err
	}
	if err := s.local.Set(ctx, storage.KeyToken, token); err != nil {
		return err
	}

	s.mu.Lock()
	s.userID = userID
	s.token = token
	s.mu.Unlock()
	return nil
}

// SetToken replaces only the token and persists it
func (s *Store) SetToken(ctx context.Context, token string) error {
	if err := s.local.Set(ctx, storage.KeyToken, token); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// TokenExpired inspects the bearer token's exp claim without verifying the
// signature (the client does not hold the signing secret). A token that
// cannot be parsed is treated as expired.
func (s *Store) TokenExpired() bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return true
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.Before(time.Now())
}
