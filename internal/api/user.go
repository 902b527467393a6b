// Package api wraps the backend's HTTP endpoints as stateless
// request/response functions.
package api

import (
	"context"
	"fmt"

	"shared-space-client/internal/session"
	"shared-space-client/internal/storage"
	"shared-space-client/internal/transport"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UserAPI calls the identity endpoints
type UserAPI struct {
	client  *transport.Client
	session *session.Store
	local   *storage.Store
}

// NewUserAPI creates a user API
func NewUserAPI(client *transport.Client, sess *session.Store, local *storage.Store) *UserAPI {
	return &UserAPI{client: client, session: sess, local: local}
}

type registerRequest struct {
	UserID string `json:"userId"`
}

type registerResponse struct {
	InviteCode string `json:"inviteCode"`
	Token      string `json:"token"`
}

// Register registers a client-generated user id with the backend and
// persists the issued token and invite code
func (a *UserAPI) Register(ctx context.Context, userID string) error {
	var resp registerResponse
	if err := a.client.Post(ctx, "/api/users/register", registerRequest{UserID: userID}, &resp); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	if err := a.session.SetAuth(ctx, userID, resp.Token); err != nil {
		return err
	}
	if err := a.local.Set(ctx, storage.KeyInviteCode, resp.InviteCode); err != nil {
		return err
	}

	log.Info().Str("user_id", userID).Msg("User registered")
	return nil
}

type refreshRequest struct {
	UserID   string `json:"userId"`
	OldToken string `json:"oldToken"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

// RefreshToken exchanges the current token for a new one. Failure means the
// identity has expired and must be regenerated.
func (a *UserAPI) RefreshToken(ctx context.Context) error {
	userID, oldToken := a.session.Identity()
	if oldToken == "" {
		return fmt.Errorf("no token to refresh")
	}

	var resp refreshResponse
	if err := a.client.Post(ctx, "/api/users/refresh-token", refreshRequest{UserID: userID, OldToken: oldToken}, &resp); err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	if err := a.session.SetToken(ctx, resp.Token); err != nil {
		return err
	}

	log.Debug().Str("user_id", userID).Msg("Token refreshed")
	return nil
}

// GetOrCreateIdentity makes sure a registered identity exists. A persisted
// identity is refreshed; a failed refresh (or a token that is already past
// its exp claim) triggers re-registration with a fresh id, replacing the
// session wholesale.
func (a *UserAPI) GetOrCreateIdentity(ctx context.Context) (string, error) {
	if err := a.session.LoadPersisted(ctx); err != nil {
		return "", err
	}

	userID := a.session.UserID()
	if userID == "" {
		userID = uuid.New().String()
		if err := a.Register(ctx, userID); err != nil {
			return "", err
		}
		return userID, nil
	}

	if !a.session.TokenExpired() {
		if err := a.RefreshToken(ctx); err == nil {
			return userID, nil
		}
		log.Warn().Str("user_id", userID).Msg("Token refresh failed, re-registering")
	} else {
		log.Warn().Str("user_id", userID).Msg("Token expired, re-registering")
	}

	// Identity expired: regenerate and register from scratch.
	userID = uuid.New().String()
	if err := a.local.Delete(ctx, storage.KeyInviteCode); err != nil {
		return "", err
	}
	if err := a.Register(ctx, userID); err != nil {
		return "", err
	}
	return userID, nil
}

type inviteCodeResponse struct {
	InviteCode string `json:"inviteCode"`
}

// GetMyInviteCode returns the user's invite code, preferring the locally
// cached copy unless forceRefresh is set
func (a *UserAPI) GetMyInviteCode(ctx context.Context, forceRefresh bool) (string, error) {
	if !forceRefresh {
		cached, err := a.local.Get(ctx, storage.KeyInviteCode)
		if err != nil {
			return "", err
		}
		if cached != "" {
			return cached, nil
		}
	}

	var resp inviteCodeResponse
	if err := a.client.Get(ctx, "/api/users/my-code", &resp); err != nil {
		return "", fmt.Errorf("failed to fetch invite code: %w", err)
	}
	if resp.InviteCode != "" {
		if err := a.local.Set(ctx, storage.KeyInviteCode, resp.InviteCode); err != nil {
			return "", err
		}
	}
	return resp.InviteCode, nil
}
