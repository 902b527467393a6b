package api

import (
	"context"
	"errors"
	"fmt"

	"shared-space-client/internal/models"
	"shared-space-client/internal/transport"

	"github.com/rs/zerolog/log"
)

// ErrDuplicateRequest means the user already has an outbound pending
// invitation. The server allows at most one at a time.
var ErrDuplicateRequest = errors.New("an invitation has already been sent")

// RequestAPI calls the join-request endpoints
type RequestAPI struct {
	client *transport.Client
}

// NewRequestAPI creates a request API
func NewRequestAPI(client *transport.Client) *RequestAPI {
	return &RequestAPI{client: client}
}

type requestEnvelope struct {
	Request *models.JoinRequest `json:"request"`
}

type requestListEnvelope struct {
	Requests []models.JoinRequest `json:"requests"`
}

// SendRequest sends an invitation addressed by invite code. An HTTP 409
// maps to ErrDuplicateRequest.
func (a *RequestAPI) SendRequest(ctx context.Context, toInviteCode, message, spaceName, fromUserName string) (*models.JoinRequest, error) {
	body := map[string]string{
		"toInviteCode": toInviteCode,
		"message":      message,
		"spaceName":    spaceName,
		"fromUserName": fromUserName,
	}
	var req models.JoinRequest
	if err := a.client.Post(ctx, "/api/requests", body, &req); err != nil {
		if transport.IsConflict(err) {
			return nil, ErrDuplicateRequest
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return &req, nil
}

// FetchSentRequest returns the user's outbound request, or nil if none exists
func (a *RequestAPI) FetchSentRequest(ctx context.Context) (*models.JoinRequest, error) {
	var resp requestEnvelope
	if err := a.client.Get(ctx, "/api/requests/sent", &resp); err != nil {
		if transport.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch sent request: %w", err)
	}
	return resp.Request, nil
}

// FetchRequestByID returns a request by id, or nil if it no longer exists
func (a *RequestAPI) FetchRequestByID(ctx context.Context, id string) (*models.JoinRequest, error) {
	var resp requestEnvelope
	if err := a.client.Get(ctx, "/api/requests/"+id, &resp); err != nil {
		if transport.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch request %s: %w", id, err)
	}
	return resp.Request, nil
}

// ListIncomingPending returns the user's pending inbound invitations
func (a *RequestAPI) ListIncomingPending(ctx context.Context) ([]models.JoinRequest, error) {
	var resp requestListEnvelope
	if err := a.client.Get(ctx, "/api/requests/incoming", &resp); err != nil {
		return nil, fmt.Errorf("failed to list incoming requests: %w", err)
	}
	return resp.Requests, nil
}

type respondBody struct {
	ToUserName string `json:"toUserName,omitempty"`
}

// RespondToRequest accepts or rejects an inbound invitation. toUserName is
// the recipient's display name inside the new space; it is only sent on
// accept.
func (a *RequestAPI) RespondToRequest(ctx context.Context, id string, status models.RequestStatus, toUserName string) error {
	if status != models.StatusAccepted && status != models.StatusRejected {
		return fmt.Errorf("invalid response status %q", status)
	}
	body := respondBody{}
	if status == models.StatusAccepted {
		body.ToUserName = toUserName
	}
	if err := a.client.Patch(ctx, "/api/requests/"+id+"/"+string(status), body, nil); err != nil {
		return fmt.Errorf("failed to respond to request %s: %w", id, err)
	}
	log.Info().Str("request_id", id).Str("status", string(status)).Msg("Responded to request")
	return nil
}

// CancelRequest withdraws the user's outbound invitation
func (a *RequestAPI) CancelRequest(ctx context.Context, id string) error {
	if err := a.client.Delete(ctx, "/api/requests/"+id); err != nil {
		return fmt.Errorf("failed to cancel request %s: %w", id, err)
	}
	log.Info().Str("request_id", id).Msg("Request cancelled")
	return nil
}
