package api

import (
	"context"
	"encoding/json"
	"fmt"

	"shared-space-client/internal/models"
	"shared-space-client/internal/transport"

	"github.com/rs/zerolog/log"
)

// SpaceAPI calls the space endpoints
type SpaceAPI struct {
	client *transport.Client
}

// NewSpaceAPI creates a space API
func NewSpaceAPI(client *transport.Client) *SpaceAPI {
	return &SpaceAPI{client: client}
}

// FetchMySpace returns the user's space. Having no space yet is a normal
// state, not an error: an HTTP 404 maps to (nil, nil).
func (a *SpaceAPI) FetchMySpace(ctx context.Context) (*models.Space, error) {
	var raw json.RawMessage
	if err := a.client.Get(ctx, "/api/spaces/my-space", &raw); err != nil {
		if transport.IsNotFound(err) {
			log.Debug().Msg("User has no space yet")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch space: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	space, err := models.DecodeSpace(raw)
	if err != nil {
		return nil, err
	}
	return space, nil
}

// DeleteMySpace dissolves the user's space
func (a *SpaceAPI) DeleteMySpace(ctx context.Context) error {
	if err := a.client.Delete(ctx, "/api/spaces/my-space"); err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}
	log.Info().Msg("Space deleted")
	return nil
}

type reportLocationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	District  string  `json:"district,omitempty"`
}

// ReportLocation reports the user's own position. A 404 means the space no
// longer exists and is swallowed; the caller should not treat it as failure.
func (a *SpaceAPI) ReportLocation(ctx context.Context, latitude, longitude float64, city, country, district string) error {
	body := reportLocationBody{
		Latitude:  latitude,
		Longitude: longitude,
		City:      city,
		Country:   country,
		District:  district,
	}
	if err := a.client.Post(ctx, "/api/spaces/report-location", body, nil); err != nil {
		if transport.IsNotFound(err) {
			log.Warn().Msg("Space no longer exists, location report ignored")
			return nil
		}
		return fmt.Errorf("failed to report location: %w", err)
	}
	return nil
}
