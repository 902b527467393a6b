package sync

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// LocationAPI reports the user's own position to the backend
type LocationAPI interface {
	ReportLocation(ctx context.Context, latitude, longitude float64, city, country, district string) error
}

// LocationReporter reports the client's position once per space entry,
// with exactly one manual retry on failure before giving up silently.
type LocationReporter struct {
	api LocationAPI

	mu       sync.Mutex
	reported map[string]bool
}

// NewLocationReporter creates a location reporter
func NewLocationReporter(api LocationAPI) *LocationReporter {
	return &LocationReporter{api: api, reported: make(map[string]bool)}
}

// ReportOnce reports the position for a space at most once. Repeat calls
// for the same space are no-ops until Reset.
func (r *LocationReporter) ReportOnce(ctx context.Context, spaceID string, latitude, longitude float64, city, country, district string) {
	r.mu.Lock()
	if r.reported[spaceID] {
		r.mu.Unlock()
		return
	}
	r.reported[spaceID] = true
	r.mu.Unlock()

	if err := r.api.ReportLocation(ctx, latitude, longitude, city, country, district); err != nil {
		log.Warn().Err(err).Msg("Location report failed, retrying once")
		if err := r.api.ReportLocation(ctx, latitude, longitude, city, country, district); err != nil {
			log.Error().Err(err).Msg("Location report retry failed")
		}
	}
}

// Reset forgets the reported flag for a space, allowing the next entry to
// report again
func (r *LocationReporter) Reset(spaceID string) {
	r.mu.Lock()
	delete(r.reported, spaceID)
	r.mu.Unlock()
}
