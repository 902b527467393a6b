package sync

import (
	"context"
	"encoding/json"

	"shared-space-client/internal/models"
	"shared-space-client/internal/store"

	"github.com/rs/zerolog/log"
)

// RequestSyncer keeps the request store consistent with the server's
// pending set: an initial pull, then push events for new, cancelled and
// consumed requests. Resolution of the user's own outbound invitation is
// the SentRequestWatcher's alone; handling request:accepted here as well
// would clear the tracked request before the watcher's id guard sees it.
type RequestSyncer struct {
	channel  EventChannel
	requests *store.RequestStore
}

// NewRequestSyncer creates a request syncer
func NewRequestSyncer(channel EventChannel, requests *store.RequestStore) *RequestSyncer {
	return &RequestSyncer{channel: channel, requests: requests}
}

// Start subscribes the push handlers and runs the initial fetch. Handlers
// are unsubscribed when the context ends, and check the context before
// mutating so an in-flight event cannot write into a torn-down scope.
func (s *RequestSyncer) Start(ctx context.Context) {
	offNew := s.channel.On(models.EventRequestNew, func(data json.RawMessage) {
		if ctx.Err() != nil {
			return
		}
		var payload struct {
			Request json.RawMessage `json:"request"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Error().Err(err).Msg("Malformed request:new payload")
			return
		}
		req, err := models.DecodeJoinRequest(payload.Request)
		if err != nil {
			log.Error().Err(err).Msg("Rejected request:new payload")
			return
		}
		s.requests.AddRequest(ctx, *req)
	})

	remove := func(data json.RawMessage) {
		if ctx.Err() != nil {
			return
		}
		var payload models.RequestIDPayload
		if err := json.Unmarshal(data, &payload); err != nil || payload.ID == "" {
			log.Error().Err(err).Msg("Malformed request id payload")
			return
		}
		s.requests.RemoveRequestByID(ctx, payload.ID)
	}
	offCancelled := s.channel.On(models.EventRequestCancelled, remove)
	offConsumed := s.channel.On(models.EventRequestConsumed, remove)

	s.requests.FetchRequests(ctx)

	go func() {
		<-ctx.Done()
		offNew()
		offCancelled()
		offConsumed()
	}()
}
