package sync

import (
	"context"
	"encoding/json"
	"time"

	"shared-space-client/internal/models"
	"shared-space-client/internal/store"

	"github.com/rs/zerolog/log"
)

// RequestByIDFetcher fetches a request by id; nil means it no longer exists
type RequestByIDFetcher interface {
	FetchRequestByID(ctx context.Context, id string) (*models.JoinRequest, error)
}

const rejectedNotice = "邀请已被拒绝，对方没有接受你的邀请"

// SentRequestWatcher detects the remote resolution of the outbound
// invitation while one is pending and no space exists yet. Push events are
// primary; interval polling covers reconnect gaps, keyed off the channel's
// Connected flag. Every mutation goes through the status store's id-guarded
// setters, so a stale event or poll result for a request that is no longer
// tracked is a no-op.
type SentRequestWatcher struct {
	channel  EventChannel
	requests RequestByIDFetcher
	status   *store.StatusStore
	notices  *store.NoticeStore
	interval time.Duration

	// onAccepted runs after the invitation is accepted, to pull the new
	// space into local state.
	onAccepted func(ctx context.Context)
}

// NewSentRequestWatcher creates a sent-request watcher
func NewSentRequestWatcher(channel EventChannel, requests RequestByIDFetcher, status *store.StatusStore, notices *store.NoticeStore, interval time.Duration, onAccepted func(ctx context.Context)) *SentRequestWatcher {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	return &SentRequestWatcher{
		channel:    channel,
		requests:   requests,
		status:     status,
		notices:    notices,
		interval:   interval,
		onAccepted: onAccepted,
	}
}

// Run watches until the invitation resolves, the preconditions stop
// holding, or the context ends. It blocks; run it in its own goroutine.
func (w *SentRequestWatcher) Run(ctx context.Context) {
	if w.status.SentRequest() == nil || w.status.HasSpace() {
		return
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	offAccepted := w.channel.On(models.EventRequestAccepted, func(data json.RawMessage) {
		if watchCtx.Err() != nil {
			return
		}
		id, ok := decodeID(data)
		if !ok {
			return
		}
		if w.status.SetAccepted(id) {
			w.handleAccepted(watchCtx)
			cancel()
		}
	})
	defer offAccepted()

	offRejected := w.channel.On(models.EventRequestRejected, func(data json.RawMessage) {
		if watchCtx.Err() != nil {
			return
		}
		id, ok := decodeID(data)
		if !ok {
			return
		}
		if w.status.ClearSentRequestIf(id) {
			w.notices.Show(store.NoticeError, "", rejectedNotice)
			cancel()
		}
	})
	defer offRejected()

	offCancelled := w.channel.On(models.EventRequestCancelled, func(data json.RawMessage) {
		if watchCtx.Err() != nil {
			return
		}
		id, ok := decodeID(data)
		if !ok {
			return
		}
		if w.status.ClearSentRequestIf(id) {
			cancel()
		}
	})
	defer offCancelled()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Immediate first check so a resolution that happened while the app was
	// closed is not delayed by a full interval.
	if done := w.pollOnce(watchCtx); done {
		return
	}

	for {
		select {
		case <-watchCtx.Done():
			return
		case <-ticker.C:
			if w.status.SentRequest() == nil || w.status.HasSpace() {
				return
			}
			if w.channel.Connected() {
				// Push covers the live connection; polling only fills
				// reconnect gaps.
				continue
			}
			if done := w.pollOnce(watchCtx); done {
				return
			}
		}
	}
}

// pollOnce re-fetches the tracked request and applies any terminal state.
// Returns true when watching should stop.
func (w *SentRequestWatcher) pollOnce(ctx context.Context) bool {
	sent := w.status.SentRequest()
	if sent == nil {
		return true
	}

	updated, err := w.requests.FetchRequestByID(ctx, sent.ID)
	if err != nil {
		log.Warn().Err(err).Str("request_id", sent.ID).Msg("Sent request poll failed")
		return false
	}
	if ctx.Err() != nil {
		return true
	}

	if updated == nil {
		// Request gone: cancelled server-side or consumed.
		w.status.ClearSentRequestIf(sent.ID)
		return true
	}

	// The tracked pointer may have changed while the fetch was in flight.
	switch updated.Status {
	case models.StatusAccepted:
		if w.status.SetAccepted(updated.ID) {
			w.handleAccepted(ctx)
		}
		return true
	case models.StatusRejected:
		if w.status.ClearSentRequestIf(updated.ID) {
			w.notices.Show(store.NoticeError, "", rejectedNotice)
		}
		return true
	case models.StatusCancelled:
		w.status.ClearSentRequestIf(updated.ID)
		return true
	}
	return false
}

func (w *SentRequestWatcher) handleAccepted(ctx context.Context) {
	log.Info().Msg("Outbound invitation accepted")
	if w.onAccepted != nil {
		w.onAccepted(ctx)
	}
}

func decodeID(data json.RawMessage) (string, bool) {
	var payload models.RequestIDPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ID == "" {
		log.Error().Err(err).Msg("Malformed request id payload")
		return "", false
	}
	return payload.ID, true
}
