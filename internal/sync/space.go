package sync

import (
	"context"
	"encoding/json"

	"shared-space-client/internal/models"
	"shared-space-client/internal/store"

	"github.com/rs/zerolog/log"
)

// SpaceSession announces membership in a space on the push channel and
// tracks partner presence and server-initiated eviction while inside it.
type SpaceSession struct {
	channel  EventChannel
	presence *store.PresenceStore
	space    *store.SpaceStore
	notices  *store.NoticeStore
	nav      store.Navigator
}

// NewSpaceSession creates a space session controller
func NewSpaceSession(channel EventChannel, presence *store.PresenceStore, space *store.SpaceStore, notices *store.NoticeStore, nav store.Navigator) *SpaceSession {
	return &SpaceSession{channel: channel, presence: presence, space: space, notices: notices, nav: nav}
}

// Run joins the space, reacts to partner-status and space-deleted events,
// and leaves on context end. Teardown is safe even when the join emit never
// succeeded; handlers check the context before mutating.
func (s *SpaceSession) Run(ctx context.Context, spaceID string) {
	if spaceID == "" {
		return
	}

	if err := s.channel.Emit(models.EventJoinSpace, models.SpaceRefPayload{SpaceID: spaceID}); err != nil {
		log.Warn().Err(err).Str("space_id", spaceID).Msg("Failed to announce space join")
	} else {
		log.Info().Str("space_id", spaceID).Msg("Joined space")
	}

	offStatus := s.channel.On(models.EventPartnerStatus, func(data json.RawMessage) {
		if ctx.Err() != nil {
			return
		}
		var payload models.PartnerStatusPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Error().Err(err).Msg("Malformed partner-status payload")
			return
		}
		log.Debug().Bool("online", payload.Online).Msg("Partner status")
		s.presence.SetPartnerOnline(payload.Online)
	})

	offDeleted := s.channel.On(models.EventSpaceDeleted, func(data json.RawMessage) {
		if ctx.Err() != nil {
			return
		}
		var payload models.SpaceDeletedPayload
		_ = json.Unmarshal(data, &payload)
		log.Warn().Str("space_id", spaceID).Str("message", payload.Message).Msg("Space deleted by server")
		s.space.Clear()
		s.notices.Show(store.NoticeError, "", "小屋已被解散")
		s.nav.ReplaceHome("space deleted")
	})

	<-ctx.Done()

	offStatus()
	offDeleted()
	s.presence.SetPartnerOnline(false)
	if err := s.channel.Emit(models.EventLeaveSpace, models.SpaceRefPayload{SpaceID: spaceID}); err != nil {
		log.Debug().Err(err).Str("space_id", spaceID).Msg("Failed to announce space leave")
	} else {
		log.Info().Str("space_id", spaceID).Msg("Left space")
	}
}
