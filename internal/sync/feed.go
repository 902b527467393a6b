package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"shared-space-client/internal/models"
	"shared-space-client/internal/store"

	"github.com/rs/zerolog/log"
)

// FeedCoordinator performs the shared feeding ritual. The feed emit is
// fire-and-forget: the channel returns no correlated acknowledgment, so
// the coordinator re-fetches the space snapshot to observe the
// authoritative result. A partner-fed broadcast triggers the same
// re-fetch. The resulting double-refetch path is redundant but safe; both
// fetches converge on the latest server snapshot.
type FeedCoordinator struct {
	channel EventChannel
	space   *store.SpaceStore
}

// NewFeedCoordinator creates a feed coordinator
func NewFeedCoordinator(channel EventChannel, space *store.SpaceStore) *FeedCoordinator {
	return &FeedCoordinator{channel: channel, space: space}
}

// Feed emits the feeding action and re-fetches the space snapshot
func (f *FeedCoordinator) Feed(ctx context.Context, spaceID string) error {
	if spaceID == "" {
		return fmt.Errorf("no space to feed in")
	}
	if err := f.channel.Emit(models.EventFeedCat, models.SpaceRefPayload{SpaceID: spaceID}); err != nil {
		return fmt.Errorf("failed to send feed action: %w", err)
	}
	f.space.Refetch(ctx)
	return nil
}

// Start subscribes to the partner-fed broadcast for the lifetime of the
// context
func (f *FeedCoordinator) Start(ctx context.Context) {
	off := f.channel.On(models.EventPartnerFed, func(data json.RawMessage) {
		if ctx.Err() != nil {
			return
		}
		var payload models.PartnerFedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Error().Err(err).Msg("Malformed partner-fed payload")
			return
		}
		if payload.TodayFeeding == nil || len(payload.TodayFeeding.FedUsers) == 0 {
			return
		}
		log.Debug().Strs("fed_users", payload.TodayFeeding.FedUsers).Msg("Partner fed the cat")
		f.space.Refetch(ctx)
	})

	go func() {
		<-ctx.Done()
		off()
	}()
}
