package sync

import (
	"context"
	"testing"
	"time"

	"shared-space-client/internal/models"
	"shared-space-client/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, channel *fakeChannel, fetcher *fakeRequestFetcher, status *store.StatusStore, notices *store.NoticeStore, onAccepted func(context.Context)) chan struct{} {
	t.Helper()
	w := NewSentRequestWatcher(channel, fetcher, status, notices, 20*time.Millisecond, onAccepted)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return done
}

func waitSubscribed(t *testing.T, channel *fakeChannel) {
	t.Helper()
	// The cancelled handler registers last, so its presence implies all
	// three subscriptions are live.
	require.Eventually(t, func() bool {
		return channel.handlerCount(models.EventRequestCancelled) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSentRequestWatcher_NoPendingRequestExitsImmediately(t *testing.T) {
	status := newStatusStore(t)
	done := startWatcher(t, newFakeChannel(true), &fakeRequestFetcher{}, status, store.NewNoticeStore(), nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not exit")
	}
}

func TestSentRequestWatcher_RejectedEventClearsAndNotifies(t *testing.T) {
	status := newStatusStore(t)
	sent := pendingRequest("r1")
	status.SetSentRequest(&sent)
	notices := store.NewNoticeStore()

	channel := newFakeChannel(true)
	fetcher := &fakeRequestFetcher{results: []*models.JoinRequest{&sent}}
	done := startWatcher(t, channel, fetcher, status, notices, nil)
	waitSubscribed(t, channel)

	// Event for a different request id must not mutate anything.
	channel.fire(t, models.EventRequestRejected, models.RequestIDPayload{ID: "r2"})
	require.NotNil(t, status.SentRequest())
	assert.Empty(t, notices.Pending())

	channel.fire(t, models.EventRequestRejected, models.RequestIDPayload{ID: "r1"})
	assert.Nil(t, status.SentRequest())
	require.Len(t, notices.Pending(), 1)
	assert.Equal(t, store.NoticeError, notices.Pending()[0].Type)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after terminal event")
	}
}

func TestSentRequestWatcher_AcceptedEventRunsCallback(t *testing.T) {
	status := newStatusStore(t)
	sent := pendingRequest("r1")
	status.SetSentRequest(&sent)

	accepted := make(chan struct{}, 1)
	channel := newFakeChannel(true)
	fetcher := &fakeRequestFetcher{results: []*models.JoinRequest{&sent}}
	done := startWatcher(t, channel, fetcher, status, store.NewNoticeStore(), func(context.Context) {
		accepted <- struct{}{}
	})
	waitSubscribed(t, channel)

	channel.fire(t, models.EventRequestAccepted, models.RequestIDPayload{ID: "r1"})

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatal("onAccepted was not invoked")
	}
	assert.True(t, status.Accepted())
	assert.Nil(t, status.SentRequest())
	<-done
}

// A stale accepted event arriving after the request was already cleared by
// a rejection must not re-set accepted state.
func TestSentRequestWatcher_OutOfOrderAcceptedIsIgnored(t *testing.T) {
	status := newStatusStore(t)
	sent := pendingRequest("r1")
	status.SetSentRequest(&sent)

	channel := newFakeChannel(true)
	fetcher := &fakeRequestFetcher{results: []*models.JoinRequest{&sent}}
	startWatcher(t, channel, fetcher, status, store.NewNoticeStore(), nil)
	waitSubscribed(t, channel)

	channel.fire(t, models.EventRequestRejected, models.RequestIDPayload{ID: "r1"})
	require.Nil(t, status.SentRequest())

	channel.fire(t, models.EventRequestAccepted, models.RequestIDPayload{ID: "r1"})
	assert.False(t, status.Accepted())
	assert.Nil(t, status.SentRequest())
}

func TestSentRequestWatcher_CancelledEventClearsSilently(t *testing.T) {
	status := newStatusStore(t)
	sent := pendingRequest("r1")
	status.SetSentRequest(&sent)
	notices := store.NewNoticeStore()

	channel := newFakeChannel(true)
	fetcher := &fakeRequestFetcher{results: []*models.JoinRequest{&sent}}
	done := startWatcher(t, channel, fetcher, status, notices, nil)
	waitSubscribed(t, channel)

	channel.fire(t, models.EventRequestCancelled, models.RequestIDPayload{ID: "r1"})
	assert.Nil(t, status.SentRequest())
	assert.Empty(t, notices.Pending())
	<-done
}

// With the channel down, polling detects the terminal status.
func TestSentRequestWatcher_PollFallbackDetectsRejection(t *testing.T) {
	status := newStatusStore(t)
	sent := pendingRequest("r1")
	status.SetSentRequest(&sent)
	notices := store.NewNoticeStore()

	rejected := sent
	rejected.Status = models.StatusRejected
	fetcher := &fakeRequestFetcher{results: []*models.JoinRequest{&sent, &rejected}}

	done := startWatcher(t, newFakeChannel(false), fetcher, status, notices, nil)

	require.Eventually(t, func() bool {
		return status.SentRequest() == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, notices.Pending(), 1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after terminal poll result")
	}
}

// A request that vanished server-side (cancelled and gone) clears the
// tracked pointer without a notice.
func TestSentRequestWatcher_PollMissingRequestClears(t *testing.T) {
	status := newStatusStore(t)
	sent := pendingRequest("r1")
	status.SetSentRequest(&sent)
	notices := store.NewNoticeStore()

	done := startWatcher(t, newFakeChannel(false), &fakeRequestFetcher{}, status, notices, nil)

	require.Eventually(t, func() bool {
		return status.SentRequest() == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, notices.Pending())
	<-done
}

// While the channel is connected the ticker skips polling entirely.
func TestSentRequestWatcher_ConnectedChannelSkipsPolling(t *testing.T) {
	status := newStatusStore(t)
	sent := pendingRequest("r1")
	status.SetSentRequest(&sent)

	channel := newFakeChannel(true)
	fetcher := &fakeRequestFetcher{results: []*models.JoinRequest{&sent}}
	startWatcher(t, channel, fetcher, status, store.NewNoticeStore(), nil)
	waitSubscribed(t, channel)

	// Give several intervals a chance to fire; only the immediate first
	// check should have fetched.
	time.Sleep(100 * time.Millisecond)
	fetcher.mu.Lock()
	calls := fetcher.calls
	fetcher.mu.Unlock()
	assert.Equal(t, 1, calls)
}
