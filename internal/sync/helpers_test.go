package sync

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	gosync "sync"
	"testing"

	"shared-space-client/internal/models"
	"shared-space-client/internal/session"
	"shared-space-client/internal/storage"
	"shared-space-client/internal/store"
	"shared-space-client/internal/transport"

	"github.com/stretchr/testify/require"
)

// fakeChannel is an in-process EventChannel double. Fire delivers an
// event synchronously and in registration order, like the real read loop
// does.
type fakeChannel struct {
	mu        gosync.Mutex
	handlers  map[string]map[int]transport.Handler
	nextID    int
	emitted   []transport.Envelope
	connected bool
}

func newFakeChannel(connected bool) *fakeChannel {
	return &fakeChannel{handlers: make(map[string]map[int]transport.Handler), connected: connected}
}

func (c *fakeChannel) On(event string, fn transport.Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]transport.Handler)
	}
	c.nextID++
	id := c.nextID
	c.handlers[event][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
	}
}

func (c *fakeChannel) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitted = append(c.emitted, transport.Envelope{Type: event, Data: data})
	return nil
}

func (c *fakeChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeChannel) fire(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	c.mu.Lock()
	ids := make([]int, 0, len(c.handlers[event]))
	for id := range c.handlers[event] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]transport.Handler, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.handlers[event][id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}

func (c *fakeChannel) emittedEvents() []transport.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]transport.Envelope, len(c.emitted))
	copy(out, c.emitted)
	return out
}

func (c *fakeChannel) handlerCount(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[event])
}

func testDeps(t *testing.T) (*session.Store, *storage.Store) {
	t.Helper()
	local, err := storage.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	sess := session.NewStore(local)
	require.NoError(t, sess.SetAuth(context.Background(), "u1", "tok"))
	return sess, local
}

func pendingRequest(id string) models.JoinRequest {
	return models.JoinRequest{
		ID:         id,
		FromUserID: "partner",
		ToUserID:   "u1",
		Status:     models.StatusPending,
	}
}

func twoMemberSpace(id string) *models.Space {
	return &models.Space{
		ID:   id,
		Name: "our place",
		Members: []models.SpaceMember{
			{UID: "u1", Name: "A"},
			{UID: "u2", Name: "B"},
		},
	}
}

// fakeSpaceFetcher is a store.SpaceFetcher test double
type fakeSpaceFetcher struct {
	mu    gosync.Mutex
	space *models.Space
	calls int
}

func (f *fakeSpaceFetcher) FetchMySpace(ctx context.Context) (*models.Space, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.space, nil
}

func (f *fakeSpaceFetcher) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeLister is a store.RequestLister test double
type fakeLister struct {
	mu       gosync.Mutex
	requests []models.JoinRequest
}

func (f *fakeLister) ListIncomingPending(ctx context.Context) ([]models.JoinRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests, nil
}

// fakeRequestFetcher is a RequestByIDFetcher test double that replays a
// sequence of results, holding the last one
type fakeRequestFetcher struct {
	mu      gosync.Mutex
	results []*models.JoinRequest
	calls   int
}

func (f *fakeRequestFetcher) FetchRequestByID(ctx context.Context, id string) (*models.JoinRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) == 0 {
		return nil, nil
	}
	result := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return result, nil
}

func newStatusStore(t *testing.T) *store.StatusStore {
	t.Helper()
	sess, _ := testDeps(t)
	return store.NewStatusStore(nil, nil, nil, sess)
}

func newSpaceStore(t *testing.T, fetcher store.SpaceFetcher) (*store.SpaceStore, *store.NoticeStore) {
	t.Helper()
	sess, local := testDeps(t)
	notices := store.NewNoticeStore()
	nav := store.NavigatorFunc(func(string) {})
	return store.NewSpaceStore(fetcher, sess, local, notices, nav), notices
}
