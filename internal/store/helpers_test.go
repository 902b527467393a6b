package store

import (
	"context"
	"path/filepath"
	"testing"

	"shared-space-client/internal/models"
	"shared-space-client/internal/session"
	"shared-space-client/internal/storage"

	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T, authenticated bool) (*session.Store, *storage.Store) {
	t.Helper()
	local, err := storage.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	sess := session.NewStore(local)
	if authenticated {
		require.NoError(t, sess.SetAuth(context.Background(), "u1", "tok"))
	}
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

// fakeLister is a RequestLister test double
type fakeLister struct {
	requests []models.JoinRequest
	err      error
	calls    int
}

func (f *fakeLister) ListIncomingPending(ctx context.Context) ([]models.JoinRequest, error) {
	f.calls++
	return f.requests, f.err
}

// fakeSpaceFetcher is a SpaceFetcher test double
type fakeSpaceFetcher struct {
	space *models.Space
	err   error
	calls int
}

func (f *fakeSpaceFetcher) FetchMySpace(ctx context.Context) (*models.Space, error) {
	f.calls++
	return f.space, f.err
}

// countingNav records forced home navigations
type countingNav struct {
	calls   int
	reasons []string
}

func (n *countingNav) ReplaceHome(reason string) {
	n.calls++
	n.reasons = append(n.reasons, reason)
}
