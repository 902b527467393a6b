package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"shared-space-client/internal/session"
	"shared-space-client/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, userID, token string) *session.Store {
	t.Helper()
	local, err := storage.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	sess := session.NewStore(local)
	if userID != "" {
		require.NoError(t, sess.SetAuth(context.Background(), userID, token))
	}
	return sess
}

func TestClient_StampsIdentityHeaders(t *testing.T) {
	var gotUserID, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = r.Header.Get("x-user-id")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sess := newTestSession(t, "user-1", "tok-1")
	client := NewClient(srv.URL, sess)

	var out map[string]any
	require.NoError(t, client.Get(context.Background(), "/api/users/my-code", &out))
	assert.Equal(t, "user-1", gotUserID)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestClient_ReadsIdentityAtCallTime(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sess := newTestSession(t, "user-1", "tok-1")
	client := NewClient(srv.URL, sess)

	var out map[string]any
	require.NoError(t, client.Get(context.Background(), "/", &out))
	assert.Equal(t, "Bearer tok-1", gotAuth)

	// Token replaced after construction must be picked up on the next call.
	require.NoError(t, sess.SetToken(context.Background(), "tok-2"))
	require.NoError(t, client.Get(context.Background(), "/", &out))
	assert.Equal(t, "Bearer tok-2", gotAuth)
}

func TestClient_StatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
		case "/conflict":
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"duplicate"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, newTestSession(t, "u", "t"))
	ctx := context.Background()

	err := client.Get(ctx, "/missing", nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))

	err = client.Get(ctx, "/conflict", nil)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "duplicate")

	err = client.Get(ctx, "/boom", nil)
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
}
