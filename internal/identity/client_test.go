package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "directory-key")
}

func TestVerifySession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"u1","username":"alice","image_url":"https://img/alice.png"}`))
	})

	user, err := client.VerifySession(context.Background(), "session-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "alice", user.DisplayName)
	assert.Equal(t, "https://img/alice.png", user.AvatarURL)
}

func TestVerifySessionEmptyToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty token")
	})

	_, err := client.VerifySession(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifySessionRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.VerifySession(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListUsers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "ali", r.URL.Query().Get("query"))
		assert.Equal(t, "11", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer directory-key", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"id":"u1","username":"alice","image_url":"https://img/a.png","email_addresses":[{"email_address":"alice@example.com"}]},
			{"id":"u2","username":"alina","email_addresses":[]}
		]`))
	})

	users, err := client.ListUsers(context.Background(), "ali", 11)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice@example.com", users[0].PrimaryEmailAddress)
	assert.Empty(t, users[1].PrimaryEmailAddress)
}

func TestListUsersBrowseOmitsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("query"))
		w.Write([]byte(`[]`))
	})

	users, err := client.ListUsers(context.Background(), "", 51)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestListUsersShapeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail":"not a list"}`))
	})

	_, err := client.ListUsers(context.Background(), "ali", 11)
	assert.ErrorIs(t, err, ErrUpstreamShape)
}

func TestListUsersUpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	})

	_, err := client.ListUsers(context.Background(), "ali", 11)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
