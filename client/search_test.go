package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"converse-service/internal/models"
)

// recordingSearch counts requests and records the queries it served.
type recordingSearch struct {
	mu      sync.Mutex
	queries []string
	results []models.SearchedUser
	err     error
	block   chan struct{}
}

func (r *recordingSearch) fn(ctx context.Context, query string) ([]models.SearchedUser, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	block := r.block
	results, err := r.results, r.err
	r.mu.Unlock()
	if block != nil {
		<-block
	}
	return results, err
}

func (r *recordingSearch) served() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTypingBurstIssuesOneRequest(t *testing.T) {
	search := &recordingSearch{results: []models.SearchedUser{{ID: "u2", Username: "alice"}}}
	s := NewSearcher(search.fn, "me", nil)
	s.delay = 20 * time.Millisecond

	s.SetQuery("a")
	s.SetQuery("al")
	s.SetQuery("ali")

	waitFor(t, func() bool { return len(search.served()) > 0 })
	time.Sleep(3 * s.delay)

	require.Equal(t, []string{"ali"}, search.served())
	assert.Len(t, s.Results(), 1)
	assert.False(t, s.Loading())
}

func TestShortQueryClearsWithoutRequest(t *testing.T) {
	search := &recordingSearch{results: []models.SearchedUser{{ID: "u2"}}}
	s := NewSearcher(search.fn, "me", nil)
	s.delay = 20 * time.Millisecond

	s.SetQuery("ali")
	waitFor(t, func() bool { return len(s.Results()) == 1 })

	s.SetQuery("a")
	assert.Empty(t, s.Results())
	assert.False(t, s.Loading())

	time.Sleep(3 * s.delay)
	require.Equal(t, []string{"ali"}, search.served())
}

func TestStaleResponseNeverOverwritesNewer(t *testing.T) {
	release := make(chan struct{})
	slow := &recordingSearch{
		results: []models.SearchedUser{{ID: "stale", Username: "stale"}},
		block:   release,
	}
	s := NewSearcher(slow.fn, "me", nil)
	s.delay = 10 * time.Millisecond

	s.SetQuery("first")
	waitFor(t, func() bool { return len(slow.served()) == 1 })

	// Supersede the in-flight request, then serve the newer one instantly.
	slow.mu.Lock()
	slow.block = nil
	slow.results = []models.SearchedUser{{ID: "fresh", Username: "fresh"}}
	slow.mu.Unlock()

	s.SetQuery("second")
	waitFor(t, func() bool {
		results := s.Results()
		return len(results) == 1 && results[0].ID == "fresh"
	})

	// Let the stale response land; it must be discarded.
	close(release)
	time.Sleep(5 * s.delay)

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "fresh", results[0].ID)
}

func TestSearchFailureShowsMessageAndClearsResults(t *testing.T) {
	search := &recordingSearch{results: []models.SearchedUser{{ID: "u2"}}}
	s := NewSearcher(search.fn, "me", nil)
	s.delay = 10 * time.Millisecond

	s.SetQuery("ali")
	waitFor(t, func() bool { return len(s.Results()) == 1 })

	search.mu.Lock()
	search.err = errors.New("upstream down")
	search.mu.Unlock()

	s.SetQuery("alic")
	waitFor(t, func() bool { return s.Err() != "" })

	assert.Equal(t, "Failed to search users. Please try again.", s.Err())
	assert.Empty(t, s.Results())
}

func TestResultsExcludeSelf(t *testing.T) {
	search := &recordingSearch{results: []models.SearchedUser{
		{ID: "me", Username: "myself"},
		{ID: "u2", Username: "alice"},
	}}
	s := NewSearcher(search.fn, "me", nil)
	s.delay = 10 * time.Millisecond

	s.SetQuery("ali")
	waitFor(t, func() bool { return len(s.Results()) > 0 })

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "u2", results[0].ID)
}

func TestCloseCancelsArmedSearch(t *testing.T) {
	search := &recordingSearch{}
	s := NewSearcher(search.fn, "me", nil)
	s.delay = 20 * time.Millisecond

	s.SetQuery("ali")
	s.Close()

	time.Sleep(3 * s.delay)
	assert.Empty(t, search.served())
}
