package client

import (
	"context"
	"sync"
	"time"

	"converse-service/internal/models"
)

// DefaultDebounce is the input-inactivity window before a search fires.
const DefaultDebounce = 500 * time.Millisecond

// minQueryLength is the client-side threshold: shorter queries clear the
// results without issuing a request. It is deliberately stricter than the
// server's one-character threshold.
const minQueryLength = 2

// SearchFunc performs the actual directory request.
type SearchFunc func(ctx context.Context, query string) ([]models.SearchedUser, error)

// Searcher debounces directory searches as the user types. At most one
// request is issued per debounce window, superseded timers are cancelled,
// and a sequence guard ensures a late response never overwrites the results
// of a newer query.
type Searcher struct {
	mu       sync.Mutex
	search   SearchFunc
	selfID   string
	delay    time.Duration
	timer    *time.Timer
	seq      uint64
	results  []models.SearchedUser
	errMsg   string
	loading  bool
	onUpdate func()
}

// NewSearcher constructs a Searcher with the default debounce window. The
// optional onUpdate callback fires after every state change.
func NewSearcher(search SearchFunc, selfID string, onUpdate func()) *Searcher {
	return &Searcher{
		search:   search,
		selfID:   selfID,
		delay:    DefaultDebounce,
		onUpdate: onUpdate,
	}
}

// SetQuery feeds one keystroke's worth of input. Queries below the minimum
// length clear results immediately; anything else (re)arms the debounce
// timer, cancelling any previously armed one.
func (s *Searcher) SetQuery(query string) {
	s.mu.Lock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Invalidate any in-flight response.
	s.seq++

	if len(query) < minQueryLength {
		s.results = nil
		s.errMsg = ""
		s.loading = false
		s.mu.Unlock()
		s.notify()
		return
	}

	seq := s.seq
	s.loading = true
	s.timer = time.AfterFunc(s.delay, func() {
		s.fire(query, seq)
	})
	s.mu.Unlock()
	s.notify()
}

func (s *Searcher) fire(query string, seq uint64) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	users, err := s.search(context.Background(), query)

	s.mu.Lock()
	if seq != s.seq {
		// A newer query superseded this response.
		s.mu.Unlock()
		return
	}
	s.loading = false
	if err != nil {
		s.results = nil
		s.errMsg = "Failed to search users. Please try again."
		s.mu.Unlock()
		s.notify()
		return
	}

	filtered := make([]models.SearchedUser, 0, len(users))
	for _, user := range users {
		if user.ID == s.selfID {
			continue
		}
		filtered = append(filtered, user)
	}
	s.results = filtered
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
}

// Results returns the current result set.
func (s *Searcher) Results() []models.SearchedUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Err returns the current user-visible error message, if any.
func (s *Searcher) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Loading reports whether a search is armed or in flight.
func (s *Searcher) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Close cancels any armed timer and invalidates in-flight responses.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
}

func (s *Searcher) notify() {
	if s.onUpdate != nil {
		s.onUpdate()
	}
}
