package browse

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/liamwears/movielist/internal/models"
)

// MovieSearcher runs a title search against the catalog
type MovieSearcher interface {
	Search(ctx context.Context, query string) ([]models.Movie, error)
}

// SearcherOption customizes a Searcher
type SearcherOption func(*Searcher)

// WithResultHandler registers fn to run after every search that is still
// current when it completes
func WithResultHandler(fn func(query string, movies []models.Movie, err error)) SearcherOption {
	return func(s *Searcher) {
		s.onResult = fn
	}
}

// Searcher debounces title searches and keeps the results of the latest one
type Searcher struct {
	searcher MovieSearcher
	debounce *Debouncer
	logger   zerolog.Logger
	onResult func(query string, movies []models.Movie, err error)

	mu        sync.Mutex
	seq       uint64
	cancel    context.CancelFunc
	query     string
	results   []models.Movie
	err       error
	searching bool
}

// NewSearcher creates a new Searcher that waits delay after the last
// keystroke before searching
func NewSearcher(searcher MovieSearcher, delay time.Duration, logger zerolog.Logger, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		searcher: searcher,
		debounce: NewDebouncer(delay),
		logger:   logger.With().Str("component", "search").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query schedules a search for text. A blank query clears the results
// without searching.
func (s *Searcher) Query(ctx context.Context, text string) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.query = text
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if text == "" {
		s.results = nil
		s.err = nil
		s.searching = false
		s.mu.Unlock()
		s.debounce.Cancel()
		return
	}
	s.mu.Unlock()

	s.debounce.Trigger(func() {
		s.run(ctx, seq, text)
	})
}

func (s *Searcher) run(parent context.Context, seq uint64, text string) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.cancel = cancel
	s.searching = true
	s.mu.Unlock()

	movies, err := s.searcher.Search(ctx, text)
	if !s.record(seq, text, movies, err) {
		return
	}
	if s.onResult != nil {
		s.onResult(text, slices.Clone(movies), err)
	}
}

// record stores the outcome of search seq and reports whether it was
// still current
func (s *Searcher) record(seq uint64, text string, movies []models.Movie, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a newer query owns the results now
	if seq != s.seq {
		return false
	}
	s.cancel = nil
	s.searching = false

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn().Err(err).Str("query", text).Msg("search failed")
		}
		s.results = nil
		s.err = err
		return true
	}

	s.results = movies
	s.err = nil
	s.logger.Debug().Str("query", text).Int("results", len(movies)).Msg("search completed")
	return true
}

// Results returns the movies found by the latest search
func (s *Searcher) Results() []models.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results)
}

func (s *Searcher) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// CurrentQuery returns the trimmed text of the last Query call
func (s *Searcher) CurrentQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Searching reports whether a search request is in flight
func (s *Searcher) Searching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searching
}

// Close cancels the pending and in-flight searches
func (s *Searcher) Close() {
	s.debounce.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.searching = false
}
