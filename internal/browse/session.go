package browse

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/liamwears/movielist/internal/models"
	"github.com/liamwears/movielist/internal/services"
)

var (
	// ErrLoadInProgress is returned when a primary load is already running
	ErrLoadInProgress = errors.New("load already in progress")
	// ErrLoadThrottled is returned when loads are requested too often
	ErrLoadThrottled = errors.New("load requested too soon after the previous one")
)

// PageFetcher fetches one page of a listing
type PageFetcher interface {
	FetchPage(ctx context.Context, kind services.ListKind, page int) (*models.MoviePage, error)
}

// State is the load state of a Session
type State int

const (
	StateIdle State = iota
	StateLoading
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Config holds Session settings
type Config struct {
	MinLoadInterval time.Duration
	FilterDebounce  time.Duration
	Sort            models.SortMode
}

// Option customizes a Session
type Option func(*Session)

// WithClock overrides the clock used for throttling and the now-playing window
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session pages through one listing and keeps the filtered, sorted view of
// the movies loaded so far
type Session struct {
	fetcher         PageFetcher
	minLoadInterval time.Duration
	now             func() time.Time
	logger          zerolog.Logger
	queryDebounce   *Debouncer

	loading     atomic.Bool
	loadingMore atomic.Bool

	mu         sync.Mutex
	kind       services.ListKind
	movies     []models.Movie
	visible    []models.Movie
	filter     Filter
	sort       models.SortMode
	page       int
	totalPages int
	state      State
	err        error
	lastLoad   time.Time
	generation uint64
}

// NewSession creates a new Session
func NewSession(fetcher PageFetcher, cfg Config, logger zerolog.Logger, opts ...Option) *Session {
	if cfg.Sort == "" {
		cfg.Sort = models.SortTitleAZ
	}
	s := &Session{
		fetcher:         fetcher,
		minLoadInterval: cfg.MinLoadInterval,
		now:             time.Now,
		logger:          logger.With().Str("component", "browse").Logger(),
		queryDebounce:   NewDebouncer(cfg.FilterDebounce),
		sort:            cfg.Sort,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the first page of kind and replaces the loaded movies. The
// now-playing window is switched on exactly when kind is the now-playing
// listing. A failure clears the movies and leaves the session in StateError
// until DismissError or the next Load.
func (s *Session) Load(ctx context.Context, kind services.ListKind) error {
	if !s.loading.CompareAndSwap(false, true) {
		return ErrLoadInProgress
	}
	defer s.loading.Store(false)

	s.mu.Lock()
	if !s.lastLoad.IsZero() && s.now().Sub(s.lastLoad) < s.minLoadInterval {
		s.mu.Unlock()
		return ErrLoadThrottled
	}
	s.generation++
	gen := s.generation
	s.kind = kind
	s.filter.NowPlaying = kind.Category == services.CategoryNowPlaying
	s.state = StateLoading
	s.err = nil
	s.mu.Unlock()

	resp, err := s.fetcher.FetchPage(ctx, kind, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return nil
	}

	if err != nil {
		s.state = StateError
		s.err = err
		s.movies = nil
		s.visible = nil
		s.page = 0
		s.totalPages = 0
		s.logger.Error().Err(err).Str("kind", kind.String()).Msg("failed to load movies")
		return err
	}

	s.movies = dedupe(nil, resp.Results)
	s.page = 1
	s.totalPages = resp.TotalPages
	s.lastLoad = s.now()
	s.state = StateIdle
	s.refilterLocked()

	s.logger.Debug().Str("kind", kind.String()).Int("movies", len(s.movies)).Int("total_pages", s.totalPages).Msg("movies loaded")
	return nil
}

// LoadMoreIfNeeded fetches the next page when visible is the last loaded
// movie and more pages remain. It reports whether a page was appended.
func (s *Session) LoadMoreIfNeeded(ctx context.Context, visible models.Movie) (bool, error) {
	if s.loading.Load() {
		return false, nil
	}
	if !s.loadingMore.CompareAndSwap(false, true) {
		return false, nil
	}
	defer s.loadingMore.Store(false)

	s.mu.Lock()
	if len(s.movies) == 0 || s.movies[len(s.movies)-1].ID != visible.ID || s.page >= s.totalPages {
		s.mu.Unlock()
		return false, nil
	}
	s.page++
	next := s.page
	gen := s.generation
	kind := s.kind
	s.mu.Unlock()

	resp, err := s.fetcher.FetchPage(ctx, kind, next)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false, nil
	}

	if err != nil {
		s.page--
		s.err = err
		s.logger.Warn().Err(err).Str("kind", kind.String()).Int("page", next).Msg("failed to load more movies")
		return false, err
	}

	s.movies = dedupe(s.movies, resp.Results)
	s.err = nil
	s.refilterLocked()
	return true, nil
}

// DismissError returns a failed session to idle and forgets the error
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateError {
		s.state = StateIdle
	}
	s.err = nil
}

// SetQuery updates the title query; the list is refiltered once typing
// pauses
func (s *Session) SetQuery(query string) {
	s.queryDebounce.Trigger(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.filter.Query = query
		s.refilterLocked()
	})
}

func (s *Session) SetGenre(genreID *int) {
	s.updateFilter(func(f *Filter) { f.GenreID = genreID })
}

func (s *Session) SetYear(year *int) {
	s.updateFilter(func(f *Filter) { f.Year = year })
}

func (s *Session) SetMinRating(rating *float64) {
	s.updateFilter(func(f *Filter) { f.MinRating = rating })
}

func (s *Session) SetNowPlaying(on bool) {
	s.updateFilter(func(f *Filter) { f.NowPlaying = on })
}

// SetSort changes the sort mode
func (s *Session) SetSort(mode models.SortMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = mode
	s.refilterLocked()
}

// Close cancels a pending query refilter
func (s *Session) Close() {
	s.queryDebounce.Cancel()
}

// Movies returns every loaded movie in load order
func (s *Session) Movies() []models.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.movies)
}

// Visible returns the filtered and sorted movies
func (s *Session) Visible() []models.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.visible)
}

func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *Session) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPages
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the last load failure. It is cleared by the next load.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Kind() services.ListKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

func (s *Session) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Lookup finds a loaded movie by id
func (s *Session) Lookup(id int) (models.Movie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.movies {
		if m.ID == id {
			m.UserData = m.UserData.Clone()
			return m, true
		}
	}
	return models.Movie{}, false
}

// Update applies fn to the loaded movie with the given id and refilters
func (s *Session) Update(id int, fn func(*models.Movie)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.movies {
		if s.movies[i].ID == id {
			fn(&s.movies[i])
			s.movies[i].ID = id
			found = true
		}
	}
	if found {
		s.refilterLocked()
	}
	return found
}

func (s *Session) updateFilter(mutate func(*Filter)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.filter)
	s.refilterLocked()
}

func (s *Session) refilterLocked() {
	s.visible = Apply(s.movies, s.filter, s.sort, s.now())
}

// dedupe appends the movies of next whose ids are not already present
func dedupe(loaded, next []models.Movie) []models.Movie {
	seen := make(map[int]struct{}, len(loaded)+len(next))
	for _, m := range loaded {
		seen[m.ID] = struct{}{}
	}
	for _, m := range next {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		loaded = append(loaded, m)
	}
	return loaded
}
