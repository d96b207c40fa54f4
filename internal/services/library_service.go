package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/liamwears/movielist/internal/docstore"
	"github.com/liamwears/movielist/internal/metrics"
	"github.com/liamwears/movielist/internal/models"
)

// ErrNotAuthenticated is returned when an operation needs a signed-in user
var ErrNotAuthenticated = errors.New("not authenticated")

// Identity exposes the signed-in user
type Identity interface {
	CurrentUserID() (string, bool)
}

// MovieIndex is the set of movies currently loaded in memory
type MovieIndex interface {
	Lookup(id int) (models.Movie, bool)
	Update(id int, fn func(*models.Movie)) bool
}

// movieDocument is stored at users/{uid}/movies/{movieID}: the user's data
// plus a summary of the movie so favorites can be rebuilt without the catalog
type movieDocument struct {
	models.UserData
	MovieID      int      `json:"movieId,omitempty"`
	Title        string   `json:"title,omitempty"`
	Overview     string   `json:"overview,omitempty"`
	PosterPath   *string  `json:"posterPath,omitempty"`
	BackdropPath *string  `json:"backdropPath,omitempty"`
	ReleaseDate  *string  `json:"releaseDate,omitempty"`
	VoteAverage  *float64 `json:"voteAverage,omitempty"`
	VoteCount    *int     `json:"voteCount,omitempty"`
}

func newMovieDocument(movie models.Movie, data *models.UserData) movieDocument {
	doc := movieDocument{
		MovieID:      movie.ID,
		Title:        movie.Title,
		Overview:     movie.Overview,
		PosterPath:   movie.PosterPath,
		BackdropPath: movie.BackdropPath,
		ReleaseDate:  movie.ReleaseDate,
		VoteAverage:  movie.VoteAverage,
		VoteCount:    movie.VoteCount,
	}
	if data != nil {
		doc.UserData = *data
	}
	return doc
}

// movie rebuilds a movie from the stored summary. Genres and runtime are
// not stored and stay empty.
func (d movieDocument) movie(id int) models.Movie {
	data := d.UserData
	return models.Movie{
		ID:           id,
		Title:        d.Title,
		Overview:     d.Overview,
		PosterPath:   d.PosterPath,
		BackdropPath: d.BackdropPath,
		ReleaseDate:  d.ReleaseDate,
		VoteAverage:  d.VoteAverage,
		VoteCount:    d.VoteCount,
		UserData:     data.Clone(),
	}
}

// LibraryOption customizes a LibraryService
type LibraryOption func(*LibraryService)

// WithMovieIndex annotates loaded movies with user data as it changes
func WithMovieIndex(index MovieIndex) LibraryOption {
	return func(s *LibraryService) {
		s.index = index
	}
}

// WithLibraryClock overrides the clock used for timestamps
func WithLibraryClock(now func() time.Time) LibraryOption {
	return func(s *LibraryService) {
		s.now = now
	}
}

// LibraryService keeps the user's per-movie data and favorites in sync
// with the document store
type LibraryService struct {
	store    docstore.Store
	identity Identity
	index    MovieIndex
	now      func() time.Time
	logger   zerolog.Logger

	mu        sync.Mutex
	favorites []models.Movie
	lastErr   error
}

// NewLibraryService creates a new LibraryService
func NewLibraryService(store docstore.Store, identity Identity, logger zerolog.Logger, opts ...LibraryOption) *LibraryService {
	s := &LibraryService{
		store:    store,
		identity: identity,
		now:      time.Now,
		logger:   logger.With().Str("component", "library").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Favorites returns a copy of the favorites projection
func (s *LibraryService) Favorites() []models.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Movie, len(s.favorites))
	for i, m := range s.favorites {
		m.UserData = m.UserData.Clone()
		out[i] = m
	}
	return out
}

// Err returns the failure of the most recent operation, if any
func (s *LibraryService) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ToggleFavorite flips the favorite state of movie and returns the new state
func (s *LibraryService) ToggleFavorite(ctx context.Context, movie models.Movie) (bool, error) {
	uid, err := s.begin()
	if err != nil {
		return false, err
	}
	id := strconv.Itoa(movie.ID)

	// the marker is authoritative; reconcile brings the cached flag in line
	favorite, err := s.markerExists(ctx, uid, id)
	if err != nil {
		return false, s.fail(movie.ID, "toggle favorite", err)
	}
	favorite = !favorite

	data, err := s.readUserData(ctx, uid, id)
	if err != nil {
		return false, s.fail(movie.ID, "toggle favorite", err)
	}
	data.IsFavorite = &favorite
	s.stamp(data)

	if err := s.store.Set(ctx, moviesPath(uid), id, newMovieDocument(movie, data)); err != nil {
		return false, s.fail(movie.ID, "toggle favorite", err)
	}

	if favorite {
		marker := models.FavoriteMarker{MovieID: movie.ID, AddedAt: models.NowISO8601(s.now())}
		err = s.store.Set(ctx, favoritesPath(uid), id, marker, docstore.Overwrite())
	} else {
		err = s.store.Delete(ctx, favoritesPath(uid), id)
	}
	if err != nil {
		return false, s.fail(movie.ID, "toggle favorite", err)
	}

	s.applyLocal(movie, data)

	reconciled, err := s.reconcile(ctx, uid, movie)
	if err != nil {
		return favorite, s.fail(movie.ID, "reconcile", err)
	}

	s.logger.Info().Int("movie_id", movie.ID).Bool("favorite", reconciled.Favorite()).Msg("favorite toggled")
	return reconciled.Favorite(), nil
}

// SetWatchStatus records the user's watch status for movie
func (s *LibraryService) SetWatchStatus(ctx context.Context, movie models.Movie, status models.WatchStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid watch status: %q", status)
	}
	return s.update(ctx, movie, "set watch status", func(d *models.UserData) {
		d.Status = &status
	})
}

// SetRating records the user's rating (0-10) for movie
func (s *LibraryService) SetRating(ctx context.Context, movie models.Movie, rating int) error {
	if rating < 0 || rating > 10 {
		return fmt.Errorf("rating must be between 0 and 10, got %d", rating)
	}
	return s.update(ctx, movie, "set rating", func(d *models.UserData) {
		d.UserRating = &rating
	})
}

// SetReview records the user's free-text review for movie
func (s *LibraryService) SetReview(ctx context.Context, movie models.Movie, text string) error {
	text = strings.TrimSpace(text)
	return s.update(ctx, movie, "set review", func(d *models.UserData) {
		d.UserReview = &text
	})
}

// LoadUserData reads and reconciles the user's data for movie
func (s *LibraryService) LoadUserData(ctx context.Context, movie models.Movie) (*models.UserData, error) {
	uid, err := s.begin()
	if err != nil {
		return nil, err
	}

	data, err := s.reconcile(ctx, uid, movie)
	if err != nil {
		return nil, s.fail(movie.ID, "load user data", err)
	}
	return data, nil
}

// LoadFavorites rebuilds the favorites projection from the favorite markers.
// Each movie comes from memory when loaded, otherwise from its stored
// summary; movies with neither are omitted.
func (s *LibraryService) LoadFavorites(ctx context.Context) error {
	uid, err := s.begin()
	if err != nil {
		return err
	}

	docs, err := s.store.List(ctx, favoritesPath(uid))
	if err != nil {
		return s.fail(0, "load favorites", err)
	}

	type entry struct {
		movie   models.Movie
		addedAt string
	}
	entries := make([]entry, 0, len(docs))

	for _, doc := range docs {
		var marker models.FavoriteMarker
		if err := doc.Decode(&marker); err != nil {
			s.logger.Warn().Err(err).Str("doc_id", doc.ID).Msg("skipping unreadable favorite marker")
			continue
		}
		if marker.MovieID == 0 {
			if marker.MovieID, err = strconv.Atoi(doc.ID); err != nil {
				continue
			}
		}

		movie, ok, err := s.resolveMovie(ctx, uid, marker.MovieID)
		if err != nil {
			return s.fail(marker.MovieID, "load favorites", err)
		}
		if !ok {
			s.logger.Debug().Int("movie_id", marker.MovieID).Msg("favorite movie unrecoverable, omitting")
			continue
		}
		entries = append(entries, entry{movie: movie, addedAt: marker.AddedAt})
	}

	// newest first
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].addedAt > entries[j].addedAt
	})

	favorites := make([]models.Movie, len(entries))
	for i, e := range entries {
		favorites[i] = e.movie
	}

	s.mu.Lock()
	s.favorites = favorites
	s.mu.Unlock()

	for _, movie := range favorites {
		if _, err := s.reconcile(ctx, uid, movie); err != nil {
			return s.fail(movie.ID, "reconcile", err)
		}
	}

	s.logger.Info().Int("count", len(favorites)).Msg("favorites loaded")
	return nil
}

// resolveMovie prefers the in-memory movie and falls back to the stored
// summary
func (s *LibraryService) resolveMovie(ctx context.Context, uid string, movieID int) (models.Movie, bool, error) {
	if s.index != nil {
		if movie, ok := s.index.Lookup(movieID); ok {
			return movie, true, nil
		}
	}

	doc, err := s.store.Get(ctx, moviesPath(uid), strconv.Itoa(movieID))
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Movie{}, false, nil
	}
	if err != nil {
		return models.Movie{}, false, err
	}

	var stored movieDocument
	if err := doc.Decode(&stored); err != nil {
		return models.Movie{}, false, err
	}
	if stored.Title == "" {
		return models.Movie{}, false, nil
	}
	return stored.movie(movieID), true, nil
}

// update is the read-merge-write path shared by the per-field setters
func (s *LibraryService) update(ctx context.Context, movie models.Movie, op string, mutate func(*models.UserData)) error {
	uid, err := s.begin()
	if err != nil {
		return err
	}
	id := strconv.Itoa(movie.ID)

	data, err := s.readUserData(ctx, uid, id)
	if err != nil {
		return s.fail(movie.ID, op, err)
	}
	mutate(data)
	s.stamp(data)

	if err := s.store.Set(ctx, moviesPath(uid), id, newMovieDocument(movie, data)); err != nil {
		return s.fail(movie.ID, op, err)
	}

	s.applyLocal(movie, data)

	if _, err := s.reconcile(ctx, uid, movie); err != nil {
		return s.fail(movie.ID, "reconcile", err)
	}

	s.logger.Debug().Int("movie_id", movie.ID).Str("operation", op).Msg("user data updated")
	return nil
}

// reconcile re-reads the marker and the per-movie document, rewrites the
// document's favorite flag when it disagrees with the marker, and pushes the
// result into memory. Running it twice has no further effect.
func (s *LibraryService) reconcile(ctx context.Context, uid string, movie models.Movie) (*models.UserData, error) {
	id := strconv.Itoa(movie.ID)

	favorite, err := s.markerExists(ctx, uid, id)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.Get(ctx, moviesPath(uid), id)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	var stored movieDocument
	exists := err == nil
	if exists {
		if err := doc.Decode(&stored); err != nil {
			return nil, err
		}
	}
	data := stored.UserData.Clone()

	if data.Favorite() != favorite {
		data.IsFavorite = &favorite
		var fix any = map[string]bool{"isFavorite": favorite}
		if !exists {
			fix = newMovieDocument(movie, data)
		}
		if err := s.store.Set(ctx, moviesPath(uid), id, fix); err != nil {
			return nil, err
		}
		metrics.FavoriteReconciliations.WithLabelValues("repaired").Inc()
		s.logger.Warn().Int("movie_id", movie.ID).Bool("favorite", favorite).Msg("favorite flag repaired from marker")
	} else {
		metrics.FavoriteReconciliations.WithLabelValues("in_sync").Inc()
	}

	if data.IsFavorite == nil {
		data.IsFavorite = &favorite
	}

	if exists && movie.Title == "" {
		movie = stored.movie(movie.ID)
	}
	s.applyLocal(movie, data)
	return data, nil
}

// applyLocal writes data into the movie index and the favorites projection
func (s *LibraryService) applyLocal(movie models.Movie, data *models.UserData) {
	if s.index != nil {
		s.index.Update(movie.ID, func(m *models.Movie) {
			m.UserData = data.Clone()
		})
	}

	movie.UserData = data.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	pos := -1
	for i := range s.favorites {
		if s.favorites[i].ID == movie.ID {
			pos = i
			break
		}
	}

	switch {
	case data.Favorite() && pos >= 0:
		movie = mergeKnown(s.favorites[pos], movie)
		s.favorites[pos] = movie
	case data.Favorite():
		s.favorites = append([]models.Movie{movie}, s.favorites...)
	case pos >= 0:
		s.favorites = append(s.favorites[:pos], s.favorites[pos+1:]...)
	}
}

// mergeKnown keeps catalog fields from existing that next lacks
func mergeKnown(existing, next models.Movie) models.Movie {
	if next.Title == "" {
		userData := next.UserData
		next = existing
		next.UserData = userData
	}
	if len(next.Genres) == 0 {
		next.Genres = existing.Genres
	}
	if next.Runtime == nil {
		next.Runtime = existing.Runtime
	}
	return next
}

func (s *LibraryService) markerExists(ctx context.Context, uid, id string) (bool, error) {
	_, err := s.store.Get(ctx, favoritesPath(uid), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *LibraryService) readUserData(ctx context.Context, uid, id string) (*models.UserData, error) {
	doc, err := s.store.Get(ctx, moviesPath(uid), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return &models.UserData{}, nil
	}
	if err != nil {
		return nil, err
	}

	var stored movieDocument
	if err := doc.Decode(&stored); err != nil {
		return nil, err
	}
	return stored.UserData.Clone(), nil
}

func (s *LibraryService) stamp(data *models.UserData) {
	ts := models.NowISO8601(s.now())
	data.LastUpdated = &ts
}

// begin clears the previous error and resolves the current user
func (s *LibraryService) begin() (string, error) {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	uid, ok := s.identity.CurrentUserID()
	if !ok || uid == "" {
		s.mu.Lock()
		s.lastErr = ErrNotAuthenticated
		s.mu.Unlock()
		return "", ErrNotAuthenticated
	}
	return uid, nil
}

func (s *LibraryService) fail(movieID int, op string, err error) error {
	err = fmt.Errorf("failed to %s: %w", op, err)

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	s.logger.Error().Err(err).Int("movie_id", movieID).Str("operation", op).Msg("library operation failed")
	return err
}

func moviesPath(uid string) string {
	return docstore.Path("users", uid, "movies")
}

func favoritesPath(uid string) string {
	return docstore.Path("users", uid, "favorites")
}
