// Package browse turns catalog pages into the list a user sees: it pages
// through a listing, filters and sorts the loaded movies in memory and runs
// debounced title searches.
package browse

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/liamwears/movielist/internal/models"
)

// Filter narrows the loaded movies. Nil fields and an empty query match
// everything.
type Filter struct {
	Query      string
	GenreID    *int
	Year       *int
	MinRating  *float64
	NowPlaying bool
}

// Match reports whether m passes every active predicate
func (f Filter) Match(m *models.Movie, now time.Time) bool {
	if q := strings.TrimSpace(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(m.Title), strings.ToLower(q)) {
			return false
		}
	}

	if f.NowPlaying && !releasedThisYearFromToday(m, now) {
		return false
	}

	if f.GenreID != nil && !m.HasGenre(*f.GenreID) {
		return false
	}

	if f.Year != nil {
		date, ok := m.ParsedReleaseDate()
		if !ok || date.Year() != *f.Year {
			return false
		}
	}

	if f.MinRating != nil && m.Rating() < *f.MinRating {
		return false
	}

	return true
}

// releasedThisYearFromToday is the now-playing window: a release date in
// now's calendar year that is not before the start of today, local time
func releasedThisYearFromToday(m *models.Movie, now time.Time) bool {
	date, ok := m.ParsedReleaseDate()
	if !ok {
		return false
	}
	now = now.In(time.Local)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	return date.Year() == now.Year() && !date.Before(startOfDay)
}

// Apply filters then sorts movies into a new slice. The input is not
// modified and filtering keeps the input order.
func Apply(movies []models.Movie, f Filter, mode models.SortMode, now time.Time) []models.Movie {
	out := make([]models.Movie, 0, len(movies))
	for i := range movies {
		if f.Match(&movies[i], now) {
			out = append(out, movies[i])
		}
	}
	Sort(out, mode)
	return out
}

// Sort orders movies in place. The sort is stable; custom and unknown
// modes leave the order unchanged.
func Sort(movies []models.Movie, mode models.SortMode) {
	var compare func(a, b models.Movie) int

	switch mode {
	case models.SortTitleAZ:
		compare = func(a, b models.Movie) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case models.SortTitleZA:
		compare = func(a, b models.Movie) int {
			return strings.Compare(strings.ToLower(b.Title), strings.ToLower(a.Title))
		}
	case models.SortReleaseDateNewest:
		compare = func(a, b models.Movie) int {
			return releaseKey(b, time.Time{}).Compare(releaseKey(a, time.Time{}))
		}
	case models.SortReleaseDateOldest:
		latest := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		compare = func(a, b models.Movie) int {
			return releaseKey(a, latest).Compare(releaseKey(b, latest))
		}
	case models.SortRatingHighLow:
		compare = func(a, b models.Movie) int {
			return cmp.Compare(b.Rating(), a.Rating())
		}
	case models.SortRatingLowHigh:
		compare = func(a, b models.Movie) int {
			return cmp.Compare(a.Rating(), b.Rating())
		}
	default:
		return
	}

	slices.SortStableFunc(movies, compare)
}

// releaseKey is the parsed release date, or fallback when it is missing
func releaseKey(m models.Movie, fallback time.Time) time.Time {
	if date, ok := m.ParsedReleaseDate(); ok {
		return date
	}
	return fallback
}
