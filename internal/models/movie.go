package models

import (
	"time"
)

// ReleaseDateLayout is the date format used by the catalog for release dates
const ReleaseDateLayout = "2006-01-02"

// Movie represents a movie returned by the catalog, optionally annotated
// with the current user's data and lazily fetched extended details
type Movie struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Overview     string   `json:"overview"`
	PosterPath   *string  `json:"poster_path"`
	BackdropPath *string  `json:"backdrop_path"`
	ReleaseDate  *string  `json:"release_date"`
	VoteAverage  *float64 `json:"vote_average"`
	VoteCount    *int     `json:"vote_count"`
	GenreIDs     []int    `json:"genre_ids,omitempty"`
	Genres       []Genre  `json:"genres,omitempty"`
	Runtime      *int     `json:"runtime"`

	UserData        *UserData        `json:"userData,omitempty"`
	ExtendedDetails *ExtendedDetails `json:"extendedDetails,omitempty"`
}

// ExtendedDetails holds the credits, videos and similar movies bundled
// with a detail fetch
type ExtendedDetails struct {
	Credits       *Credits `json:"credits,omitempty"`
	Videos        *Videos  `json:"videos,omitempty"`
	SimilarMovies []Movie  `json:"similarMovies,omitempty"`
}

// Credits contains cast and crew information
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// CastMember represents an actor in a movie
type CastMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	ProfilePath *string `json:"profile_path"`
}

// CrewMember represents a crew member in a movie
type CrewMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Job         string  `json:"job"`
	Department  string  `json:"department"`
	ProfilePath *string `json:"profile_path"`
}

// Videos wraps the video list of a detail payload
type Videos struct {
	Results []Video `json:"results"`
}

// Video represents a trailer or clip hosted on an external site
type Video struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	Site string `json:"site"`
}

// Trailer returns the first YouTube trailer, if any
func (v *Videos) Trailer() (Video, bool) {
	if v == nil {
		return Video{}, false
	}
	for _, video := range v.Results {
		if video.Type == "Trailer" && video.Site == "YouTube" {
			return video, true
		}
	}
	return Video{}, false
}

// ParsedReleaseDate parses the release date in the local time zone.
// Missing, empty or malformed dates report false.
func (m *Movie) ParsedReleaseDate() (time.Time, bool) {
	if m.ReleaseDate == nil || *m.ReleaseDate == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(ReleaseDateLayout, *m.ReleaseDate, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Rating returns the vote average, treating a missing value as zero
func (m *Movie) Rating() float64 {
	if m.VoteAverage == nil {
		return 0
	}
	return *m.VoteAverage
}

// HasGenre reports whether any resolved genre matches the given id
func (m *Movie) HasGenre(id int) bool {
	for _, g := range m.Genres {
		if g.ID == id {
			return true
		}
	}
	return false
}

// EnsureGenres resolves GenreIDs against the static genre table when the
// movie arrived without resolved genres (listing and search payloads).
// Detail payloads already carry genres and are left untouched.
func (m *Movie) EnsureGenres() {
	if len(m.Genres) > 0 || len(m.GenreIDs) == 0 {
		return
	}
	m.Genres = ResolveGenres(m.GenreIDs)
}

// IsFavorite reports the cached favorite flag from the user data overlay
func (m *Movie) IsFavorite() bool {
	return m.UserData != nil && m.UserData.IsFavorite != nil && *m.UserData.IsFavorite
}

// MoviePage is one page of a paginated catalog listing
type MoviePage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}
