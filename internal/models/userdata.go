package models

import (
	"time"
)

// WatchStatus is the user's watch progress for a movie
type WatchStatus string

const (
	StatusWantToWatch WatchStatus = "Want to Watch"
	StatusWatching    WatchStatus = "Watching"
	StatusWatched     WatchStatus = "Watched"
)

// String returns the string representation of WatchStatus
func (s WatchStatus) String() string {
	return string(s)
}

// IsValid checks if the watch status is one of the known values
func (s WatchStatus) IsValid() bool {
	return s == StatusWantToWatch || s == StatusWatching || s == StatusWatched
}

// UserData is the per-user, per-movie overlay stored in the document store
type UserData struct {
	Status      *WatchStatus `json:"status,omitempty"`
	UserRating  *int         `json:"userRating,omitempty"`
	UserReview  *string      `json:"userReview,omitempty"`
	IsFavorite  *bool        `json:"isFavorite,omitempty"`
	CustomLists []string     `json:"customLists,omitempty"`
	LastUpdated *string      `json:"lastUpdated,omitempty"`
}

// Favorite reports the favorite flag, defaulting to false
func (d *UserData) Favorite() bool {
	return d != nil && d.IsFavorite != nil && *d.IsFavorite
}

// Clone returns a copy that shares no pointers with d
func (d *UserData) Clone() *UserData {
	if d == nil {
		return nil
	}
	c := &UserData{}
	if d.Status != nil {
		s := *d.Status
		c.Status = &s
	}
	if d.UserRating != nil {
		r := *d.UserRating
		c.UserRating = &r
	}
	if d.UserReview != nil {
		r := *d.UserReview
		c.UserReview = &r
	}
	if d.IsFavorite != nil {
		f := *d.IsFavorite
		c.IsFavorite = &f
	}
	if d.CustomLists != nil {
		c.CustomLists = append([]string(nil), d.CustomLists...)
	}
	if d.LastUpdated != nil {
		l := *d.LastUpdated
		c.LastUpdated = &l
	}
	return c
}

// FavoriteMarker is the existence record for a favorite movie.
// Its presence is the source of truth for favorite status.
type FavoriteMarker struct {
	MovieID int    `json:"movieId"`
	AddedAt string `json:"addedAt"`
}

// CustomList is a user-owned named collection of movie ids
type CustomList struct {
	ID          string    `json:"-"`
	Name        string    `json:"name" validate:"required,max=100"`
	Description string    `json:"description" validate:"max=500"`
	Movies      []string  `json:"movies"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CreatedBy   string    `json:"createdBy"`
}

// Contains reports whether the list holds the movie id
func (l *CustomList) Contains(movieID string) bool {
	for _, id := range l.Movies {
		if id == movieID {
			return true
		}
	}
	return false
}

// NowISO8601 formats t the way client-side timestamps are stamped on documents
func NowISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
