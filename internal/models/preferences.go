package models

import (
	"time"

	"github.com/google/uuid"
)

// ViewType is the layout used to display movie lists
type ViewType string

const (
	ViewGrid ViewType = "grid"
	ViewList ViewType = "list"
)

// SortMode selects the comparator applied to the displayed movie list
type SortMode string

const (
	SortTitleAZ           SortMode = "titleAZ"
	SortTitleZA           SortMode = "titleZA"
	SortReleaseDateNewest SortMode = "releaseDateNewest"
	SortReleaseDateOldest SortMode = "releaseDateOldest"
	SortRatingHighLow     SortMode = "ratingHighLow"
	SortRatingLowHigh     SortMode = "ratingLowHigh"
	SortCustom            SortMode = "custom"
)

// SortModes lists every sort mode in display order
var SortModes = []SortMode{
	SortTitleAZ,
	SortTitleZA,
	SortReleaseDateNewest,
	SortReleaseDateOldest,
	SortRatingHighLow,
	SortRatingLowHigh,
	SortCustom,
}

// Preferences are the locally persisted display preferences
type Preferences struct {
	DefaultView    ViewType `json:"defaultView" validate:"oneof=grid list"`
	SortPreference SortMode `json:"sortPreference" validate:"oneof=titleAZ titleZA releaseDateNewest releaseDateOldest ratingHighLow ratingLowHigh custom"`
}

// DefaultPreferences returns the preferences used before anything is saved
func DefaultPreferences() Preferences {
	return Preferences{
		DefaultView:    ViewGrid,
		SortPreference: SortTitleAZ,
	}
}

// Review is a free-text review kept only on the local device
type Review struct {
	ID        uuid.UUID `json:"id"`
	MovieID   int       `json:"movieId" validate:"required"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username" validate:"required"`
	Rating    float64   `json:"rating" validate:"min=0,max=5"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is the user's public profile document
type Profile struct {
	Name            string  `json:"name"`
	ProfileImageURL *string `json:"profileImageURL,omitempty"`
}
