package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liamwears/movielist/internal/localstore"
	"github.com/liamwears/movielist/internal/models"
)

const reviewsKey = "movie_reviews"

// ReviewService keeps free-text reviews on the device only
type ReviewService struct {
	store *localstore.Store
	now   func() time.Time

	// guards the read-modify-write of the reviews blob
	mu sync.Mutex
}

// NewReviewService creates a new ReviewService
func NewReviewService(store *localstore.Store) *ReviewService {
	return &ReviewService{store: store, now: time.Now}
}

// Save adds or replaces a review. A missing id or timestamp is filled in.
func (s *ReviewService) Save(review models.Review) (models.Review, error) {
	if err := validateStruct(review); err != nil {
		return models.Review{}, err
	}
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if review.Timestamp.IsZero() {
		review.Timestamp = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reviews, err := s.load()
	if err != nil {
		return models.Review{}, err
	}

	replaced := false
	for i := range reviews {
		if reviews[i].ID == review.ID {
			reviews[i] = review
			replaced = true
			break
		}
	}
	if !replaced {
		reviews = append(reviews, review)
	}

	if err := s.store.SetJSON(reviewsKey, reviews); err != nil {
		return models.Review{}, fmt.Errorf("failed to save review: %w", err)
	}
	return review, nil
}

// ForMovie returns the reviews of a movie, newest first
func (s *ReviewService) ForMovie(movieID int) ([]models.Review, error) {
	s.mu.Lock()
	reviews, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []models.Review
	for _, r := range reviews {
		if r.MovieID == movieID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Delete removes a review; removing an unknown id is not an error
func (s *ReviewService) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviews, err := s.load()
	if err != nil {
		return err
	}

	kept := reviews[:0]
	for _, r := range reviews {
		if r.ID != id {
			kept = append(kept, r)
		}
	}

	if err := s.store.SetJSON(reviewsKey, kept); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

func (s *ReviewService) load() ([]models.Review, error) {
	var reviews []models.Review
	err := s.store.GetJSON(reviewsKey, &reviews)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}
	return reviews, nil
}
