package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/liamwears/movielist/internal/docstore"
	"github.com/liamwears/movielist/internal/models"
)

// ErrListNotFound is returned when a custom list id is unknown
var ErrListNotFound = errors.New("list not found")

// ListService manages the user's custom movie lists
type ListService struct {
	store    docstore.Store
	identity Identity
	now      func() time.Time
	logger   zerolog.Logger
}

// NewListService creates a new ListService
func NewListService(store docstore.Store, identity Identity, logger zerolog.Logger) *ListService {
	return &ListService{
		store:    store,
		identity: identity,
		now:      time.Now,
		logger:   logger.With().Str("component", "lists").Logger(),
	}
}

// Create stores a new empty list; the store assigns its id
func (s *ListService) Create(ctx context.Context, name, description string, isPublic bool) (*models.CustomList, error) {
	uid, ok := s.identity.CurrentUserID()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	now := s.now().UTC()
	list := models.CustomList{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Movies:      []string{},
		IsPublic:    isPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   uid,
	}
	if err := validateStruct(list); err != nil {
		return nil, err
	}

	id, err := s.store.Add(ctx, listsPath(uid), list)
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}
	list.ID = id

	s.logger.Info().Str("list_id", id).Str("name", list.Name).Msg("list created")
	return &list, nil
}

// Lists returns the user's lists, oldest first
func (s *ListService) Lists(ctx context.Context) ([]models.CustomList, error) {
	uid, ok := s.identity.CurrentUserID()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	docs, err := s.store.List(ctx, listsPath(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to list custom lists: %w", err)
	}

	lists := make([]models.CustomList, 0, len(docs))
	for _, doc := range docs {
		var list models.CustomList
		if err := doc.Decode(&list); err != nil {
			s.logger.Warn().Err(err).Str("list_id", doc.ID).Msg("skipping unreadable list")
			continue
		}
		list.ID = doc.ID
		lists = append(lists, list)
	}

	sort.SliceStable(lists, func(i, j int) bool {
		return lists[i].CreatedAt.Before(lists[j].CreatedAt)
	})
	return lists, nil
}

// AddMovie adds a movie to a list. Adding a movie twice has no effect.
func (s *ListService) AddMovie(ctx context.Context, listID string, movieID int) error {
	return s.changeMembership(ctx, listID, movieID, true)
}

// RemoveMovie removes a movie from a list
func (s *ListService) RemoveMovie(ctx context.Context, listID string, movieID int) error {
	return s.changeMembership(ctx, listID, movieID, false)
}

// Delete removes a list
func (s *ListService) Delete(ctx context.Context, listID string) error {
	uid, ok := s.identity.CurrentUserID()
	if !ok {
		return ErrNotAuthenticated
	}
	if err := s.store.Delete(ctx, listsPath(uid), listID); err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

func (s *ListService) changeMembership(ctx context.Context, listID string, movieID int, add bool) error {
	uid, ok := s.identity.CurrentUserID()
	if !ok {
		return ErrNotAuthenticated
	}

	list, err := s.get(ctx, uid, listID)
	if err != nil {
		return err
	}

	id := strconv.Itoa(movieID)
	if list.Contains(id) == add {
		return nil
	}

	if add {
		list.Movies = append(list.Movies, id)
	} else {
		list.Movies = removeString(list.Movies, id)
	}

	update := map[string]any{
		"movies":    list.Movies,
		"updatedAt": s.now().UTC(),
	}
	if err := s.store.Set(ctx, listsPath(uid), listID, update); err != nil {
		return fmt.Errorf("failed to update list: %w", err)
	}

	if err := s.syncMovieLists(ctx, uid, id, listID, add); err != nil {
		return err
	}

	s.logger.Debug().Str("list_id", listID).Int("movie_id", movieID).Bool("added", add).Msg("list membership changed")
	return nil
}

// syncMovieLists mirrors list membership into the movie's user data
func (s *ListService) syncMovieLists(ctx context.Context, uid, movieID, listID string, add bool) error {
	var data models.UserData
	doc, err := s.store.Get(ctx, moviesPath(uid), movieID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read movie data: %w", err)
	default:
		if err := doc.Decode(&data); err != nil {
			return err
		}
	}

	lists := removeString(data.CustomLists, listID)
	if add {
		lists = append(lists, listID)
	}

	update := map[string]any{
		"customLists": lists,
		"lastUpdated": models.NowISO8601(s.now()),
	}
	if err := s.store.Set(ctx, moviesPath(uid), movieID, update); err != nil {
		return fmt.Errorf("failed to update movie data: %w", err)
	}
	return nil
}

func (s *ListService) get(ctx context.Context, uid, listID string) (*models.CustomList, error) {
	doc, err := s.store.Get(ctx, listsPath(uid), listID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}

	var list models.CustomList
	if err := doc.Decode(&list); err != nil {
		return nil, err
	}
	list.ID = doc.ID
	return &list, nil
}

func removeString(values []string, target string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

func listsPath(uid string) string {
	return docstore.Path("users", uid, "lists")
}
