// Package saved caches the user's saved searches and proxies CRUD calls to
// the backend.
//
// The cache is updated on confirmed success only: a failed mutation leaves it
// untouched and the caller surfaces the error message. Network calls
// (Fetch/Create/Rename/Delete) run off the update loop inside tea commands;
// cache mutations (Replace/ApplyCreated/...) run on the update loop once the
// result message arrives.
package saved

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/snipshelf/tansaku/internal/client"
	"github.com/snipshelf/tansaku/internal/models"
)

// Backend name-length ceiling for saved searches.
const maxNameLen = 120

// ErrEmptyName rejects saves/renames with a blank name before any network call.
var ErrEmptyName = errors.New("saved search name is empty")

// API is the subset of the backend client the store uses.
type API interface {
	ListSavedSearches(ctx context.Context) ([]models.SavedSearch, error)
	CreateSavedSearch(ctx context.Context, name string, q models.Query) (*models.SavedSearch, error)
	UpdateSavedSearch(ctx context.Context, id int64, name string) (*models.SavedSearch, error)
	DeleteSavedSearch(ctx context.Context, id int64) error
}

// Store is the cached saved-search list.
type Store struct {
	api    API
	logger *zap.Logger
	list   []models.SavedSearch
}

// New creates an empty store backed by api.
func New(api API, logger *zap.Logger) *Store {
	return &Store{api: api, logger: logger}
}

// List returns the cached saved searches.
func (s *Store) List() []models.SavedSearch {
	out := make([]models.SavedSearch, len(s.list))
	copy(out, s.list)
	return out
}

// ValidateName trims name and rejects empty or over-long results.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(trimmed) > maxNameLen {
		return "", fmt.Errorf("saved search name exceeds %d characters", maxNameLen)
	}
	return trimmed, nil
}

// Fetch lists saved searches from the backend. Unauthenticated users get an
// empty, non-error list. The cache is not touched; call Replace with the
// result from the update loop.
func (s *Store) Fetch(ctx context.Context) ([]models.SavedSearch, error) {
	list, err := s.api.ListSavedSearches(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		s.logger.Debug("saved search list unauthorized, treating as empty")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Create validates name locally, then stores the search on the backend.
func (s *Store) Create(ctx context.Context, name string, q models.Query) (*models.SavedSearch, error) {
	trimmed, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	return s.api.CreateSavedSearch(ctx, trimmed, q)
}

// Rename validates name locally, then renames the search on the backend.
func (s *Store) Rename(ctx context.Context, id int64, name string) (*models.SavedSearch, error) {
	trimmed, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	return s.api.UpdateSavedSearch(ctx, id, trimmed)
}

// Delete removes the search on the backend.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.api.DeleteSavedSearch(ctx, id)
}

// Replace swaps the cached list for a freshly fetched one.
func (s *Store) Replace(list []models.SavedSearch) {
	s.list = append(s.list[:0:0], list...)
}

// ApplyCreated prepends a confirmed new entry. Any cached entry with the same
// id is replaced rather than duplicated, absorbing retried creates.
func (s *Store) ApplyCreated(ss models.SavedSearch) {
	kept := make([]models.SavedSearch, 0, len(s.list)+1)
	kept = append(kept, ss)
	for _, existing := range s.list {
		if existing.ID == ss.ID {
			continue
		}
		kept = append(kept, existing)
	}
	s.list = kept
}

// ApplyRenamed updates the cached entry in place by id.
func (s *Store) ApplyRenamed(ss models.SavedSearch) {
	for i := range s.list {
		if s.list[i].ID == ss.ID {
			s.list[i] = ss
			return
		}
	}
}

// ApplyDeleted removes the cached entry by id.
func (s *Store) ApplyDeleted(id int64) {
	kept := s.list[:0:0]
	for _, existing := range s.list {
		if existing.ID == id {
			continue
		}
		kept = append(kept, existing)
	}
	s.list = kept
}
