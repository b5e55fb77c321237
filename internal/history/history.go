// Package history maintains the bounded, deduplicated, locally persisted
// list of recent searches.
//
// Storage failures are swallowed by contract: a broken or missing store
// behaves exactly like "no history available" and is never surfaced to the
// user. Failures are still logged at debug level for diagnosis.
package history

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/snipshelf/tansaku/internal/models"
	"github.com/snipshelf/tansaku/internal/storage"
)

// storageKey is the fixed key recent searches live under.
const storageKey = "recent_searches"

// DefaultMaxEntries bounds the list when no explicit cap is configured.
const DefaultMaxEntries = 6

// History is the recent-search list. All methods are called from the overlay
// update loop; History is not safe for concurrent use.
type History struct {
	store   storage.Store
	max     int
	logger  *zap.Logger
	entries []models.RecentSearch
}

// New creates a History backed by store and loads any persisted entries.
// Missing or malformed stored data silently yields an empty list.
func New(store storage.Store, max int, logger *zap.Logger) *History {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	h := &History{store: store, max: max, logger: logger}
	h.load()
	return h
}

// Entries returns the history, newest first.
func (h *History) Entries() []models.RecentSearch {
	out := make([]models.RecentSearch, len(h.entries))
	copy(out, h.entries)
	return out
}

// Record adds query to the front of the history. Queries with no criteria are
// skipped. An entry equivalent to query is removed first, so re-searching
// moves an entry to the front instead of duplicating it. The list is then
// truncated to the cap and persisted.
//
// Record fires once per commit action (selecting a result, saving a search),
// never per debounced request.
func (h *History) Record(query models.Query, now time.Time) {
	if !query.HasCriteria() {
		return
	}

	kept := make([]models.RecentSearch, 0, len(h.entries)+1)
	kept = append(kept, models.RecentSearch{Query: query, SavedAt: now})
	for _, e := range h.entries {
		if e.Query.Equivalent(query) {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) > h.max {
		kept = kept[:h.max]
	}
	h.entries = kept
	h.persist()
}

func (h *History) load() {
	data, ok, err := h.store.Get(storageKey)
	if err != nil {
		h.logger.Debug("history load failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	var entries []models.RecentSearch
	if err := json.Unmarshal(data, &entries); err != nil {
		h.logger.Debug("history parse failed", zap.Error(err))
		return
	}
	if len(entries) > h.max {
		entries = entries[:h.max]
	}
	h.entries = entries
}

func (h *History) persist() {
	data, err := json.Marshal(h.entries)
	if err != nil {
		h.logger.Debug("history encode failed", zap.Error(err))
		return
	}
	if err := h.store.Put(storageKey, data); err != nil {
		h.logger.Debug("history persist failed", zap.Error(err))
	}
}
