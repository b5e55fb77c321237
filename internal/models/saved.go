package models

import "time"

// SavedSearch is a named, durably stored query owned by a signed-in user.
// The server is the source of truth; clients hold a cached copy.
type SavedSearch struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Query     Query     `json:"query"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecentSearch is one locally persisted history entry.
type RecentSearch struct {
	Query   Query     `json:"query"`
	SavedAt time.Time `json:"savedAt"`
}
