package models

import "time"

// Tag is a snippet tag as returned by the backend.
type Tag struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Highlights carries the backend-produced highlight fragments for one hit.
// Fragments contain <mark> spans and are passed through untouched; this
// engine only consumes them.
type Highlights struct {
	Text     string `json:"text,omitempty"`
	Thoughts string `json:"thoughts,omitempty"`
}

// ResultItem is a single search hit. Beyond ID (stable list keys, navigation)
// and the highlight fragments, the fields are display-only pass-through from
// the backend.
type ResultItem struct {
	ID                int64      `json:"id"`
	BookName          string     `json:"book_name"`
	TextSnippet       string     `json:"text_snippet"`
	Thoughts          string     `json:"thoughts"`
	CreatedUTC        time.Time  `json:"created_utc"`
	CreatedByUsername string     `json:"created_by_username"`
	Tags              []Tag      `json:"tags"`
	SearchRank        float64    `json:"searchRank,omitempty"`
	Highlights        Highlights `json:"highlights"`
}

// SearchPage is one page of search results. NextPage is the 1-based number of
// the following page, nil when this is the last page.
type SearchPage struct {
	Items    []ResultItem `json:"items"`
	Total    int          `json:"total"`
	NextPage *int         `json:"nextPage"`
}
