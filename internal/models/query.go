// Package models defines the core value types for queries, results, saved
// searches, and search history.
package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// RangeKey identifies a quick time-range preset.
type RangeKey string

const (
	RangeAny      RangeKey = "any"
	RangeLast7d   RangeKey = "last7d"
	RangeLast30d  RangeKey = "last30d"
	RangeLast365d RangeKey = "last365d"
)

// KnownRangeKey reports whether key is one of the defined presets.
func KnownRangeKey(key RangeKey) bool {
	switch key {
	case RangeAny, RangeLast7d, RangeLast30d, RangeLast365d:
		return true
	}
	return false
}

// Query is the canonical representation of a user's search intent.
// All fields are always present; the empty string and nil timestamps are the
// "not set" sentinels, so equivalence and serialization stay total functions.
//
// RangeKey is a display hint recording which preset produced CreatedFrom. It
// is deliberately excluded from equivalence: it can be reconstructed from the
// absolute bound (see quickrange.Classify).
type Query struct {
	Text        string     `json:"text"`
	Tags        []string   `json:"tags"`
	Book        string     `json:"book"`
	CreatedFrom *time.Time `json:"createdFrom"`
	CreatedTo   *time.Time `json:"createdTo"`
	RangeKey    RangeKey   `json:"rangeKey"`
}

// UnmarshalJSON decodes a query, treating unusable payloads as an empty query.
// Saved-search queries are stored server-side as free-form JSON and may be
// malformed or from an older schema; a zero Query is the contract for those.
func (q *Query) UnmarshalJSON(data []byte) error {
	type plain Query
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*q = Query{RangeKey: RangeAny}
		return nil
	}
	*q = Query(p)
	if q.RangeKey == "" {
		q.RangeKey = RangeAny
	}
	return nil
}

// HasCriteria reports whether the query filters anything at all: text, book,
// at least one tag, or a time bound.
func (q Query) HasCriteria() bool {
	return strings.TrimSpace(q.Text) != "" ||
		strings.TrimSpace(q.Book) != "" ||
		len(q.Tags) > 0 ||
		q.CreatedFrom != nil ||
		q.CreatedTo != nil
}

// Equivalent reports whether two queries denote the same search: trimmed text
// and book match, CreatedFrom matches (or both unset), and the
// case-insensitive tag sets are equal. Tag order is insignificant.
func (q Query) Equivalent(other Query) bool {
	if strings.TrimSpace(q.Text) != strings.TrimSpace(other.Text) {
		return false
	}
	if strings.TrimSpace(q.Book) != strings.TrimSpace(other.Book) {
		return false
	}
	if !timePtrEqual(q.CreatedFrom, other.CreatedFrom) {
		return false
	}
	a := canonicalTags(q.Tags)
	b := canonicalTags(other.Tags)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// canonicalTags returns the lowercased, deduplicated, sorted tag set.
func canonicalTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		c := strings.ToLower(NormalizeTag(t))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// NormalizeTag strips a leading '#' and surrounding whitespace from a tag name.
func NormalizeTag(raw string) string {
	t := strings.TrimSpace(raw)
	t = strings.TrimPrefix(t, "#")
	return strings.TrimSpace(t)
}

// AddTag appends the normalized form of raw to tags. Adding a tag that is
// already present (case-insensitive) is a no-op; display order is preserved.
func AddTag(tags []string, raw string) []string {
	t := NormalizeTag(raw)
	if t == "" {
		return tags
	}
	for _, existing := range tags {
		if strings.EqualFold(existing, t) {
			return tags
		}
	}
	return append(tags, t)
}

// RemoveTag removes the tag matching raw (case-insensitive, after
// normalization) from tags. Removing an absent tag is a no-op.
func RemoveTag(tags []string, raw string) []string {
	t := NormalizeTag(raw)
	out := tags[:0:0]
	for _, existing := range tags {
		if strings.EqualFold(existing, t) {
			continue
		}
		out = append(out, existing)
	}
	return out
}
