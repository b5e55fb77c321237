// Package quickrange maps quick time-range presets to absolute lower-bound
// timestamps and classifies absolute bounds back into presets.
package quickrange

import (
	"math"
	"time"

	"github.com/snipshelf/tansaku/internal/models"
)

// classifyToleranceDays is how far (in days) a stored absolute bound may drift
// from a preset's day count and still be classified as that preset. The drift
// comes from the gap between when a saved/recent search was stored and when it
// is re-applied. The value is a compatibility heuristic; nothing principled
// picked 2.
const classifyToleranceDays = 2

var presetDays = []struct {
	key  models.RangeKey
	days int
}{
	{models.RangeLast7d, 7},
	{models.RangeLast30d, 30},
	{models.RangeLast365d, 365},
}

// Resolve returns the absolute lower bound for key, computed from now.
// RangeAny and unknown keys resolve to nil. The bound is computed fresh on
// every call so it silently advances as real time passes.
func Resolve(key models.RangeKey, now time.Time) *time.Time {
	for _, p := range presetDays {
		if p.key == key {
			t := now.AddDate(0, 0, -p.days)
			return &t
		}
	}
	return nil
}

// Classify maps a query back to the preset chip that should display as
// active. A known non-any RangeKey on the query wins outright; otherwise a
// set CreatedFrom is matched to the preset whose day count is within
// classifyToleranceDays of the bound's age. RangeAny is not trusted as a
// hint: stored queries normalize a missing rangeKey to it, and a query that
// carries a bound should still light up the matching chip.
func Classify(q models.Query, now time.Time) models.RangeKey {
	if models.KnownRangeKey(q.RangeKey) && q.RangeKey != models.RangeAny {
		return q.RangeKey
	}
	if q.CreatedFrom == nil {
		return models.RangeAny
	}
	daysAgo := int(math.Round(now.Sub(*q.CreatedFrom).Hours() / 24))
	for _, p := range presetDays {
		if abs(daysAgo-p.days) <= classifyToleranceDays {
			return p.key
		}
	}
	return models.RangeAny
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
