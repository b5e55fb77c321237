// Package results accumulates successive pages of search results for one
// query.
package results

import "github.com/snipshelf/tansaku/internal/models"

// Accumulator merges pages of results. Page 1 replaces the list outright;
// later pages append. Total and the next-page cursor always come from the
// latest response, which is treated as authoritative.
type Accumulator struct {
	items    []models.ResultItem
	total    int
	nextPage *int
}

// Apply ingests one response page. page is the 1-based page number the
// response was requested with.
func (a *Accumulator) Apply(page int, res *models.SearchPage) {
	if page <= 1 {
		a.items = append([]models.ResultItem(nil), res.Items...)
	} else {
		a.items = append(a.items, res.Items...)
	}
	a.total = res.Total
	a.nextPage = res.NextPage
}

// Reset clears all accumulated state, returning to "no results".
func (a *Accumulator) Reset() {
	a.items = nil
	a.total = 0
	a.nextPage = nil
}

// Items returns the accumulated result list in arrival order.
func (a *Accumulator) Items() []models.ResultItem {
	return a.items
}

// Len returns the number of accumulated items.
func (a *Accumulator) Len() int {
	return len(a.items)
}

// Total returns the corpus-wide match count from the latest response.
func (a *Accumulator) Total() int {
	return a.total
}

// NextPage returns the next page number and whether more pages exist.
// No next page means the "load more" affordance is hidden.
func (a *Accumulator) NextPage() (int, bool) {
	if a.nextPage == nil {
		return 0, false
	}
	return *a.nextPage, true
}
