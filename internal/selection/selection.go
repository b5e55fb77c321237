// Package selection tracks which result row is active under keyboard and
// pointer control. Keyboard and pointer share one source of truth: the
// active index.
package selection

// None means no row is active; focus semantics belong to the input.
const None = -1

// Selection is the active-row state machine over a result list.
type Selection struct {
	active int
	length int
}

// New returns a selection over an empty list, with no row active.
func New() *Selection {
	return &Selection{active: None}
}

// Active returns the active row index, or None.
func (s *Selection) Active() int { return s.active }

// SyncResults re-synchronizes the selection to a result list of the given
// length. A fresh list (non-extending page of results) activates row 0 when
// any rows exist and clears the selection when empty; an extended list keeps
// the current selection, clamped to the new bounds.
func (s *Selection) SyncResults(length int, fresh bool) {
	s.length = length
	if fresh {
		if length > 0 {
			s.active = 0
		} else {
			s.active = None
		}
		return
	}
	if s.active >= length {
		s.active = length - 1
	}
	if length == 0 {
		s.active = None
	}
}

// Down moves the selection one row down, clamped to the last row. From None
// it moves to row 0.
func (s *Selection) Down() {
	if s.length == 0 {
		return
	}
	if s.active < s.length-1 {
		s.active++
	}
}

// Up moves the selection one row up. Moving above the first row clears the
// selection.
func (s *Selection) Up() {
	if s.active <= 0 {
		s.active = None
		return
	}
	s.active--
}

// Hover sets the active row from a pointer position. Out-of-range rows are
// ignored.
func (s *Selection) Hover(index int) {
	if index < 0 || index >= s.length {
		return
	}
	s.active = index
}

// CommitIndex returns the row a commit applies to: the active row when valid,
// row 0 otherwise. ok is false when the list is empty and nothing can commit.
func (s *Selection) CommitIndex() (int, bool) {
	if s.length == 0 {
		return 0, false
	}
	if s.active >= 0 && s.active < s.length {
		return s.active, true
	}
	return 0, true
}
