// Package pipeline implements the debounced, cancel-safe request scheduling
// state machine for instant search.
//
// The pipeline never owns a timer. Every edit bumps a debounce generation and
// hands it back to the caller, which schedules a timer carrying that
// generation; when the timer fires, only the latest generation is allowed to
// issue a request. Requests likewise carry monotonically increasing ids, and
// a response is applied only if its id is the latest issued. Stale timers and
// stale responses are discarded silently, so out-of-order network completions
// can never override fresher state. No transport-level cancellation is
// needed for correctness.
package pipeline

import "time"

// State is the pipeline's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateRequesting
	StateSucceeded
	StateFailed
)

// String returns the state name for logs and tests.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateRequesting:
		return "requesting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultDebounce bounds request volume during active typing without adding
// perceptible lag.
const DefaultDebounce = 120 * time.Millisecond

// Pipeline schedules search requests for a stream of query edits. It is
// driven synchronously from a single goroutine (the overlay update loop).
type Pipeline struct {
	state State

	debounceGen uint64
	requestSeq  uint64
	latestReq   uint64

	page    int
	loading bool
	errMsg  string
}

// New returns a pipeline in the idle state.
func New() *Pipeline {
	return &Pipeline{state: StateIdle, page: 1}
}

// State returns the current lifecycle phase.
func (p *Pipeline) State() State { return p.state }

// Loading reports whether a request is in flight.
func (p *Pipeline) Loading() bool { return p.loading }

// Err returns the surfaced error message, empty when none.
func (p *Pipeline) Err() string { return p.errMsg }

// Page returns the page number the next (or current) request targets.
func (p *Pipeline) Page() int { return p.page }

// NoteEdit records a query field change: pagination resets to page 1, any
// stale error is cleared, and a new debounce generation starts. The caller
// schedules a timer for the returned generation.
func (p *Pipeline) NoteEdit() uint64 {
	p.debounceGen++
	p.state = StateDebouncing
	p.page = 1
	p.errMsg = ""
	return p.debounceGen
}

// NoteClear records that the query no longer has criteria: nothing will be
// requested, and the pipeline returns to idle synchronously. The caller
// clears the accumulated results itself.
func (p *Pipeline) NoteClear() {
	p.debounceGen++
	p.state = StateIdle
	p.page = 1
	p.loading = false
	p.errMsg = ""
}

// TimerElapsed reports whether the debounce timer for gen is still the
// authoritative one. A true result means the caller must issue a request via
// BeginRequest; false means a newer edit superseded this timer.
func (p *Pipeline) TimerElapsed(gen uint64) bool {
	return p.state == StateDebouncing && gen == p.debounceGen
}

// BeginRequest issues the next request id for the current page. Any response
// to a previously issued id becomes stale from this point on.
func (p *Pipeline) BeginRequest() uint64 {
	p.requestSeq++
	p.latestReq = p.requestSeq
	p.state = StateRequesting
	p.loading = true
	return p.latestReq
}

// BeginLoadMore issues a request for page. It refuses while a request is in
// flight (duplicate "load more" triggers are no-ops) and while an edit is
// waiting on its debounce timer: the edit has already reset to page 1, so
// results it is about to replace must not be extended, and accepting the
// load-more would move the state off Debouncing and drop the edit's timer.
// It does not disturb the debounce generation: load-more reuses the same
// query.
func (p *Pipeline) BeginLoadMore(page int) (uint64, bool) {
	if p.loading || p.state == StateDebouncing {
		return 0, false
	}
	p.page = page
	return p.BeginRequest(), true
}

// HandleSuccess applies a successful response. It returns false, changing
// nothing, when id is not the latest issued request.
func (p *Pipeline) HandleSuccess(id uint64) bool {
	if id != p.latestReq || p.state != StateRequesting {
		return false
	}
	p.state = StateSucceeded
	p.loading = false
	p.errMsg = ""
	return true
}

// HandleFailure applies a failed response with a display message. It returns
// false, changing nothing, when id is not the latest issued request. The
// pipeline stays retryable: the next edit debounces as usual.
func (p *Pipeline) HandleFailure(id uint64, msg string) bool {
	if id != p.latestReq || p.state != StateRequesting {
		return false
	}
	p.state = StateFailed
	p.loading = false
	p.errMsg = msg
	return true
}
