package overlay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/snipshelf/tansaku/internal/history"
	"github.com/snipshelf/tansaku/internal/models"
	"github.com/snipshelf/tansaku/internal/saved"
	"github.com/snipshelf/tansaku/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// fakeBackend implements both the search API and the saved-search API so one
// fake backs the whole overlay.
type fakeBackend struct {
	mu       sync.Mutex
	searches []models.Query
	pages    map[int]*models.SearchPage
	err      error

	savedList []models.SavedSearch
	nextID    int64
	creates   []string
}

func (f *fakeBackend) Search(_ context.Context, q models.Query, page, _ int) (*models.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, q)
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return &models.SearchPage{}, nil
}

func (f *fakeBackend) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

func (f *fakeBackend) lastSearch() models.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches[len(f.searches)-1]
}

func (f *fakeBackend) ListSavedSearches(context.Context) ([]models.SavedSearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SavedSearch(nil), f.savedList...), nil
}

func (f *fakeBackend) CreateSavedSearch(_ context.Context, name string, q models.Query) (*models.SavedSearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.creates = append(f.creates, name)
	return &models.SavedSearch{ID: f.nextID, Name: name, Query: q}, nil
}

func (f *fakeBackend) UpdateSavedSearch(_ context.Context, id int64, name string) (*models.SavedSearch, error) {
	return &models.SavedSearch{ID: id, Name: name}, nil
}

func (f *fakeBackend) DeleteSavedSearch(context.Context, int64) error { return nil }

func page(items int, total int, next *int) *models.SearchPage {
	p := &models.SearchPage{Total: total, NextPage: next}
	for i := 0; i < items; i++ {
		p.Items = append(p.Items, models.ResultItem{
			ID:          int64(i + 1),
			BookName:    "Meditations",
			TextSnippet: "snippet",
		})
	}
	return p
}

func intPtr(v int) *int { return &v }

func newTestOverlay(t *testing.T, fake *fakeBackend) *Overlay {
	t.Helper()
	logger := zap.NewNop()
	return New(Deps{
		API:      fake,
		Saved:    saved.New(fake, logger),
		History:  history.New(storage.NewMemoryStore(), history.DefaultMaxEntries, logger),
		Logger:   logger,
		Settings: Settings{Debounce: time.Millisecond, PageLimit: 10},
		Now:      func() time.Time { return testNow },
	})
}

// drainCmd executes a command tree and returns the messages it produced.
// Long-running commands (cursor blink, error dismissal) are abandoned after a
// short wait; the debounce used in tests is far below the cutoff.
func drainCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, drainCmd(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(250 * time.Millisecond):
		return nil
	}
}

// pump feeds msgs through Update, following produced commands until the
// overlay settles. Host-facing messages are returned instead of re-fed.
func pump(o *Overlay, msgs ...tea.Msg) []tea.Msg {
	var external []tea.Msg
	queue := msgs
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		if _, ok := msg.(CommitMsg); ok {
			external = append(external, msg)
			continue
		}
		_, cmd := o.Update(msg)
		queue = append(queue, drainCmd(cmd)...)
	}
	return external
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func typeText(o *Overlay, text string) {
	msgs := make([]tea.Msg, 0, len(text))
	for _, r := range text {
		msgs = append(msgs, keyRune(r))
	}
	pump(o, msgs...)
}

func TestOpenShortcuts(t *testing.T) {
	t.Run("slash opens when no text entry has focus", func(t *testing.T) {
		o := newTestOverlay(t, &fakeBackend{})
		pump(o, keyRune('/'))
		if !o.IsOpen() {
			t.Fatal("overlay should open on /")
		}
	})

	t.Run("slash is ignored while the host is in a text field", func(t *testing.T) {
		o := newTestOverlay(t, &fakeBackend{})
		o.SetTextEntryFocused(true)
		pump(o, keyRune('/'))
		if o.IsOpen() {
			t.Fatal("overlay should stay closed while typing elsewhere")
		}
	})

	t.Run("ctrl+k opens regardless of focus and toggles closed", func(t *testing.T) {
		o := newTestOverlay(t, &fakeBackend{})
		o.SetTextEntryFocused(true)
		pump(o, key(tea.KeyCtrlK))
		if !o.IsOpen() {
			t.Fatal("ctrl+k should open")
		}
		pump(o, key(tea.KeyCtrlK))
		if o.IsOpen() {
			t.Fatal("ctrl+k should close an open overlay")
		}
	})

	t.Run("esc closes and reopening resumes the session", func(t *testing.T) {
		fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(1, 1, nil)}}
		o := newTestOverlay(t, fake)
		pump(o, keyRune('/'))
		typeText(o, "stoic")
		pump(o, key(tea.KeyEsc))
		if o.IsOpen() {
			t.Fatal("esc should close")
		}

		pump(o, key(tea.KeyCtrlK))
		if got := o.Query().Text; got != "stoic" {
			t.Fatalf("reopened text = %q, want previous session text", got)
		}
		// Text is selected on reopen: the first rune typed replaces it.
		typeText(o, "x")
		if got := o.Query().Text; got != "x" {
			t.Fatalf("text after replacing selection = %q", got)
		}
	})
}

func TestTypingCoalescesIntoOneRequest(t *testing.T) {
	fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(2, 2, nil)}}
	o := newTestOverlay(t, fake)
	pump(o, keyRune('/'))

	typeText(o, "sto")

	if got := fake.searchCount(); got != 1 {
		t.Fatalf("requests issued = %d, want 1", got)
	}
	if got := fake.lastSearch().Text; got != "sto" {
		t.Fatalf("request text = %q, want final value", got)
	}
	if got := o.acc.Len(); got != 2 {
		t.Fatalf("accumulated results = %d, want 2", got)
	}
	if got := o.sel.Active(); got != 0 {
		t.Fatalf("active row after fresh results = %d, want 0", got)
	}
}

func TestStaleResponsesAreDiscarded(t *testing.T) {
	t.Run("response after a newer success", func(t *testing.T) {
		fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(2, 2, nil)}}
		o := newTestOverlay(t, fake)
		pump(o, keyRune('/'))
		typeText(o, "a")

		pump(o, searchResultMsg{id: 0, page: 1, result: page(5, 5, nil)})
		if got := o.acc.Len(); got != 2 {
			t.Fatalf("results = %d, stale response must not override", got)
		}
	})

	t.Run("response arriving after the query was cleared", func(t *testing.T) {
		fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(2, 2, nil)}}
		o := newTestOverlay(t, fake)
		pump(o, keyRune('/'))
		typeText(o, "x")

		// A second request goes in flight, then the user clears the query
		// before it lands.
		o.pipe.NoteEdit()
		inflight := o.pipe.BeginRequest()
		pump(o, key(tea.KeyBackspace))

		pump(o, searchResultMsg{id: inflight, page: 1, result: page(5, 5, nil)})
		if got := o.acc.Len(); got != 0 {
			t.Fatalf("results = %d, cleared query must stay empty", got)
		}
		if !o.idleMode() {
			t.Fatal("overlay should be back on the idle panel")
		}
	})
}

func TestCommitRecordsHistoryOnce(t *testing.T) {
	fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(2, 2, nil)}}
	o := newTestOverlay(t, fake)
	pump(o, keyRune('/'))
	typeText(o, "mind")

	external := pump(o, key(tea.KeyDown), key(tea.KeyEnter))
	if len(external) != 1 {
		t.Fatalf("external msgs = %d, want one commit", len(external))
	}
	commit, ok := external[0].(CommitMsg)
	if !ok {
		t.Fatalf("external msg = %T, want CommitMsg", external[0])
	}
	if commit.Item.ID != 2 {
		t.Fatalf("committed item id = %d, want row 1", commit.Item.ID)
	}
	if commit.Query.Text != "mind" {
		t.Fatalf("committed query text = %q", commit.Query.Text)
	}
	if o.IsOpen() {
		t.Fatal("overlay should close on commit")
	}

	entries := o.history.Entries()
	if len(entries) != 1 || entries[0].Query.Text != "mind" {
		t.Fatalf("history after commit = %+v, want single entry for the query", entries)
	}

	// Abandoning with esc records nothing further.
	pump(o, key(tea.KeyCtrlK))
	typeText(o, "x")
	pump(o, key(tea.KeyEsc))
	if got := len(o.history.Entries()); got != 1 {
		t.Fatalf("history after esc = %d entries, want 1", got)
	}
}

func TestArrowNavigation(t *testing.T) {
	fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(2, 2, nil)}}
	o := newTestOverlay(t, fake)
	pump(o, keyRune('/'))
	typeText(o, "a")

	pump(o, key(tea.KeyDown), key(tea.KeyDown), key(tea.KeyDown))
	if got := o.sel.Active(); got != 1 {
		t.Fatalf("active after over-scrolling down = %d, want last row", got)
	}

	pump(o, key(tea.KeyUp), key(tea.KeyUp), key(tea.KeyUp))
	if got := o.sel.Active(); got != -1 {
		t.Fatalf("active after moving above the list = %d, want none", got)
	}

	// Enter with no active row still commits the first result.
	external := pump(o, key(tea.KeyEnter))
	if len(external) != 1 || external[0].(CommitMsg).Item.ID != 1 {
		t.Fatalf("commit without active row = %+v, want first item", external)
	}
}

func TestLoadMoreAppendsPages(t *testing.T) {
	fake := &fakeBackend{pages: map[int]*models.SearchPage{
		1: page(2, 5, intPtr(2)),
		2: page(2, 5, intPtr(3)),
		3: page(1, 5, nil),
	}}
	o := newTestOverlay(t, fake)
	pump(o, keyRune('/'))
	typeText(o, "a")

	pump(o, key(tea.KeyDown), key(tea.KeyPgDown))
	if got := o.acc.Len(); got != 4 {
		t.Fatalf("results after load more = %d, want 4", got)
	}
	if got := o.sel.Active(); got != 1 {
		t.Fatalf("active after load more = %d, selection must survive appends", got)
	}
	if got := fake.lastSearch().Text; got != "a" {
		t.Fatalf("load more query text = %q, must reuse the committed query", got)
	}

	pump(o, key(tea.KeyPgDown))
	if got := o.acc.Len(); got != 5 {
		t.Fatalf("results after final page = %d, want 5", got)
	}

	// The cursor is exhausted: further load-more presses issue nothing.
	before := fake.searchCount()
	pump(o, key(tea.KeyPgDown))
	if got := fake.searchCount(); got != before {
		t.Fatalf("requests after exhausted cursor = %d, want %d", got, before)
	}
}

func TestLoadMoreDuringPendingEdit(t *testing.T) {
	fake := &fakeBackend{pages: map[int]*models.SearchPage{
		1: page(2, 5, intPtr(2)),
		2: page(2, 5, intPtr(3)),
	}}
	o := newTestOverlay(t, fake)
	pump(o, keyRune('/'))
	typeText(o, "a")

	// Edit the query, then press load-more before the edit's debounce timer
	// delivers. The old query's next page must not be fetched, and the edited
	// query must still be searched once the timer lands.
	_, cmd := o.Update(keyRune('b'))
	pending := drainCmd(cmd)
	pump(o, key(tea.KeyPgDown))
	if got := fake.searchCount(); got != 1 {
		t.Fatalf("requests after refused load-more = %d, want 1", got)
	}

	pump(o, pending...)
	if got := fake.searchCount(); got != 2 {
		t.Fatalf("requests after debounce delivered = %d, want 2", got)
	}
	if got := fake.lastSearch().Text; got != "ab" {
		t.Fatalf("last search text = %q, edited query must still be searched", got)
	}
	if got := o.acc.Len(); got != 2 {
		t.Fatalf("results = %d, fresh page must replace, not extend", got)
	}
}

func TestQuickRangeChip(t *testing.T) {
	fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(1, 1, nil)}}
	o := newTestOverlay(t, fake)
	pump(o, keyRune('/'))

	pump(o, key(tea.KeyTab))
	if o.rangeKey != models.RangeLast7d {
		t.Fatalf("range after one tab = %q", o.rangeKey)
	}
	q := fake.lastSearch()
	if q.CreatedFrom == nil {
		t.Fatal("range preset should issue a request with an absolute bound")
	}
	want := testNow.AddDate(0, 0, -7)
	if !q.CreatedFrom.Equal(want) {
		t.Fatalf("createdFrom = %v, want %v", q.CreatedFrom, want)
	}

	pump(o, key(tea.KeyTab), key(tea.KeyTab), key(tea.KeyTab))
	if o.rangeKey != models.RangeAny {
		t.Fatalf("range after full cycle = %q, want any", o.rangeKey)
	}
}

func TestClearFiltersKeepsText(t *testing.T) {
	fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(1, 1, nil)}}
	o := newTestOverlay(t, fake)
	pump(o, keyRune('/'))
	typeText(o, "#philosophy stoic")
	pump(o, key(tea.KeyTab))

	pump(o, key(tea.KeyCtrlL))
	q := o.Query()
	if q.Text != "stoic" {
		t.Fatalf("text after clear = %q, want untouched", q.Text)
	}
	if len(q.Tags) != 0 || q.CreatedFrom != nil || q.RangeKey != models.RangeAny {
		t.Fatalf("filters survived clear: %+v", q)
	}
}

func TestTokenChips(t *testing.T) {
	t.Run("completed hash token becomes a tag chip", func(t *testing.T) {
		o := newTestOverlay(t, &fakeBackend{pages: map[int]*models.SearchPage{1: page(1, 1, nil)}})
		pump(o, keyRune('/'))
		typeText(o, "#philosophy stoic")

		q := o.Query()
		if len(q.Tags) != 1 || q.Tags[0] != "philosophy" {
			t.Fatalf("tags = %v", q.Tags)
		}
		if q.Text != "stoic" {
			t.Fatalf("remaining text = %q", q.Text)
		}
	})

	t.Run("book token sets the book filter", func(t *testing.T) {
		o := newTestOverlay(t, &fakeBackend{pages: map[int]*models.SearchPage{1: page(1, 1, nil)}})
		pump(o, keyRune('/'))
		typeText(o, "book:Meditations ")
		if got := o.Query().Book; got != "Meditations" {
			t.Fatalf("book = %q", got)
		}
	})

	t.Run("backspace on empty input removes the last tag", func(t *testing.T) {
		o := newTestOverlay(t, &fakeBackend{pages: map[int]*models.SearchPage{1: page(1, 1, nil)}})
		pump(o, keyRune('/'))
		typeText(o, "#a #b ")
		pump(o, key(tea.KeyBackspace))
		if got := o.Query().Tags; len(got) != 1 || got[0] != "a" {
			t.Fatalf("tags after chip backspace = %v", got)
		}
	})
}

func TestIdlePanel(t *testing.T) {
	savedQuery := models.Query{Text: "virtue", Tags: []string{"ethics"}, RangeKey: models.RangeAny}
	fake := &fakeBackend{
		pages:     map[int]*models.SearchPage{1: page(1, 1, nil)},
		savedList: []models.SavedSearch{{ID: 7, Name: "Ethics notes", Query: savedQuery}},
	}
	o := newTestOverlay(t, fake)

	t.Run("saved searches load on first open", func(t *testing.T) {
		pump(o, keyRune('/'))
		if got := o.saved.List(); len(got) != 1 || got[0].Name != "Ethics notes" {
			t.Fatalf("saved cache = %+v", got)
		}
	})

	t.Run("applying an entry rehydrates the whole query", func(t *testing.T) {
		pump(o, key(tea.KeyEnter))
		q := o.Query()
		if q.Text != "virtue" {
			t.Fatalf("applied text = %q", q.Text)
		}
		if len(q.Tags) != 1 || q.Tags[0] != "ethics" {
			t.Fatalf("applied tags = %v", q.Tags)
		}
		if got := fake.lastSearch().Text; got != "virtue" {
			t.Fatalf("request after apply = %q", got)
		}
	})

	t.Run("recent entries appear after saved ones", func(t *testing.T) {
		o.history.Record(models.Query{Text: "memento", RangeKey: models.RangeAny}, testNow)
		pump(o, key(tea.KeyEsc), key(tea.KeyCtrlK))
		typeText(o, "x")
		pump(o, key(tea.KeyBackspace))

		entries := o.idleEntries()
		if len(entries) != 2 {
			t.Fatalf("idle entries = %d, want saved + recent", len(entries))
		}
		if entries[0].saved == nil || entries[1].recent == nil {
			t.Fatal("saved entries must precede recent ones")
		}
	})
}

func TestSaveSearch(t *testing.T) {
	t.Run("prompted name is created and recorded", func(t *testing.T) {
		fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(1, 1, nil)}}
		o := newTestOverlay(t, fake)
		pump(o, keyRune('/'))
		typeText(o, "virtue")

		pump(o, key(tea.KeyCtrlS))
		typeText(o, "My search")
		pump(o, key(tea.KeyEnter))

		if len(fake.creates) != 1 || fake.creates[0] != "My search" {
			t.Fatalf("creates = %v", fake.creates)
		}
		if got := o.saved.List(); len(got) != 1 {
			t.Fatalf("saved cache after create = %+v", got)
		}
		if got := o.history.Entries(); len(got) != 1 {
			t.Fatalf("history after save = %d entries, want 1", len(got))
		}
	})

	t.Run("empty name is rejected before any network call", func(t *testing.T) {
		fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(1, 1, nil)}}
		o := newTestOverlay(t, fake)
		pump(o, keyRune('/'))
		typeText(o, "virtue")

		pump(o, key(tea.KeyCtrlS))
		pump(o, key(tea.KeyEnter))
		if len(fake.creates) != 0 {
			t.Fatalf("creates = %v, validation must short-circuit", fake.creates)
		}
		if o.Err() == "" {
			t.Fatal("empty name should surface an inline error")
		}
	})

	t.Run("esc inside the prompt closes the whole overlay", func(t *testing.T) {
		fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(1, 1, nil)}}
		o := newTestOverlay(t, fake)
		pump(o, keyRune('/'))
		typeText(o, "virtue")

		pump(o, key(tea.KeyCtrlS))
		typeText(o, "half-typed")
		pump(o, key(tea.KeyEsc))

		if o.IsOpen() {
			t.Fatal("esc must close the overlay, not just the prompt")
		}
		if o.prompt != promptNone {
			t.Fatal("prompt should be gone after esc")
		}
		if len(fake.creates) != 0 {
			t.Fatalf("creates = %v, abandoned prompt must not save", fake.creates)
		}
	})

	t.Run("clicks are ignored while the prompt is open", func(t *testing.T) {
		fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(2, 2, nil)}}
		o := newTestOverlay(t, fake)
		pump(o, keyRune('/'))
		typeText(o, "virtue")
		o.View()

		pump(o, key(tea.KeyCtrlS))
		external := pump(o, tea.MouseMsg{
			Action: tea.MouseActionPress,
			Button: tea.MouseButtonLeft,
			Y:      o.resultsTop,
		})
		if len(external) != 0 {
			t.Fatalf("click during prompt committed: %+v", external)
		}
		if !o.IsOpen() || o.prompt != promptSave {
			t.Fatal("prompt must survive a stray click")
		}
	})

	t.Run("saving with no criteria is refused", func(t *testing.T) {
		o := newTestOverlay(t, &fakeBackend{})
		pump(o, keyRune('/'), key(tea.KeyCtrlS))
		if o.prompt != promptNone {
			t.Fatal("prompt must not open without criteria")
		}
		if o.Err() == "" {
			t.Fatal("expected an inline error")
		}
	})
}

func TestSearchErrorSurfacedAndClearedByEdit(t *testing.T) {
	fake := &fakeBackend{err: errors.New("connection refused")}
	o := newTestOverlay(t, fake)
	pump(o, keyRune('/'))
	typeText(o, "a")

	if got := o.Err(); got != "search unavailable" {
		t.Fatalf("surfaced error = %q, want transport fallback", got)
	}

	fake.mu.Lock()
	fake.err = nil
	fake.pages = map[int]*models.SearchPage{1: page(1, 1, nil)}
	fake.mu.Unlock()

	typeText(o, "b")
	if got := o.Err(); got != "" {
		t.Fatalf("error after edit = %q, editing must clear stale errors", got)
	}
	if got := o.acc.Len(); got != 1 {
		t.Fatalf("results after retry = %d", got)
	}
}

func TestErrorAutoDismiss(t *testing.T) {
	o := newTestOverlay(t, &fakeBackend{})
	pump(o, keyRune('/'), key(tea.KeyCtrlS))
	if o.Err() == "" {
		t.Fatal("expected an error to dismiss")
	}

	// An outdated dismiss timer must not touch a newer error.
	pump(o, errDismissMsg{seq: o.errSeq - 1})
	if o.Err() == "" {
		t.Fatal("stale dismiss timer cleared a live error")
	}

	pump(o, errDismissMsg{seq: o.errSeq})
	if got := o.Err(); got != "" {
		t.Fatalf("error after dismiss = %q", got)
	}
}

func TestMouseSelection(t *testing.T) {
	fake := &fakeBackend{pages: map[int]*models.SearchPage{1: page(3, 3, nil)}}
	o := newTestOverlay(t, fake)
	pump(o, keyRune('/'))
	typeText(o, "a")
	o.View() // establishes the results offset for hit testing

	pump(o, tea.MouseMsg{Action: tea.MouseActionMotion, Y: o.resultsTop + 2})
	if got := o.sel.Active(); got != 2 {
		t.Fatalf("active after hover = %d, want 2", got)
	}

	external := pump(o, tea.MouseMsg{
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonLeft,
		Y:      o.resultsTop + 1,
	})
	if len(external) != 1 || external[0].(CommitMsg).Item.ID != 2 {
		t.Fatalf("click commit = %+v, want row 1", external)
	}
}

func TestSettingsMsg(t *testing.T) {
	o := newTestOverlay(t, &fakeBackend{})
	pump(o, SettingsMsg{Debounce: 300 * time.Millisecond, PageLimit: 25})
	if o.settings.Debounce != 300*time.Millisecond || o.settings.PageLimit != 25 {
		t.Fatalf("settings = %+v", o.settings)
	}

	// Zero fields leave the current values alone.
	pump(o, SettingsMsg{})
	if o.settings.PageLimit != 25 {
		t.Fatalf("page limit after empty settings msg = %d", o.settings.PageLimit)
	}
}
