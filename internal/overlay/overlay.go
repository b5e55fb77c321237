// Package overlay implements the instant-search overlay as a Bubble Tea
// model. It owns the live query form (text, tag chips, book filter, quick
// range), drives the debounced search pipeline, and exposes commit events to
// the host application.
//
// All state transitions happen on the update loop; network calls run as
// commands and re-enter as messages carrying the guard values they were
// issued under (see internal/pipeline).
package overlay

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/snipshelf/tansaku/internal/client"
	"github.com/snipshelf/tansaku/internal/history"
	"github.com/snipshelf/tansaku/internal/models"
	"github.com/snipshelf/tansaku/internal/pipeline"
	"github.com/snipshelf/tansaku/internal/quickrange"
	"github.com/snipshelf/tansaku/internal/results"
	"github.com/snipshelf/tansaku/internal/saved"
	"github.com/snipshelf/tansaku/internal/selection"
)

// searchUnavailableMsg is the fallback when the backend gives no usable
// error detail.
const searchUnavailableMsg = "search unavailable"

// errDismissAfter is how long an inline error stays before auto-dismissing.
const errDismissAfter = 5 * time.Second

// SearchAPI is the remote corpus search consumed by the overlay.
type SearchAPI interface {
	Search(ctx context.Context, q models.Query, page, limit int) (*models.SearchPage, error)
}

// Settings are the live-tunable overlay knobs.
type Settings struct {
	Debounce  time.Duration
	PageLimit int
}

// Deps wires the overlay to its collaborators.
type Deps struct {
	API      SearchAPI
	Saved    *saved.Store
	History  *history.History
	Logger   *zap.Logger
	Settings Settings
	// Now is the clock; nil means time.Now. Tests inject fixed clocks.
	Now func() time.Time
}

type promptKind int

const (
	promptNone promptKind = iota
	promptSave
	promptRename
)

// Overlay is the instant-search overlay state.
type Overlay struct {
	api      SearchAPI
	saved    *saved.Store
	history  *history.History
	logger   *zap.Logger
	settings Settings
	now      func() time.Time

	open          bool
	hostTextFocus bool
	selectAll     bool

	input    textinput.Model
	tags     []string
	book     string
	rangeKey models.RangeKey
	// createdFrom is the absolute bound the range chip resolved to (or the
	// bound carried by an applied saved/recent search).
	createdFrom *time.Time

	pipe *pipeline.Pipeline
	acc  *results.Accumulator
	sel  *selection.Selection

	// idleSel navigates the saved+recent panel shown when the query has no
	// criteria.
	idleSel *selection.Selection

	// lastQuery is the query the accumulated results belong to.
	lastQuery models.Query

	savedSeq    uint64
	savedLoaded bool

	errMsg string
	errSeq uint64

	prompt       promptKind
	promptTarget int64
	promptInput  textinput.Model

	width      int
	height     int
	resultsTop int
}

// New creates a closed overlay.
func New(deps Deps) *Overlay {
	input := textinput.New()
	input.Placeholder = "Search snippets… (#tag, book:title)"
	input.Prompt = "/ "
	input.CharLimit = 256

	promptInput := textinput.New()
	promptInput.Placeholder = "Name this search"
	promptInput.Prompt = "> "
	promptInput.CharLimit = 120

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	settings := deps.Settings
	if settings.Debounce <= 0 {
		settings.Debounce = pipeline.DefaultDebounce
	}
	if settings.PageLimit <= 0 {
		settings.PageLimit = 10
	}

	return &Overlay{
		api:         deps.API,
		saved:       deps.Saved,
		history:     deps.History,
		logger:      deps.Logger,
		settings:    settings,
		now:         now,
		input:       input,
		promptInput: promptInput,
		rangeKey:    models.RangeAny,
		pipe:        pipeline.New(),
		acc:         &results.Accumulator{},
		sel:         selection.New(),
		idleSel:     selection.New(),
	}
}

// Init implements the Bubble Tea init hook.
func (o *Overlay) Init() tea.Cmd {
	return textinput.Blink
}

// IsOpen reports whether the overlay is showing.
func (o *Overlay) IsOpen() bool { return o.open }

// SetTextEntryFocused tells the overlay whether the host currently has focus
// inside some other text-entry control. The bare "/" shortcut only opens the
// overlay when it does not.
func (o *Overlay) SetTextEntryFocused(focused bool) { o.hostTextFocus = focused }

// Query returns the query the form currently denotes.
func (o *Overlay) Query() models.Query { return o.buildQuery() }

// Err returns the surfaced inline error message, empty when none.
func (o *Overlay) Err() string { return o.errMsg }

// Update advances the overlay state machine.
func (o *Overlay) Update(msg tea.Msg) (*Overlay, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		o.width = msg.Width
		o.height = msg.Height
		o.input.Width = msg.Width - 8
		return o, nil

	case tea.KeyMsg:
		return o.handleKey(msg)

	case tea.MouseMsg:
		return o.handleMouse(msg)

	case HoverRowMsg:
		if o.open && !o.idleMode() {
			o.sel.Hover(msg.Index)
		}
		return o, nil

	case debounceElapsedMsg:
		return o.handleDebounceElapsed(msg)

	case searchResultMsg:
		return o.handleSearchResult(msg)

	case savedListMsg:
		if msg.seq != o.savedSeq {
			o.logger.Debug("stale saved-search list discarded", zap.Uint64("seq", msg.seq))
			return o, nil
		}
		if msg.err != nil {
			return o, o.setError(client.UserMessage(msg.err, "saved searches unavailable"))
		}
		o.savedLoaded = true
		o.saved.Replace(msg.list)
		o.syncIdle(true)
		return o, nil

	case savedCreatedMsg:
		if msg.err != nil {
			return o, o.setError(client.UserMessage(msg.err, "could not save search"))
		}
		o.saved.ApplyCreated(*msg.search)
		// Saving is a commit action: it records history exactly once.
		o.history.Record(msg.search.Query, o.now())
		o.syncIdle(false)
		return o, nil

	case savedRenamedMsg:
		if msg.err != nil {
			return o, o.setError(client.UserMessage(msg.err, "could not rename search"))
		}
		o.saved.ApplyRenamed(*msg.search)
		return o, nil

	case savedDeletedMsg:
		if msg.err != nil {
			return o, o.setError(client.UserMessage(msg.err, "could not delete search"))
		}
		o.saved.ApplyDeleted(msg.id)
		o.syncIdle(false)
		return o, nil

	case errDismissMsg:
		if msg.seq == o.errSeq {
			o.errMsg = ""
		}
		return o, nil

	case SettingsMsg:
		if msg.Debounce > 0 {
			o.settings.Debounce = msg.Debounce
		}
		if msg.PageLimit > 0 {
			o.settings.PageLimit = msg.PageLimit
		}
		o.logger.Debug("overlay settings updated",
			zap.Duration("debounce", o.settings.Debounce), zap.Int("page_limit", o.settings.PageLimit))
		return o, nil
	}
	return o, nil
}

func (o *Overlay) handleKey(msg tea.KeyMsg) (*Overlay, tea.Cmd) {
	if !o.open {
		switch msg.String() {
		case "ctrl+k":
			return o, o.openOverlay()
		case "/":
			if !o.hostTextFocus {
				return o, o.openOverlay()
			}
		}
		return o, nil
	}

	if o.prompt != promptNone {
		return o.handlePromptKey(msg)
	}

	switch msg.String() {
	case "esc":
		o.close()
		return o, nil

	case "ctrl+k":
		o.close()
		return o, nil

	case "enter":
		return o.commit()

	case "up":
		if o.idleMode() {
			o.idleSel.Up()
		} else {
			o.sel.Up()
		}
		return o, nil

	case "down":
		if o.idleMode() {
			o.idleSel.Down()
		} else {
			o.sel.Down()
		}
		return o, nil

	case "pgdown":
		return o.loadMore()

	case "tab":
		o.cycleRange()
		return o, o.onQueryEdited()

	case "ctrl+l":
		o.clearFilters()
		return o, o.onQueryEdited()

	case "ctrl+s":
		if !o.buildQuery().HasCriteria() {
			return o, o.setError("nothing to save yet")
		}
		o.openPrompt(promptSave, 0, "")
		return o, textinput.Blink

	case "ctrl+e":
		if target, ok := o.selectedSaved(); ok {
			o.openPrompt(promptRename, target.ID, target.Name)
			return o, textinput.Blink
		}
		return o, nil

	case "ctrl+d":
		if target, ok := o.selectedSaved(); ok {
			return o, o.deleteSavedCmd(target.ID)
		}
		return o, nil

	case "backspace":
		if o.input.Value() == "" && len(o.tags) > 0 {
			o.tags = models.RemoveTag(o.tags, o.tags[len(o.tags)-1])
			return o, o.onQueryEdited()
		}
	}

	return o.handleInputKey(msg)
}

// handleInputKey routes a key into the text input, converting completed
// #tag / book: tokens into chips and kicking the debounce cycle when the
// denoted query changed.
func (o *Overlay) handleInputKey(msg tea.KeyMsg) (*Overlay, tea.Cmd) {
	if o.selectAll && msg.Type == tea.KeyRunes {
		// Overlay just opened with existing text selected: typing replaces.
		o.input.SetValue("")
	}
	if msg.Type == tea.KeyRunes {
		o.selectAll = false
	}

	before := o.buildQuery()
	var inputCmd tea.Cmd
	o.input, inputCmd = o.input.Update(msg)

	if remainder, tags, book, found := parseTokens(o.input.Value()); found {
		for _, tag := range tags {
			o.tags = models.AddTag(o.tags, tag)
		}
		if book != "" {
			o.book = book
		}
		o.input.SetValue(remainder)
		o.input.CursorEnd()
	}

	if o.buildQuery().Equivalent(before) {
		return o, inputCmd
	}
	return o, tea.Batch(inputCmd, o.onQueryEdited())
}

func (o *Overlay) handlePromptKey(msg tea.KeyMsg) (*Overlay, tea.Cmd) {
	switch msg.String() {
	case "esc":
		// Escape closes the overlay from anywhere inside it, prompt included.
		o.close()
		return o, nil
	case "enter":
		name, err := saved.ValidateName(o.promptInput.Value())
		if err != nil {
			// Validation errors surface locally; no network call happens.
			return o, o.setError(err.Error())
		}
		kind, target := o.prompt, o.promptTarget
		o.closePrompt()
		if kind == promptRename {
			return o, o.renameSavedCmd(target, name)
		}
		return o, o.createSavedCmd(name, o.buildQuery())
	}
	var cmd tea.Cmd
	o.promptInput, cmd = o.promptInput.Update(msg)
	return o, cmd
}

func (o *Overlay) handleMouse(msg tea.MouseMsg) (*Overlay, tea.Cmd) {
	if !o.open || o.prompt != promptNone || o.idleMode() {
		return o, nil
	}
	row := msg.Y - o.resultsTop
	switch msg.Action {
	case tea.MouseActionMotion:
		o.sel.Hover(row)
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && row >= 0 && row < o.acc.Len() {
			o.sel.Hover(row)
			return o.commit()
		}
	}
	return o, nil
}

func (o *Overlay) handleDebounceElapsed(msg debounceElapsedMsg) (*Overlay, tea.Cmd) {
	if !o.pipe.TimerElapsed(msg.gen) {
		return o, nil
	}
	q := o.buildQuery()
	o.lastQuery = q
	id := o.pipe.BeginRequest()
	o.logger.Debug("search issued",
		zap.Uint64("request_id", id), zap.String("text", q.Text), zap.Int("page", o.pipe.Page()))
	return o, o.searchCmd(id, o.pipe.Page(), q)
}

func (o *Overlay) handleSearchResult(msg searchResultMsg) (*Overlay, tea.Cmd) {
	if msg.err != nil {
		if !o.pipe.HandleFailure(msg.id, client.UserMessage(msg.err, searchUnavailableMsg)) {
			o.logger.Debug("stale search failure discarded", zap.Uint64("request_id", msg.id))
			return o, nil
		}
		return o, o.setError(o.pipe.Err())
	}
	if !o.pipe.HandleSuccess(msg.id) {
		o.logger.Debug("stale search response discarded", zap.Uint64("request_id", msg.id))
		return o, nil
	}
	fresh := msg.page <= 1
	o.acc.Apply(msg.page, msg.result)
	o.sel.SyncResults(o.acc.Len(), fresh)
	return o, nil
}

// openOverlay shows the overlay: the input gets focus with its text
// selected, and the saved-search list is fetched on first open.
func (o *Overlay) openOverlay() tea.Cmd {
	o.open = true
	o.selectAll = true
	o.input.Focus()
	o.input.CursorEnd()
	o.syncIdle(true)

	cmds := []tea.Cmd{textinput.Blink}
	if !o.savedLoaded {
		o.savedSeq++
		cmds = append(cmds, o.fetchSavedCmd(o.savedSeq))
	}
	return tea.Batch(cmds...)
}

// close hides the overlay. Query, pagination, and selection are kept:
// reopening resumes the previous session.
func (o *Overlay) close() {
	o.open = false
	o.input.Blur()
	o.closePrompt()
}

func (o *Overlay) openPrompt(kind promptKind, target int64, initial string) {
	o.prompt = kind
	o.promptTarget = target
	o.promptInput.SetValue(initial)
	o.promptInput.CursorEnd()
	o.promptInput.Focus()
}

func (o *Overlay) closePrompt() {
	o.prompt = promptNone
	o.promptTarget = 0
	o.promptInput.SetValue("")
	o.promptInput.Blur()
}

// clearFilters resets everything except the free-text term.
func (o *Overlay) clearFilters() {
	o.tags = nil
	o.book = ""
	o.rangeKey = models.RangeAny
	o.createdFrom = nil
}

// cycleRange steps the quick-range chip: any → 7d → 30d → 365d → any.
// The absolute bound is resolved fresh at cycle time.
func (o *Overlay) cycleRange() {
	order := []models.RangeKey{models.RangeAny, models.RangeLast7d, models.RangeLast30d, models.RangeLast365d}
	next := order[0]
	for i, key := range order {
		if key == o.rangeKey {
			next = order[(i+1)%len(order)]
			break
		}
	}
	o.rangeKey = next
	o.createdFrom = quickrange.Resolve(next, o.now())
}

// buildQuery assembles the canonical query from the live form state.
func (o *Overlay) buildQuery() models.Query {
	return models.Query{
		Text:        o.input.Value(),
		Tags:        append([]string(nil), o.tags...),
		Book:        o.book,
		CreatedFrom: o.createdFrom,
		CreatedTo:   nil,
		RangeKey:    o.rangeKey,
	}
}

// setError surfaces msg inline and schedules its auto-dismissal. The
// sequence guard keeps an old dismiss timer from wiping a newer error.
func (o *Overlay) setError(msg string) tea.Cmd {
	o.errMsg = msg
	o.errSeq++
	seq := o.errSeq
	return tea.Tick(errDismissAfter, func(time.Time) tea.Msg {
		return errDismissMsg{seq: seq}
	})
}

// onQueryEdited runs after any query field change: with criteria it starts a
// debounce cycle; without, results clear synchronously and nothing is issued.
// Either way a stale error no longer applies.
func (o *Overlay) onQueryEdited() tea.Cmd {
	o.errMsg = ""
	q := o.buildQuery()
	if !q.HasCriteria() {
		o.pipe.NoteClear()
		o.acc.Reset()
		o.sel.SyncResults(0, true)
		o.syncIdle(true)
		return nil
	}
	gen := o.pipe.NoteEdit()
	debounce := o.settings.Debounce
	return tea.Tick(debounce, func(time.Time) tea.Msg {
		return debounceElapsedMsg{gen: gen}
	})
}

// applyQuery rehydrates the form from a saved or recent search and resets
// pagination to page 1. The range chip is reconstructed from the stored
// absolute bound.
func (o *Overlay) applyQuery(q models.Query) tea.Cmd {
	o.input.SetValue(q.Text)
	o.input.CursorEnd()
	o.tags = nil
	for _, tag := range q.Tags {
		o.tags = models.AddTag(o.tags, tag)
	}
	o.book = q.Book
	o.createdFrom = q.CreatedFrom
	o.rangeKey = quickrange.Classify(q, o.now())
	o.selectAll = false
	return o.onQueryEdited()
}

// commit acts on enter: with results showing it commits the active row,
// records history, closes the overlay, and notifies the host; on the idle
// panel it applies the selected saved/recent search instead.
func (o *Overlay) commit() (*Overlay, tea.Cmd) {
	if o.idleMode() {
		entries := o.idleEntries()
		idx, ok := o.idleSel.CommitIndex()
		if !ok || idx >= len(entries) {
			return o, nil
		}
		return o, o.applyQuery(entries[idx].query())
	}

	items := o.acc.Items()
	idx, ok := o.sel.CommitIndex()
	if !ok || idx >= len(items) {
		return o, nil
	}
	item := items[idx]
	committed := o.lastQuery
	o.history.Record(committed, o.now())
	o.close()
	return o, func() tea.Msg {
		return CommitMsg{Item: item, Query: committed}
	}
}

func (o *Overlay) loadMore() (*Overlay, tea.Cmd) {
	next, ok := o.acc.NextPage()
	if !ok {
		return o, nil
	}
	id, ok := o.pipe.BeginLoadMore(next)
	if !ok {
		// A request for this page is already in flight.
		return o, nil
	}
	o.logger.Debug("load more issued", zap.Uint64("request_id", id), zap.Int("page", next))
	return o, o.searchCmd(id, next, o.lastQuery)
}

// idleMode reports whether the saved/recent panel is showing instead of
// results.
func (o *Overlay) idleMode() bool {
	return !o.buildQuery().HasCriteria()
}

// idleEntry is one row of the idle panel: a saved search or a recent one.
type idleEntry struct {
	saved  *models.SavedSearch
	recent *models.RecentSearch
}

func (e idleEntry) query() models.Query {
	if e.saved != nil {
		return e.saved.Query
	}
	return e.recent.Query
}

func (o *Overlay) idleEntries() []idleEntry {
	savedList := o.saved.List()
	recentList := o.history.Entries()
	entries := make([]idleEntry, 0, len(savedList)+len(recentList))
	for i := range savedList {
		entries = append(entries, idleEntry{saved: &savedList[i]})
	}
	for i := range recentList {
		entries = append(entries, idleEntry{recent: &recentList[i]})
	}
	return entries
}

func (o *Overlay) syncIdle(fresh bool) {
	o.idleSel.SyncResults(len(o.idleEntries()), fresh)
}

// selectedSaved returns the saved search under the idle-panel cursor, if the
// cursor is on one.
func (o *Overlay) selectedSaved() (*models.SavedSearch, bool) {
	if !o.idleMode() {
		return nil, false
	}
	entries := o.idleEntries()
	idx := o.idleSel.Active()
	if idx < 0 || idx >= len(entries) || entries[idx].saved == nil {
		return nil, false
	}
	return entries[idx].saved, true
}
