package overlay

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/snipshelf/tansaku/internal/models"
)

// CommitMsg is emitted to the host when the user commits a result row. The
// host navigates to the snippet; the overlay has already closed and recorded
// the query in history.
type CommitMsg struct {
	Item  models.ResultItem
	Query models.Query
}

// SettingsMsg applies live settings updates (config file reload) to a running
// overlay.
type SettingsMsg struct {
	Debounce  time.Duration
	PageLimit int
}

// HoverRowMsg sets the active result row from a pointer position. Hosts that
// translate their own mouse handling can send it directly; the overlay also
// synthesizes it from tea.MouseMsg.
type HoverRowMsg struct {
	Index int
}

// Internal messages. Every async completion carries the guard value (request
// id, generation, sequence) it was issued under; stale ones are discarded on
// arrival.
type (
	debounceElapsedMsg struct {
		gen uint64
	}

	searchResultMsg struct {
		id     uint64
		page   int
		result *models.SearchPage
		err    error
	}

	savedListMsg struct {
		seq  uint64
		list []models.SavedSearch
		err  error
	}

	savedCreatedMsg struct {
		search *models.SavedSearch
		err    error
	}

	savedRenamedMsg struct {
		search *models.SavedSearch
		err    error
	}

	savedDeletedMsg struct {
		id  int64
		err error
	}

	errDismissMsg struct {
		seq uint64
	}
)

func (o *Overlay) searchCmd(id uint64, page int, q models.Query) tea.Cmd {
	return func() tea.Msg {
		result, err := o.api.Search(context.Background(), q, page, o.settings.PageLimit)
		return searchResultMsg{id: id, page: page, result: result, err: err}
	}
}

func (o *Overlay) fetchSavedCmd(seq uint64) tea.Cmd {
	return func() tea.Msg {
		list, err := o.saved.Fetch(context.Background())
		return savedListMsg{seq: seq, list: list, err: err}
	}
}

func (o *Overlay) createSavedCmd(name string, q models.Query) tea.Cmd {
	return func() tea.Msg {
		created, err := o.saved.Create(context.Background(), name, q)
		return savedCreatedMsg{search: created, err: err}
	}
}

func (o *Overlay) renameSavedCmd(id int64, name string) tea.Cmd {
	return func() tea.Msg {
		renamed, err := o.saved.Rename(context.Background(), id, name)
		return savedRenamedMsg{search: renamed, err: err}
	}
}

func (o *Overlay) deleteSavedCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		err := o.saved.Delete(context.Background(), id)
		return savedDeletedMsg{id: id, err: err}
	}
}
