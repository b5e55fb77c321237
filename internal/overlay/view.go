package overlay

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/snipshelf/tansaku/internal/highlight"
	"github.com/snipshelf/tansaku/internal/models"
)

var (
	chipStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Background(lipgloss.Color("236")).Padding(0, 1)
	chipActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("24")).Padding(0, 1)
	markStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	activeRowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).Bold(true)
)

var rangeLabels = map[models.RangeKey]string{
	models.RangeAny:      "any time",
	models.RangeLast7d:   "last 7 days",
	models.RangeLast30d:  "last 30 days",
	models.RangeLast365d: "last year",
}

// View renders the overlay. An empty string means the overlay is closed and
// the host draws its own screen.
func (o *Overlay) View() string {
	if !o.open {
		return ""
	}

	var b strings.Builder
	b.WriteString(o.input.View())
	b.WriteString("\n")
	b.WriteString(o.chipLine())
	b.WriteString("\n")
	// Rows start right below the input and chip lines; mouse hit testing
	// in handleMouse depends on this offset.
	o.resultsTop = 2

	if o.prompt != promptNone {
		label := "Save search as:"
		if o.prompt == promptRename {
			label = "Rename search:"
		}
		b.WriteString(headerStyle.Render(label))
		b.WriteString("\n")
		b.WriteString(o.promptInput.View())
		b.WriteString("\n")
	} else if o.idleMode() {
		b.WriteString(o.idleView())
	} else {
		b.WriteString(o.resultsView())
	}

	if o.errMsg != "" {
		b.WriteString(errStyle.Render("! " + o.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(o.helpLine()))
	return b.String()
}

func (o *Overlay) chipLine() string {
	chips := make([]string, 0, len(o.tags)+2)
	for _, tag := range o.tags {
		chips = append(chips, chipStyle.Render("#"+tag))
	}
	if o.book != "" {
		chips = append(chips, chipStyle.Render("book:"+o.book))
	}
	rangeChip := chipStyle
	if o.rangeKey != models.RangeAny {
		rangeChip = chipActiveStyle
	}
	chips = append(chips, rangeChip.Render(rangeLabels[o.rangeKey]))
	return strings.Join(chips, " ")
}

func (o *Overlay) resultsView() string {
	var b strings.Builder
	items := o.acc.Items()
	for i, item := range items {
		b.WriteString(o.resultRow(item, i == o.sel.Active()))
		b.WriteString("\n")
	}
	if o.pipe.Loading() && len(items) == 0 {
		b.WriteString(dimStyle.Render("searching…"))
		b.WriteString("\n")
	} else if len(items) == 0 {
		b.WriteString(dimStyle.Render("no snippets match"))
		b.WriteString("\n")
	}

	footer := fmt.Sprintf("%d of %d", len(items), o.acc.Total())
	if _, more := o.acc.NextPage(); more {
		footer += " · PgDn: more"
	}
	b.WriteString(dimStyle.Render(footer))
	b.WriteString("\n")
	return b.String()
}

func (o *Overlay) resultRow(item models.ResultItem, active bool) string {
	marker := "  "
	if active {
		marker = "> "
	}

	fragment := item.Highlights.Text
	if fragment == "" {
		fragment = item.TextSnippet
	}
	width := o.width - 4
	if width < 20 {
		width = 76
	}
	text := highlight.Render(highlight.Truncate(fragment, width), markStyle)

	meta := " · " + item.BookName
	if item.CreatedByUsername != "" {
		meta += " · " + item.CreatedByUsername
	}
	if !item.CreatedUTC.IsZero() {
		meta += " · " + relativeAge(item.CreatedUTC, o.now())
	}
	if active {
		return activeRowStyle.Render(marker) + text + dimStyle.Render(meta)
	}
	return marker + text + dimStyle.Render(meta)
}

// relativeAge renders a coarse "how long ago" label for a result row.
func relativeAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dy ago", int(d.Hours()/(24*365)))
	}
}

// idleView lists saved searches and recent history when the query has no
// criteria.
func (o *Overlay) idleView() string {
	var b strings.Builder
	entries := o.idleEntries()
	if len(entries) == 0 {
		b.WriteString(dimStyle.Render("type to search your snippets"))
		b.WriteString("\n")
		return b.String()
	}

	lastKind := -1
	for i, entry := range entries {
		kind := 0
		if entry.recent != nil {
			kind = 1
		}
		if kind != lastKind {
			if kind == 0 {
				b.WriteString(headerStyle.Render("Saved searches"))
			} else {
				b.WriteString(headerStyle.Render("Recent searches"))
			}
			b.WriteString("\n")
			lastKind = kind
		}

		marker := "  "
		if i == o.idleSel.Active() {
			marker = "> "
		}
		b.WriteString(marker + o.idleLabel(entry))
		b.WriteString("\n")
	}
	return b.String()
}

func (o *Overlay) idleLabel(entry idleEntry) string {
	if entry.saved != nil {
		return entry.saved.Name + dimStyle.Render(" · "+summarizeQuery(entry.saved.Query))
	}
	return summarizeQuery(entry.recent.Query)
}

// summarizeQuery is the one-line description of a stored query shown on the
// idle panel.
func summarizeQuery(q models.Query) string {
	parts := make([]string, 0, 4)
	if strings.TrimSpace(q.Text) != "" {
		parts = append(parts, strings.TrimSpace(q.Text))
	}
	for _, tag := range q.Tags {
		parts = append(parts, "#"+tag)
	}
	if q.Book != "" {
		parts = append(parts, "book:"+q.Book)
	}
	if q.RangeKey != models.RangeAny && q.RangeKey != "" {
		parts = append(parts, rangeLabels[q.RangeKey])
	}
	if len(parts) == 0 {
		return "(empty)"
	}
	return strings.Join(parts, " ")
}

func (o *Overlay) helpLine() string {
	if o.prompt != promptNone {
		return "enter: confirm · esc: close"
	}
	if o.idleMode() {
		return "↑/↓ pick · enter apply · ctrl+e rename · ctrl+d delete · esc close"
	}
	return "↑/↓ pick · enter open · tab range · ctrl+s save · ctrl+l clear filters · esc close"
}
