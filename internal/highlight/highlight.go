// Package highlight renders backend-supplied highlight fragments for
// terminal display. Fragments arrive as plain text with <mark> spans around
// matched terms; the engine treats them as opaque pass-through and only
// restyles the spans.
package highlight

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	markStart = "<mark>"
	markEnd   = "</mark>"
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

// Render converts a highlight fragment into a terminal string, applying
// style to each marked span. Unbalanced markup degrades to plain text rather
// than erroring.
func Render(fragment string, style lipgloss.Style) string {
	var b strings.Builder
	rest := fragment
	for {
		start := strings.Index(rest, markStart)
		if start < 0 {
			b.WriteString(entityReplacer.Replace(rest))
			break
		}
		end := strings.Index(rest[start+len(markStart):], markEnd)
		if end < 0 {
			b.WriteString(entityReplacer.Replace(rest))
			break
		}
		b.WriteString(entityReplacer.Replace(rest[:start]))
		marked := rest[start+len(markStart) : start+len(markStart)+end]
		b.WriteString(style.Render(entityReplacer.Replace(marked)))
		rest = rest[start+len(markStart)+end+len(markEnd):]
	}
	return b.String()
}

// Strip removes highlight markup, leaving the plain fragment text.
func Strip(fragment string) string {
	out := strings.ReplaceAll(fragment, markStart, "")
	out = strings.ReplaceAll(out, markEnd, "")
	return entityReplacer.Replace(out)
}

// Truncate truncates s to maxLen runes and appends "…" if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
