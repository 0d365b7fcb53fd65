package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// tableFilter narrows table rows by typed text. "/" opens it, Esc or Enter
// closes it and keeps the text applied, Ctrl+U clears it.
type tableFilter struct {
	active bool
	text   string
}

// handleKey edits the filter text. rebuild is true when rows must be
// recomputed.
func (f tableFilter) handleKey(msg tea.KeyMsg) (next tableFilter, rebuild bool) {
	switch msg.String() {
	case "esc", "enter":
		f.active = false
		return f, false
	case "backspace":
		if f.text == "" {
			return f, false
		}
		r := []rune(f.text)
		f.text = string(r[:len(r)-1])
		return f, true
	case "ctrl+u":
		if f.text == "" {
			return f, false
		}
		f.text = ""
		return f, true
	}
	if len(msg.Runes) == 0 {
		return f, false
	}
	f.text += string(msg.Runes)
	return f, true
}

// matches reports whether every whitespace-separated term of the filter is
// a case-insensitive substring of at least one field.
func (f tableFilter) matches(fields ...string) bool {
	for _, term := range strings.Fields(strings.ToLower(f.text)) {
		found := false
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f tableFilter) hasActiveFilter() bool {
	return f.text != ""
}

func (f *tableFilter) clear() {
	*f = tableFilter{}
}

// renderLine is the filter prompt shown under the table, empty when unused.
func (f tableFilter) renderLine() string {
	switch {
	case f.active:
		return renderHelp("[/] Filter: ") + StyleWarning.Render(f.text+"_") + renderHelp("  [Ctrl+U] clear  [Esc] close")
	case f.text != "":
		return renderHelp("[/] Filter: ") + StyleWarning.Render(f.text) + renderHelp("  [Ctrl+U] clear")
	}
	return ""
}
