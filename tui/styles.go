package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	StyleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	StyleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	StyleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	StyleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	StyleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	StyleSpinner = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	StyleStaged  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

var stylePage = lipgloss.NewStyle().Padding(1, 2)

// headerLine places left-aligned text and a right-aligned refreshed timestamp on the same line.
// width is the full terminal width; padding (4) is subtracted for the content area.
func headerLine(left string, width int, t time.Time) string {
	right := "Refreshed: " + formatRefreshTime(t)
	contentWidth := width - 4
	gap := contentWidth - lipgloss.Width(left) - len(right)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + StyleDim.Render(right)
}

func renderHelp(s string) string {
	return StyleHelp.Render(s)
}

// formatRefreshTime formats a time as an HH:MM:SS timestamp.
func formatRefreshTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("15:04:05")
}

// newTable builds a focused table with the shared header and selection styles.
func newTable(cols []table.Column, rows []table.Row, height int) table.Model {
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("255")).
		Background(lipgloss.Color("236")).
		Bold(false)
	t.SetStyles(s)
	return t
}

// CLISpinner matches the braille spinner used in the CLI output.
var CLISpinner = spinner.Spinner{
	Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	FPS:    time.Second / 10,
}

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = CLISpinner
	s.Style = StyleSpinner
	return s
}
