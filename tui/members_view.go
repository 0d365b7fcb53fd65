package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	clierrors "github.com/chupakbra/pxve-members/internal/errors"
	"github.com/chupakbra/pxve-members/internal/grid"
)

func shortErr(err error) string {
	return clierrors.Short(err)
}

// columnWidths spreads width over cols. Fixed columns get their weight in
// units; the others split what is left.
func columnWidths(cols []grid.Column, width int) []int {
	available := width - 4 - 2*len(cols)
	units, flex := 0, 0
	for _, c := range cols {
		if c.Fixed {
			units += c.Width
		} else {
			flex++
		}
	}
	// A flexible column weighs two units.
	unit := available / max(units+2*flex, 1)

	widths := make([]int, len(cols))
	used := 0
	for i, c := range cols {
		if c.Fixed {
			widths[i] = max(c.Width*unit, 3)
			used += widths[i]
		}
	}
	for i, c := range cols {
		if !c.Fixed {
			widths[i] = max((available-used)/max(flex, 1), 12)
		}
	}
	return widths
}

func memberCells(r grid.Row) map[string]string {
	name := r.Name
	if r.ID != r.Name {
		name = fmt.Sprintf("%s <%s>", r.Name, r.ID)
	}
	if r.Staged {
		name = "+ " + name
	}

	role := r.Membership.Roles
	if role == "" {
		role = "-"
	}
	if r.RoleChange != nil {
		switch r.RoleChange.Status {
		case grid.MutationPending:
			role += " (saving)"
		case grid.MutationFailed:
			role += " (failed)"
		}
	}
	return map[string]string{
		grid.FieldName:   name,
		grid.FieldRole:   role,
		grid.FieldRemove: "✕",
	}
}

func (m membersModel) withRebuiltTable() membersModel {
	view := m.grid.View()
	widths := columnWidths(view.Columns, m.width)
	cols := make([]table.Column, len(view.Columns))
	for i, c := range view.Columns {
		cols[i] = table.Column{Title: strings.ToUpper(c.Name), Width: widths[i]}
	}

	rows := make([]table.Row, len(view.Rows))
	for i, r := range view.Rows {
		cells := memberCells(r)
		row := make(table.Row, len(view.Columns))
		for j, c := range view.Columns {
			row[j] = cells[c.Field]
		}
		rows[i] = row
	}

	cursor := m.table.Cursor()
	m.table = newTable(cols, rows, grid.PageSize+2)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor > 0 {
		m.table.SetCursor(cursor)
	}
	return m
}

func (m membersModel) pagerLine() string {
	view := m.grid.View()
	pages := (view.Total + grid.PageSize - 1) / grid.PageSize
	line := fmt.Sprintf("Showing %d–%d of %d", view.StartCount, view.EndCount, view.Total)
	if pages > 1 {
		line += fmt.Sprintf("   page %d/%d", view.Page+1, pages)
	}
	out := StyleDim.Render(line)
	if staged := len(m.include); staged > 0 {
		out += StyleStaged.Render(fmt.Sprintf("   +%d added", staged))
	}
	if m.loading() {
		out += "  " + StyleWarning.Render(m.spinner.View())
	}
	return out
}

func (m membersModel) failedLine() string {
	failed := m.grid.View().Failed
	if len(failed) == 0 {
		return ""
	}
	parts := make([]string, len(failed))
	for i, f := range failed {
		parts[i] = fmt.Sprintf("%s %s", f.Kind, f.UserID)
	}
	return StyleError.Render(fmt.Sprintf("%d change(s) not saved: %s", len(failed), strings.Join(parts, ", ")))
}

func (m membersModel) roleLines() []string {
	lines := []string{StyleTitle.Render(fmt.Sprintf("Role for %s on %s", m.target.ID, m.group)), ""}
	for i, role := range m.roles {
		marker := "  "
		if role == m.target.Membership.Roles {
			marker = "✓ "
		}
		if i == m.roleCursor {
			lines = append(lines, StyleWarning.Render("> "+marker+role))
		} else {
			lines = append(lines, StyleDim.Render("  "+marker+role))
		}
	}
	return append(lines, "", renderHelp("[↑/↓] select   [Enter] apply   [Esc] cancel"))
}

func (m membersModel) view() string {
	if m.width == 0 {
		return ""
	}
	title := StyleTitle.Render(fmt.Sprintf("Members of %s — %s", m.group, m.instName))

	if m.err != nil {
		lines := []string{
			title, "",
			StyleError.Render("Error: " + shortErr(m.err)), "",
			renderHelp("[ctrl+r] retry"),
			renderHelp("[Esc] back   [Q] quit"),
		}
		return stylePage.Render(strings.Join(lines, "\n"))
	}
	if !m.store.Known() {
		return stylePage.Render(title + "\n\n" + StyleWarning.Render(m.spinner.View()+" Loading..."))
	}

	switch m.mode {
	case membersPickRole:
		return stylePage.Render(strings.Join(append([]string{title, ""}, m.roleLines()...), "\n"))
	case membersAdding:
		lines := []string{
			title, "",
			StyleTitle.Render("Add Member"), "",
			StyleWarning.Render("  User ID:    ") + m.addInput.View(), "",
			renderHelp("[Enter] add   [Esc] cancel"),
		}
		return stylePage.Render(strings.Join(lines, "\n"))
	}

	lines := []string{headerLine(title, m.width, m.lastRefreshed), ""}
	if len(m.grid.View().Rows) == 0 {
		lines = append(lines, StyleDim.Render("No members to show."))
	} else {
		lines = append(lines, m.table.View())
	}
	lines = append(lines, m.pagerLine())
	if failed := m.failedLine(); failed != "" {
		lines = append(lines, failed)
	}

	switch m.mode {
	case membersConfirmRemove:
		lines = append(lines, StyleWarning.Render(
			fmt.Sprintf("Remove %q from %s? [Enter] confirm   [Esc] cancel", m.target.ID, m.group)))
		return stylePage.Render(strings.Join(lines, "\n"))
	case membersConfirmDelete:
		lines = append(lines, StyleWarning.Render(
			fmt.Sprintf("Delete user account %q? This cannot be undone. [Enter] confirm   [Esc] cancel", m.target.ID)))
		return stylePage.Render(strings.Join(lines, "\n"))
	}

	switch {
	case m.statusMsg != "" && m.statusErr:
		lines = append(lines, StyleError.Render(m.statusMsg))
	case m.statusMsg != "":
		lines = append(lines, StyleSuccess.Render(m.statusMsg))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, renderHelp("[n/→] next  [p/←] previous  |  [a] add  [d] remove  [r] role  [D] delete user  |  [ctrl+r] refresh"))
	lines = append(lines, renderHelp("[Esc] back   [Q] quit"))
	return stylePage.Render(strings.Join(lines, "\n"))
}
