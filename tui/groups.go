package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	proxmox "github.com/luthermonson/go-proxmox"

	"github.com/chupakbra/pxve-members/internal/actions"
	clierrors "github.com/chupakbra/pxve-members/internal/errors"
)

// groupsFetchedMsg carries the result of listing groups.
type groupsFetchedMsg struct {
	groups  proxmox.Groups
	err     error
	fetchID int64
}

type groupsModel struct {
	client        *proxmox.Client
	instName      string
	groups        proxmox.Groups
	visible       proxmox.Groups
	loading       bool
	err           error
	table         table.Model
	spinner       spinner.Model
	filter        tableFilter
	fetchID       int64
	lastRefreshed time.Time

	width  int
	height int
}

func newGroupsModel(c *proxmox.Client, instName string, w, h int) groupsModel {
	return groupsModel{
		client:   c,
		instName: instName,
		loading:  true,
		spinner:  newSpinner(),
		fetchID:  time.Now().UnixNano(),
		width:    w,
		height:   h,
	}
}

func (m groupsModel) init() tea.Cmd {
	return tea.Batch(fetchGroups(m.client, m.fetchID), m.spinner.Tick)
}

// busy reports whether keys such as Q and Esc belong to the groups screen.
func (m groupsModel) busy() bool {
	return m.filter.active
}

// groupUsers splits the comma-separated user list Proxmox returns for a group.
func groupUsers(g *proxmox.Group) []string {
	if g.Users == "" {
		return nil
	}
	return strings.Split(g.Users, ",")
}

func (m groupsModel) withRebuiltTable() groupsModel {
	commentWidth := m.width - 24 - 10 - 10
	if commentWidth < 20 {
		commentWidth = 20
	}
	cols := []table.Column{
		{Title: "GROUPID", Width: 24},
		{Title: "MEMBERS", Width: 10},
		{Title: "COMMENT", Width: commentWidth},
	}

	m.visible = m.visible[:0:0]
	var rows []table.Row
	for _, g := range m.groups {
		if !m.filter.matches(g.GroupID, g.Comment, g.Users) {
			continue
		}
		m.visible = append(m.visible, g)
		rows = append(rows, table.Row{g.GroupID, fmt.Sprintf("%d", len(groupUsers(g))), g.Comment})
	}
	m.table = newTable(cols, rows, m.height-10)
	return m
}

func (m groupsModel) update(msg tea.Msg) (groupsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case groupsFetchedMsg:
		if msg.fetchID != m.fetchID {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.groups = msg.groups
		m.lastRefreshed = time.Now()
		return m.withRebuiltTable(), nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.filter.active {
			var rebuild bool
			m.filter, rebuild = m.filter.handleKey(msg)
			if rebuild {
				m = m.withRebuiltTable()
			}
			return m, nil
		}
		switch msg.String() {
		case "/":
			m.filter.active = true
			return m, nil
		case "ctrl+u":
			if m.filter.hasActiveFilter() {
				m.filter.clear()
				return m.withRebuiltTable(), nil
			}
		case "ctrl+r":
			m.loading = true
			m.err = nil
			m.fetchID = time.Now().UnixNano()
			return m, tea.Batch(fetchGroups(m.client, m.fetchID), m.spinner.Tick)
		case "enter":
			cursor := m.table.Cursor()
			if cursor < 0 || cursor >= len(m.visible) {
				return m, nil
			}
			group := m.visible[cursor].GroupID
			return m, func() tea.Msg { return groupSelectedMsg{group: group} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m groupsModel) view() string {
	if m.width == 0 {
		return ""
	}
	title := StyleTitle.Render(fmt.Sprintf("Groups — %s", m.instName))

	if m.loading {
		return stylePage.Render(title + "\n\n" + StyleWarning.Render(m.spinner.View()+" Loading..."))
	}
	if m.err != nil {
		lines := []string{
			title, "",
			StyleError.Render("Error: " + clierrors.Short(m.err)), "",
			renderHelp("[ctrl+r] retry"),
			renderHelp("[Esc] back   [Q] quit"),
		}
		return stylePage.Render(strings.Join(lines, "\n"))
	}

	count := StyleDim.Render(fmt.Sprintf(" (%d)", len(m.groups)))
	lines := []string{headerLine(title+count, m.width, m.lastRefreshed), "", m.table.View()}
	if line := m.filter.renderLine(); line != "" {
		lines = append(lines, line)
	} else {
		lines = append(lines, "")
	}
	lines = append(lines, renderHelp("[Enter] members  [/] filter  |  [ctrl+r] refresh"))
	lines = append(lines, renderHelp("[Esc] back   [Q] quit"))
	return stylePage.Render(strings.Join(lines, "\n"))
}

func fetchGroups(c *proxmox.Client, fetchID int64) tea.Cmd {
	return func() tea.Msg {
		groups, err := actions.ListGroups(context.Background(), c)
		if err == nil {
			sort.Slice(groups, func(i, j int) bool { return groups[i].GroupID < groups[j].GroupID })
		}
		return groupsFetchedMsg{groups: groups, err: err, fetchID: fetchID}
	}
}
