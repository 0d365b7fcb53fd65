// Package tui implements the interactive terminal user interface for
// pxve-members: pick an instance, pick a group, then page through and edit
// its members.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	proxmox "github.com/luthermonson/go-proxmox"

	"github.com/chupakbra/pxve-members/internal/config"
	"github.com/chupakbra/pxve-members/internal/roster"
)

type screen int

const (
	screenSelector screen = iota
	screenGroups
	screenMembers
)

// instanceSelectedMsg is sent by the selector when the user connects to an instance.
type instanceSelectedMsg struct {
	client *proxmox.Client
	name   string
}

// groupSelectedMsg is sent by the groups screen when a group is opened.
type groupSelectedMsg struct {
	group string
}

// appModel is the top-level Bubble Tea model acting as a screen router.
type appModel struct {
	cfg      *config.Config
	screen   screen
	width    int
	height   int
	selector selectorModel
	groups   groupsModel
	members  membersModel

	client      *proxmox.Client
	clientCache map[string]*proxmox.Client
}

func newAppModel(cfg *config.Config) appModel {
	cc := make(map[string]*proxmox.Client)
	return appModel{
		cfg:         cfg,
		screen:      screenSelector,
		selector:    newSelectorModel(cfg, cc),
		clientCache: cc,
	}
}

func (a appModel) Init() tea.Cmd {
	return nil
}

// busy reports whether the active screen is in a dialog or filter and
// should receive Q and Esc itself.
func (a appModel) busy() bool {
	switch a.screen {
	case screenSelector:
		return a.selector.busy()
	case screenGroups:
		return a.groups.busy()
	case screenMembers:
		return a.members.busy()
	}
	return false
}

func (a appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.selector.width, a.selector.height = msg.Width, msg.Height
		a.selector = a.selector.withRebuiltTable()
		a.groups.width, a.groups.height = msg.Width, msg.Height
		if !a.groups.loading && a.groups.groups != nil {
			a.groups = a.groups.withRebuiltTable()
		}
		a.members.width, a.members.height = msg.Width, msg.Height
		if a.screen == screenMembers {
			a.members = a.members.withRebuiltTable()
		}
		return a, nil

	case instanceSelectedMsg:
		a.screen = screenGroups
		a.selector.connecting = false
		a.selector.current = msg.name
		a.selector = a.selector.withRebuiltTable()
		a.clientCache[msg.name] = msg.client
		a.client = msg.client
		a.groups = newGroupsModel(msg.client, msg.name, a.width, a.height)
		return a, a.groups.init()

	case groupSelectedMsg:
		a.screen = screenMembers
		dir := roster.NewProxmoxDirectory(a.client, a.cfg.Members)
		loader := roster.NewLoader(dir, a.cfg.Members.Concurrency)
		a.members = newMembersModel(dir, loader, a.groups.instName, msg.group, a.cfg.Members.Roles, a.width, a.height)
		var cmd tea.Cmd
		a.members, cmd = a.members.start()
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "Q":
			if !a.busy() {
				return a, tea.Quit
			}
		case "esc":
			if a.busy() {
				break
			}
			switch a.screen {
			case screenMembers:
				a.screen = screenGroups
				// Counts may have changed while editing.
				a.groups.loading = true
				a.groups.fetchID++
				return a, tea.Batch(fetchGroups(a.groups.client, a.groups.fetchID), a.groups.spinner.Tick)
			case screenGroups:
				a.groups.filter.clear()
				a.screen = screenSelector
				return a, nil
			}
		}
	}

	var cmd tea.Cmd
	switch a.screen {
	case screenSelector:
		a.selector, cmd = a.selector.update(msg)
	case screenGroups:
		a.groups, cmd = a.groups.update(msg)
	case screenMembers:
		a.members, cmd = a.members.update(msg)
	}
	return a, cmd
}

func (a appModel) View() string {
	switch a.screen {
	case screenSelector:
		return a.selector.view()
	case screenGroups:
		return a.groups.view()
	case screenMembers:
		return a.members.view()
	}
	return ""
}

// LaunchTUI starts the Bubble Tea program and blocks until the user quits.
// Logs go to the configured log file while the terminal is in use.
func LaunchTUI(cfg *config.Config) error {
	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = config.DefaultLogFile()
	}
	if err := config.InitLogger(cfg.Logging.Level, logFile, false); err != nil {
		return err
	}
	defer config.CloseLogFile()

	p := tea.NewProgram(newAppModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
