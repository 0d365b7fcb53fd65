package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	proxmox "github.com/luthermonson/go-proxmox"

	"github.com/chupakbra/pxve-members/internal/client"
	"github.com/chupakbra/pxve-members/internal/config"
)

const connectTimeout = 15 * time.Second

type selectorMode int

const (
	selectorNormal     selectorMode = iota
	selectorAdding                  // add-instance form is open
	selectorConfirmDel              // delete-instance confirmation overlay
)

// connectErrMsg is sent when connecting to a Proxmox instance fails.
type connectErrMsg struct{ err error }

type selectorModel struct {
	cfg        *config.Config
	current    string
	table      table.Model
	spinner    spinner.Model
	connecting bool
	connectErr string

	mode selectorMode

	// Add-instance form: [0]=name [1]=url [2]=tokenID [3]=tokenSecret.
	addInputs [4]textinput.Model
	addFocus  int

	statusMsg string
	statusErr bool

	// Connected clients, shared with appModel.
	clientCache map[string]*proxmox.Client

	width  int
	height int
}

func newSelectorModel(cfg *config.Config, clientCache map[string]*proxmox.Client) selectorModel {
	placeholders := [4]string{
		"e.g. home-lab",
		"https://192.168.1.10:8006",
		"user@pve!mytoken",
		"token secret",
	}
	var inputs [4]textinput.Model
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 120
		if i == 3 {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		inputs[i] = ti
	}
	if cfg.Instances == nil {
		cfg.Instances = make(map[string]config.InstanceConfig)
	}

	m := selectorModel{
		cfg:         cfg,
		current:     cfg.CurrentInstance,
		spinner:     newSpinner(),
		addInputs:   inputs,
		clientCache: clientCache,
	}
	return m.withRebuiltTable()
}

func (m selectorModel) names() []string {
	names := make([]string, 0, len(m.cfg.Instances))
	for name := range m.cfg.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m selectorModel) withRebuiltTable() selectorModel {
	nameWidth, urlWidth, defWidth := 20, 40, 9
	if remaining := m.width - urlWidth - defWidth - 10; remaining > nameWidth {
		nameWidth = remaining
	}
	cols := []table.Column{
		{Title: "NAME", Width: nameWidth},
		{Title: "URL", Width: urlWidth},
		{Title: "DEFAULT", Width: defWidth},
	}

	names := m.names()
	rows := make([]table.Row, len(names))
	for i, name := range names {
		def := ""
		if name == m.current {
			def = "✓"
		}
		rows[i] = table.Row{name, m.cfg.Instances[name].URL, def}
	}

	height := 10
	if m.height > 0 {
		height = m.height - 10
	}
	m.table = newTable(cols, rows, height)
	return m
}

// busy reports whether keys such as Q and Esc belong to the selector.
func (m selectorModel) busy() bool {
	return m.mode != selectorNormal
}

func (m selectorModel) update(msg tea.Msg) (selectorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case connectErrMsg:
		m.connecting = false
		m.connectErr = msg.err.Error()
		return m, nil

	case spinner.TickMsg:
		if !m.connecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.connecting {
			return m, nil
		}
		switch m.mode {
		case selectorAdding:
			return m.updateAdding(msg)
		case selectorConfirmDel:
			return m.updateConfirmDel(msg)
		}

		switch msg.String() {
		case "enter":
			row := m.table.SelectedRow()
			if len(row) == 0 {
				return m, nil
			}
			name := row[0]
			m.connecting = true
			m.connectErr = ""
			m.statusMsg = ""
			return m, tea.Batch(connectToInstance(m.cfg, m.clientCache[name], name), m.spinner.Tick)
		case "a":
			m.mode = selectorAdding
			m.addFocus = 0
			m.addInputs[0].Focus()
			return m, textinput.Blink
		case "d":
			if len(m.table.Rows()) == 0 {
				return m, nil
			}
			m.mode = selectorConfirmDel
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m selectorModel) updateAdding(msg tea.KeyMsg) (selectorModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = selectorNormal
		m.clearAddForm()
		return m, nil
	case "enter":
		if m.addFocus < len(m.addInputs)-1 {
			m.addInputs[m.addFocus].Blur()
			m.addFocus++
			m.addInputs[m.addFocus].Focus()
			return m, textinput.Blink
		}
		name := strings.TrimSpace(m.addInputs[0].Value())
		inst := config.InstanceConfig{
			URL:         strings.TrimSpace(m.addInputs[1].Value()),
			TokenID:     strings.TrimSpace(m.addInputs[2].Value()),
			TokenSecret: strings.TrimSpace(m.addInputs[3].Value()),
		}
		m.mode = selectorNormal
		m.clearAddForm()
		if name == "" || inst.URL == "" {
			return m.withStatus("Name and URL are required", true), nil
		}
		if _, exists := m.cfg.Instances[name]; exists {
			return m.withStatus(fmt.Sprintf("Instance %q already exists", name), true), nil
		}
		m.cfg.Instances[name] = inst
		if err := config.Save(m.cfg); err != nil {
			return m.withStatus("Error: "+err.Error(), true), nil
		}
		m = m.withStatus(fmt.Sprintf("Instance %q added", name), false)
		return m.withRebuiltTable(), nil
	}
	var cmd tea.Cmd
	m.addInputs[m.addFocus], cmd = m.addInputs[m.addFocus].Update(msg)
	return m, cmd
}

func (m selectorModel) updateConfirmDel(msg tea.KeyMsg) (selectorModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = selectorNormal
		row := m.table.SelectedRow()
		if len(row) == 0 {
			return m, nil
		}
		name := row[0]
		delete(m.cfg.Instances, name)
		delete(m.clientCache, name)
		if m.current == name {
			m.current = ""
			m.cfg.CurrentInstance = ""
		}
		if err := config.Save(m.cfg); err != nil {
			return m.withStatus("Error: "+err.Error(), true), nil
		}
		m = m.withStatus(fmt.Sprintf("Instance %q removed", name), false)
		return m.withRebuiltTable(), nil
	case "esc":
		m.mode = selectorNormal
	}
	return m, nil
}

func (m selectorModel) withStatus(msg string, isErr bool) selectorModel {
	m.statusMsg = msg
	m.statusErr = isErr
	return m
}

func (m *selectorModel) clearAddForm() {
	for i := range m.addInputs {
		m.addInputs[i].Reset()
		m.addInputs[i].Blur()
	}
	m.addFocus = 0
}

func (m selectorModel) view() string {
	if m.width == 0 {
		return ""
	}
	title := StyleTitle.Render("Proxmox Instances")

	if m.mode == selectorAdding {
		labels := []string{"Name:", "URL:", "Token ID:", "Token Secret:"}
		lines := []string{title, "", StyleTitle.Render("Add Instance"), ""}
		for i, inp := range m.addInputs {
			label := fmt.Sprintf("  %-14s", labels[i])
			if i == m.addFocus {
				lines = append(lines, StyleWarning.Render(label)+inp.View())
			} else {
				lines = append(lines, StyleDim.Render(label)+inp.View())
			}
		}
		lines = append(lines, "", renderHelp("[Enter] next/save   [Esc] cancel"))
		return stylePage.Render(strings.Join(lines, "\n"))
	}

	if len(m.cfg.Instances) == 0 {
		notice := StyleDim.Render("No instances configured. Press 'a' to add one.")
		return stylePage.Render(strings.Join([]string{title, "", notice, "", renderHelp("[a] add   [Q] quit")}, "\n"))
	}

	lines := []string{title, "", m.table.View(), ""}

	if m.mode == selectorConfirmDel {
		name := ""
		if row := m.table.SelectedRow(); len(row) > 0 {
			name = row[0]
		}
		lines = append(lines, StyleWarning.Render(fmt.Sprintf("Remove instance %q? [Enter] confirm   [Esc] cancel", name)))
		return stylePage.Render(strings.Join(lines, "\n"))
	}

	switch {
	case m.connecting:
		lines = append(lines, StyleWarning.Render(m.spinner.View()+" Connecting..."))
	case m.connectErr != "":
		lines = append(lines, StyleError.Render("Error: "+m.connectErr))
	case m.statusMsg != "" && m.statusErr:
		lines = append(lines, StyleError.Render(m.statusMsg))
	case m.statusMsg != "":
		lines = append(lines, StyleSuccess.Render(m.statusMsg))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, renderHelp("[Enter] connect  |  [a] add   [d] remove"))
	lines = append(lines, renderHelp("[Q] quit"))
	return stylePage.Render(strings.Join(lines, "\n"))
}

// connectToInstance verifies the named instance answers, reusing cached when
// it is non-nil, records it as the current instance and emits
// instanceSelectedMsg.
func connectToInstance(cfg *config.Config, cached *proxmox.Client, name string) tea.Cmd {
	inst := cfg.Instances[name]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		c := cached
		if c != nil {
			if _, err := c.Version(ctx); err != nil {
				c = nil
			}
		}
		if c == nil {
			var err error
			c, err = client.Connect(ctx, &inst)
			if err != nil {
				return connectErrMsg{fmt.Errorf("connecting to %q: %w", name, err)}
			}
		}
		cfg.CurrentInstance = name
		if err := config.Save(cfg); err != nil {
			log := config.GetLogger()
			log.Warn().Err(err).Msg("saving current instance")
		}
		return instanceSelectedMsg{client: c, name: name}
	}
}
