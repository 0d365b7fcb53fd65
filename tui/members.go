package tui

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chupakbra/pxve-members/internal/config"
	"github.com/chupakbra/pxve-members/internal/grid"
	"github.com/chupakbra/pxve-members/internal/roster"
)

type membersMode int

const (
	membersNormal        membersMode = iota
	membersConfirmRemove             // remove selected member from the group
	membersPickRole                  // role picker open
	membersAdding                    // add-member input open
	membersConfirmDelete             // delete the selected user account
)

// pageLoadedMsg carries one page from the directory.
type pageLoadedMsg struct {
	index   int
	page    roster.Page
	err     error
	fetchID int64
}

// mutationDoneMsg reports the result of a forwarded remove or role change.
type mutationDoneMsg struct {
	kind   grid.MutationKind
	userID string
	seq    int
	err    error
}

// memberAddedMsg is sent once a user has been added to the group.
type memberAddedMsg struct {
	member grid.Member
	err    error
}

// userDeletedMsg is sent once a user account has been deleted.
type userDeletedMsg struct {
	member grid.Member
	err    error
}

type membersModel struct {
	dir      roster.Directory
	loader   *roster.Loader
	instName string
	group    string
	roles    []string

	grid  grid.Grid
	store roster.Store
	// include holds members added this session, exclude deleted accounts.
	include map[string]grid.Member
	exclude map[string]grid.Member

	inflight map[int]struct{}
	fetchID  int64

	table      table.Model
	spinner    spinner.Model
	mode       membersMode
	roleCursor int
	addInput   textinput.Model
	target     grid.Row

	err           error
	statusMsg     string
	statusErr     bool
	lastRefreshed time.Time

	width  int
	height int
}

func newMembersModel(dir roster.Directory, loader *roster.Loader, instName, group string, roles []string, w, h int) membersModel {
	ti := textinput.New()
	ti.Placeholder = "user@realm"
	ti.CharLimit = 100

	if len(roles) == 0 {
		roles = config.DefaultRoles
	}
	m := membersModel{
		dir:      dir,
		loader:   loader,
		instName: instName,
		group:    group,
		roles:    roles,
		grid:     grid.New(),
		store:    roster.NewStore(group),
		inflight: map[int]struct{}{},
		fetchID:  time.Now().UnixNano(),
		spinner:  newSpinner(),
		addInput: ti,
		width:    w,
		height:   h,
	}
	return m.withRebuiltTable()
}

// start requests the first page.
func (m membersModel) start() (membersModel, tea.Cmd) {
	return m.dispatch(grid.GoToPage{Page: 0})
}

// busy reports whether keys such as Q and Esc belong to the members screen.
func (m membersModel) busy() bool {
	return m.mode != membersNormal
}

func (m membersModel) loading() bool {
	return len(m.inflight) > 0
}

func (m membersModel) props() grid.Props {
	return m.store.Props(m.include, m.exclude)
}

// dispatch applies ev to the grid and turns the resulting effects into commands.
func (m membersModel) dispatch(ev grid.Event) (membersModel, tea.Cmd) {
	var effects []grid.Effect
	m.grid, effects = m.grid.Dispatch(ev)
	m, cmd := m.runEffects(effects)
	return m.withRebuiltTable(), cmd
}

// refreshProps hands the current store to the grid.
func (m membersModel) refreshProps() (membersModel, tea.Cmd) {
	var effects []grid.Effect
	m.grid, effects = m.grid.WithProps(m.props())
	m, cmd := m.runEffects(effects)
	return m.withRebuiltTable(), cmd
}

func (m membersModel) runEffects(effects []grid.Effect) (membersModel, tea.Cmd) {
	wasLoading := m.loading()
	var cmds []tea.Cmd
	for _, eff := range effects {
		switch eff := eff.(type) {
		case grid.LoadPage:
			if _, busy := m.inflight[eff.Page]; busy {
				continue
			}
			if eff.Prefetch && m.store.Loaded(eff.Page) {
				continue
			}
			inflight := make(map[int]struct{}, len(m.inflight)+1)
			maps.Copy(inflight, m.inflight)
			inflight[eff.Page] = struct{}{}
			m.inflight = inflight
			cmds = append(cmds, m.loadPageCmd(eff.Page))
		case grid.RemoveMember:
			cmds = append(cmds, m.removeMemberCmd(eff))
		case grid.UpdateRole:
			cmds = append(cmds, m.updateRoleCmd(eff))
		}
	}
	if !wasLoading && m.loading() {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m membersModel) update(msg tea.Msg) (membersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case pageLoadedMsg:
		if msg.fetchID != m.fetchID {
			return m, nil
		}
		m.inflight = maps.Clone(m.inflight)
		delete(m.inflight, msg.index)
		if msg.err != nil {
			log := config.GetLogger()
			log.Error().Err(msg.err).Str("group", m.group).Int("page", msg.index).Msg("loading members")
			if !m.store.Known() {
				m.err = msg.err
				return m, nil
			}
			return m.withStatus("Error: "+shortErr(msg.err), true), nil
		}
		m.err = nil
		m.lastRefreshed = time.Now()
		var changed bool
		m.store, changed = m.store.Merge(msg.page)
		if !changed {
			return m.withRebuiltTable(), nil
		}
		return m.refreshProps()

	case mutationDoneMsg:
		if msg.err != nil {
			log := config.GetLogger()
			log.Error().Err(msg.err).Str("group", m.group).Str("user", msg.userID).
				Stringer("kind", msg.kind).Msg("member change failed")
			m = m.withStatus(fmt.Sprintf("Error: %s %s: %s", msg.kind, msg.userID, shortErr(msg.err)), true)
		} else {
			m = m.withStatus(mutationDoneText(msg.kind, msg.userID), false)
		}
		return m.dispatch(grid.Resolved{Kind: msg.kind, UserID: msg.userID, Seq: msg.seq, Err: msg.err})

	case memberAddedMsg:
		if msg.err != nil {
			return m.withStatus("Error: "+shortErr(msg.err), true), nil
		}
		m.include = maps.Clone(m.include)
		if m.include == nil {
			m.include = map[string]grid.Member{}
		}
		m.include[msg.member.UserID] = msg.member
		m = m.withStatus(fmt.Sprintf("User %q added to %s", msg.member.UserID, m.group), false)
		return m.refreshProps()

	case userDeletedMsg:
		if msg.err != nil {
			return m.withStatus("Error: "+shortErr(msg.err), true), nil
		}
		m.exclude = maps.Clone(m.exclude)
		if m.exclude == nil {
			m.exclude = map[string]grid.Member{}
		}
		m.exclude[msg.member.UserID] = msg.member
		m = m.withStatus(fmt.Sprintf("User %q deleted", msg.member.UserID), false)
		return m.refreshProps()

	case spinner.TickMsg:
		if !m.loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case membersConfirmRemove:
			return m.updateConfirmRemove(msg)
		case membersPickRole:
			return m.updatePickRole(msg)
		case membersAdding:
			return m.updateAdding(msg)
		case membersConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
		return m.updateNormal(msg)
	}

	var cmd tea.Cmd
	if m.mode == membersAdding {
		m.addInput, cmd = m.addInput.Update(msg)
		return m, cmd
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m membersModel) updateNormal(msg tea.KeyMsg) (membersModel, tea.Cmd) {
	view := m.grid.View()
	switch msg.String() {
	case "n", "right", "pgdown":
		// Step from the page on screen; the state page is not clamped.
		if view.HasNext {
			return m.dispatch(grid.GoToPage{Page: view.Page + 1})
		}
		return m, nil
	case "p", "left", "pgup":
		if view.HasPrev {
			return m.dispatch(grid.GoToPage{Page: view.Page - 1})
		}
		return m, nil
	case "d":
		if row, ok := m.selectedRow(); ok {
			m.target = row
			m.mode = membersConfirmRemove
		}
		return m, nil
	case "D":
		if row, ok := m.selectedRow(); ok {
			m.target = row
			m.mode = membersConfirmDelete
		}
		return m, nil
	case "r":
		if row, ok := m.selectedRow(); ok {
			m.target = row
			m.roleCursor = 0
			for i, role := range m.roles {
				if role == row.Membership.Roles {
					m.roleCursor = i
				}
			}
			m.mode = membersPickRole
		}
		return m, nil
	case "a":
		m.mode = membersAdding
		m.addInput.Focus()
		return m, textinput.Blink
	case "ctrl+r":
		return m.reload()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m membersModel) updateConfirmRemove(msg tea.KeyMsg) (membersModel, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		m.mode = membersNormal
		return m.dispatch(m.target.RemoveEvent())
	case "esc", "n":
		m.mode = membersNormal
	}
	return m, nil
}

func (m membersModel) updatePickRole(msg tea.KeyMsg) (membersModel, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.roleCursor > 0 {
			m.roleCursor--
		}
	case "down", "j":
		if m.roleCursor < len(m.roles)-1 {
			m.roleCursor++
		}
	case "enter":
		m.mode = membersNormal
		role := m.roles[m.roleCursor]
		if role == m.target.Membership.Roles {
			return m, nil
		}
		return m.dispatch(m.target.RoleEvent(role))
	case "esc":
		m.mode = membersNormal
	}
	return m, nil
}

func (m membersModel) updateAdding(msg tea.KeyMsg) (membersModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = membersNormal
		m.addInput.Reset()
		m.addInput.Blur()
		return m, nil
	case "enter":
		userID := strings.TrimSpace(m.addInput.Value())
		m.mode = membersNormal
		m.addInput.Reset()
		m.addInput.Blur()
		if !strings.Contains(userID, "@") {
			return m.withStatus(fmt.Sprintf("Invalid user ID %q, expected user@realm", userID), true), nil
		}
		return m, m.addMemberCmd(userID)
	}
	var cmd tea.Cmd
	m.addInput, cmd = m.addInput.Update(msg)
	return m, cmd
}

func (m membersModel) updateConfirmDelete(msg tea.KeyMsg) (membersModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = membersNormal
		return m, m.deleteUserCmd(m.target.Member)
	case "esc":
		m.mode = membersNormal
	}
	return m, nil
}

// reload drops every loaded page and starts again from the first page. Staged
// removals and role changes survive.
func (m membersModel) reload() (membersModel, tea.Cmd) {
	m.fetchID = time.Now().UnixNano()
	m.store = roster.NewStore(m.group)
	m.inflight = map[int]struct{}{}
	m.err = nil
	m.statusMsg = ""
	return m.dispatch(grid.GoToPage{Page: 0})
}

func (m membersModel) selectedRow() (grid.Row, bool) {
	rows := m.grid.View().Rows
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(rows) {
		return grid.Row{}, false
	}
	return rows[cursor], true
}

func (m membersModel) withStatus(msg string, isErr bool) membersModel {
	m.statusMsg = msg
	m.statusErr = isErr
	return m
}

func mutationDoneText(kind grid.MutationKind, userID string) string {
	if kind == grid.KindRemove {
		return fmt.Sprintf("User %q removed", userID)
	}
	return fmt.Sprintf("Role of %q updated", userID)
}

func (m membersModel) loadPageCmd(index int) tea.Cmd {
	loader, group, fetchID := m.loader, m.group, m.fetchID
	return func() tea.Msg {
		page, err := loader.LoadPage(context.Background(), group, index)
		return pageLoadedMsg{index: index, page: page, err: err, fetchID: fetchID}
	}
}

func (m membersModel) removeMemberCmd(eff grid.RemoveMember) tea.Cmd {
	dir, group := m.dir, m.group
	return func() tea.Msg {
		err := dir.RemoveMember(context.Background(), group, eff.Member.UserID)
		return mutationDoneMsg{kind: grid.KindRemove, userID: eff.Member.UserID, seq: eff.Seq, err: err}
	}
}

func (m membersModel) updateRoleCmd(eff grid.UpdateRole) tea.Cmd {
	dir, group := m.dir, m.group
	return func() tea.Msg {
		err := dir.SetRole(context.Background(), group, eff.UserID, eff.Role)
		return mutationDoneMsg{kind: grid.KindRole, userID: eff.UserID, seq: eff.Seq, err: err}
	}
}

func (m membersModel) addMemberCmd(userID string) tea.Cmd {
	dir, group := m.dir, m.group
	return func() tea.Msg {
		ctx := context.Background()
		if err := dir.AddMember(ctx, group, userID); err != nil {
			return memberAddedMsg{err: err}
		}
		member, err := dir.Member(ctx, userID)
		if err != nil {
			// Added, but the details could not be read back.
			member = grid.Member{UserID: userID}
		}
		return memberAddedMsg{member: member}
	}
}

func (m membersModel) deleteUserCmd(member grid.Member) tea.Cmd {
	dir := m.dir
	return func() tea.Msg {
		err := dir.DeleteUser(context.Background(), member.UserID)
		return userDeletedMsg{member: member, err: err}
	}
}
