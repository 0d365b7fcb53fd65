package grid

import "sort"

// Column describes one column of the member table. Width is a relative
// weight for fixed columns; a zero Width column takes the remaining space.
type Column struct {
	Name      string
	Field     string
	Width     int
	Fixed     bool
	Overflow  string
	TextAlign string
}

// Column fields.
const (
	FieldName   = "name"
	FieldRole   = "role"
	FieldRemove = "remove"
)

// Columns returns the fixed three-column layout: name, role, remove action.
func Columns() []Column {
	return []Column{
		{Name: "Name", Field: FieldName, Width: 3, Fixed: true, TextAlign: "left"},
		// The role cell opens a picker and must not be clipped.
		{Name: "Role", Field: FieldRole, Overflow: "visible", TextAlign: "left"},
		{Name: "", Field: FieldRemove, Width: 1, Fixed: true, TextAlign: "right"},
	}
}

// Row is one rendered member.
type Row struct {
	ID         string
	Name       string
	Member     Member
	Membership Membership
	// Staged is set for members shown from Props.Include.
	Staged bool
	// RoleChange is the latest role mutation for the member, if any.
	RoleChange *Mutation
}

// RemoveEvent marks this row's member for removal.
func (r Row) RemoveEvent() Event {
	return Remove{Member: r.Member}
}

// RoleEvent stages role for this row's member.
func (r Row) RoleEvent(role string) Event {
	return StageRole{UserID: r.ID, Role: role}
}

// View is everything the rendering surface needs.
type View struct {
	Columns    []Column
	Rows       []Row
	Page       int
	StartCount int
	EndCount   int
	Total      int
	Loading    bool
	HasPrev    bool
	HasNext    bool
	// Failed lists mutations the server rejected. Their optimistic effect is
	// kept in the overlay.
	Failed []Mutation
}

// Materialize projects s over p into the rows for the current page. It
// returns at most one LoadPage effect, issued when the window is under-filled
// and the data source still holds members that have not been fetched.
func Materialize(s State, p Props) (View, []Effect) {
	page := clampPage(s.Page, s.VisibleTotal)
	win := windowFor(page, s.VisibleTotal)

	view := View{
		Columns:    Columns(),
		Page:       page,
		StartCount: win.Start,
		EndCount:   win.End,
		Total:      win.Total,
		Loading:    s.Loading,
		HasPrev:    page > 0,
		HasNext:    win.End < win.Total,
		Failed:     s.failures(),
	}

	visible := make([]Member, 0, len(p.Records))
	for _, m := range p.Records {
		if s.IsRemoved(m.UserID) {
			continue
		}
		if _, ok := p.Exclude[m.UserID]; ok {
			continue
		}
		visible = append(visible, m)
	}
	lo := clampIndex(win.Start-1, len(visible))
	hi := clampIndex(win.End, len(visible))
	if hi < lo {
		hi = lo
	}
	slice := visible[lo:hi]

	var effects []Effect
	if len(slice) < PageSize && len(p.Records) < s.AuthoritativeTotal {
		// Counted from the shown page so the fetch serves rows that render.
		removedPages := s.RemovedCount() / PageSize
		effects = append(effects, LoadPage{Page: page + removedPages + 1, Prefetch: true})
	}

	if len(p.Records) == 0 {
		return view, effects
	}
	if _, ok := p.Memberships[p.Records[0].UserID]; !ok {
		// Members arrived before their role data; treat as not loaded yet.
		return view, effects
	}

	rows := make([]Row, 0, len(slice))
	if page == 0 {
		for _, m := range stagedAdditions(s, p) {
			rows = append(rows, s.row(p, m, true))
		}
	}
	for _, m := range slice {
		rows = append(rows, s.row(p, m, false))
	}
	view.Rows = rows
	return view, effects
}

func (s State) row(p Props, m Member, staged bool) Row {
	ms, ok := s.effectiveMembership(p, m.UserID)
	if !ok {
		ms = Membership{UserID: m.UserID}
	}
	r := Row{
		ID:         m.UserID,
		Name:       m.DisplayName(),
		Member:     m,
		Membership: ms,
		Staged:     staged,
	}
	if mut, ok := s.Mutation(KindRole, m.UserID); ok {
		r.RoleChange = &mut
	}
	return r
}

// stagedAdditions returns included members that the server list does not
// carry yet, ordered by user ID.
func stagedAdditions(s State, p Props) []Member {
	if len(p.Include) == 0 {
		return nil
	}
	present := make(map[string]struct{}, len(p.Records))
	for _, m := range p.Records {
		present[m.UserID] = struct{}{}
	}
	var out []Member
	for id, m := range p.Include {
		if _, ok := present[id]; ok {
			continue
		}
		if _, ok := p.Exclude[id]; ok {
			continue
		}
		if s.IsRemoved(id) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
