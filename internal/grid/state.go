package grid

import "sort"

// State is the reconciler's private state: pagination plus the overlays.
// Values are never mutated in place; every transition returns a new State
// and copies any map it writes to.
type State struct {
	Page               int
	VisibleTotal       int
	AuthoritativeTotal int
	Loading            bool

	removed   map[string]struct{}
	updates   map[string]Membership
	mutations map[mutationKey]Mutation
	seq       int
}

// Props is the externally supplied input the overlays are applied to.
type Props struct {
	// Records is every member loaded so far, in server order.
	Records []Member
	// Memberships is the role data joined to Records by user ID.
	Memberships map[string]Membership
	// Include holds members staged for addition; they render on the first
	// page but never count toward Total.
	Include map[string]Member
	// Exclude holds members removed by another screen; they never render.
	Exclude map[string]Member
	// Total is the authoritative member count.
	Total int
}

// Event is an input to State.Apply.
type Event interface {
	isEvent()
}

// TotalChanged reports the authoritative total seen on an external update.
// It only has an effect when the value differs from the last one observed.
type TotalChanged struct{ Total int }

// GoToPage moves to Page and requests it from the data source.
type GoToPage struct{ Page int }

// NextPage is GoToPage(page+1). No upper bound is enforced, and page is the
// state page, which may lie past View.Page once the total shrinks. Hosts that
// page from what is on screen dispatch GoToPage{View.Page + 1} instead.
type NextPage struct{}

// PreviousPage is GoToPage(page-1). No lower bound is enforced.
type PreviousPage struct{}

// Remove marks Member for removal. Repeats are no-ops.
type Remove struct{ Member Member }

// StageRole stages Role for UserID, replacing any earlier staged role.
type StageRole struct {
	UserID string
	Role   string
}

// Resolved reports the outcome of a forwarded mutation. Results whose Seq
// does not match the latest mutation of that kind for the user are ignored.
type Resolved struct {
	Kind   MutationKind
	UserID string
	Seq    int
	Err    error
}

func (TotalChanged) isEvent() {}
func (GoToPage) isEvent()     {}
func (NextPage) isEvent()     {}
func (PreviousPage) isEvent() {}
func (Remove) isEvent()       {}
func (StageRole) isEvent()    {}
func (Resolved) isEvent()     {}

// Apply performs one state transition. p is only read, for the membership a
// staged role update is based on.
func (s State) Apply(p Props, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case TotalChanged:
		return s.totalChanged(ev.Total), nil
	case GoToPage:
		return s.goToPage(ev.Page)
	case NextPage:
		return s.goToPage(s.Page + 1)
	case PreviousPage:
		return s.goToPage(s.Page - 1)
	case Remove:
		return s.remove(ev.Member)
	case StageRole:
		return s.stageRole(p, ev.UserID, ev.Role)
	case Resolved:
		return s.resolve(ev), nil
	}
	return s, nil
}

func sortMutations(ms []Mutation) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].Seq < ms[j].Seq })
}
