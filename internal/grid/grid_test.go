package grid

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(i int) Member {
	return Member{
		UserID:    fmt.Sprintf("user%02d@pve", i),
		Firstname: "User",
		Lastname:  fmt.Sprintf("%02d", i),
		Enabled:   true,
	}
}

// fixture returns props holding members 1..n with an authoritative total.
func fixture(n, total int) Props {
	p := Props{Memberships: map[string]Membership{}, Total: total}
	for i := 1; i <= n; i++ {
		m := member(i)
		p.Records = append(p.Records, m)
		p.Memberships[m.UserID] = Membership{UserID: m.UserID, GroupID: "ops", Roles: "PVEAuditor"}
	}
	return p
}

func loadPages(effects []Effect) []LoadPage {
	var out []LoadPage
	for _, e := range effects {
		if lp, ok := e.(LoadPage); ok {
			out = append(out, lp)
		}
	}
	return out
}

func rowIDs(v View) []string {
	ids := make([]string, 0, len(v.Rows))
	for _, r := range v.Rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestGrid_TwoMembers(t *testing.T) {
	g, effects := New().WithProps(fixture(2, 2))

	v := g.View()
	assert.Len(t, v.Rows, 2)
	assert.Equal(t, 1, v.StartCount)
	assert.Equal(t, 2, v.EndCount)
	assert.Equal(t, 2, v.Total)
	assert.False(t, v.HasPrev)
	assert.False(t, v.HasNext)
	assert.Empty(t, effects)
}

func TestGrid_IncludedMemberDoesNotChangeTotal(t *testing.T) {
	p := fixture(2, 2)
	notSaved := Member{UserID: "not-saved@pve"}
	p.Include = map[string]Member{notSaved.UserID: notSaved}

	g, _ := New().WithProps(p)

	v := g.View()
	require.Len(t, v.Rows, 3)
	assert.Equal(t, notSaved.UserID, v.Rows[0].ID)
	assert.True(t, v.Rows[0].Staged)
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, 2, v.EndCount)
}

func TestGrid_IncludedMemberAlreadyOnServerIsNotRepeated(t *testing.T) {
	p := fixture(2, 2)
	p.Include = map[string]Member{member(1).UserID: member(1)}

	g, _ := New().WithProps(p)

	assert.Equal(t, []string{member(1).UserID, member(2).UserID}, rowIDs(g.View()))
}

func TestGrid_ExcludedMemberIsHidden(t *testing.T) {
	p := fixture(2, 1)
	p.Exclude = map[string]Member{member(1).UserID: member(1)}

	g, _ := New().WithProps(p)

	assert.Equal(t, []string{member(2).UserID}, rowIDs(g.View()))
	assert.Equal(t, 1, g.View().Total)
}

func TestGrid_RemovedMember(t *testing.T) {
	g, _ := New().WithProps(fixture(2, 2))

	g, effects := g.Dispatch(Remove{Member: member(1)})

	v := g.View()
	assert.Equal(t, []string{member(2).UserID}, rowIDs(v))
	assert.Equal(t, 1, v.Total)
	assert.Equal(t, 1, v.EndCount)
	require.Len(t, effects, 1)
	assert.Equal(t, RemoveMember{Member: member(1), Seq: 1}, effects[0])
	assert.True(t, g.State().IsRemoved(member(1).UserID))
}

func TestGrid_RemoveIsIdempotent(t *testing.T) {
	g, _ := New().WithProps(fixture(5, 5))

	once, _ := g.Dispatch(Remove{Member: member(3)})
	twice, effects := once.Dispatch(Remove{Member: member(3)})

	assert.Equal(t, once.State(), twice.State())
	assert.Equal(t, once.View(), twice.View())
	assert.Empty(t, effects)
}

func TestGrid_VisibleTotalTracksRemovalsUntilTotalChanges(t *testing.T) {
	p := fixture(8, 8)
	g, _ := New().WithProps(p)

	for i := 1; i <= 3; i++ {
		g, _ = g.Dispatch(Remove{Member: member(i)})
	}
	assert.Equal(t, 5, g.State().VisibleTotal)

	// Same total on a later update keeps the local decrements.
	g, _ = g.WithProps(p)
	assert.Equal(t, 5, g.State().VisibleTotal)

	p.Total = 7
	g, _ = g.WithProps(p)
	assert.Equal(t, 7, g.State().VisibleTotal)
	assert.Equal(t, 7, g.State().AuthoritativeTotal)
	assert.Equal(t, 3, g.State().RemovedCount(), "overlay survives a total reset")
}

func TestGrid_RemovingLastRowOfPageMovesBack(t *testing.T) {
	g, _ := New().WithProps(fixture(11, 11))
	g, _ = g.Dispatch(GoToPage{Page: 1})
	require.Equal(t, []string{member(11).UserID}, rowIDs(g.View()))

	g, _ = g.Dispatch(Remove{Member: member(11)})

	assert.Equal(t, 0, g.State().Page)
	assert.Equal(t, 10, g.State().VisibleTotal)
	assert.Len(t, g.View().Rows, 10)
	assert.Equal(t, 10, g.View().EndCount)
}

func TestGrid_RemovingWithRowsLeftStaysOnPage(t *testing.T) {
	g, _ := New().WithProps(fixture(12, 12))
	g, _ = g.Dispatch(GoToPage{Page: 1})

	g, _ = g.Dispatch(Remove{Member: member(12)})

	assert.Equal(t, 1, g.State().Page)
	assert.Equal(t, []string{member(11).UserID}, rowIDs(g.View()))
}

func TestGrid_RemovingOnFirstPageNeverGoesNegative(t *testing.T) {
	g, _ := New().WithProps(fixture(1, 1))

	g, _ = g.Dispatch(Remove{Member: member(1)})

	assert.Equal(t, 0, g.State().Page)
	assert.Equal(t, 0, g.State().VisibleTotal)
	assert.Empty(t, g.View().Rows)
}

func TestGrid_StageRole(t *testing.T) {
	p := fixture(2, 2)
	g, _ := New().WithProps(p)
	id := member(1).UserID

	g, effects := g.Dispatch(StageRole{UserID: id, Role: "PVEAdmin"})
	require.Len(t, effects, 1)
	assert.Equal(t, UpdateRole{UserID: id, Role: "PVEAdmin", Seq: 1}, effects[0])
	assert.Equal(t, "PVEAdmin", g.View().Rows[0].Membership.Roles)
	assert.Equal(t, "ops", g.View().Rows[0].Membership.GroupID)

	g, _ = g.Dispatch(g.View().Rows[0].RoleEvent("PVEVMUser"))
	staged, ok := g.State().StagedMembership(id)
	require.True(t, ok)
	assert.Equal(t, "PVEVMUser", staged.Roles)
	assert.Equal(t, "PVEVMUser", g.View().Rows[0].Membership.Roles)
	require.NotNil(t, g.View().Rows[0].RoleChange)
	assert.Equal(t, MutationPending, g.View().Rows[0].RoleChange.Status)

	assert.Equal(t, "PVEAuditor", p.Memberships[id].Roles, "props are not modified")
}

func TestGrid_ResolvedMutations(t *testing.T) {
	g, _ := New().WithProps(fixture(3, 3))
	id := member(1).UserID

	g, _ = g.Dispatch(StageRole{UserID: id, Role: "PVEAdmin"})   // seq 1
	g, _ = g.Dispatch(StageRole{UserID: id, Role: "PVEAuditor"}) // seq 2
	g, _ = g.Dispatch(Remove{Member: member(2)})                 // seq 3

	// A late result for the superseded role change is ignored.
	g, _ = g.Dispatch(Resolved{Kind: KindRole, UserID: id, Seq: 1, Err: errors.New("boom")})
	mut, ok := g.State().Mutation(KindRole, id)
	require.True(t, ok)
	assert.Equal(t, MutationPending, mut.Status)

	g, _ = g.Dispatch(Resolved{Kind: KindRole, UserID: id, Seq: 2})
	mut, _ = g.State().Mutation(KindRole, id)
	assert.Equal(t, MutationConfirmed, mut.Status)

	g, _ = g.Dispatch(Resolved{Kind: KindRemove, UserID: member(2).UserID, Seq: 3, Err: errors.New("permission denied")})
	require.Len(t, g.View().Failed, 1)
	assert.Equal(t, KindRemove, g.View().Failed[0].Kind)
	assert.Equal(t, "permission denied", g.View().Failed[0].Err)
	assert.True(t, g.State().IsRemoved(member(2).UserID), "failed removal is not rolled back")
	assert.Equal(t, []string{member(1).UserID, member(3).UserID}, rowIDs(g.View()))
}

func TestGrid_PrefetchWhenWindowUnderFilled(t *testing.T) {
	g, effects := New().WithProps(fixture(10, 25))
	assert.Empty(t, loadPages(effects), "a full page needs no prefetch")

	g, effects = g.Dispatch(Remove{Member: member(4)})

	assert.Equal(t, []LoadPage{{Page: 1, Prefetch: true}}, loadPages(effects))
	assert.Len(t, g.View().Rows, 9)
}

func TestGrid_PrefetchSkipsPagesOfRemovedMembers(t *testing.T) {
	g, _ := New().WithProps(fixture(12, 40))

	var effects []Effect
	for i := 1; i <= 10; i++ {
		g, effects = g.Dispatch(Remove{Member: member(i)})
	}

	assert.Equal(t, []LoadPage{{Page: 2, Prefetch: true}}, loadPages(effects))
	assert.Equal(t, []string{member(11).UserID, member(12).UserID}, rowIDs(g.View()))
}

func TestGrid_NoPrefetchWhenEverythingIsLoaded(t *testing.T) {
	g, _ := New().WithProps(fixture(3, 3))

	_, effects := g.Dispatch(Remove{Member: member(1)})

	assert.Empty(t, loadPages(effects))
}

func TestGrid_MissingMembershipRendersNothing(t *testing.T) {
	p := fixture(3, 20)
	delete(p.Memberships, member(1).UserID)

	g, effects := New().WithProps(p)

	assert.Empty(t, g.View().Rows)
	assert.Equal(t, 10, g.View().EndCount)
	assert.Equal(t, []LoadPage{{Page: 1, Prefetch: true}}, loadPages(effects))
}

func TestGrid_NoRecordsRendersNothing(t *testing.T) {
	p := Props{Total: 4, Include: map[string]Member{"x@pve": {UserID: "x@pve"}}}

	g, effects := New().WithProps(p)

	assert.Empty(t, g.View().Rows)
	assert.Equal(t, []LoadPage{{Page: 1, Prefetch: true}}, loadPages(effects))
}

func TestGrid_Navigation(t *testing.T) {
	g, _ := New().WithProps(fixture(25, 25))

	g, effects := g.Dispatch(NextPage{})
	assert.Equal(t, []Effect{LoadPage{Page: 1}}, effects)
	assert.Equal(t, 1, g.State().Page)
	assert.False(t, g.View().Loading)
	assert.Equal(t, 11, g.View().StartCount)
	assert.Equal(t, 20, g.View().EndCount)
	assert.True(t, g.View().HasPrev)
	assert.True(t, g.View().HasNext)

	g, _ = g.Dispatch(NextPage{})
	assert.Equal(t, 21, g.View().StartCount)
	assert.Equal(t, 25, g.View().EndCount)
	assert.False(t, g.View().HasNext)

	g, effects = g.Dispatch(PreviousPage{})
	assert.Equal(t, []Effect{LoadPage{Page: 1}}, effects)
	assert.Equal(t, 1, g.State().Page)
}

func TestGrid_PageBeyondTotalIsClampedInView(t *testing.T) {
	g, _ := New().WithProps(fixture(12, 12))

	g, effects := g.Dispatch(GoToPage{Page: 5})

	assert.Equal(t, []Effect{LoadPage{Page: 5}}, effects)
	assert.Equal(t, 5, g.State().Page)
	v := g.View()
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 11, v.StartCount)
	assert.Equal(t, 12, v.EndCount)
	assert.Len(t, v.Rows, 2)
}

func TestGrid_PrefetchFollowsShownPage(t *testing.T) {
	g, _ := New().WithProps(fixture(12, 30))

	g, effects := g.Dispatch(GoToPage{Page: 5})

	assert.Equal(t, 5, g.State().Page)
	assert.Equal(t, 2, g.View().Page)
	assert.Equal(t, []LoadPage{{Page: 5}, {Page: 3, Prefetch: true}}, loadPages(effects))
}

func TestState_Window(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Window
	}{
		{name: "empty", state: State{}, want: Window{Start: 1, End: 0, Total: 0}},
		{name: "partial first page", state: State{VisibleTotal: 4}, want: Window{Start: 1, End: 4, Total: 4}},
		{name: "full second page", state: State{Page: 1, VisibleTotal: 30}, want: Window{Start: 11, End: 20, Total: 30}},
		{name: "last page", state: State{Page: 2, VisibleTotal: 21}, want: Window{Start: 21, End: 21, Total: 21}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.Window())
		})
	}
}

func TestColumns(t *testing.T) {
	cols := Columns()

	require.Len(t, cols, 3)
	assert.Equal(t, FieldName, cols[0].Field)
	assert.True(t, cols[0].Fixed)
	assert.Equal(t, FieldRole, cols[1].Field)
	assert.Equal(t, "visible", cols[1].Overflow)
	assert.False(t, cols[1].Fixed)
	assert.Equal(t, FieldRemove, cols[2].Field)
	assert.Equal(t, "right", cols[2].TextAlign)
}

func TestMember_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Member{UserID: "ada@pve", Firstname: "Ada", Lastname: "Lovelace"}.DisplayName())
	assert.Equal(t, "ada@pve", Member{UserID: "ada@pve"}.DisplayName())
}
