package grid

import "fmt"

// MutationKind identifies which kind of staged edit a Mutation tracks.
type MutationKind int

const (
	KindRemove MutationKind = iota
	KindRole
)

func (k MutationKind) String() string {
	switch k {
	case KindRemove:
		return "remove"
	case KindRole:
		return "role"
	}
	return fmt.Sprintf("MutationKind(%d)", int(k))
}

// MutationStatus is the server-side fate of a staged edit as last reported by
// the host. The overlay itself never rolls back on failure.
type MutationStatus int

const (
	MutationPending MutationStatus = iota
	MutationConfirmed
	MutationFailed
)

func (s MutationStatus) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationConfirmed:
		return "confirmed"
	case MutationFailed:
		return "failed"
	}
	return fmt.Sprintf("MutationStatus(%d)", int(s))
}

// Mutation records one forwarded edit. Seq increases with every edit issued
// by a State so that a late result for a superseded role change is ignored.
type Mutation struct {
	Kind   MutationKind
	UserID string
	Role   string
	Seq    int
	Status MutationStatus
	Err    string
}

type mutationKey struct {
	kind   MutationKind
	userID string
}

// IsRemoved reports whether userID has been marked for removal.
func (s State) IsRemoved(userID string) bool {
	_, ok := s.removed[userID]
	return ok
}

// RemovedCount is the number of distinct members marked for removal.
func (s State) RemovedCount() int {
	return len(s.removed)
}

// StagedMembership returns the locally updated membership for userID, if any.
func (s State) StagedMembership(userID string) (Membership, bool) {
	m, ok := s.updates[userID]
	return m, ok
}

// Mutation returns the tracked mutation of kind for userID, if any.
func (s State) Mutation(kind MutationKind, userID string) (Mutation, bool) {
	m, ok := s.mutations[mutationKey{kind: kind, userID: userID}]
	return m, ok
}

// effectiveMembership prefers the staged update over the supplied one.
func (s State) effectiveMembership(p Props, userID string) (Membership, bool) {
	if m, ok := s.updates[userID]; ok {
		return m, true
	}
	m, ok := p.Memberships[userID]
	return m, ok
}

func (s State) remove(m Member) (State, []Effect) {
	if s.IsRemoved(m.UserID) {
		return s, nil
	}
	prevEnd := s.Window().End

	s.seq++
	effect := RemoveMember{Member: m, Seq: s.seq}

	removed := make(map[string]struct{}, len(s.removed)+1)
	for id := range s.removed {
		removed[id] = struct{}{}
	}
	removed[m.UserID] = struct{}{}
	s.removed = removed
	s = s.track(Mutation{Kind: KindRemove, UserID: m.UserID, Seq: s.seq})

	if s.VisibleTotal > 0 {
		s.VisibleTotal--
	}
	// Removing the only row of the last page moves back to a page with content.
	if prevEnd > s.VisibleTotal && prevEnd%PageSize == 1 && s.Page > 0 {
		s.Page--
	}
	return s, []Effect{effect}
}

func (s State) stageRole(p Props, userID, role string) (State, []Effect) {
	s.seq++
	effect := UpdateRole{UserID: userID, Role: role, Seq: s.seq}

	current, ok := p.Memberships[userID]
	if !ok {
		current = s.updates[userID]
	}
	current.UserID = userID
	current.Roles = role

	updates := make(map[string]Membership, len(s.updates)+1)
	for id, m := range s.updates {
		updates[id] = m
	}
	updates[userID] = current
	s.updates = updates
	s = s.track(Mutation{Kind: KindRole, UserID: userID, Role: role, Seq: s.seq})

	return s, []Effect{effect}
}

func (s State) resolve(ev Resolved) State {
	key := mutationKey{kind: ev.Kind, userID: ev.UserID}
	mut, ok := s.mutations[key]
	if !ok || mut.Seq != ev.Seq {
		return s
	}
	if ev.Err != nil {
		mut.Status = MutationFailed
		mut.Err = ev.Err.Error()
	} else {
		mut.Status = MutationConfirmed
		mut.Err = ""
	}
	return s.track(mut)
}

func (s State) track(mut Mutation) State {
	mutations := make(map[mutationKey]Mutation, len(s.mutations)+1)
	for k, v := range s.mutations {
		mutations[k] = v
	}
	mutations[mutationKey{kind: mut.Kind, userID: mut.UserID}] = mut
	s.mutations = mutations
	return s
}

// failures lists failed mutations ordered by Seq.
func (s State) failures() []Mutation {
	var out []Mutation
	for _, m := range s.mutations {
		if m.Status == MutationFailed {
			out = append(out, m)
		}
	}
	sortMutations(out)
	return out
}
