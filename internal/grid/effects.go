package grid

// Effect is a request for the host to talk to an external actor. The core
// never waits for an effect to complete.
type Effect interface {
	isEffect()
}

// LoadPage asks the data source for Page. Prefetch is set when the request
// comes from an under-filled window rather than from navigation.
type LoadPage struct {
	Page     int
	Prefetch bool
}

// RemoveMember forwards a removal to the mutation sink. The host reports the
// result back as Resolved{Kind: KindRemove, Seq: Seq}.
type RemoveMember struct {
	Member Member
	Seq    int
}

// UpdateRole forwards a role change to the mutation sink. The host reports
// the result back as Resolved{Kind: KindRole, Seq: Seq}.
type UpdateRole struct {
	UserID string
	Role   string
	Seq    int
}

func (LoadPage) isEffect()     {}
func (RemoveMember) isEffect() {}
func (UpdateRole) isEffect()   {}
