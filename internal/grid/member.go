package grid

import "strings"

// Member is one row's worth of base data. The core never modifies it.
type Member struct {
	UserID    string `json:"userid"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Email     string `json:"email,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// DisplayName returns "First Last" when either part is set, otherwise the user ID.
func (m Member) DisplayName() string {
	name := strings.TrimSpace(m.Firstname + " " + m.Lastname)
	if name == "" {
		return m.UserID
	}
	return name
}

// Membership binds a member to the group together with the role it holds on
// the group's ACL path. Roles is empty when the member has no role there.
type Membership struct {
	UserID  string `json:"userid"`
	GroupID string `json:"groupid"`
	Roles   string `json:"roles"`
}
