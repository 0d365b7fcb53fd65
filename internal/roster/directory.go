// Package roster fetches group members from Proxmox one page at a time and
// accumulates the pages into the props the member grid renders from.
package roster

import (
	"context"
	"fmt"

	proxmox "github.com/luthermonson/go-proxmox"

	"github.com/chupakbra/pxve-members/internal/actions"
	"github.com/chupakbra/pxve-members/internal/config"
	"github.com/chupakbra/pxve-members/internal/grid"
)

// Directory is the remote side of the member list: the data source pages are
// read from and the sink mutations are forwarded to.
type Directory interface {
	// MemberIDs returns every member of group in a stable order.
	MemberIDs(ctx context.Context, group string) ([]string, error)
	Member(ctx context.Context, userID string) (grid.Member, error)
	// Roles maps user ID to the roles held on group's ACL path.
	Roles(ctx context.Context, group string) (map[string]string, error)

	AddMember(ctx context.Context, group, userID string) error
	RemoveMember(ctx context.Context, group, userID string) error
	SetRole(ctx context.Context, group, userID, role string) error
	DeleteUser(ctx context.Context, userID string) error
}

// ProxmoxDirectory implements Directory against a Proxmox VE cluster.
type ProxmoxDirectory struct {
	client  *proxmox.Client
	members config.MembersConfig
}

// NewProxmoxDirectory returns a Directory backed by c.
func NewProxmoxDirectory(c *proxmox.Client, members config.MembersConfig) *ProxmoxDirectory {
	return &ProxmoxDirectory{client: c, members: members}
}

func (d *ProxmoxDirectory) MemberIDs(ctx context.Context, group string) ([]string, error) {
	return actions.GroupMemberIDs(ctx, d.client, group)
}

func (d *ProxmoxDirectory) Member(ctx context.Context, userID string) (grid.Member, error) {
	u, err := actions.GetUser(ctx, d.client, userID)
	if err != nil {
		return grid.Member{}, fmt.Errorf("getting user %q: %w", userID, err)
	}
	return grid.Member{
		UserID:    userID,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Email:     u.Email,
		Enabled:   bool(u.Enable),
	}, nil
}

func (d *ProxmoxDirectory) Roles(ctx context.Context, group string) (map[string]string, error) {
	return actions.UserRolesOnPath(ctx, d.client, d.members.ACLPathFor(group))
}

func (d *ProxmoxDirectory) AddMember(ctx context.Context, group, userID string) error {
	return logged(actions.AddUserToGroup(ctx, d.client, userID, group), "add member", group, userID, "")
}

func (d *ProxmoxDirectory) RemoveMember(ctx context.Context, group, userID string) error {
	return logged(actions.RemoveUserFromGroup(ctx, d.client, userID, group), "remove member", group, userID, "")
}

func (d *ProxmoxDirectory) SetRole(ctx context.Context, group, userID, role string) error {
	err := actions.SetUserRole(ctx, d.client, userID, d.members.ACLPathFor(group), role)
	return logged(err, "set role", group, userID, role)
}

func (d *ProxmoxDirectory) DeleteUser(ctx context.Context, userID string) error {
	return logged(actions.DeleteUser(ctx, d.client, userID), "delete user", "", userID, "")
}

// logged records the outcome of a mutation and returns err unchanged.
func logged(err error, op, group, userID, role string) error {
	log := config.GetLogger()
	ev := log.Debug()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev = ev.Str("user", userID)
	if group != "" {
		ev = ev.Str("group", group)
	}
	if role != "" {
		ev = ev.Str("role", role)
	}
	ev.Msg(op)
	return err
}
