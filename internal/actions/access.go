package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	proxmox "github.com/luthermonson/go-proxmox"
)

const aclTypeUser = "user"

// --- Users ---

func GetUser(ctx context.Context, c *proxmox.Client, userid string) (*proxmox.User, error) {
	return c.User(ctx, userid)
}

func DeleteUser(ctx context.Context, c *proxmox.Client, userid string) error {
	u, err := c.User(ctx, userid)
	if err != nil {
		return err
	}
	return u.Delete(ctx)
}

// --- ACLs ---

func ListACLs(ctx context.Context, c *proxmox.Client) (proxmox.ACLs, error) {
	return c.ACL(ctx)
}

// UserRolesOnPath returns, per user, the space-separated sorted role IDs
// granted directly to that user on path.
func UserRolesOnPath(ctx context.Context, c *proxmox.Client, path string) (map[string]string, error) {
	acls, err := c.ACL(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing ACLs: %w", err)
	}
	byUser := map[string][]string{}
	for _, a := range acls {
		if a.Type != aclTypeUser || a.Path != path {
			continue
		}
		byUser[a.UGID] = append(byUser[a.UGID], a.RoleID)
	}
	out := make(map[string]string, len(byUser))
	for user, roles := range byUser {
		sort.Strings(roles)
		out[user] = strings.Join(roles, " ")
	}
	return out, nil
}

// SetUserRole makes role the only role userid holds directly on path. Any
// other role on that path is revoked first. An empty role revokes all.
func SetUserRole(ctx context.Context, c *proxmox.Client, userid, path, role string) error {
	current, err := UserRolesOnPath(ctx, c, path)
	if err != nil {
		return err
	}
	for _, old := range strings.Fields(current[userid]) {
		if old == role {
			continue
		}
		if err := c.UpdateACL(ctx, proxmox.ACLOptions{
			Path:   path,
			Users:  userid,
			Roles:  old,
			Delete: proxmox.IntOrBool(true),
		}); err != nil {
			return fmt.Errorf("revoking %s on %s: %w", old, path, err)
		}
	}
	if role == "" {
		return nil
	}
	if err := c.UpdateACL(ctx, proxmox.ACLOptions{
		Path:      path,
		Users:     userid,
		Roles:     role,
		Propagate: proxmox.IntOrBool(true),
	}); err != nil {
		return fmt.Errorf("granting %s on %s: %w", role, path, err)
	}
	return nil
}

// --- Roles ---

func ListRoles(ctx context.Context, c *proxmox.Client) (proxmox.Roles, error) {
	return c.Roles(ctx)
}
