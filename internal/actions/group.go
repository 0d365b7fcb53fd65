package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	proxmox "github.com/luthermonson/go-proxmox"
)

func ListGroups(ctx context.Context, c *proxmox.Client) (proxmox.Groups, error) {
	return c.Groups(ctx)
}

func GetGroup(ctx context.Context, c *proxmox.Client, groupid string) (*proxmox.Group, error) {
	return c.Group(ctx, groupid)
}

// GroupMemberIDs returns the user IDs of a group's members, sorted so that
// page boundaries are stable between calls.
func GroupMemberIDs(ctx context.Context, c *proxmox.Client, groupid string) ([]string, error) {
	group, err := c.Group(ctx, groupid)
	if err != nil {
		return nil, fmt.Errorf("getting group %q: %w", groupid, err)
	}
	ids := append([]string(nil), group.Members...)
	sort.Strings(ids)
	return ids, nil
}

// AddUserToGroup adds a user to a group by updating the user's group list.
// Proxmox manages group membership from the user side (PUT /access/users/{userid}).
func AddUserToGroup(ctx context.Context, c *proxmox.Client, userid, groupid string) error {
	members, err := GroupMemberIDs(ctx, c, groupid)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m == userid {
			return fmt.Errorf("user %q is already a member of group %q", userid, groupid)
		}
	}
	user, err := c.User(ctx, userid)
	if err != nil {
		return fmt.Errorf("getting user %q: %w", userid, err)
	}
	updated := append(append([]string(nil), user.Groups...), groupid)
	return putUserGroups(ctx, c, userid, updated)
}

// RemoveUserFromGroup removes a user from a group by updating the user's group list.
func RemoveUserFromGroup(ctx context.Context, c *proxmox.Client, userid, groupid string) error {
	members, err := GroupMemberIDs(ctx, c, groupid)
	if err != nil {
		return err
	}
	idx := sort.SearchStrings(members, userid)
	if idx == len(members) || members[idx] != userid {
		return fmt.Errorf("user %q is not a member of group %q", userid, groupid)
	}
	user, err := c.User(ctx, userid)
	if err != nil {
		return fmt.Errorf("getting user %q: %w", userid, err)
	}
	filtered := make([]string, 0, len(user.Groups))
	for _, g := range user.Groups {
		if g != groupid {
			filtered = append(filtered, g)
		}
	}
	return putUserGroups(ctx, c, userid, filtered)
}

// putUserGroups updates a user's group list via a raw PUT call.
// go-proxmox's UserOptions has Groups tagged with omitempty, which drops
// the field when the list is empty, so removal from the last group would be
// ignored. This raw call always includes the groups key.
func putUserGroups(ctx context.Context, c *proxmox.Client, userid string, groups []string) error {
	data := map[string]string{
		"groups": strings.Join(groups, ","),
	}
	return c.Put(ctx, fmt.Sprintf("/access/users/%s", userid), data, nil)
}
