package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chupakbra/pxve-members/internal/actions"
	"github.com/chupakbra/pxve-members/internal/roster"
)

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "group",
		Aliases: []string{"grp"},
		Short:   "Browse groups and manage their members",
	}
	cmd.AddCommand(groupListCmd())
	cmd.AddCommand(groupShowCmd())
	cmd.AddCommand(groupMembersCmd())
	cmd.AddCommand(groupAddMemberCmd())
	cmd.AddCommand(groupRemoveMemberCmd())
	cmd.AddCommand(groupSetRoleCmd())
	return cmd
}

func groupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Loading groups...")
			groups, err := actions.ListGroups(ctx, proxmoxClient)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}

			if flagOutput == "json" {
				return jsonOut(cmd, groups)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "GROUPID\tMEMBERS\tCOMMENT")
			for _, g := range groups {
				n := 0
				if g.Users != "" {
					n = len(strings.Split(g.Users, ","))
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", g.GroupID, n, dash(g.Comment))
			}
			return w.Flush()
		},
	}
}

func groupShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <groupid>",
		Short: "Show group details and member IDs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupid := args[0]
			if err := validateGroupID(groupid); err != nil {
				return err
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Loading group...")
			group, err := actions.GetGroup(ctx, proxmoxClient, groupid)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}

			if flagOutput == "json" {
				return jsonOut(cmd, group)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Group:   %s\n", group.GroupID)
			fmt.Fprintf(out, "Comment: %s\n", dash(group.Comment))
			fmt.Fprintf(out, "ACL:     %s\n", resolvedConfig.Members.ACLPathFor(groupid))
			fmt.Fprintln(out)
			if len(group.Members) == 0 {
				fmt.Fprintln(out, "No members.")
				return nil
			}
			fmt.Fprintf(out, "Members (%d):\n", len(group.Members))
			for _, m := range group.Members {
				fmt.Fprintf(out, "  %s\n", m)
			}
			return nil
		},
	}
}

func groupMembersCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "members <groupid>",
		Short: "Show one page of group members with their roles",
		Example: `  pxve-members group members admins
  pxve-members group members dev-team --page 2 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupid := args[0]
			if err := validateGroupID(groupid); err != nil {
				return err
			}
			if page < 1 {
				return fmt.Errorf("--page must be 1 or greater")
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			members := resolvedConfig.Members
			loader := roster.NewLoader(roster.NewProxmoxDirectory(proxmoxClient, members), members.Concurrency)

			s := startSpinner("Loading members...")
			view, err := projectPage(context.Background(), loader, groupid, page-1)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			return writeMembers(cmd, groupid, view)
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page to show (10 members per page)")
	return cmd
}

func groupAddMemberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-member <groupid> <userid>",
		Short: "Add a user to a group",
		Example: `  pxve-members group add-member admins alice@pve
  pxve-members group add-member dev-team bob@pam`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupid, userid := args[0], args[1]
			if err := validateGroupID(groupid); err != nil {
				return err
			}
			if err := validateUserID(userid); err != nil {
				return err
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Adding member...")
			err := actions.AddUserToGroup(ctx, proxmoxClient, userid, groupid)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %q added to group %q.\n", userid, groupid)
			return nil
		},
	}
}

func groupRemoveMemberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-member <groupid> <userid>",
		Short: "Remove a user from a group",
		Example: `  pxve-members group remove-member admins alice@pve
  pxve-members group remove-member dev-team bob@pam`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupid, userid := args[0], args[1]
			if err := validateGroupID(groupid); err != nil {
				return err
			}
			if err := validateUserID(userid); err != nil {
				return err
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Removing member...")
			err := actions.RemoveUserFromGroup(ctx, proxmoxClient, userid, groupid)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %q removed from group %q.\n", userid, groupid)
			return nil
		},
	}
}

func groupSetRoleCmd() *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "set-role <groupid> <userid> [role]",
		Short: "Set the role a member holds on the group's ACL path",
		Example: `  pxve-members group set-role admins alice@pve PVEAdmin
  pxve-members group set-role admins alice@pve --revoke`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupid, userid := args[0], args[1]
			role := ""
			if len(args) == 3 {
				role = args[2]
			}
			if role == "" && !revoke {
				return fmt.Errorf("provide a role or --revoke")
			}
			if role != "" && revoke {
				return fmt.Errorf("--revoke cannot be combined with a role")
			}
			if err := validateGroupID(groupid); err != nil {
				return err
			}
			if err := validateUserID(userid); err != nil {
				return err
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			dir := roster.NewProxmoxDirectory(proxmoxClient, resolvedConfig.Members)
			ctx := context.Background()
			s := startSpinner("Updating role...")
			err := dir.SetRole(ctx, groupid, userid, role)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			path := resolvedConfig.Members.ACLPathFor(groupid)
			if revoke {
				fmt.Fprintf(cmd.OutOrStdout(), "Roles of %q on %s revoked.\n", userid, path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Role %q granted to %q on %s.\n", role, userid, path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove every role the user holds on the path")
	return cmd
}
