package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chupakbra/pxve-members/internal/actions"
)

// aclCmd groups ACL commands.
func aclCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acl",
		Short: "View access control list entries",
	}
	cmd.AddCommand(aclListCmd())
	return cmd
}

func aclListCmd() *cobra.Command {
	var filterUser, filterPath, filterGroup string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all ACL entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Loading...")
			acls, err := actions.ListACLs(ctx, proxmoxClient)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}

			if filterGroup != "" {
				if err := validateGroupID(filterGroup); err != nil {
					return err
				}
				filterPath = resolvedConfig.Members.ACLPathFor(filterGroup)
			}
			if filterUser != "" || filterPath != "" {
				filtered := acls[:0]
				for _, a := range acls {
					if filterUser != "" && a.UGID != filterUser {
						continue
					}
					if filterPath != "" && a.Path != filterPath {
						continue
					}
					filtered = append(filtered, a)
				}
				acls = filtered
			}

			if flagOutput == "json" {
				return jsonOut(cmd, acls)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tTYPE\tSUBJECT\tROLE\tPROPAGATE")
			for _, a := range acls {
				propagate := "no"
				if bool(a.Propagate) {
					propagate = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					a.Path, a.Type, a.UGID, a.RoleID, propagate)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&filterUser, "user", "", "filter entries by user ID")
	cmd.Flags().StringVar(&filterPath, "path", "", "filter entries by ACL path")
	cmd.Flags().StringVar(&filterGroup, "group", "", "filter entries on the ACL path of a group's members")
	return cmd
}

// roleCmd groups role commands.
func roleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "View the roles that can be granted to group members",
	}
	cmd.AddCommand(roleListCmd())
	return cmd
}

func roleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Loading...")
			roles, err := actions.ListRoles(ctx, proxmoxClient)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}

			if flagOutput == "json" {
				return jsonOut(cmd, roles)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ROLE\tSPECIAL\tPRIVILEGES")
			for _, r := range roles {
				special := ""
				if bool(r.Special) {
					special = "yes"
				}
				privs := r.Privs
				if len(privs) > 80 {
					privs = privs[:77] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.RoleID, special, privs)
			}
			return w.Flush()
		},
	}
}
