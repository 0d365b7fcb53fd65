package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chupakbra/pxve-members/internal/actions"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect and delete Proxmox user accounts",
	}
	cmd.AddCommand(userShowCmd())
	cmd.AddCommand(userDeleteCmd())
	return cmd
}

func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <userid>",
		Short: "Show a user and the groups it belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userid := args[0]
			if err := validateUserID(userid); err != nil {
				return err
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Loading user...")
			u, err := actions.GetUser(ctx, proxmoxClient, userid)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}

			if flagOutput == "json" {
				return jsonOut(cmd, u)
			}

			enabled := "yes"
			if !bool(u.Enable) {
				enabled = "no"
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "User:\t%s\n", userid)
			fmt.Fprintf(w, "Name:\t%s\n", dash(strings.TrimSpace(u.Firstname+" "+u.Lastname)))
			fmt.Fprintf(w, "Email:\t%s\n", dash(u.Email))
			fmt.Fprintf(w, "Enabled:\t%s\n", enabled)
			fmt.Fprintf(w, "Groups:\t%s\n", dash(strings.Join(u.Groups, ", ")))
			return w.Flush()
		},
	}
}

func userDeleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <userid>",
		Short: "Delete a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userid := args[0]
			if err := validateUserID(userid); err != nil {
				return err
			}
			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete user %q? This removes the account from every group. [y/N]: ", userid)
				var answer string
				fmt.Fscan(cmd.InOrStdin(), &answer)
				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" && answer != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Deleting user...")
			err := actions.DeleteUser(ctx, proxmoxClient, userid)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %q deleted.\n", userid)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompt")
	return cmd
}
