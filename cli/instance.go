package cli

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chupakbra/pxve-members/internal/actions"
	"github.com/chupakbra/pxve-members/internal/client"
	"github.com/chupakbra/pxve-members/internal/config"
)

var tokenIDRegex = regexp.MustCompile(`^[^@]+@[^!]+![^!]+$`)

func instanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Choose the Proxmox instance whose groups are managed",
		Long: `Instances are stored in ~/.pxve.yaml, which is shared with pxve.

An instance added here is checked for the access group management needs:
the account must be able to list groups, and every role offered for members
must exist on the server.`,
	}
	cmd.AddCommand(instanceListCmd())
	cmd.AddCommand(instanceAddCmd())
	cmd.AddCommand(instanceRemoveCmd())
	cmd.AddCommand(instanceUseCmd())
	cmd.AddCommand(instanceShowCmd())
	return cmd
}

// instanceSummary is one configured instance as printed by list and show.
type instanceSummary struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Auth    string `json:"auth"`
	Account string `json:"account"`
	Current bool   `json:"current"`
}

func summarize(cfg *config.Config, name string) instanceSummary {
	inst := cfg.Instances[name]
	s := instanceSummary{
		Name:    name,
		URL:     inst.URL,
		Auth:    "token",
		Account: inst.TokenID,
		Current: name == cfg.CurrentInstance,
	}
	if inst.Username != "" {
		s.Auth, s.Account = "credentials", inst.Username
	}
	return s
}

// membersSettings is the members section as it applies to one group.
type membersSettings struct {
	ACLPath      string   `json:"acl-path"`
	ResolvedPath string   `json:"resolved-path"`
	Roles        []string `json:"roles"`
	Concurrency  int      `json:"concurrency"`
	LogLevel     string   `json:"log-level"`
	LogFile      string   `json:"log-file"`
}

func settingsFor(cfg *config.Config, group string) membersSettings {
	if group == "" {
		group = "<group>"
	}
	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = config.DefaultLogFile()
	}
	return membersSettings{
		ACLPath:      cfg.Members.ACLPath,
		ResolvedPath: cfg.Members.ACLPathFor(group),
		Roles:        cfg.Members.Roles,
		Concurrency:  cfg.Members.Concurrency,
		LogLevel:     cfg.Logging.Level,
		LogFile:      logFile,
	}
}

func instanceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rows := make([]instanceSummary, 0, len(cfg.Instances))
			for _, name := range instanceNames(cfg) {
				rows = append(rows, summarize(cfg, name))
			}

			if flagOutput == "json" {
				return jsonOut(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%sNo instances configured. Add one with 'pxve-members instance add'.%s\n", colorGold, colorReset)
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tURL\tACCOUNT\tCURRENT")
			for _, r := range rows {
				current := ""
				if r.Current {
					current = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.URL, dash(r.Account), current)
			}
			return w.Flush()
		},
	}
}

// instanceAddCmd takes its connection settings from the global --url,
// --token-id, --token-secret, --username, --password and --secure flags.
func instanceAddCmd() *cobra.Command {
	var (
		aclPath string
		roles   []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an instance after checking it can manage groups",
		Args:  cobra.ExactArgs(1),
		Example: `  pxve-members instance add lab --url https://10.0.0.5:8006 \
    --token-id admin@pve!members --token-secret xxxxxxxx

  pxve-members instance add lab --url https://10.0.0.5:8006 \
    --username admin@pve --password secret \
    --acl-path /pool/{group} --role PVEAuditor --role PVEVMUser`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			inst := config.InstanceConfig{
				URL:         flagURL,
				TokenID:     flagTokenID,
				TokenSecret: flagTokenSecret,
				Username:    flagUsername,
				Password:    flagPassword,
				VerifyTLS:   flagSecure,
			}
			if err := checkInstanceFlags(inst); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, exists := cfg.Instances[name]; exists {
				return fmt.Errorf("instance %q already exists — remove it first", name)
			}
			if aclPath != "" {
				cfg.Members.ACLPath = aclPath
			}
			if len(roles) > 0 {
				cfg.Members.Roles = roles
			}

			s := startSpinner(fmt.Sprintf("Checking %s...", inst.URL))
			groups, err := verifyInstance(context.Background(), &inst, cfg.Members.Roles)
			s.Stop()
			if err != nil {
				return fmt.Errorf("instance check failed: %w\n\nHint: %s", err, connectionHint(&inst, err))
			}

			cfg.Instances[name] = inst
			if cfg.CurrentInstance == "" {
				cfg.CurrentInstance = name
			}
			if err := config.Save(cfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Instance %q added (%d groups visible).\n", name, groups)
			if cfg.CurrentInstance == name {
				fmt.Fprintf(out, "Using %q by default.\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&aclPath, "acl-path", "", "ACL path member roles are granted on; {group} is replaced with the group ID")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role offered when changing a member's role (repeatable)")
	return cmd
}

func checkInstanceFlags(inst config.InstanceConfig) error {
	if inst.URL == "" {
		return fmt.Errorf("--url is required")
	}
	hasToken := inst.TokenID != "" && inst.TokenSecret != ""
	hasCreds := inst.Username != "" && inst.Password != ""
	if !hasToken && !hasCreds {
		return fmt.Errorf("provide either --token-id + --token-secret or --username + --password")
	}
	if hasToken && !tokenIDRegex.MatchString(inst.TokenID) {
		return fmt.Errorf("invalid --token-id %q: expected user@realm!tokenname", inst.TokenID)
	}
	if hasCreds {
		if err := validateUserID(inst.Username); err != nil {
			return err
		}
	}
	return nil
}

func instanceRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an instance from the shared config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, ok := cfg.Instances[name]; !ok {
				return fmt.Errorf("instance %q not found", name)
			}
			delete(cfg.Instances, name)

			wasCurrent := cfg.CurrentInstance == name
			if wasCurrent {
				cfg.CurrentInstance = nextDefault(cfg)
			}
			if err := config.Save(cfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Instance %q removed.\n", name)
			if wasCurrent && cfg.CurrentInstance != "" {
				fmt.Fprintf(out, "Using %q by default.\n", cfg.CurrentInstance)
			}
			return nil
		},
	}
}

// nextDefault picks the instance that becomes current once the current one
// is removed, or "" when none are left.
func nextDefault(cfg *config.Config) string {
	names := instanceNames(cfg)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func instanceUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Manage groups on this instance by default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, ok := cfg.Instances[name]; !ok {
				return fmt.Errorf("instance %q not found — see 'pxve-members instance list'", name)
			}
			cfg.CurrentInstance = name
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Using %q by default.\n", name)
			return nil
		},
	}
}

func instanceShowCmd() *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Show an instance and the member settings applied to its groups",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			name := cfg.CurrentInstance
			if len(args) > 0 {
				name = args[0]
			}
			if name == "" {
				return fmt.Errorf("no instance selected and no name provided")
			}
			inst, ok := cfg.Instances[name]
			if !ok {
				return fmt.Errorf("instance %q not found", name)
			}
			if group != "" {
				if err := validateGroupID(group); err != nil {
					return err
				}
			}

			summary := summarize(cfg, name)
			settings := settingsFor(cfg, group)
			if flagOutput == "json" {
				return jsonOut(cmd, struct {
					instanceSummary
					VerifyTLS bool            `json:"verify-tls"`
					Members   membersSettings `json:"members"`
				}{summary, inst.VerifyTLS, settings})
			}

			secret := inst.TokenSecret
			if summary.Auth == "credentials" {
				secret = inst.Password
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Name:\t%s\n", summary.Name)
			fmt.Fprintf(w, "URL:\t%s\n", summary.URL)
			fmt.Fprintf(w, "Account:\t%s (%s)\n", summary.Account, summary.Auth)
			fmt.Fprintf(w, "Secret:\t%s\n", mask(secret))
			fmt.Fprintf(w, "Verify TLS:\t%v\n", inst.VerifyTLS)
			fmt.Fprintf(w, "Current:\t%v\n", summary.Current)
			fmt.Fprintf(w, "ACL path:\t%s → %s\n", settings.ACLPath, settings.ResolvedPath)
			fmt.Fprintf(w, "Roles:\t%s\n", strings.Join(settings.Roles, ", "))
			fmt.Fprintf(w, "Concurrency:\t%d\n", settings.Concurrency)
			fmt.Fprintf(w, "Log:\t%s (%s)\n", settings.LogFile, settings.LogLevel)
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "", "resolve the ACL path for this group")
	return cmd
}

func instanceNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Instances))
	for name := range cfg.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// mask keeps the last four characters of a secret.
func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// verifyInstance connects with inst and checks what the members tool relies
// on: the token realm exists, groups can be listed and every role in roles is
// defined. It returns the number of visible groups.
func verifyInstance(ctx context.Context, inst *config.InstanceConfig, roles []string) (int, error) {
	c, err := client.Connect(ctx, inst)
	if err != nil {
		return 0, err
	}

	if inst.TokenID != "" {
		realm, err := realmFromTokenID(inst.TokenID)
		if err != nil {
			return 0, err
		}
		var domains []struct {
			Realm string `json:"realm"`
		}
		// Listing realms needs its own privilege; skip the check without it.
		if err := c.Get(ctx, "/access/domains", &domains); err == nil {
			known := make([]string, 0, len(domains))
			for _, d := range domains {
				known = append(known, d.Realm)
			}
			if !slices.Contains(known, realm) {
				return 0, fmt.Errorf("realm %q not found on server (available: %s)", realm, strings.Join(known, ", "))
			}
		}
	}

	groups, err := actions.ListGroups(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("listing groups: %w", err)
	}

	serverRoles, err := actions.ListRoles(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("listing roles: %w", err)
	}
	defined := make([]string, 0, len(serverRoles))
	for _, r := range serverRoles {
		defined = append(defined, r.RoleID)
	}
	if missing := unknownRoles(roles, defined); len(missing) > 0 {
		return 0, fmt.Errorf("roles not defined on server: %s", strings.Join(missing, ", "))
	}
	return len(groups), nil
}

// unknownRoles returns the entries of want missing from defined, in order.
func unknownRoles(want, defined []string) []string {
	var missing []string
	for _, r := range want {
		if !slices.Contains(defined, r) {
			missing = append(missing, r)
		}
	}
	return missing
}

// realmFromTokenID extracts the realm from a token-id of the form user@realm!tokenname.
func realmFromTokenID(tokenID string) (string, error) {
	at := strings.LastIndex(tokenID, "@")
	bang := strings.Index(tokenID, "!")
	if at < 0 || bang < 0 || at >= bang {
		return "", fmt.Errorf("invalid token-id %q: expected user@realm!tokenname", tokenID)
	}
	return tokenID[at+1 : bang], nil
}

var connectionHints = []struct {
	needles []string
	hint    func(inst *config.InstanceConfig) string
}{
	{
		needles: []string{"connection refused", "no such host", "i/o timeout", "dial"},
		hint: func(inst *config.InstanceConfig) string {
			return fmt.Sprintf("%s is not reachable; check the host and port", inst.URL)
		},
	},
	{
		needles: []string{"certificate", "x509"},
		hint: func(*config.InstanceConfig) string {
			return "certificate rejected; drop --secure for a self-signed certificate"
		},
	},
	{
		needles: []string{"not authorized", "401"},
		hint: func(inst *config.InstanceConfig) string {
			if inst.TokenID != "" {
				return fmt.Sprintf("token %q or its secret was rejected", inst.TokenID)
			}
			return fmt.Sprintf("user %q or its password was rejected", inst.Username)
		},
	},
	{
		needles: []string{"listing groups", "listing roles", "403", "permission"},
		hint: func(*config.InstanceConfig) string {
			return "the account needs Sys.Audit on /access to read groups and roles"
		},
	},
	{
		needles: []string{"roles not defined"},
		hint: func(*config.InstanceConfig) string {
			return "pass --role for roles that exist, see 'pxve-members role list'"
		},
	},
}

// connectionHint returns a short hint for an error from verifyInstance.
func connectionHint(inst *config.InstanceConfig, err error) string {
	msg := err.Error()
	for _, h := range connectionHints {
		for _, n := range h.needles {
			if strings.Contains(msg, n) {
				return h.hint(inst)
			}
		}
	}
	return "check the URL and credentials"
}
