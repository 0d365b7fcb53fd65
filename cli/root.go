package cli

import (
	"fmt"
	"os"

	proxmox "github.com/luthermonson/go-proxmox"
	"github.com/spf13/cobra"

	"github.com/chupakbra/pxve-members/internal/client"
	"github.com/chupakbra/pxve-members/internal/config"
	clierrors "github.com/chupakbra/pxve-members/internal/errors"
	"github.com/chupakbra/pxve-members/tui"
)

// version is set at build time via -X github.com/chupakbra/pxve-members/cli.version=<ver>.
var version = "0.1.0"

var (
	// global state resolved in initClient
	proxmoxClient   *proxmox.Client
	resolvedConfig  *config.Config
	resolvedInstURL string

	// global flags
	flagInstance    string
	flagURL         string
	flagTokenID     string
	flagTokenSecret string
	flagUsername    string
	flagPassword    string
	flagSecure      bool
	flagOutput      string
	flagLogLevel    string
	flagTUI         bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:     "pxve-members",
	Version: version,
	Short:   "Browse and edit Proxmox VE group members",
	Long: `pxve-members pages through the members of a Proxmox VE group and
manages their group membership and roles.

Configure a Proxmox instance with:
  pxve-members instance add home-lab --url https://192.168.1.10:8006 \
    --token-id root@pam!cli --token-secret <secret>
  pxve-members instance use home-lab`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
	Run: func(cmd *cobra.Command, args []string) {
		if flagTUI {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				os.Exit(1)
			}
			if flagLogLevel != "" {
				cfg.Logging.Level = flagLogLevel
			}
			if err := tui.LaunchTUI(cfg); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				os.Exit(1)
			}
			return
		}
		cmd.Help() //nolint:errcheck
	},
}

// Execute wires the command tree and runs it.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd.SetVersionTemplate("pxve-members {{.Version}}\n")

	rootCmd.Flags().BoolVar(&flagTUI, "tui", false, "launch interactive terminal UI")

	rootCmd.PersistentFlags().StringVarP(&flagInstance, "instance", "i", "", "named Proxmox instance from config (overrides current-instance)")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "Proxmox URL (e.g. https://192.168.1.10:8006) — one-shot, no config needed")
	rootCmd.PersistentFlags().StringVar(&flagTokenID, "token-id", "", "API token ID (e.g. root@pam!cli)")
	rootCmd.PersistentFlags().StringVar(&flagTokenSecret, "token-secret", "", "API token secret")
	rootCmd.PersistentFlags().StringVar(&flagUsername, "username", "", "Proxmox username (e.g. root@pam)")
	rootCmd.PersistentFlags().StringVar(&flagPassword, "password", "", "Proxmox password")
	rootCmd.PersistentFlags().BoolVar(&flagSecure, "secure", false, "enforce TLS certificate verification (default is to skip verification)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "output format: table or json")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(instanceCmd())
	rootCmd.AddCommand(groupCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(aclCmd())
	rootCmd.AddCommand(roleCmd())
	return rootCmd
}

// setupLogging points the logger at stderr for command-line runs. The TUI
// switches it to file-only when it starts.
func setupLogging(cmd *cobra.Command, args []string) error {
	level, file := "info", ""
	if cfg, err := config.Load(); err == nil {
		level, file = cfg.Logging.Level, cfg.Logging.File
	}
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	return config.InitLogger(level, file, stderrIsTerminal())
}

// initClient is called by command RunE functions that need a Proxmox client.
// It resolves the instance config and builds the client.
func initClient(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	resolvedConfig = cfg

	// Inline flags take precedence over everything when --url is provided
	if flagURL != "" {
		inst := &config.InstanceConfig{
			URL:         flagURL,
			TokenID:     flagTokenID,
			TokenSecret: flagTokenSecret,
			Username:    flagUsername,
			Password:    flagPassword,
			VerifyTLS:   flagSecure,
		}
		resolvedInstURL = flagURL
		c, err := client.New(inst)
		if err != nil {
			return err
		}
		proxmoxClient = c
		return nil
	}

	inst, name, err := cfg.Resolve(flagInstance)
	if err != nil {
		return err
	}
	if flagSecure {
		inst.VerifyTLS = true
	}
	resolvedInstURL = inst.URL

	c, err := client.New(inst)
	if err != nil {
		return err
	}
	log := config.GetLogger()
	log.Debug().Str("instance", name).Str("url", inst.URL).Msg("client ready")
	proxmoxClient = c
	return nil
}

// handleErr maps an error through the error handler with the resolved URL for
// connection error messages. Commands call this in their RunE return.
func handleErr(err error) error {
	return clierrors.Handle(resolvedInstURL, err)
}
