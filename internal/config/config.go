package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const configFileName = ".pxve.yaml"

// Defaults for the members section.
const (
	DefaultACLPath     = "/pool/{group}"
	DefaultConcurrency = 4
	groupPlaceholder   = "{group}"
)

// DefaultRoles are offered in the role picker when the config lists none.
var DefaultRoles = []string{"NoAccess", "PVEAuditor", "PVEVMUser", "PVEVMAdmin", "PVEAdmin", "Administrator"}

// InstanceConfig holds configuration for a single Proxmox instance.
type InstanceConfig struct {
	URL         string `yaml:"url"`
	TokenID     string `yaml:"token-id,omitempty"`
	TokenSecret string `yaml:"token-secret,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	VerifyTLS   bool   `yaml:"verify-tls,omitempty"`
}

// MembersConfig controls how group members and their roles are resolved.
type MembersConfig struct {
	// ACLPath is the ACL path a member's role is read from and written to.
	// "{group}" is replaced with the group ID.
	ACLPath     string   `yaml:"acl-path,omitempty"`
	Roles       []string `yaml:"roles,omitempty"`
	Concurrency int      `yaml:"concurrency,omitempty"`
}

// LoggingConfig selects the log level and optional log file.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// Config is the top-level configuration structure.
type Config struct {
	CurrentInstance string                    `yaml:"current-instance,omitempty"`
	Instances       map[string]InstanceConfig `yaml:"instances,omitempty"`
	Members         MembersConfig             `yaml:"members,omitempty"`
	Logging         LoggingConfig             `yaml:"logging,omitempty"`
}

// envOverrides are read from the environment after the file is parsed.
type envOverrides struct {
	Instance string `env:"PROXMOX_INSTANCE"`
	LogLevel string `env:"PXVE_LOG_LEVEL"`
	LogFile  string `env:"PXVE_LOG_FILE"`
	ACLPath  string `env:"PXVE_ACL_PATH"`
}

// configPath returns the path to the config file.
func configPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(home, configFileName)
}

// Load reads the config file, applies environment overrides and fills defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(configPath())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if ov.LogLevel != "" {
		cfg.Logging.Level = ov.LogLevel
	}
	if ov.LogFile != "" {
		cfg.Logging.File = ov.LogFile
	}
	if ov.ACLPath != "" {
		cfg.Members.ACLPath = ov.ACLPath
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Instances == nil {
		c.Instances = map[string]InstanceConfig{}
	}
	if c.Members.ACLPath == "" {
		c.Members.ACLPath = DefaultACLPath
	}
	if len(c.Members.Roles) == 0 {
		c.Members.Roles = append([]string(nil), DefaultRoles...)
	}
	if c.Members.Concurrency <= 0 {
		c.Members.Concurrency = DefaultConcurrency
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(configPath(), data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Resolve returns the InstanceConfig to use based on priority:
// 1. named instance (from --instance flag or PROXMOX_INSTANCE env)
// 2. current-instance in config
func (c *Config) Resolve(instanceName string) (*InstanceConfig, string, error) {
	if instanceName == "" {
		var ov envOverrides
		if err := env.Parse(&ov); err == nil {
			instanceName = ov.Instance
		}
	}
	if instanceName == "" {
		instanceName = c.CurrentInstance
	}
	if instanceName == "" {
		return nil, "", fmt.Errorf("no instance selected — run 'pxve-members instance use <name>' or set PROXMOX_INSTANCE")
	}

	inst, ok := c.Instances[instanceName]
	if !ok {
		return nil, "", fmt.Errorf("instance %q not found in config", instanceName)
	}
	return &inst, instanceName, nil
}

// ACLPathFor expands the configured ACL path template for groupID.
func (m MembersConfig) ACLPathFor(groupID string) string {
	path := m.ACLPath
	if path == "" {
		path = DefaultACLPath
	}
	return strings.ReplaceAll(path, groupPlaceholder, groupID)
}
