package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PROXMOX_INSTANCE", "")
	t.Setenv("PXVE_LOG_LEVEL", "")
	t.Setenv("PXVE_LOG_FILE", "")
	t.Setenv("PXVE_ACL_PATH", "")
	return home
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	withHome(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Empty(t, cfg.Instances)
	assert.NotNil(t, cfg.Instances)
	assert.Equal(t, DefaultACLPath, cfg.Members.ACLPath)
	assert.Equal(t, DefaultRoles, cfg.Members.Roles)
	assert.Equal(t, DefaultConcurrency, cfg.Members.Concurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	home := withHome(t)
	data := []byte(`current-instance: lab
instances:
  lab:
    url: https://10.0.0.2:8006
    token-id: root@pam!cli
    token-secret: s3cret
members:
  acl-path: /groups/{group}
  roles: [PVEAuditor, PVEAdmin]
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(filepath.Join(home, configFileName), data, 0600))
	t.Setenv("PXVE_ACL_PATH", "/custom/{group}")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "lab", cfg.CurrentInstance)
	assert.Equal(t, "https://10.0.0.2:8006", cfg.Instances["lab"].URL)
	assert.Equal(t, "/custom/{group}", cfg.Members.ACLPath)
	assert.Equal(t, []string{"PVEAuditor", "PVEAdmin"}, cfg.Members.Roles)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	home := withHome(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, configFileName), []byte("instances: ["), 0600))

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestSaveThenLoad(t *testing.T) {
	withHome(t)
	cfg := &Config{
		CurrentInstance: "lab",
		Instances:       map[string]InstanceConfig{"lab": {URL: "https://pve:8006", Username: "root@pam", Password: "pw"}},
	}

	require.NoError(t, Save(cfg))
	got, err := Load()

	require.NoError(t, err)
	assert.Equal(t, cfg.Instances, got.Instances)
	assert.Equal(t, "lab", got.CurrentInstance)
}

func TestResolve(t *testing.T) {
	cfg := &Config{
		CurrentInstance: "home",
		Instances: map[string]InstanceConfig{
			"home": {URL: "https://home:8006"},
			"work": {URL: "https://work:8006"},
		},
	}

	t.Run("explicit name wins", func(t *testing.T) {
		t.Setenv("PROXMOX_INSTANCE", "home")
		inst, name, err := cfg.Resolve("work")
		require.NoError(t, err)
		assert.Equal(t, "work", name)
		assert.Equal(t, "https://work:8006", inst.URL)
	})

	t.Run("env before current", func(t *testing.T) {
		t.Setenv("PROXMOX_INSTANCE", "work")
		_, name, err := cfg.Resolve("")
		require.NoError(t, err)
		assert.Equal(t, "work", name)
	})

	t.Run("current instance", func(t *testing.T) {
		t.Setenv("PROXMOX_INSTANCE", "")
		_, name, err := cfg.Resolve("")
		require.NoError(t, err)
		assert.Equal(t, "home", name)
	})

	t.Run("unknown instance", func(t *testing.T) {
		_, _, err := cfg.Resolve("nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"nope"`)
	})

	t.Run("nothing selected", func(t *testing.T) {
		t.Setenv("PROXMOX_INSTANCE", "")
		empty := &Config{}
		_, _, err := empty.Resolve("")
		require.Error(t, err)
	})
}

func TestMembersConfig_ACLPathFor(t *testing.T) {
	assert.Equal(t, "/pool/ops", MembersConfig{}.ACLPathFor("ops"))
	assert.Equal(t, "/", MembersConfig{ACLPath: "/"}.ACLPathFor("ops"))
	assert.Equal(t, "/sdn/zones/ops", MembersConfig{ACLPath: "/sdn/zones/{group}"}.ACLPathFor("ops"))
}

func TestInitLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.log")
	require.NoError(t, InitLogger("debug", path, false))
	t.Cleanup(func() {
		CloseLogFile()
		_ = InitLogger("info", "", true)
	})

	l := GetLogger()
	l.Debug().Str("group", "ops").Msg("page loaded")
	CloseLogFile()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"group":"ops"`)
	assert.Contains(t, string(data), "page loaded")
}
