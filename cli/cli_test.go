package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chupakbra/pxve-members/internal/config"
	clierrors "github.com/chupakbra/pxve-members/internal/errors"
	"github.com/chupakbra/pxve-members/internal/grid"
	"github.com/chupakbra/pxve-members/internal/roster"
)

func TestValidateUserID(t *testing.T) {
	for _, id := range []string{"alice@pve", "root@pam", "j.doe-1@ldap_corp"} {
		assert.NoError(t, validateUserID(id), id)
	}
	for _, id := range []string{"", "alice", "@pve", "alice@", "a b@pve", "alice@pve!token"} {
		err := validateUserID(id)
		require.Error(t, err, id)
		assert.True(t, errors.Is(err, clierrors.ErrInvalidUserID), id)
	}
}

func TestValidateGroupID(t *testing.T) {
	assert.NoError(t, validateGroupID("dev-team_2"))
	err := validateGroupID("dev team")
	require.Error(t, err)
	assert.True(t, errors.Is(err, clierrors.ErrInvalidGroupID))
}

// fakeLoader serves pages cut from a fixed member list.
type fakeLoader struct {
	ids    []string
	loads  []int
	failAt int
}

func newFakeLoader(n int) *fakeLoader {
	l := &fakeLoader{failAt: -1}
	for i := range n {
		l.ids = append(l.ids, fmt.Sprintf("user%02d@pve", i))
	}
	return l
}

func (l *fakeLoader) LoadPage(_ context.Context, group string, index int) (roster.Page, error) {
	l.loads = append(l.loads, index)
	if index == l.failAt {
		return roster.Page{}, errors.New("boom")
	}
	p := roster.Page{Group: group, Index: index, IDs: l.ids, Memberships: map[string]grid.Membership{}}
	lo := index * grid.PageSize
	for i := lo; i < len(l.ids) && i < lo+grid.PageSize; i++ {
		id := l.ids[i]
		p.Members = append(p.Members, grid.Member{UserID: id, Enabled: true})
		p.Memberships[id] = grid.Membership{UserID: id, GroupID: group, Roles: "PVEAuditor"}
	}
	return p, nil
}

func TestProjectPage(t *testing.T) {
	l := newFakeLoader(25)

	view, err := projectPage(context.Background(), l, "ops", 1)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, l.loads)
	assert.Equal(t, 1, view.Page)
	assert.Equal(t, 11, view.StartCount)
	assert.Equal(t, 20, view.EndCount)
	assert.Equal(t, 25, view.Total)
	require.Len(t, view.Rows, 10)
	assert.Equal(t, "user10@pve", view.Rows[0].ID)
	assert.True(t, view.HasNext)
}

func TestProjectPage_LastPartialPage(t *testing.T) {
	l := newFakeLoader(25)

	view, err := projectPage(context.Background(), l, "ops", 2)

	require.NoError(t, err)
	assert.Len(t, view.Rows, 5)
	assert.False(t, view.HasNext)
}

func TestProjectPage_PastEndClampsToLastPage(t *testing.T) {
	l := newFakeLoader(12)

	view, err := projectPage(context.Background(), l, "ops", 5)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, l.loads)
	assert.Equal(t, 1, view.Page)
	assert.Len(t, view.Rows, 2)
}

func TestProjectPage_LoadError(t *testing.T) {
	l := newFakeLoader(25)
	l.failAt = 1

	_, err := projectPage(context.Background(), l, "ops", 1)

	assert.ErrorContains(t, err, `loading page 2 of "ops": boom`)
}

func TestWriteMembers(t *testing.T) {
	view, err := projectPage(context.Background(), newFakeLoader(3), "ops", 0)
	require.NoError(t, err)

	t.Run("table", func(t *testing.T) {
		flagOutput = "table"
		var buf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&buf)

		require.NoError(t, writeMembers(cmd, "ops", view))

		out := buf.String()
		assert.Contains(t, out, "USERID")
		assert.Contains(t, out, "user02@pve")
		assert.Contains(t, out, "PVEAuditor")
		assert.Contains(t, out, "Showing 1–3 of 3")
	})

	t.Run("json", func(t *testing.T) {
		flagOutput = "json"
		t.Cleanup(func() { flagOutput = "table" })
		var buf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&buf)

		require.NoError(t, writeMembers(cmd, "ops", view))

		var got membersPageOut
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "ops", got.Group)
		assert.Equal(t, 1, got.Page)
		assert.Equal(t, 3, got.Total)
		require.Len(t, got.Members, 3)
		assert.Equal(t, "PVEAuditor", got.Members[0].Roles)
	})
}

func TestRealmFromTokenID(t *testing.T) {
	realm, err := realmFromTokenID("root@pam!cli")
	require.NoError(t, err)
	assert.Equal(t, "pam", realm)

	_, err = realmFromTokenID("root!cli@pam")
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", mask("abc"))
	assert.Equal(t, "****5678", mask("12345678"))
}

func TestSummarize(t *testing.T) {
	cfg := &config.Config{
		CurrentInstance: "lab",
		Instances: map[string]config.InstanceConfig{
			"lab":  {URL: "https://10.0.0.5:8006", TokenID: "admin@pve!members", TokenSecret: "s"},
			"prod": {URL: "https://pve.example.com:8006", Username: "admin@pam", Password: "p"},
		},
	}

	assert.Equal(t, instanceSummary{
		Name: "lab", URL: "https://10.0.0.5:8006", Auth: "token", Account: "admin@pve!members", Current: true,
	}, summarize(cfg, "lab"))
	assert.Equal(t, instanceSummary{
		Name: "prod", URL: "https://pve.example.com:8006", Auth: "credentials", Account: "admin@pam",
	}, summarize(cfg, "prod"))
	assert.Equal(t, []string{"lab", "prod"}, instanceNames(cfg))
}

func TestNextDefault(t *testing.T) {
	cfg := &config.Config{Instances: map[string]config.InstanceConfig{"b": {}, "a": {}}}
	assert.Equal(t, "a", nextDefault(cfg))
	assert.Empty(t, nextDefault(&config.Config{}))
}

func TestSettingsFor(t *testing.T) {
	cfg := &config.Config{
		Members: config.MembersConfig{ACLPath: "/pool/{group}", Roles: []string{"PVEAuditor"}, Concurrency: 4},
		Logging: config.LoggingConfig{Level: "debug", File: "/tmp/members.log"},
	}

	s := settingsFor(cfg, "ops")
	assert.Equal(t, "/pool/{group}", s.ACLPath)
	assert.Equal(t, "/pool/ops", s.ResolvedPath)
	assert.Equal(t, []string{"PVEAuditor"}, s.Roles)
	assert.Equal(t, 4, s.Concurrency)
	assert.Equal(t, "/tmp/members.log", s.LogFile)

	assert.Equal(t, "/pool/<group>", settingsFor(cfg, "").ResolvedPath)
}

func TestCheckInstanceFlags(t *testing.T) {
	tests := []struct {
		name    string
		inst    config.InstanceConfig
		wantErr string
	}{
		{"token", config.InstanceConfig{URL: "https://h:8006", TokenID: "admin@pve!m", TokenSecret: "s"}, ""},
		{"credentials", config.InstanceConfig{URL: "https://h:8006", Username: "admin@pam", Password: "p"}, ""},
		{"no url", config.InstanceConfig{TokenID: "admin@pve!m", TokenSecret: "s"}, "--url is required"},
		{"no auth", config.InstanceConfig{URL: "https://h:8006", TokenID: "admin@pve!m"}, "provide either"},
		{"bad token id", config.InstanceConfig{URL: "https://h:8006", TokenID: "admin", TokenSecret: "s"}, "invalid --token-id"},
		{"bad username", config.InstanceConfig{URL: "https://h:8006", Username: "admin", Password: "p"}, "user@realm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkInstanceFlags(tt.inst)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUnknownRoles(t *testing.T) {
	defined := []string{"NoAccess", "PVEAuditor", "PVEVMUser"}
	assert.Empty(t, unknownRoles([]string{"PVEAuditor", "NoAccess"}, defined))
	assert.Equal(t, []string{"Operator", "Owner"}, unknownRoles([]string{"Operator", "PVEVMUser", "Owner"}, defined))
}

func TestConnectionHint(t *testing.T) {
	token := &config.InstanceConfig{URL: "https://h:8006", TokenID: "admin@pve!m"}
	creds := &config.InstanceConfig{URL: "https://h:8006", Username: "admin@pam"}

	assert.Contains(t, connectionHint(token, errors.New("dial tcp: connection refused")), "https://h:8006 is not reachable")
	assert.Contains(t, connectionHint(token, errors.New("x509: certificate signed by unknown authority")), "--secure")
	assert.Contains(t, connectionHint(token, errors.New("401 not authorized")), `token "admin@pve!m"`)
	assert.Contains(t, connectionHint(creds, errors.New("not authorized")), `user "admin@pam"`)
	assert.Contains(t, connectionHint(token, errors.New("listing groups: forbidden")), "Sys.Audit")
	assert.Contains(t, connectionHint(token, errors.New("roles not defined on server: Owner")), "--role")
	assert.Equal(t, "check the URL and credentials", connectionHint(token, errors.New("boom")))
}
