package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chupakbra/pxve-members/internal/config"
)

func TestBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "https://pve:8006", want: "https://pve:8006/api2/json"},
		{in: "https://pve:8006/", want: "https://pve:8006/api2/json"},
		{in: "https://pve:8006/api2/json", want: "https://pve:8006/api2/json"},
	}
	for _, tt := range tests {
		got, err := BaseURL(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := BaseURL("")
	assert.Error(t, err)
}

func TestNew_RequiresAuth(t *testing.T) {
	_, err := New(&config.InstanceConfig{URL: "https://pve:8006"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authentication configured")

	c, err := New(&config.InstanceConfig{URL: "https://pve:8006", TokenID: "root@pam!cli", TokenSecret: "x"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
