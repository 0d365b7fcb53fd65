package errors

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandle(t *testing.T) {
	plain := errors.New("user \"bob@pve\" is not a member of group \"ops\"")

	tests := []struct {
		name string
		url  string
		err  error
		want string
	}{
		{name: "nil", err: nil},
		{name: "passthrough", err: plain, want: plain.Error()},
		{
			name: "refused with url",
			url:  "https://pve:8006",
			err:  fmt.Errorf("listing groups: %w", errors.New("dial tcp 10.0.0.1:8006: connect: connection refused")),
			want: "could not connect to Proxmox at https://pve:8006 — check the instance URL and your network",
		},
		{
			name: "url error without instance",
			err:  &url.Error{Op: "Get", URL: "https://pve:8006/api2/json/access/groups", Err: errors.New("no such host")},
			want: "could not connect to Proxmox — check the instance URL and your network",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Handle(tt.url, tt.err)
			if tt.want == "" {
				assert.NoError(t, got)
				return
			}
			assert.EqualError(t, got, tt.want)
		})
	}
}

func TestShort(t *testing.T) {
	assert.Equal(t, "", Short(nil))
	assert.Equal(t, "first line", Short(errors.New("first line\nsecond line")))
}
