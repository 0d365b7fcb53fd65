package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	proxmox "github.com/luthermonson/go-proxmox"

	"github.com/chupakbra/pxve-members/internal/config"
)

const (
	apiPath        = "/api2/json"
	requestTimeout = 30 * time.Second
)

// BaseURL normalises an instance URL to the API base go-proxmox expects.
func BaseURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("instance URL is not set")
	}
	baseURL := strings.TrimRight(raw, "/")
	if !strings.HasSuffix(baseURL, apiPath) {
		baseURL += apiPath
	}
	return baseURL, nil
}

// New builds a proxmox.Client from an InstanceConfig.
func New(cfg *config.InstanceConfig) (*proxmox.Client, error) {
	baseURL, err := BaseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec
			},
		},
	}

	opts := []proxmox.Option{
		proxmox.WithHTTPClient(httpClient),
	}

	switch {
	case cfg.TokenID != "" && cfg.TokenSecret != "":
		opts = append(opts, proxmox.WithAPIToken(cfg.TokenID, cfg.TokenSecret))
	case cfg.Username != "" && cfg.Password != "":
		opts = append(opts, proxmox.WithCredentials(&proxmox.Credentials{
			Username: cfg.Username,
			Password: cfg.Password,
		}))
	default:
		return nil, fmt.Errorf("instance has no authentication configured (need token-id+token-secret or username+password)")
	}

	return proxmox.NewClient(baseURL, opts...), nil
}

// Connect builds a client and checks that the server answers with the
// configured credentials.
func Connect(ctx context.Context, cfg *config.InstanceConfig) (*proxmox.Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	log := config.GetLogger()
	if _, err := c.Version(ctx); err != nil {
		log.Warn().Err(err).Str("url", cfg.URL).Msg("connection check failed")
		return nil, err
	}
	log.Debug().Str("url", cfg.URL).Msg("connected")
	return c, nil
}
