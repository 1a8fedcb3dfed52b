package iceapi

import (
	"fmt"
	"os"
	"strings"

	"github.com/iceops/iceops_sdk_go/internal/sandbox"
)

const (
	envMode      = "ICEOPS_RUNTIME_MODE"
	envAPIURL    = "ICEOPS_API_URL"
	envTokenFile = "ICEOPS_TOKEN_FILE"

	modeAuto    = "auto"
	modeHTTP    = "http"
	modeSandbox = "sandbox"
)

// NewFromEnv initialises a Client from environment variables and returns the
// resolved mode ("http" or "sandbox"). HTTP mode targets ICEOPS_API_URL;
// sandbox mode serves an in-process API on a loopback port, which is useful
// for developing against the SDK without a plant backend. When
// ICEOPS_TOKEN_FILE is set the credential survives restarts.
func NewFromEnv(opts ...Option) (client *Client, mode string, err error) {
	mode = strings.ToLower(strings.TrimSpace(os.Getenv(envMode)))
	baseURL := strings.TrimSpace(os.Getenv(envAPIURL))

	if path := strings.TrimSpace(os.Getenv(envTokenFile)); path != "" {
		creds, err := NewFileCredentials(path)
		if err != nil {
			return nil, "", err
		}
		opts = append([]Option{WithCredentials(creds)}, opts...)
	}

	switch mode {
	case "", modeAuto:
		if baseURL != "" {
			return newHTTPMode(baseURL, opts)
		}
		return newSandboxMode(opts)
	case modeHTTP:
		if baseURL == "" {
			return nil, "", fmt.Errorf("iceapi: HTTP mode requires %s", envAPIURL)
		}
		return newHTTPMode(baseURL, opts)
	case modeSandbox:
		return newSandboxMode(opts)
	default:
		return nil, "", fmt.Errorf("iceapi: unsupported %s value %q", envMode, mode)
	}
}

func newHTTPMode(baseURL string, opts []Option) (*Client, string, error) {
	client, err := New(baseURL, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("iceapi: init HTTP client: %w", err)
	}
	return client, modeHTTP, nil
}

func newSandboxMode(opts []Option) (*Client, string, error) {
	baseURL, err := sandbox.New(sandbox.Config{}).Start()
	if err != nil {
		return nil, "", fmt.Errorf("iceapi: start sandbox: %w", err)
	}
	client, err := New(baseURL, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("iceapi: init sandbox client: %w", err)
	}
	return client, modeSandbox, nil
}
