package iceapi

import (
	"context"
	"fmt"
	"net/http"
)

// LoginPath is the fixed authentication endpoint, relative to the API base.
const LoginPath = "auth/login/"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a session token and persists it. The login
// request is never retried and never carries an existing credential.
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := do[loginResponse](ctx, c, http.MethodPost, LoginPath,
		nil, loginRequest{Username: username, Password: password},
		requestOptions{disableRetry: true, unauthenticated: true, loginRequest: true})
	if err != nil {
		return err
	}
	if resp.Token == "" {
		return &APIError{Kind: KindDecode, Message: "login response missing token"}
	}
	if err := c.creds.SetToken(resp.Token); err != nil {
		return fmt.Errorf("iceapi: persist token: %w", err)
	}
	c.logger.Info().Str("username", username).Msg("logged in")
	return nil
}

// Logout clears the stored credential and broadcasts the logout event. It is
// client-local: no network call is made.
func (c *Client) Logout() error {
	if err := c.creds.Clear(); err != nil {
		return err
	}
	c.events.emit(EventLogout)
	c.logger.Info().Msg("logged out")
	return nil
}

// IsAuthenticated reports whether a credential is currently stored. It does
// not verify validity server-side; an expired token surfaces as a 401 on the
// next request.
func (c *Client) IsAuthenticated() bool {
	return c.creds.Token() != ""
}
