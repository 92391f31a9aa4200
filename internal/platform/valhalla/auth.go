package valhalla

import (
	"context"
	"errors"
	"net/http"
)

// ErrEmptyToken is returned when login succeeds without a token in the body.
var ErrEmptyToken = errors.New("valhalla: login response carried no token")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Data  struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Username: username, Password: password}, &resp, ""); err != nil {
		return "", err
	}
	token := resp.Token
	if token == "" {
		token = resp.Data.Token
	}
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

// ValidateToken asks the backend whether token is still accepted. Any non-2xx
// answer or transport error is returned as an error.
func (c *Client) ValidateToken(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodGet, "/auth/validate-token", nil, nil, nil, token)
}

// ForgotPassword requests a reset link for email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", nil, body, nil, "")
}

// ResetPassword sets a new password using a reset token.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	body := map[string]string{"token": resetToken, "newPassword": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", nil, body, nil, "")
}

// ChangePassword changes the password of the caller identified by the bearer token.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	body := map[string]string{"currentPassword": currentPassword, "newPassword": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/change-password", nil, body, nil, "")
}
