package api

import (
	"context"
)

// Login exchanges credentials for a bearer token. It does not require an
// existing token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ValidationError("username and password are required")
	}

	resp, err := c.post(ctx, "/user/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}

// Register creates a new account. The backend rejects duplicate usernames.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return ValidationError("username, email and password are required")
	}

	resp, err := c.post(ctx, "/user/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}
