package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoCredentials is returned when no session token has been saved.
var ErrNoCredentials = errors.New("not logged in")

// Credentials is the saved login session for the backend.
type Credentials struct {
	Username string    `json:"username"`
	Token    string    `json:"token"`
	SavedAt  time.Time `json:"saved_at"`
}

func credentialsFilePath() string {
	return filepath.Join(defaultDataDir(), "credentials.json")
}

// LoadCredentials reads the saved session token.
func LoadCredentials() (Credentials, error) {
	data, err := os.ReadFile(credentialsFilePath())
	if os.IsNotExist(err) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("reading credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("parsing credentials: %w", err)
	}
	if c.Token == "" {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

// SaveCredentials stores the session token with owner-only permissions.
func SaveCredentials(c Credentials) error {
	if c.SavedAt.IsZero() {
		c.SavedAt = time.Now().UTC()
	}
	p := credentialsFilePath()
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

// ClearCredentials removes the saved session. Clearing when not logged in
// is not an error.
func ClearCredentials() error {
	err := os.Remove(credentialsFilePath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
