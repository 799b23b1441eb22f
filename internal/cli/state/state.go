// Package state persists the CLI session between runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TokenState is the logged-in session. A token is only sent to the server that
// issued it.
type TokenState struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	BaseURL     string    `json:"base_url,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role,omitempty"`
}

// Expired reports whether a known expiry has passed.
func (s TokenState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// TokenFor returns the token to send to baseURL, or "" when the session belongs
// to another server or has expired.
func (s TokenState) TokenFor(baseURL string, now time.Time) string {
	if s.AccessToken == "" || s.Expired(now) {
		return ""
	}
	if s.BaseURL != "" && s.BaseURL != baseURL {
		return ""
	}
	return s.AccessToken
}

// Who describes the session owner for display.
func (s TokenState) Who() string {
	switch {
	case s.Email != "" && s.Role != "":
		return fmt.Sprintf("%s (%s)", s.Email, s.Role)
	case s.Email != "":
		return s.Email
	case s.UserID != "":
		return s.UserID
	}
	return "unknown user"
}

func Load(path string) (TokenState, error) {
	var st TokenState
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("read token state failed: %w", err)
	}
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse token state failed: %w", err)
	}
	return st, nil
}

// Save writes st through a temp file so a crash never leaves half a token.
func Save(path string, st TokenState) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token state dir failed: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token state failed: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cli_state-*")
	if err != nil {
		return fmt.Errorf("write token state failed: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write token state failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write token state failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace token state failed: %w", err)
	}
	return nil
}

func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token state failed: %w", err)
	}
	return nil
}
