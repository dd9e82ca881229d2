// Package auth keeps the client's registry session: the registry URL, the
// identity verified against it at login, and the token sent on its behalf.
//
// The URL and identity live in ~/.config/codeid-registry/session.yaml (0600).
// The token is kept next to them, except on macOS where it goes to the
// Keychain (token_keychain_darwin.go).
package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no session is stored
var ErrNotFound = errors.New("no stored session")

const (
	sessionDir  = ".config/codeid-registry"
	sessionName = "session.yaml"
)

// Session is what login stores once the registry accepted the credentials
type Session struct {
	URL      string
	Identity string
	Token    string // "identity:password"
}

type sessionFile struct {
	URL      string `yaml:"url"`
	Identity string `yaml:"identity"`
	Token    string `yaml:"token,omitempty"`
}

func sessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, sessionDir, sessionName), nil
}

func readSessionFile() (*sessionFile, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var f sessionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}
	if f.URL == "" {
		return nil, ErrNotFound
	}
	return &f, nil
}

// LoadSession returns the stored session. A session whose token is missing
// (e.g. deleted from the Keychain) comes back with an empty Token.
func LoadSession() (*Session, error) {
	f, err := readSessionFile()
	if err != nil {
		return nil, err
	}
	token, err := loadToken(f)
	if err != nil {
		return nil, err
	}
	return &Session{URL: f.URL, Identity: f.Identity, Token: token}, nil
}

// SaveSession replaces the stored session. Only one registry session is kept.
func SaveSession(s Session) error {
	if s.URL == "" {
		return errors.New("session has no registry URL")
	}
	if err := DeleteSession(); err != nil {
		return err
	}

	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f := sessionFile{URL: s.URL, Identity: s.Identity}
	if err := storeToken(&f, s.Token); err != nil {
		return err
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// DeleteSession forgets the stored session; it succeeds when none is stored.
// A session file that cannot be parsed is removed as well.
func DeleteSession() error {
	f, err := readSessionFile()
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err == nil {
		if err := forgetToken(f); err != nil {
			return err
		}
	}

	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}
