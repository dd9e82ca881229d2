//go:build darwin

package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keychainService = "codeid-registry"

// keychainAccount scopes the Keychain entry to one identity on one registry
func keychainAccount(f *sessionFile) string {
	return f.Identity + "@" + f.URL
}

func loadToken(f *sessionFile) (string, error) {
	token, err := keyring.Get(keychainService, keychainAccount(f))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token from keychain: %w", err)
	}
	return token, nil
}

func storeToken(f *sessionFile, token string) error {
	if err := keyring.Set(keychainService, keychainAccount(f), token); err != nil {
		return fmt.Errorf("failed to save token to keychain: %w", err)
	}
	return nil
}

func forgetToken(f *sessionFile) error {
	err := keyring.Delete(keychainService, keychainAccount(f))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keychain: %w", err)
	}
	return nil
}
