//go:build !darwin

package auth

// The token is stored in the session file itself, which is 0600.

func loadToken(f *sessionFile) (string, error) {
	return f.Token, nil
}

func storeToken(f *sessionFile, token string) error {
	f.Token = token
	return nil
}

func forgetToken(*sessionFile) error {
	return nil
}
