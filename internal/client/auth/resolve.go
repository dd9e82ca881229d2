package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// URLEnvVar overrides the stored registry URL
	URLEnvVar = "CODEID_REGISTRY_URL"
	// TokenEnvVar overrides the stored token ("identity:password")
	TokenEnvVar = "CODEID_REGISTRY_SESSION_TOKEN"
)

// ErrNoServer is returned by Resolve when no registry URL is known
var ErrNoServer = fmt.Errorf("no server URL configured. Use --url flag, %s env var, or run 'login' command", URLEnvVar)

// Target is the registry a command talks to and the token it sends
type Target struct {
	URL   string
	Token string
	// Identity is the identity verified at login. It is only set when the
	// token came from the stored session.
	Identity string
}

// Resolve picks the registry URL (flag > env > session) and the token
// (flag > env > session). The stored token is only sent to the registry it
// was verified against.
func Resolve(flagURL, flagToken string) (Target, error) {
	session, err := LoadSession()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Target{}, fmt.Errorf("failed to load stored session: %w", err)
	}

	var target Target
	switch {
	case flagURL != "":
		target.URL = flagURL
	case os.Getenv(URLEnvVar) != "":
		target.URL = os.Getenv(URLEnvVar)
	case session != nil:
		target.URL = session.URL
	default:
		return Target{}, ErrNoServer
	}
	target.URL = NormalizeURL(target.URL)

	switch {
	case flagToken != "":
		target.Token = flagToken
	case os.Getenv(TokenEnvVar) != "":
		target.Token = os.Getenv(TokenEnvVar)
	case session != nil && NormalizeURL(session.URL) == target.URL:
		target.Token = session.Token
		target.Identity = session.Identity
	}
	return target, nil
}

// NormalizeURL removes trailing slashes
func NormalizeURL(url string) string {
	return strings.TrimRight(url, "/")
}
