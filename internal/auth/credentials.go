package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/criteo/code-id-registry/internal/models"
)

var (
	// ErrNoCredentials is returned for requests without a Basic Authorization header
	ErrNoCredentials = errors.New("missing basic auth credentials")
	// ErrInvalidCredentials covers unknown identities and wrong passwords alike
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Credential binds a caller identity to a bcrypt password hash
type Credential struct {
	Identity     string `yaml:"identity"`
	PasswordHash string `yaml:"password_hash"`
}

// CredentialsFile is the on-disk list of identities allowed to call the registry
type CredentialsFile struct {
	Identities []Credential `yaml:"identities"`
}

// ReadCredentialsFile parses path and checks every identity with validator, so
// that any identity able to log in could also be made the registry admin.
func ReadCredentialsFile(path string, validator models.IdentityValidator) (map[string][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var file CredentialsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file (invalid YAML syntax): %w", err)
	}

	hashes := make(map[string][]byte, len(file.Identities))
	for i, c := range file.Identities {
		if c.Identity == "" || c.PasswordHash == "" {
			return nil, fmt.Errorf("credentials entry %d: identity and password_hash are required", i)
		}
		if err := validator.ValidateIdentity(c.Identity); err != nil {
			return nil, fmt.Errorf("credentials entry %d: %w", i, err)
		}
		if _, err := bcrypt.Cost([]byte(c.PasswordHash)); err != nil {
			return nil, fmt.Errorf("credentials entry %d (%s): password_hash is not a bcrypt hash", i, c.Identity)
		}
		if _, dup := hashes[c.Identity]; dup {
			return nil, fmt.Errorf("credentials file: duplicate identity %q", c.Identity)
		}
		hashes[c.Identity] = []byte(c.PasswordHash)
	}
	return hashes, nil
}

// PasswordAuth authenticates callers with HTTP Basic credentials; the user
// part of the header is the caller identity.
type PasswordAuth struct {
	hashes map[string][]byte
	// compared against for unknown identities so both failures cost one bcrypt round
	decoy  []byte
	logger *slog.Logger
}

// NewPasswordAuth loads the credentials file at path
func NewPasswordAuth(path string, validator models.IdentityValidator, logger *slog.Logger) (*PasswordAuth, error) {
	hashes, err := ReadCredentialsFile(path, validator)
	if err != nil {
		return nil, err
	}
	decoy, err := bcrypt.GenerateFromPassword([]byte("code-id-registry"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	logger.Info("Password auth initialized",
		"credentials_file", path,
		"identities", len(hashes))

	return &PasswordAuth{hashes: hashes, decoy: decoy, logger: logger}, nil
}

// Authenticate resolves the caller identity of r
func (a *PasswordAuth) Authenticate(r *http.Request) (*User, error) {
	identity, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrNoCredentials
	}

	hash, known := a.hashes[identity]
	if !known {
		hash = a.decoy
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !known {
		a.logger.Warn("Authentication failed",
			"identity", identity,
			"known_identity", known,
			"source_ip", r.RemoteAddr)
		return nil, ErrInvalidCredentials
	}

	a.logger.Debug("Authenticated", "identity", identity, "source_ip", r.RemoteAddr)
	return &User{Username: identity}, nil
}

// Middleware rejects requests without valid credentials and stores the caller
// in the request context
func (a *PasswordAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.Authenticate(r)
			if err != nil {
				Challenge(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// HashPassword returns the bcrypt hash stored in a credentials file
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// MarshalCredentials encodes creds in the credentials file format
func MarshalCredentials(creds ...Credential) ([]byte, error) {
	return yaml.Marshal(CredentialsFile{Identities: creds})
}
