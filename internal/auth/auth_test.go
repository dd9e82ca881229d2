package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criteo/code-id-registry/internal/models"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// newPasswordAuth serves every identity with the password "pw"
func newPasswordAuth(t *testing.T, identities ...string) *PasswordAuth {
	t.Helper()
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	var creds []Credential
	for _, id := range identities {
		creds = append(creds, Credential{Identity: id, PasswordHash: hash})
	}
	data, err := MarshalCredentials(creds...)
	require.NoError(t, err)

	a, err := NewPasswordAuth(writeCredentials(t, string(data)), models.DefaultValidator(), newTestLogger())
	require.NoError(t, err)
	return a
}

func TestPasswordAuth_Authenticate(t *testing.T) {
	a := newPasswordAuth(t, "admin", "wasm1xyz")

	tests := []struct {
		name     string
		identity string
		password string
		wantErr  error
	}{
		{"admin", "admin", "pw", nil},
		{"address identity", "wasm1xyz", "pw", nil},
		{"wrong password", "admin", "nope", ErrInvalidCredentials},
		{"unknown identity", "mallory", "pw", ErrInvalidCredentials},
		{"no header", "", "", ErrNoCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.identity != "" {
				req.SetBasicAuth(tt.identity, tt.password)
			}
			user, err := a.Authenticate(req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.identity, user.Username)
		})
	}
}

func TestReadCredentialsFile_Rejects(t *testing.T) {
	validator := models.DefaultValidator()
	hash, err := HashPassword("pw")
	require.NoError(t, err)

	_, err = ReadCredentialsFile(filepath.Join(t.TempDir(), "missing.yaml"), validator)
	assert.ErrorContains(t, err, "failed to read")

	entry := func(identity, hash string) string {
		return "  - {identity: " + identity + ", password_hash: \"" + hash + "\"}\n"
	}
	cases := []struct {
		content string
		want    string
	}{
		{"identities: [\n", "invalid YAML"},
		{"identities:\n  - identity: a\n", "required"},
		{"identities:\n" + entry("Admin", hash), "identity must match"},
		{"identities:\n" + entry("admin", "plain"), "not a bcrypt hash"},
		{"identities:\n" + entry("a", hash) + entry("a", hash), "duplicate"},
	}
	for _, tc := range cases {
		_, err := ReadCredentialsFile(writeCredentials(t, tc.content), validator)
		assert.ErrorContains(t, err, tc.want, tc.content)
	}

	hashes, err := ReadCredentialsFile(writeCredentials(t, "identities: []\n"), validator)
	require.NoError(t, err)
	assert.Empty(t, hashes)
}

func TestPasswordAuth_MiddlewareStoresUser(t *testing.T) {
	a := newPasswordAuth(t, "alice")

	var seen string
	h := a.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		seen = user.Username
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.SetBasicAuth("alice", "pw")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", seen)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `Basic realm="Code ID Registry"`, rr.Header().Get("WWW-Authenticate"))
}

func TestNoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CallerHeader, "alice")

	user, err := NewNoAuth().Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, AnonymousUser, user.Username)

	user, err = NewTrustingNoAuth().Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	user, err = NewTrustingNoAuth().Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, AnonymousUser, user.Username)
}

func TestUserFromContext_Empty(t *testing.T) {
	_, ok := UserFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
