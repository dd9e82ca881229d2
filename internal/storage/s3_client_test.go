package storage

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3Token(t *testing.T) {
	tests := []struct {
		token, access, secret, err string
	}{
		{token: "AKIAEXAMPLE:wJalr/K7MDENG", access: "AKIAEXAMPLE", secret: "wJalr/K7MDENG"},
		{token: "minio:pass:with:colons", access: "minio", secret: "pass:with:colons"},
		{token: "no-colon", err: "expected ACCESS_KEY:SECRET_KEY"},
		{token: ":secret", err: "access key cannot be empty"},
		{token: "access:", err: "secret key cannot be empty"},
	}
	for _, tt := range tests {
		access, secret, err := ParseS3Token(tt.token)
		if tt.err != "" {
			assert.ErrorContains(t, err, tt.err, tt.token)
			continue
		}
		require.NoError(t, err, tt.token)
		assert.Equal(t, tt.access, access)
		assert.Equal(t, tt.secret, secret)
	}
}

func TestParseS3Token_Environment(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	access, secret, err := ParseS3Token("")
	require.NoError(t, err)
	assert.Empty(t, access+secret, "anonymous access for IAM roles")

	t.Setenv("AWS_ACCESS_KEY_ID", "env-access")
	_, _, err = ParseS3Token("")
	assert.ErrorContains(t, err, "S3 credentials incomplete")

	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")
	access, secret, err = ParseS3Token("")
	require.NoError(t, err)
	assert.Equal(t, "env-access", access)
	assert.Equal(t, "env-secret", secret)
}

func TestExtractRegionFromEndpoint(t *testing.T) {
	regions := map[string]string{
		"s3.us-west-2.amazonaws.com":     "us-west-2",
		"s3-us-east-1.amazonaws.com":     "us-east-1",
		"s3.eu-central-1.amazonaws.com":  "eu-central-1",
		"s3.us-gov-west-1.amazonaws.com": "us-gov-west-1",
		"s3.amazonaws.com":               "",
		"minio.example.com:9000":         "",
		"nyc3.digitaloceanspaces.com":    "",
	}
	for endpoint, region := range regions {
		assert.Equal(t, region, ExtractRegionFromEndpoint(endpoint), endpoint)
	}
}

// fakeObjectStore answers HEAD for one object with a fixed ETag and records
// every method it sees
type fakeObjectStore struct {
	mu      sync.Mutex
	etag    string
	methods []string
}

func (f *fakeObjectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.methods = append(f.methods, r.Method)
	f.mu.Unlock()

	if r.Method != http.MethodHead {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	w.Header().Set("ETag", `"`+f.etag+`"`)
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", "2")
	w.WriteHeader(http.StatusOK)
}

func TestS3Client_UploadRefusesChangedSnapshot(t *testing.T) {
	fake := &fakeObjectStore{etag: "written-by-someone-else"}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	endpoint, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c, err := NewS3Client(S3ClientOptions{
		Endpoint:  endpoint.Host,
		Bucket:    "registry",
		Key:       "codeids.json",
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
	}, newTestLogger())
	require.NoError(t, err)
	c.etag = "loaded-at-startup"

	err = c.Upload(t.Context(), []byte(`{}`), 0)
	assert.ErrorIs(t, err, ErrSnapshotChanged)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, []string{http.MethodHead}, fake.methods)
	assert.Equal(t, "loaded-at-startup", c.etag)
}
