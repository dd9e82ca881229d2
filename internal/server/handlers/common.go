package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/criteo/code-id-registry/internal/auth"
)

// maxBodyBytes bounds request bodies; registrations are small records
const maxBodyBytes = 1 << 20

var errNoCaller = errors.New("no authenticated caller")

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

// caller returns the identity stored by the auth middleware
func caller(r *http.Request) (string, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user.Username == "" {
		return "", errNoCaller
	}
	return user.Username, nil
}

// pathParam returns a chi URL parameter as the client sent it. chi routes on
// r.URL.RawPath when it is set, so only those values are still escaped;
// otherwise the parameter comes from the already decoded r.URL.Path.
func pathParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(value)
		if err != nil {
			return "", fmt.Errorf("invalid %s in path: %w", name, err)
		}
		value = unescaped
	}
	if value == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return value, nil
}

func parseCodeID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("code_id must be an unsigned 64-bit integer: %q", s)
	}
	return id, nil
}
