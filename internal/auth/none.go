package auth

import (
	"net/http"
)

// AnonymousUser is the identity of every caller when authentication is off
const AnonymousUser = "anonymous"

// NoAuth implements Authenticator with no authentication. Every request acts
// as AnonymousUser, or as the identity in the X-Registry-Caller header when
// trustCallerHeader is set (local development only).
type NoAuth struct {
	trustCallerHeader bool
}

// NewNoAuth creates a new NoAuth authenticator
func NewNoAuth() *NoAuth {
	return &NoAuth{}
}

// NewTrustingNoAuth creates a NoAuth that takes the caller from X-Registry-Caller
func NewTrustingNoAuth() *NoAuth {
	return &NoAuth{trustCallerHeader: true}
}

// CallerHeader names the header read by a trusting NoAuth
const CallerHeader = "X-Registry-Caller"

// Authenticate returns the anonymous user or the declared caller
func (a *NoAuth) Authenticate(r *http.Request) (*User, error) {
	if a.trustCallerHeader {
		if caller := r.Header.Get(CallerHeader); caller != "" {
			return &User{Username: caller}, nil
		}
	}
	return &User{Username: AnonymousUser}, nil
}

// Middleware passes all requests through with the resolved user in context
func (a *NoAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := a.Authenticate(r)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
