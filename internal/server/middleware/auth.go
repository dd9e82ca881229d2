package middleware

import (
	"net/http"

	"github.com/criteo/code-id-registry/internal/auth"
)

// RequireAuth returns middleware that authenticates every request it wraps and
// stores the user in the request context. onFailure, when set, is called for
// each rejected request.
func RequireAuth(authenticator auth.Authenticator, onFailure func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticator.Authenticate(r)
			if err != nil {
				if onFailure != nil {
					onFailure()
				}
				auth.Challenge(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
