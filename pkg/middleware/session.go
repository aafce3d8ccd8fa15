// pkg/middleware/session.go
package middleware

import (
	"net/http"

	"orgportal/pkg/sessions"
)

// Session extracts and validates the session carried by the request and, when
// present, places it in context. Absence is not rejected here: downstream
// action guards decide whether a session is required.
func Session(v *sessions.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s, ok := v.FromRequest(r); ok {
				r = r.WithContext(sessions.WithSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}
