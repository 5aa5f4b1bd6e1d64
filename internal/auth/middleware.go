package auth

import (
	"net/http"
)

// LoginPath is where signed-out visitors are sent.
const LoginPath = "/login"

// RequireAuth lets signed-in requests through with the email on the context
// and redirects everyone else to the sign-in page. HTMX requests get an
// HX-Redirect header instead of a 303 so the whole page navigates.
func (s *Sessions) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.CurrentUser(r)
		if !ok {
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", LoginPath)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), email)))
	})
}
