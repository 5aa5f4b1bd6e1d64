// Package auth implements the sign-in gate: bcrypt password hashes, a
// signed cookie session and the middleware that guards private routes.
package auth

import (
	"context"
	"crypto/sha256"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the sign-in cookie.
const SessionName = "hse-session"

const (
	sessionKeyEmail    = "email"
	sessionKeySignedIn = "signed_in_at"
)

// DefaultSessionMaxAge keeps a user signed in for a working week.
const DefaultSessionMaxAge = 7 * 24 * time.Hour

type contextKey struct{}

// Sessions wraps a cookie store holding the signed-in email.
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions creates a cookie-backed session store.
//
// The secret can be any passphrase; it is SHA-256 hashed into the 32-byte
// signing key, so it must stay the same across restarts. Cookies are
// HttpOnly and SameSite=Strict; secure controls the Secure flag and should
// be on whenever the app is served over HTTPS.
func NewSessions(secret string, secure bool, maxAge time.Duration) *Sessions {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
	return &Sessions{store: store}
}

// Login stores email in a fresh session cookie.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, email string) error {
	session, err := s.store.New(r, SessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[sessionKeyEmail] = strings.ToLower(email)
	session.Values[sessionKeySignedIn] = time.Now().Unix()
	return session.Save(r, w)
}

// Logout expires the session cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, SessionName)
	if session == nil {
		return nil
	}
	delete(session.Values, sessionKeyEmail)
	delete(session.Values, sessionKeySignedIn)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// CurrentUser returns the signed-in email, if any. A tampered or expired
// cookie reads as signed out.
func (s *Sessions) CurrentUser(r *http.Request) (string, bool) {
	session, err := s.store.Get(r, SessionName)
	if err != nil || session == nil {
		return "", false
	}
	email, ok := session.Values[sessionKeyEmail].(string)
	if !ok || email == "" {
		return "", false
	}
	return email, true
}

// WithUser returns a copy of ctx carrying the signed-in email.
func WithUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, contextKey{}, email)
}

// UserFromContext returns the email stored by RequireAuth.
func UserFromContext(ctx context.Context) string {
	if email, ok := ctx.Value(contextKey{}).(string); ok {
		return email
	}
	return ""
}
