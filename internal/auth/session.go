package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	SessionCookie = "gamenite.session_token"
	userIDKey     = "uid"
	sessionMaxAge = 30 * 24 * 60 * 60
)

// UserGetter looks up a user by id. *Store implements it.
type UserGetter interface {
	GetUser(ctx context.Context, id string) (*User, error)
}

// Sessions keeps the signed-in user id in a signed cookie.
type Sessions struct {
	store *sessions.CookieStore
	users UserGetter
}

// NewSessions creates a cookie session manager. secret signs the cookie and
// must not be empty.
func NewSessions(secret string, secure bool, users UserGetter) (*Sessions, error) {
	if secret == "" {
		return nil, errors.New("auth secret is required")
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store, users: users}, nil
}

// CookieStore exposes the underlying store for short-lived flow cookies such
// as the OAuth state.
func (s *Sessions) CookieStore() *sessions.CookieStore {
	return s.store
}

// Login starts a session for u.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, u *User) error {
	session, err := s.store.New(r, SessionCookie)
	if err != nil && session == nil {
		return err
	}
	session.Values[userIDKey] = u.ID
	return session.Save(r, w)
}

// Logout clears the session cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, SessionCookie)
	session.Options.MaxAge = -1
	delete(session.Values, userIDKey)
	return session.Save(r, w)
}

// Current returns the signed-in user, or nil. A cookie that cannot be
// decoded, or that names a user who no longer exists, counts as signed out.
func (s *Sessions) Current(r *http.Request) *User {
	session, err := s.store.Get(r, SessionCookie)
	if err != nil {
		return nil
	}
	id, ok := session.Values[userIDKey].(string)
	if !ok || id == "" {
		return nil
	}
	u, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		return nil
	}
	return u
}
