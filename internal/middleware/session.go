package middleware

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	// AuthCookie is the name of the signed session cookie.
	AuthCookie      = "facematch_session"
	sessionDuration = 30 * 24 * time.Hour
)

// Sessions issues and checks signed session cookies. The signing key is
// derived from the password, so changing it logs every viewer out.
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions creates a cookie store keyed off password.
func NewSessions(password string) *Sessions {
	store := sessions.NewCookieStore(sessionKey(password))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

// SetSessionCookie marks the client as logged in.
func (s *Sessions) SetSessionCookie(w http.ResponseWriter, r *http.Request) error {
	// a stale or foreign cookie only means a fresh session
	session, _ := s.store.New(r, AuthCookie)
	session.Values["authenticated"] = true
	session.Values["issued"] = time.Now().Unix()
	return session.Save(r, w)
}

// Authenticated reports whether r carries a valid, unexpired session cookie.
func (s *Sessions) Authenticated(r *http.Request) bool {
	session, err := s.store.Get(r, AuthCookie)
	if err != nil || session.IsNew {
		return false
	}
	ok, _ := session.Values["authenticated"].(bool)
	return ok
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func sessionKey(password string) []byte {
	hasher := sha256.New()
	hasher.Write([]byte("facematch-session:" + password))
	return hasher.Sum(nil)
}
