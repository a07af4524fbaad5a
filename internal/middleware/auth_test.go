package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func issue(t *testing.T, s *Sessions) string {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, s.SetSessionCookie(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil)))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, AuthCookie, cookies[0].Name)
	return cookies[0].Value
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	AuthMiddleware(nil, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/face-match", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_Enabled(t *testing.T) {
	sessions := NewSessions("secret")
	h := AuthMiddleware(sessions, ok)

	token := issue(t, sessions)
	otherToken := issue(t, NewSessions("other"))
	tampered := token[:len(token)-2] + "AA"
	if tampered == token {
		tampered = token[:len(token)-2] + "BB"
	}

	tests := []struct {
		name     string
		path     string
		cookie   string
		expected int
	}{
		{"login page is public", "/login", "", http.StatusOK},
		{"login endpoint is public", "/auth/login", "", http.StatusOK},
		{"static assets are public", "/static/app.js", "", http.StatusOK},
		{"page redirects", "/face-match", "", http.StatusSeeOther},
		{"api is unauthorized", "/api/state", "", http.StatusUnauthorized},
		{"session passes", "/face-match", token, http.StatusOK},
		{"session passes api", "/api/state", token, http.StatusOK},
		{"forged cookie redirects", "/face-match", "true", http.StatusSeeOther},
		{"forged cookie is unauthorized", "/api/state", "true", http.StatusUnauthorized},
		{"tampered cookie is unauthorized", "/api/state", tampered, http.StatusUnauthorized},
		{"cookie from another password", "/api/state", otherToken, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.expected, rec.Code)
			if tt.expected == http.StatusSeeOther {
				assert.Equal(t, "/login", rec.Header().Get("Location"))
			}
		})
	}
}

func TestSessions_CookieOptions(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, NewSessions("secret").SetSessionCookie(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil)))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, int(sessionDuration.Seconds()), cookies[0].MaxAge)

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}
