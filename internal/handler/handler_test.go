package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"facematch/internal/config"
	"facematch/internal/dto"
	"facematch/internal/logger"
	"facematch/internal/middleware"
	"facematch/internal/models"
	"facematch/internal/profiles"
	"facematch/internal/repository/sqlite"
	"facematch/internal/service/session"
	"facematch/internal/service/websocket"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	status     session.Status
	restartErr error
	restarts   int
}

func (f *fakeSession) Status() session.Status { return f.status }

func (f *fakeSession) Restart() error {
	f.restarts++
	return f.restartErr
}

func defaultStore(t *testing.T) *profiles.Store {
	t.Helper()
	store, err := profiles.Load("")
	require.NoError(t, err)
	return store
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) dto.StatePayload {
	t.Helper()
	var payload dto.StatePayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestGetStateHandler(t *testing.T) {
	store := defaultStore(t)

	tests := []struct {
		name        string
		state       models.UIState
		wantProfile bool
		wantNoMatch bool
	}{
		{"initial", models.UIState{}, false, false},
		{"no match yet", models.UIState{NoMatch: true}, false, true},
		{"matched with profile", models.UIState{MatchedLabel: "user1"}, true, false},
		{"matched without profile", models.UIState{MatchedLabel: "visitor"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{status: session.Status{State: tt.state, Phase: session.PhaseArmed, Ticks: 3}}
			rec := httptest.NewRecorder()
			GetStateHandler(sess, store, logger.NewDiscard())(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			payload := decodeState(t, rec)
			assert.Equal(t, tt.wantNoMatch, payload.NoMatch)
			assert.Equal(t, tt.state.MatchedLabel, payload.MatchedLabel)
			assert.Equal(t, "armed", payload.Phase)
			assert.Equal(t, int64(3), payload.Ticks)
			if tt.wantProfile {
				require.NotNil(t, payload.Profile)
				assert.Equal(t, "1", payload.Profile.ID)
				assert.Equal(t, "john@example.com", payload.Profile.Email)
			} else {
				assert.Nil(t, payload.Profile)
			}
		})
	}
}

func TestGetStateHandler_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	GetStateHandler(&fakeSession{}, nil, logger.NewDiscard())(rec, httptest.NewRequest(http.MethodPost, "/api/state", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRestartSessionHandler(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		err      error
		expected int
	}{
		{"restarts", http.MethodPost, nil, http.StatusAccepted},
		{"not running", http.MethodPost, session.ErrNotRunning, http.StatusServiceUnavailable},
		{"other failure", http.MethodPost, errors.New("boom"), http.StatusInternalServerError},
		{"wrong method", http.MethodGet, nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{restartErr: tt.err}
			rec := httptest.NewRecorder()
			RestartSessionHandler(sess, logger.NewDiscard())(rec, httptest.NewRequest(tt.method, "/api/session/restart", nil))
			assert.Equal(t, tt.expected, rec.Code)
			if tt.method == http.MethodGet {
				assert.Zero(t, sess.restarts)
			}
		})
	}
}

func setupMatches(t *testing.T) (*config.Config, *sqlite.MatchRepository) {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{ImageDirectory: filepath.Join(dir, "images")}
	require.NoError(t, os.MkdirAll(cfg.ImageDirectory, 0755))
	return cfg, sqlite.NewMatchRepository(db)
}

func TestGetMatchesHandler(t *testing.T) {
	_, repo := setupMatches(t)
	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	for i, label := range []string{"user1", "user2", "user1"} {
		_, err := repo.Insert(&models.Match{
			Label:     label,
			Distance:  0.3,
			Filename:  label + "_" + string(rune('a'+i)) + ".jpg",
			MatchedAt: base.Add(time.Duration(i) * time.Minute),
			Faces:     []models.MatchFace{{Label: label, Width: 10, Height: 10}},
		})
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	GetMatchesHandler(repo, defaultStore(t), logger.NewDiscard())(rec, httptest.NewRequest(http.MethodGet, "/api/matches?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Matches []struct {
			Label     string `json:"label"`
			Name      string `json:"name"`
			Faces     int    `json:"faces"`
			Date      string `json:"date"`
			TimeOfDay string `json:"timeOfDay"`
		} `json:"matches"`
		Total      int            `json:"total"`
		ByLabel    map[string]int `json:"byLabel"`
		TotalPages int            `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 2, body.TotalPages)
	assert.Equal(t, map[string]int{"user1": 2, "user2": 1}, body.ByLabel)
	require.Len(t, body.Matches, 2)
	assert.Equal(t, "user1", body.Matches[0].Label)
	assert.Equal(t, "John Carter", body.Matches[0].Name)
	assert.Equal(t, 1, body.Matches[0].Faces)
	assert.Equal(t, "01-03-2024", body.Matches[0].Date)
	assert.Equal(t, "09:32:00", body.Matches[0].TimeOfDay)
}

func TestGetMatchesHandler_BoundsPaging(t *testing.T) {
	_, repo := setupMatches(t)
	_, err := repo.Insert(&models.Match{Label: "user1", Filename: "a.jpg", MatchedAt: time.Now()})
	require.NoError(t, err)

	h := GetMatchesHandler(repo, defaultStore(t), logger.NewDiscard())

	tests := []struct {
		name     string
		query    string
		page     int
		pageSize int
		matches  int
	}{
		{"huge limit is clamped", "limit=100000", 1, maxPageSize, 1},
		{"huge page is capped", "page=9223372036854775807&limit=100", maxPage, maxPageSize, 0},
		{"negative values fall back", "page=-3&limit=-1", 1, defaultPageSize, 1},
		{"garbage falls back", "page=x&limit=y", 1, defaultPageSize, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/api/matches?"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Matches     []json.RawMessage `json:"matches"`
				CurrentPage int               `json:"currentPage"`
				PageSize    int               `json:"pageSize"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.page, body.CurrentPage)
			assert.Equal(t, tt.pageSize, body.PageSize)
			assert.Len(t, body.Matches, tt.matches)
		})
	}
}

func TestViewSnapshotHandler(t *testing.T) {
	cfg, _ := setupMatches(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ImageDirectory, "snap_user1.jpg"), []byte("jpeg"), 0644))

	tests := []struct {
		name     string
		file     string
		expected int
	}{
		{"existing", "snap_user1.jpg", http.StatusOK},
		{"missing", "other.jpg", http.StatusNotFound},
		{"traversal", "../test.db", http.StatusBadRequest},
		{"nested", "a/b.jpg", http.StatusBadRequest},
		{"not a snapshot", "notes.txt", http.StatusBadRequest},
		{"empty", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/matches/snapshot?file="+url.QueryEscape(tt.file), nil)
			ViewSnapshotHandler(cfg)(rec, req)
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestClearMatchesHandler(t *testing.T) {
	cfg, repo := setupMatches(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ImageDirectory, "snap.jpg"), []byte("jpeg"), 0644))
	_, err := repo.Insert(&models.Match{Label: "user1", Filename: "snap.jpg", MatchedAt: time.Now()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	ClearMatchesHandler(cfg, repo, logger.NewDiscard())(rec, httptest.NewRequest(http.MethodPost, "/api/matches/clear", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	entries, err := os.ReadDir(cfg.ImageDirectory)
	require.NoError(t, err)
	assert.Empty(t, entries)

	count, err := repo.GetTotalCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLogsHandlers(t *testing.T) {
	l, err := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	require.NoError(t, err)
	defer l.Close()
	l.Warning("no face found in image: user3.jpeg")

	rec := httptest.NewRecorder()
	ShowLogsHandler(l, logger.WarningFile)(rec, httptest.NewRequest(http.MethodGet, "/logs/warning", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user3.jpeg")
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	ClearLogsHandler(l, logger.WarningFile)(rec, httptest.NewRequest(http.MethodPost, "/logs/warning/clear", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	ShowLogsHandler(l, logger.WarningFile)(rec, httptest.NewRequest(http.MethodGet, "/logs/warning", nil))
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	ShowLogsHandler(logger.NewDiscard(), logger.InfoFile)(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginHandler(t *testing.T) {
	cfg := &config.Config{Password: "secret"}
	sessions := middleware.NewSessions(cfg.Password)
	h := LoginHandler(cfg, sessions, logger.NewDiscard())

	form := func(password string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(url.Values{"password": {password}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}

	rec := httptest.NewRecorder()
	h(rec, form("wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = httptest.NewRecorder()
	h(rec, form("secret"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/face-match", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.AuthCookie, cookies[0].Name)
	assert.NotEqual(t, "true", cookies[0].Value)
	authed := httptest.NewRequest(http.MethodGet, "/face-match", nil)
	authed.AddCookie(cookies[0])
	assert.True(t, sessions.Authenticated(authed))

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLogoutHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LogoutHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestViewWebsocketHandler_SendsStateFirst(t *testing.T) {
	hub := websocket.NewHubService(logger.NewDiscard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	sess := &fakeSession{status: session.Status{State: models.UIState{MatchedLabel: "user2"}, Phase: session.PhaseLocked}}
	store := defaultStore(t)
	welcome := func() ([]byte, error) { return StateMessage(sess, store) }

	srv := httptest.NewServer(ViewWebsocketHandler(hub, welcome, logger.NewDiscard()))
	defer srv.Close()

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg dto.ViewMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, dto.MessageState, msg.Type)
	require.NotNil(t, msg.State)
	assert.Equal(t, "user2", msg.State.MatchedLabel)
	require.NotNil(t, msg.State.Profile)
	assert.Equal(t, "Jane Doe", msg.State.Profile.Name)
}
