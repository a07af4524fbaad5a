package routes

import (
	"io/fs"
	"net/http"
	"strings"

	"facematch/internal/config"
	"facematch/internal/handler"
	"facematch/internal/logger"
	"facematch/internal/middleware"
	"facematch/internal/profiles"
	"facematch/internal/repository"
	"facematch/internal/service/websocket"
	"facematch/internal/web"
)

// Dependencies are the services the routes hand to their handlers.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Hub      *websocket.HubService
	Session  handler.Session
	Profiles *profiles.Store
	Matches  repository.MatchRepository
}

// dynamicHTMLHandler serves /path as static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(pages fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")

		if path == "" {
			path = "index"
		}

		name := path + ".html"
		if _, err := fs.Stat(pages, name); err != nil {
			http.NotFound(w, r)
			return
		}

		http.ServeFileFS(w, r, pages, name)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(deps Dependencies) (http.Handler, error) {
	pages, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	cfg, log := deps.Config, deps.Logger

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(pages)))

	// API endpoints
	welcome := func() ([]byte, error) { return handler.StateMessage(deps.Session, deps.Profiles) }
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(deps.Hub, welcome, log))
	mux.HandleFunc("/api/state", handler.GetStateHandler(deps.Session, deps.Profiles, log))
	mux.HandleFunc("/api/session/restart", handler.RestartSessionHandler(deps.Session, log))
	mux.HandleFunc("/api/matches", handler.GetMatchesHandler(deps.Matches, deps.Profiles, log))
	mux.HandleFunc("/api/matches/snapshot", handler.ViewSnapshotHandler(cfg))
	mux.HandleFunc("/api/matches/clear", handler.ClearMatchesHandler(cfg, deps.Matches, log))

	// Log endpoints
	for _, level := range []struct{ path, file string }{
		{"info", logger.InfoFile},
		{"warning", logger.WarningFile},
		{"error", logger.ErrorFile},
	} {
		mux.HandleFunc("/logs/"+level.path, handler.ShowLogsHandler(log, level.file))
		mux.HandleFunc("/logs/"+level.path+"/clear", handler.ClearLogsHandler(log, level.file))
	}

	// Auth endpoints
	var sessions *middleware.Sessions
	if cfg.AuthEnabled() {
		sessions = middleware.NewSessions(cfg.Password)
	}
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, sessions, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /booking -> static/booking.html
	mux.HandleFunc("/", dynamicHTMLHandler(pages))

	// Apply middleware
	return middleware.AuthMiddleware(sessions, mux), nil
}
