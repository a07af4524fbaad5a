package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"facematch/internal/dto"
	"facematch/internal/logger"
	"facematch/internal/profiles"
	"facematch/internal/service/session"
)

// Session is the part of the session manager the pages talk to.
type Session interface {
	Status() session.Status
	Restart() error
}

// NewStatePayload builds what the pages render. The profile panel is only
// filled when the matched label has a profile; a matched label without one
// shows neither the panel nor the banner.
func NewStatePayload(status session.Status, store *profiles.Store) *dto.StatePayload {
	payload := &dto.StatePayload{
		MatchedLabel: status.State.MatchedLabel,
		NoMatch:      status.State.NoMatch,
		Phase:        string(status.Phase),
		Ticks:        status.Ticks,
	}
	if status.State.Matched() {
		if profile, ok := store.Lookup(status.State.MatchedLabel); ok {
			payload.Profile = &profile
		}
	}
	return payload
}

// StateMessage encodes the current state as a websocket view message.
func StateMessage(sess Session, store *profiles.Store) ([]byte, error) {
	return json.Marshal(dto.ViewMessage{
		Type:  dto.MessageState,
		State: NewStatePayload(sess.Status(), store),
	})
}

// GetStateHandler handles GET /api/state.
func GetStateHandler(sess Session, store *profiles.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, http.StatusOK, NewStatePayload(sess.Status(), store))
	}
}

// RestartSessionHandler handles POST /api/session/restart, the equivalent of
// reloading the page: the reference set and loop start over.
func RestartSessionHandler(sess Session, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := sess.Restart(); err != nil {
			if errors.Is(err, session.ErrNotRunning) {
				http.Error(w, "Session not running", http.StatusServiceUnavailable)
				return
			}
			logger.Error("Failed to restart session: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		logger.Info("Session restarted from %s", r.RemoteAddr)
		w.WriteHeader(http.StatusAccepted)
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
