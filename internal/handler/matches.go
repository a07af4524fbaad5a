package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"facematch/internal/config"
	"facematch/internal/dto"
	"facematch/internal/logger"
	"facematch/internal/profiles"
	"facematch/internal/repository"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
	maxPage         = 100000
)

// GetMatchesHandler returns a page of recorded matches, newest first.
func GetMatchesHandler(matchRepo repository.MatchRepository, store *profiles.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := min(atoiDefault(q.Get("page"), 1), maxPage)
		limit := min(atoiDefault(q.Get("limit"), defaultPageSize), maxPageSize)

		matches, err := matchRepo.GetRecent(limit, (page-1)*limit)
		if err != nil {
			logger.Error("Error querying matches from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := matchRepo.GetTotalCount()
		if err != nil {
			logger.Error("Error counting matches: %v", err)
			totalCount = len(matches)
		}

		byLabel, err := matchRepo.CountByLabel()
		if err != nil {
			logger.Error("Error counting matches by label: %v", err)
			byLabel = map[string]int{}
		}

		infos := make([]dto.MatchInfo, 0, len(matches))
		for _, m := range matches {
			info := dto.MatchInfo{
				ID:        m.ID,
				Label:     m.Label,
				Distance:  m.Distance,
				Filename:  m.Filename,
				Faces:     len(m.Faces),
				Date:      m.MatchedAt,
				TimeOfDay: m.MatchedAt,
			}
			if profile, ok := store.Lookup(m.Label); ok {
				info.Name = profile.Name
			}
			infos = append(infos, info)
		}

		writeJSON(w, logger, http.StatusOK, dto.MatchesData{
			Matches:     infos,
			Total:       totalCount,
			ByLabel:     byLabel,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// ViewSnapshotHandler serves a single snapshot named by the "file" query parameter.
func ViewSnapshotHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := r.URL.Query().Get("file")
		if !validSnapshotName(file) {
			http.Error(w, "Invalid file parameter", http.StatusBadRequest)
			return
		}
		filePath := filepath.Join(cfg.ImageDirectory, file)
		if _, err := os.Stat(filePath); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filePath)
	}
}

// ClearMatchesHandler deletes every snapshot file and clears the match history.
func ClearMatchesHandler(cfg *config.Config, matchRepo repository.MatchRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		files, err := os.ReadDir(cfg.ImageDirectory)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading snapshot directory: %v", err)
			http.Error(w, "Unable to read snapshot directory", http.StatusInternalServerError)
			return
		}

		for _, file := range files {
			if file.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(cfg.ImageDirectory, file.Name())); err != nil {
				logger.Error("Error deleting file %s: %v", file.Name(), err)
			}
		}

		if err := matchRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing match history: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Match history cleared from directory: %s", cfg.ImageDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}

func validSnapshotName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), ".jpg")
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
