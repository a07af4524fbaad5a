package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"facematch/internal/models"
)

// MatchRepository implements repository.MatchRepository for SQLite.
type MatchRepository struct {
	db *DB
}

// NewMatchRepository creates a new SQLite match repository.
func NewMatchRepository(db *DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Insert stores a match and its faces in one transaction and returns the match ID.
func (r *MatchRepository) Insert(match *models.Match) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO matches (label, distance, filename, filesize, matched_at)
		VALUES (?, ?, ?, ?, ?)
	`, match.Label, match.Distance, match.Filename, match.FileSize, match.MatchedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert match: %w", err)
	}

	matchID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if len(match.Faces) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO match_faces (match_id, label, distance, x, y, width, height)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, f := range match.Faces {
			if _, err := stmt.Exec(matchID, f.Label, f.Distance, f.X, f.Y, f.Width, f.Height); err != nil {
				return 0, fmt.Errorf("failed to insert match face: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit match: %w", err)
	}
	match.ID = matchID
	return matchID, nil
}

// GetByID retrieves a match with its faces. Returns nil when absent.
func (r *MatchRepository) GetByID(id int64) (*models.Match, error) {
	return r.getOne(`WHERE id = ?`, id)
}

// GetByFilename retrieves a match by its snapshot filename. Returns nil when absent.
func (r *MatchRepository) GetByFilename(filename string) (*models.Match, error) {
	return r.getOne(`WHERE filename = ?`, filename)
}

func (r *MatchRepository) getOne(where string, arg interface{}) (*models.Match, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var m models.Match
	err := r.db.Conn().QueryRow(`
		SELECT id, label, distance, filename, filesize, matched_at
		FROM matches `+where, arg).Scan(&m.ID, &m.Label, &m.Distance, &m.Filename, &m.FileSize, &m.MatchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	faces, err := r.facesFor(m.ID)
	if err != nil {
		return nil, err
	}
	m.Faces = faces
	return &m, nil
}

// facesFor must be called with the read lock held.
func (r *MatchRepository) facesFor(matchID int64) ([]models.MatchFace, error) {
	rows, err := r.db.Conn().Query(`
		SELECT id, match_id, label, distance, x, y, width, height
		FROM match_faces WHERE match_id = ? ORDER BY id
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match faces: %w", err)
	}
	defer rows.Close()

	var faces []models.MatchFace
	for rows.Next() {
		var f models.MatchFace
		if err := rows.Scan(&f.ID, &f.MatchID, &f.Label, &f.Distance, &f.X, &f.Y, &f.Width, &f.Height); err != nil {
			return nil, fmt.Errorf("failed to scan match face: %w", err)
		}
		faces = append(faces, f)
	}
	return faces, rows.Err()
}

// GetRecent returns matches newest first, without faces.
func (r *MatchRepository) GetRecent(limit, offset int) ([]models.Match, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if limit <= 0 {
		limit = 24
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Conn().Query(`
		SELECT id, label, distance, filename, filesize, matched_at
		FROM matches ORDER BY matched_at DESC, id DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.Label, &m.Distance, &m.Filename, &m.FileSize, &m.MatchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetTotalCount returns the number of stored matches.
func (r *MatchRepository) GetTotalCount() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM matches`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

// CountByLabel returns how many times each label has been matched.
func (r *MatchRepository) CountByLabel() (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT label, COUNT(*) FROM matches GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to count labels: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// DeleteAll removes every match and, through the cascade, every face.
func (r *MatchRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM matches`); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}
	return nil
}
