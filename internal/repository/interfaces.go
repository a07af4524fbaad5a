package repository

import (
	"facematch/internal/models"
)

// MatchRepository stores lock events and the faces visible when they happened.
type MatchRepository interface {
	// Create operations
	Insert(match *models.Match) (int64, error)

	// Read operations
	GetByID(id int64) (*models.Match, error)
	GetByFilename(filename string) (*models.Match, error)
	GetRecent(limit, offset int) ([]models.Match, error)
	GetTotalCount() (int, error)
	CountByLabel() (map[string]int, error)

	// Delete operations
	DeleteAll() error
}
