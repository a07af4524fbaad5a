package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"facematch/internal/models"
	"facematch/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ repository.MatchRepository = (*MatchRepository)(nil)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "data", "test.db")
	db, err := New(dbPath)
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { db.Close() })

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file should exist")
	return db
}

func newMatch(label, filename string, at time.Time) *models.Match {
	return &models.Match{
		Label:     label,
		Distance:  0.31,
		Filename:  filename,
		FileSize:  2048,
		MatchedAt: at,
		Faces: []models.MatchFace{
			{Label: label, Distance: 0.31, X: 10, Y: 20, Width: 80, Height: 80},
			{Label: models.UnknownLabel, Distance: 0.74, X: 200, Y: 30, Width: 60, Height: 60},
		},
	}
}

func TestMatchRepository_InsertAndGet(t *testing.T) {
	repo := NewMatchRepository(setupTestDB(t))
	at := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	id, err := repo.Insert(newMatch("user1", "match_1.jpg", at))
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "user1", got.Label)
	assert.InDelta(t, 0.31, got.Distance, 1e-9)
	assert.True(t, got.MatchedAt.Equal(at))
	require.Len(t, got.Faces, 2)
	assert.Equal(t, models.UnknownLabel, got.Faces[1].Label)
	assert.Equal(t, id, got.Faces[0].MatchID)

	byName, err := repo.GetByFilename("match_1.jpg")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, id, byName.ID)
}

func TestMatchRepository_NotFound(t *testing.T) {
	repo := NewMatchRepository(setupTestDB(t))

	got, err := repo.GetByID(42)
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByFilename("nope.jpg")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatchRepository_DuplicateFilename(t *testing.T) {
	repo := NewMatchRepository(setupTestDB(t))
	now := time.Now()

	_, err := repo.Insert(newMatch("user1", "dup.jpg", now))
	require.NoError(t, err)

	_, err = repo.Insert(newMatch("user2", "dup.jpg", now))
	assert.Error(t, err)

	count, err := repo.GetTotalCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMatchRepository_RecentAndCounts(t *testing.T) {
	repo := NewMatchRepository(setupTestDB(t))
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	labels := []string{"user1", "user2", "user1", "user3"}
	for i, label := range labels {
		_, err := repo.Insert(newMatch(label, fmt.Sprintf("m%d.jpg", i), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	recent, err := repo.GetRecent(2, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "m3.jpg", recent[0].Filename)
	assert.Equal(t, "m2.jpg", recent[1].Filename)

	page2, err := repo.GetRecent(2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "m0.jpg", page2[1].Filename)

	counts, err := repo.CountByLabel()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"user1": 2, "user2": 1, "user3": 1}, counts)
}

func TestMatchRepository_DeleteAllCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMatchRepository(db)

	_, err := repo.Insert(newMatch("user1", "a.jpg", time.Now()))
	require.NoError(t, err)
	require.NoError(t, repo.DeleteAll())

	var faces int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM match_faces`).Scan(&faces))
	assert.Zero(t, faces)

	count, err := repo.GetTotalCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMatchRepository_ConcurrentInserts(t *testing.T) {
	repo := NewMatchRepository(setupTestDB(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := repo.Insert(newMatch("user1", fmt.Sprintf("concurrent_%d.jpg", idx), time.Now()))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := repo.GetTotalCount()
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}
