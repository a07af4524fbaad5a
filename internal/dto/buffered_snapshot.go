package dto

import (
	"time"

	"facematch/internal/models"
)

// BufferedSnapshot holds a lock frame and the faces seen in it before flushing to disk.
type BufferedSnapshot struct {
	Timestamp time.Time
	Label     string
	Distance  float64
	Faces     []models.FaceResult
	Data      []byte
	Attempts  int
}
