package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"facematch/internal/config"
	"facematch/internal/dto"
	"facematch/internal/logger"
	"facematch/internal/models"
	"facematch/internal/repository"
)

// TimestampLayout prefixes every snapshot filename.
const TimestampLayout = "2006-01-02_15-04-05.000"

// maxFlushAttempts is how often a snapshot is tried before it is dropped.
const maxFlushAttempts = 3

// Annotator draws face boxes onto a JPEG frame.
type Annotator func(img []byte, faces []models.FaceResult) ([]byte, error)

// BufferService buffers match snapshots in memory and periodically flushes
// them to disk and to the match repository.
type BufferService struct {
	imagesDir     string
	bufferLimit   int
	flushInterval time.Duration
	images        []dto.BufferedSnapshot
	mu            sync.Mutex
	flushMu       sync.Mutex
	logger        *logger.Logger
	annotate      Annotator
	matchRepo     repository.MatchRepository
}

// NewBufferService creates a BufferService. annotate and matchRepo may be nil.
func NewBufferService(config *config.Config, logger *logger.Logger, annotate Annotator, matchRepo repository.MatchRepository) *BufferService {
	interval := time.Duration(config.ImageBufferFlushInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &BufferService{
		imagesDir:     config.ImageDirectory,
		bufferLimit:   config.ImageBufferLimit,
		flushInterval: interval,
		images:        make([]dto.BufferedSnapshot, 0),
		logger:        logger,
		annotate:      annotate,
		matchRepo:     matchRepo,
	}
}

// Run flushes every interval until ctx ends, then flushes what is left.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushImages()
			return
		case <-ticker.C:
			s.FlushImages()
		}
	}
}

// AddSnapshot queues a lock frame. Snapshots past the buffer limit are dropped.
func (s *BufferService) AddSnapshot(frame []byte, label string, distance float64, faces []models.FaceResult, at time.Time) bool {
	if len(frame) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bufferLimit > 0 && len(s.images) >= s.bufferLimit {
		s.logger.Warning("Snapshot buffer full (%d), dropping match %s", s.bufferLimit, label)
		return false
	}

	s.images = append(s.images, dto.BufferedSnapshot{
		Timestamp: at,
		Label:     label,
		Distance:  distance,
		Faces:     faces,
		Data:      frame,
	})
	s.logger.Info("Buffer size: %d/%d", len(s.images), s.bufferLimit)
	return true
}

// Pending returns how many snapshots wait for the next flush.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// FlushImages writes buffered snapshots to disk and records them. The buffer
// is swapped out first, so AddSnapshot never waits on disk or drawing.
// Snapshots that fail are put back for the next flush, up to
// maxFlushAttempts times.
func (s *BufferService) FlushImages() int {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.images
	s.images = make([]dto.BufferedSnapshot, 0, len(batch))
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		s.requeue(batch)
		return 0
	}

	savedCount := 0
	var failed []dto.BufferedSnapshot
	for _, image := range batch {
		if err := s.save(image); err != nil {
			image.Attempts++
			if image.Attempts >= maxFlushAttempts {
				s.logger.Error("Giving up on %s snapshot after %d attempts: %v", image.Label, image.Attempts, err)
				continue
			}
			s.logger.Error("Error saving %s snapshot, will retry: %v", image.Label, err)
			failed = append(failed, image)
			continue
		}
		savedCount++
	}

	s.requeue(failed)
	s.logger.Info("Flushed %d snapshots to disk", savedCount)
	return savedCount
}

// requeue puts failed snapshots back ahead of the ones added meanwhile.
func (s *BufferService) requeue(failed []dto.BufferedSnapshot) {
	if len(failed) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(failed, s.images...)
}

func (s *BufferService) save(image dto.BufferedSnapshot) error {
	data := image.Data
	if s.annotate != nil {
		annotated, err := s.annotate(image.Data, image.Faces)
		if err != nil {
			s.logger.Warning("Failed to draw faces on %s snapshot: %v", image.Label, err)
		} else {
			data = annotated
		}
	}

	filename := SnapshotFilename(image.Timestamp, image.Label)
	fullpath := filepath.Join(s.imagesDir, filename)

	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	if s.matchRepo == nil {
		return nil
	}

	if existing, err := s.matchRepo.GetByFilename(filename); err == nil && existing != nil {
		return nil
	}

	match := &models.Match{
		Label:     image.Label,
		Distance:  image.Distance,
		Filename:  filename,
		FileSize:  int64(len(data)),
		MatchedAt: image.Timestamp,
	}
	for _, f := range image.Faces {
		match.Faces = append(match.Faces, models.MatchFace{
			Label:    f.Outcome.Label,
			Distance: f.Outcome.Distance,
			X:        f.Box.X,
			Y:        f.Box.Y,
			Width:    f.Box.Width,
			Height:   f.Box.Height,
		})
	}
	if _, err := s.matchRepo.Insert(match); err != nil {
		return fmt.Errorf("failed to record %s: %w", filename, err)
	}
	return nil
}

// SnapshotFilename names the file a snapshot is written to.
func SnapshotFilename(at time.Time, label string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '.':
			return '-'
		}
		return r
	}, label)
	return fmt.Sprintf("%s_%s.jpg", at.Format(TimestampLayout), safe)
}
