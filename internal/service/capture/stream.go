// Package capture turns a frame grabber into a playing video stream: the
// latest frame is always available and the first frame marks playback start.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"facematch/internal/logger"
	"facematch/internal/models"
)

// MaxConsecutiveErrors stops playback when the device keeps failing.
const MaxConsecutiveErrors = 50

// ErrNotPlaying is returned by Frame before the first frame has arrived.
var ErrNotPlaying = errors.New("stream is not playing")

// Grabber delivers frames from a capture device. Grab may block until a frame
// is available.
type Grabber interface {
	Grab() (models.Frame, error)
	Close() error
}

// Stream plays frames from a Grabber.
type Stream struct {
	grabber       Grabber
	logger        *logger.Logger
	frameInterval time.Duration

	mu      sync.RWMutex
	latest  models.Frame
	onFrame []func(models.Frame)

	playing  chan struct{}
	playOnce sync.Once
	done     chan struct{}
	started  bool
}

// NewStream wraps g. frameInterval paces grabbing for sources that do not
// block on their own; zero grabs back to back.
func NewStream(g Grabber, frameInterval time.Duration, logger *logger.Logger) *Stream {
	return &Stream{
		grabber:       g,
		logger:        logger,
		frameInterval: frameInterval,
		playing:       make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// OnFrame registers fn to receive every grabbed frame. Register before Start.
func (s *Stream) OnFrame(fn func(models.Frame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = append(s.onFrame, fn)
}

// Start begins playback in a goroutine. The grabber is closed when ctx is
// cancelled or the device fails repeatedly.
func (s *Stream) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.run(ctx)
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		if err := s.grabber.Close(); err != nil {
			s.logger.Error("Error closing camera: %v", err)
		}
	}()

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := s.grabber.Grab()
		if err != nil || frame.Empty() {
			failures++
			if failures >= MaxConsecutiveErrors {
				s.logger.Error("Camera stopped delivering frames: %v", err)
				return
			}
		} else {
			failures = 0
			s.publish(frame)
		}

		if s.frameInterval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.frameInterval):
			}
		}
	}
}

func (s *Stream) publish(frame models.Frame) {
	s.mu.Lock()
	s.latest = frame
	listeners := s.onFrame
	s.mu.Unlock()

	s.playOnce.Do(func() {
		s.logger.Info("Webcam video started (%dx%d)", frame.Width, frame.Height)
		close(s.playing)
	})

	for _, fn := range listeners {
		fn(frame)
	}
}

// Playing is closed when the first frame has been grabbed.
func (s *Stream) Playing() <-chan struct{} {
	return s.playing
}

// Done is closed when playback has stopped.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Frame returns the most recent frame.
func (s *Stream) Frame(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest.Empty() {
		return models.Frame{}, ErrNotPlaying
	}
	return s.latest, nil
}
