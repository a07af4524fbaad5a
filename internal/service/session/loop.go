// Package session runs a face match session: models, camera, reference set
// and the polling loop that locks onto the first recognised face.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"facematch/internal/logger"
	"facematch/internal/models"
	"facematch/internal/service/matcher"
)

// DefaultInterval is the polling period of the matcher loop.
const DefaultInterval = 2 * time.Second

// UnknownPolicy decides how unknown faces interact with a match found in the
// same tick.
type UnknownPolicy int

const (
	// LockWins: any known face in a tick locks, whatever else is visible.
	LockWins UnknownPolicy = iota
	// Legacy: faces are applied in result order; an unknown face after the
	// locking face clears the shown match. The loop stays locked.
	Legacy
)

// ParseUnknownPolicy accepts "lock-wins" (or empty) and "legacy".
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch s {
	case "", "lock-wins":
		return LockWins, nil
	case "legacy":
		return Legacy, nil
	}
	return LockWins, fmt.Errorf("unknown policy %q, want lock-wins or legacy", s)
}

func (p UnknownPolicy) String() string {
	if p == Legacy {
		return "legacy"
	}
	return "lock-wins"
}

// Detector finds all faces in a JPEG frame.
type Detector interface {
	DetectAll(ctx context.Context, frame []byte) ([]models.Detection, error)
}

// FrameSource returns the current video frame.
type FrameSource interface {
	Frame(ctx context.Context) (models.Frame, error)
}

// LoopConfig tunes the matcher loop.
type LoopConfig struct {
	Interval      time.Duration
	DisplayWidth  int
	DisplayHeight int
	Policy        UnknownPolicy
}

// TickResult is what one tick drew: boxes scaled to the display size.
type TickResult struct {
	Faces  []models.FaceResult `json:"faces"`
	Width  int                 `json:"width"`
	Height int                 `json:"height"`
}

// LockEvent is emitted once, when the loop locks.
type LockEvent struct {
	Label    string
	Distance float64
	Frame    models.Frame
	Faces    []models.FaceResult // frame coordinates
	At       time.Time
}

// Loop polls frames until a face matches a reference. It is armed until the
// first match and locked afterwards; a locked loop never ticks again.
type Loop struct {
	frames   FrameSource
	detector Detector
	matcher  *matcher.FaceMatcher
	state    *State
	cfg      LoopConfig
	logger   *logger.Logger

	mu     sync.RWMutex
	onTick []func(TickResult)
	onLock []func(LockEvent)

	locked atomic.Bool
	ticks  atomic.Int64
}

func NewLoop(frames FrameSource, detector Detector, m *matcher.FaceMatcher, state *State, cfg LoopConfig, logger *logger.Logger) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Loop{
		frames:   frames,
		detector: detector,
		matcher:  m,
		state:    state,
		cfg:      cfg,
		logger:   logger,
	}
}

// OnTick registers fn to receive every completed tick.
func (l *Loop) OnTick(fn func(TickResult)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onTick = append(l.onTick, fn)
}

// OnLock registers fn to receive the lock event.
func (l *Loop) OnLock(fn func(LockEvent)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLock = append(l.onLock, fn)
}

// Locked reports whether a match has been confirmed.
func (l *Loop) Locked() bool {
	return l.locked.Load()
}

// Ticks returns how many ticks have run to completion.
func (l *Loop) Ticks() int64 {
	return l.ticks.Load()
}

// Run ticks every interval until the loop locks (nil) or ctx ends (ctx.Err()).
// Ticks run one after another; a slow tick delays the next one instead of
// overlapping it. A failed tick is logged and skipped.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			locked, err := l.Tick(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				l.logger.Error("Match tick failed: %v", err)
				continue
			}
			if locked {
				return nil
			}
		}
	}
}

// Tick runs one detection and match pass and reports whether the loop is
// locked afterwards. State is only touched while ctx is live.
func (l *Loop) Tick(ctx context.Context) (bool, error) {
	if l.locked.Load() {
		return true, nil
	}

	frame, err := l.frames.Frame(ctx)
	if err != nil {
		return false, err
	}

	detections, err := l.detector.DetectAll(ctx, frame.Data)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	outcomes := l.matcher.MatchAll(detections)
	faces := make([]models.FaceResult, len(detections))
	display := make([]models.FaceResult, len(detections))
	for i, d := range detections {
		faces[i] = models.FaceResult{Box: d.Box, Outcome: outcomes[i]}
		display[i] = models.FaceResult{
			Box:     d.Box.Scale(frame.Width, frame.Height, l.cfg.DisplayWidth, l.cfg.DisplayHeight),
			Outcome: outcomes[i],
		}
	}
	l.ticks.Add(1)

	l.mu.RLock()
	tickListeners := l.onTick
	l.mu.RUnlock()
	result := TickResult{Faces: display, Width: l.cfg.DisplayWidth, Height: l.cfg.DisplayHeight}
	for _, fn := range tickListeners {
		fn(result)
	}

	// listeners may have run past a teardown
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if l.cfg.Policy == Legacy {
		return l.applyInOrder(frame, faces), nil
	}
	return l.applyLockWins(frame, faces), nil
}

func (l *Loop) applyLockWins(frame models.Frame, faces []models.FaceResult) bool {
	for _, f := range faces {
		if f.Outcome.Known() {
			l.lock(frame, faces, f.Outcome)
			return true
		}
	}
	l.state.setNoMatch()
	return false
}

func (l *Loop) applyInOrder(frame models.Frame, faces []models.FaceResult) bool {
	if len(faces) == 0 {
		l.state.setNoMatch()
		return false
	}
	for _, f := range faces {
		if f.Outcome.Known() {
			if !l.locked.Load() {
				l.lock(frame, faces, f.Outcome)
			}
			continue
		}
		l.state.setNoMatch()
	}
	return l.locked.Load()
}

func (l *Loop) lock(frame models.Frame, faces []models.FaceResult, outcome models.MatchOutcome) {
	l.locked.Store(true)
	l.state.setMatched(outcome.Label)
	l.logger.Info("First match found: %s", outcome)

	l.mu.RLock()
	lockListeners := l.onLock
	l.mu.RUnlock()
	event := LockEvent{
		Label:    outcome.Label,
		Distance: outcome.Distance,
		Frame:    frame,
		Faces:    faces,
		At:       time.Now(),
	}
	for _, fn := range lockListeners {
		fn(event)
	}
}
