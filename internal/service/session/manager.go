package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"facematch/internal/logger"
	"facematch/internal/models"
	"facematch/internal/service/capture"
	"facematch/internal/service/matcher"
	"facematch/internal/service/reference"
)

// ErrNotRunning is returned by Restart before Start or after Stop.
var ErrNotRunning = errors.New("session manager is not running")

// Phase is where the current session is in its startup sequence.
type Phase string

const (
	PhaseStopped            Phase = "stopped"
	PhaseLoadingModels      Phase = "loading-models"
	PhaseAcquiringCamera    Phase = "acquiring-camera"
	PhaseWaitingPlayback    Phase = "waiting-playback"
	PhaseBuildingReferences Phase = "building-references"
	PhaseArmed              Phase = "armed"
	PhaseLocked             Phase = "locked"
	PhaseIdle               Phase = "idle" // no reference faces, loop never started
	PhaseFailed             Phase = "failed"
)

// Recognizer is the face model used for both reference images and frames.
type Recognizer interface {
	Detector
	reference.Detector
	Close()
}

// ModelLoader loads the recognizer models.
type ModelLoader func(ctx context.Context) (Recognizer, error)

// CameraOpener acquires the capture device.
type CameraOpener func() (capture.Grabber, error)

// Options wires a Manager.
type Options struct {
	LoadModels    ModelLoader
	OpenCamera    CameraOpener
	Fetcher       reference.ImageFetcher
	Labels        []string
	Threshold     float64
	Loop          LoopConfig
	FrameInterval time.Duration
}

// Manager runs one session at a time: models, then camera, then on playback
// start the reference set, then the matcher loop. Models and camera survive
// a Restart; the reference set, loop and UI state do not.
type Manager struct {
	opts   Options
	state  *State
	logger *logger.Logger

	restartMu sync.Mutex

	mu         sync.Mutex
	root       context.Context
	rootCancel context.CancelFunc
	cancel     context.CancelFunc
	recognizer Recognizer
	stream     *capture.Stream
	loop       *Loop
	phase      Phase
	lastLock   *LockEvent

	onFrame []func(models.Frame)
	onTick  []func(TickResult)
	onLock  []func(LockEvent)

	wg sync.WaitGroup
}

func NewManager(opts Options, state *State, logger *logger.Logger) *Manager {
	return &Manager{
		opts:   opts,
		state:  state,
		logger: logger,
		phase:  PhaseStopped,
	}
}

// OnFrame registers fn to receive every camera frame. Register before Start.
func (m *Manager) OnFrame(fn func(models.Frame)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFrame = append(m.onFrame, fn)
}

// OnTick registers fn to receive every matcher tick. Register before Start.
func (m *Manager) OnTick(fn func(TickResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTick = append(m.onTick, fn)
}

// OnLock registers fn to receive lock events. Register before Start.
func (m *Manager) OnLock(fn func(LockEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLock = append(m.onLock, fn)
}

// State returns the UI state written by the loop.
func (m *Manager) State() *State {
	return m.state
}

// Phase returns the current session phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Start launches the first session. Cancelling ctx stops everything.
func (m *Manager) Start(ctx context.Context) {
	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	m.mu.Lock()
	if m.root != nil {
		m.mu.Unlock()
		return
	}
	m.root, m.rootCancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.startSession()
}

// Restart tears the current session down and starts a fresh one, the
// equivalent of remounting the page.
func (m *Manager) Restart() error {
	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	m.mu.Lock()
	if m.root == nil || m.root.Err() != nil {
		m.mu.Unlock()
		return ErrNotRunning
	}
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	m.state.Reset()
	m.logger.Info("Restarting face match session")
	m.startSession()
	return nil
}

// Stop cancels the session, stops the camera and releases the models.
func (m *Manager) Stop() {
	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	m.mu.Lock()
	rootCancel := m.rootCancel
	m.mu.Unlock()
	if rootCancel == nil {
		return
	}
	rootCancel()
	m.wg.Wait()

	m.mu.Lock()
	stream := m.stream
	rec := m.recognizer
	m.stream = nil
	m.recognizer = nil
	m.phase = PhaseStopped
	m.mu.Unlock()

	if stream != nil {
		<-stream.Done()
	}
	if rec != nil {
		rec.Close()
	}
	m.logger.Info("Face match session stopped")
}

// Status is what the presentation layer reads about the current session.
type Status struct {
	State models.UIState
	Phase Phase
	Ticks int64
}

// Status returns the UI state, phase and tick count together.
func (m *Manager) Status() Status {
	return Status{
		State: m.state.Snapshot(),
		Phase: m.Phase(),
		Ticks: m.Ticks(),
	}
}

// Ticks returns how many matcher ticks the current session has run.
func (m *Manager) Ticks() int64 {
	m.mu.Lock()
	loop := m.loop
	m.mu.Unlock()
	if loop == nil {
		return 0
	}
	return loop.Ticks()
}

// LastLock returns the most recent lock event of the current session.
func (m *Manager) LastLock() (LockEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastLock == nil {
		return LockEvent{}, false
	}
	return *m.lastLock, true
}

func (m *Manager) startSession() {
	m.mu.Lock()
	ctx, cancel := context.WithCancel(m.root)
	m.cancel = cancel
	m.loop = nil
	m.lastLock = nil
	m.phase = PhaseLoadingModels
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ctx)
}

func (m *Manager) setPhase(p Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = p
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	m.setPhase(PhaseLoadingModels)
	rec, err := m.ensureModels(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("Failed to load models: %v", err)
			m.setPhase(PhaseFailed)
		}
		return
	}

	m.setPhase(PhaseAcquiringCamera)
	stream, err := m.ensureCamera()
	if err != nil {
		m.logger.Error("Error accessing webcam: %v", err)
		m.setPhase(PhaseFailed)
		return
	}

	m.setPhase(PhaseWaitingPlayback)
	select {
	case <-ctx.Done():
		return
	case <-stream.Done():
		m.logger.Error("Webcam stopped before playback started")
		m.setPhase(PhaseFailed)
		return
	case <-stream.Playing():
	}

	m.setPhase(PhaseBuildingReferences)
	refs, err := reference.NewBuilder(m.opts.Fetcher, rec, m.opts.Labels, m.logger).Build(ctx)
	if err != nil {
		return
	}
	if len(refs) == 0 {
		m.logger.Warning("No known faces loaded, face matching disabled")
		m.setPhase(PhaseIdle)
		return
	}

	fm, err := matcher.New(refs, m.opts.Threshold)
	if err != nil {
		m.logger.Error("Failed to build face matcher: %v", err)
		m.setPhase(PhaseFailed)
		return
	}

	loop := NewLoop(stream, rec, fm, m.state, m.opts.Loop, m.logger)
	m.mu.Lock()
	for _, fn := range m.onTick {
		loop.OnTick(fn)
	}
	for _, fn := range m.onLock {
		loop.OnLock(fn)
	}
	m.loop = loop
	m.phase = PhaseArmed
	m.mu.Unlock()

	loop.OnLock(func(e LockEvent) {
		m.mu.Lock()
		m.lastLock = &e
		m.mu.Unlock()
	})

	if err := loop.Run(ctx); err == nil {
		m.setPhase(PhaseLocked)
	}
}

func (m *Manager) ensureModels(ctx context.Context) (Recognizer, error) {
	m.mu.Lock()
	rec := m.recognizer
	m.mu.Unlock()
	if rec != nil {
		return rec, nil
	}

	rec, err := m.opts.LoadModels(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.recognizer = rec
	m.mu.Unlock()
	return rec, nil
}

// ensureCamera reuses a playing stream and re-acquires a stopped one.
func (m *Manager) ensureCamera() (*capture.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		select {
		case <-m.stream.Done():
			m.stream = nil
		default:
			return m.stream, nil
		}
	}

	grabber, err := m.opts.OpenCamera()
	if err != nil {
		return nil, err
	}

	stream := capture.NewStream(grabber, m.opts.FrameInterval, m.logger)
	for _, fn := range m.onFrame {
		stream.OnFrame(fn)
	}
	stream.Start(m.root)
	m.stream = stream
	return stream, nil
}
