package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"facematch/internal/config"
	"facematch/internal/dto"
	"facematch/internal/handler"
	"facematch/internal/logger"
	"facematch/internal/models"
	"facematch/internal/profiles"
	"facematch/internal/repository/sqlite"
	"facematch/internal/routes"
	"facematch/internal/service/ai"
	"facematch/internal/service/camera"
	"facematch/internal/service/capture"
	"facematch/internal/service/reference"
	"facematch/internal/service/session"
	"facematch/internal/service/storage"
	"facematch/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	matchRepo     *sqlite.MatchRepository
	profiles      *profiles.Store
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	manager       *session.Manager
}

func NewApp(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	policy, err := session.ParseUnknownPolicy(cfg.UnknownPolicy)
	if err != nil {
		log.Close()
		return nil, err
	}

	store, err := profiles.Load(cfg.ProfilesPath)
	if err != nil {
		log.Close()
		return nil, err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, err
	}
	matchRepo := sqlite.NewMatchRepository(db)

	a := &App{
		config:        cfg,
		logger:        log,
		db:            db,
		matchRepo:     matchRepo,
		profiles:      store,
		bufferService: storage.NewBufferService(cfg, log, ai.Annotate, matchRepo),
		hubService:    websocket.NewHubService(log),
	}

	a.manager = session.NewManager(session.Options{
		LoadModels: func(ctx context.Context) (session.Recognizer, error) {
			return ai.LoadRecognizer(ctx, cfg, log)
		},
		OpenCamera: func() (capture.Grabber, error) {
			return camera.Open(cfg.CameraDevice, cfg.CaptureWidth, cfg.CaptureHeight)
		},
		Fetcher:   reference.NewFetcher(cfg.KnownFacesRoot, &http.Client{Timeout: 30 * time.Second}),
		Labels:    cfg.KnownLabels,
		Threshold: cfg.MatchThreshold,
		Loop: session.LoopConfig{
			Interval:      cfg.PollInterval,
			DisplayWidth:  cfg.DisplayWidth,
			DisplayHeight: cfg.DisplayHeight,
			Policy:        policy,
		},
		FrameInterval: cfg.FrameInterval,
	}, session.NewState(), log)

	a.wire()
	return a, nil
}

// wire connects session events to the viewers and the snapshot buffer.
func (a *App) wire() {
	a.manager.OnFrame(a.pushFrame)

	a.manager.OnTick(func(t session.TickResult) {
		a.broadcast(dto.ViewMessage{
			Type:    dto.MessageOverlay,
			Overlay: dto.NewOverlayPayload(t.Width, t.Height, t.Faces),
		})
	})

	a.manager.OnLock(func(e session.LockEvent) {
		a.bufferService.AddSnapshot(e.Frame.Data, e.Label, e.Distance, e.Faces, e.At)
	})

	a.manager.State().Subscribe(func(models.UIState) {
		a.broadcast(dto.ViewMessage{
			Type:  dto.MessageState,
			State: handler.NewStatePayload(a.manager.Status(), a.profiles),
		})
	})
}

func (a *App) pushFrame(frame models.Frame) {
	if a.hubService.GetClientCount() == 0 {
		return
	}
	message := dto.ViewMessage{
		Type: dto.MessageFrame,
		Frame: &dto.FramePayload{
			Image:  base64.StdEncoding.EncodeToString(frame.Data),
			Width:  frame.Width,
			Height: frame.Height,
		},
	}
	data, err := json.Marshal(message)
	if err != nil {
		a.logger.Error("Failed to encode frame: %v", err)
		return
	}
	a.hubService.TryBroadcast(data)
}

func (a *App) broadcast(message dto.ViewMessage) {
	if err := a.hubService.BroadcastJSON(message); err != nil {
		a.logger.Error("Failed to broadcast %s: %v", message.Type, err)
	}
}

// Run serves until ctx is cancelled, then shuts the server, the session and
// the background services down.
func (a *App) Run(ctx context.Context) error {
	defer a.logger.Close()
	defer a.db.Close()

	background, cancel := context.WithCancel(context.Background())
	bufferDone := make(chan struct{})
	go a.hubService.Run(background)
	go func() {
		a.bufferService.Run(background)
		close(bufferDone)
	}()

	router, err := routes.SetupRoutes(routes.Dependencies{
		Config:   a.config,
		Logger:   a.logger,
		Hub:      a.hubService,
		Session:  a.manager,
		Profiles: a.profiles,
		Matches:  a.matchRepo,
	})
	if err != nil {
		cancel()
		<-bufferDone
		return err
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	fmt.Printf("Face Match Server\n")
	fmt.Printf("URL: http://localhost:%d/face-match\n", a.config.Port)
	fmt.Printf("Auth: %t\n", a.config.AuthEnabled())
	fmt.Printf("Known faces: %s %v\n", a.config.KnownFacesRoot, a.config.KnownLabels)
	fmt.Printf("Models: %s\n", a.config.ModelsDirectory)

	a.manager.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Error("HTTP server shutdown: %v", shutdownErr)
	}

	a.manager.Stop()
	cancel()
	<-bufferDone

	a.logger.Info("Face match server stopped")
	return err
}
