package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"facematch/internal/config"
	"facematch/internal/logger"
	"facematch/internal/models"
	"facematch/internal/service/bundle"

	"github.com/Kagami/go-face"
)

// ErrNoFace is returned when an image contains no detectable face.
var ErrNoFace = errors.New("no face detected")

// ErrClosed is returned after the recognizer has been released.
var ErrClosed = errors.New("recognizer closed")

// Recognizer runs detection, landmarks and descriptor extraction through dlib.
// Calls are serialized; the underlying dlib objects are not shared safely.
type Recognizer struct {
	rec    *face.Recognizer
	mu     sync.Mutex
	logger *logger.Logger
}

// LoadRecognizer makes sure the model bundles are present and loads them.
func LoadRecognizer(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Recognizer, error) {
	fetched, err := bundle.Ensure(ctx, http.DefaultClient, cfg.ModelsDirectory, cfg.ModelsBaseURL)
	for _, b := range fetched {
		logger.Info("Fetched %s model: %s", b.Name, b.File)
	}
	if err != nil {
		return nil, err
	}

	rec, err := face.NewRecognizer(cfg.ModelsDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to load models from %s: %w", cfg.ModelsDirectory, err)
	}

	logger.Info("Models loaded from %s", cfg.ModelsDirectory)
	return &Recognizer{rec: rec, logger: logger}, nil
}

// DetectAll finds every face in a JPEG frame together with its descriptor.
// An empty result is not an error.
func (r *Recognizer) DetectAll(ctx context.Context, frame []byte) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec == nil {
		return nil, ErrClosed
	}

	faces, err := r.rec.Recognize(frame)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	detections := make([]models.Detection, len(faces))
	for i, f := range faces {
		rect := f.Rectangle
		detections[i] = models.Detection{
			Box: models.Box{
				X:      rect.Min.X,
				Y:      rect.Min.Y,
				Width:  rect.Dx(),
				Height: rect.Dy(),
			},
			Descriptor: models.Descriptor(f.Descriptor),
		}
	}
	return detections, nil
}

// DetectSingle returns the descriptor of the most prominent face in img.
func (r *Recognizer) DetectSingle(ctx context.Context, img []byte) (models.Descriptor, error) {
	detections, err := r.DetectAll(ctx, img)
	if err != nil {
		return models.Descriptor{}, err
	}
	best, ok := models.Largest(detections)
	if !ok {
		return models.Descriptor{}, ErrNoFace
	}
	return best.Descriptor, nil
}

// Close releases the dlib models.
func (r *Recognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec != nil {
		r.rec.Close()
		r.rec = nil
	}
}
