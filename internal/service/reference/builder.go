// Package reference builds the labelled descriptor set faces are matched against.
package reference

import (
	"context"

	"facematch/internal/logger"
	"facematch/internal/models"

	"golang.org/x/sync/errgroup"
)

// Detector extracts the descriptor of the single face in a reference image.
type Detector interface {
	DetectSingle(ctx context.Context, img []byte) (models.Descriptor, error)
}

// Builder turns labels into reference descriptors.
type Builder struct {
	fetcher  ImageFetcher
	detector Detector
	labels   []string
	logger   *logger.Logger
}

func NewBuilder(fetcher ImageFetcher, detector Detector, labels []string, logger *logger.Logger) *Builder {
	return &Builder{
		fetcher:  fetcher,
		detector: detector,
		labels:   append([]string(nil), labels...),
		logger:   logger,
	}
}

// Build processes every label concurrently. A label whose image cannot be
// fetched or holds no face is skipped with a warning. The result keeps label
// order and may be empty. The only error is ctx's.
func (b *Builder) Build(ctx context.Context) ([]models.ReferenceDescriptor, error) {
	results := make([]*models.ReferenceDescriptor, len(b.labels))

	g, gctx := errgroup.WithContext(ctx)
	for i, label := range b.labels {
		g.Go(func() error {
			ref, err := b.buildOne(gctx, label)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				b.logger.Warning("Skipping reference %s%s: %v", label, ImageExt, err)
				return nil
			}
			results[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refs := make([]models.ReferenceDescriptor, 0, len(results))
	for _, r := range results {
		if r != nil {
			refs = append(refs, *r)
		}
	}
	b.logger.Info("Loaded %d/%d reference faces", len(refs), len(b.labels))
	return refs, nil
}

func (b *Builder) buildOne(ctx context.Context, label string) (*models.ReferenceDescriptor, error) {
	img, err := b.fetcher.Fetch(ctx, label)
	if err != nil {
		return nil, err
	}
	descriptor, err := b.detector.DetectSingle(ctx, img)
	if err != nil {
		return nil, err
	}
	return &models.ReferenceDescriptor{Label: label, Descriptor: descriptor}, nil
}
