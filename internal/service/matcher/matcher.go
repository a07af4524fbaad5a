package matcher

import (
	"errors"
	"math"

	"facematch/internal/models"
)

// DefaultThreshold is the distance at or above which a face is reported as unknown.
const DefaultThreshold = 0.6

// ErrNoReferences is returned when a matcher is built from an empty reference set.
var ErrNoReferences = errors.New("no reference descriptors")

// FaceMatcher finds the nearest reference descriptor for a query descriptor.
// It is immutable once built and safe for concurrent use.
type FaceMatcher struct {
	references []models.ReferenceDescriptor
	threshold  float64
}

// New builds a FaceMatcher. A non-positive threshold falls back to DefaultThreshold.
func New(references []models.ReferenceDescriptor, threshold float64) (*FaceMatcher, error) {
	if len(references) == 0 {
		return nil, ErrNoReferences
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	refs := make([]models.ReferenceDescriptor, len(references))
	copy(refs, references)
	return &FaceMatcher{references: refs, threshold: threshold}, nil
}

// Threshold returns the distance threshold.
func (m *FaceMatcher) Threshold() float64 {
	return m.threshold
}

// Labels returns the reference labels in reference order.
func (m *FaceMatcher) Labels() []string {
	labels := make([]string, len(m.references))
	for i, ref := range m.references {
		labels[i] = ref.Label
	}
	return labels
}

// FindBestMatch returns the closest reference. When its distance is not below
// the threshold the label is models.UnknownLabel and the distance is kept.
// Ties keep the earliest reference.
func (m *FaceMatcher) FindBestMatch(descriptor models.Descriptor) models.MatchOutcome {
	best := models.MatchOutcome{Label: models.UnknownLabel, Distance: math.MaxFloat64}
	bestLabel := ""

	for _, ref := range m.references {
		dist := EuclideanDistance(descriptor, ref.Descriptor)
		if dist < best.Distance {
			best.Distance = dist
			bestLabel = ref.Label
		}
	}

	if best.Distance < m.threshold {
		best.Label = bestLabel
	}
	return best
}

// MatchAll matches every detection, preserving detection order.
func (m *FaceMatcher) MatchAll(detections []models.Detection) []models.MatchOutcome {
	outcomes := make([]models.MatchOutcome, len(detections))
	for i, d := range detections {
		outcomes[i] = m.FindBestMatch(d.Descriptor)
	}
	return outcomes
}

// EuclideanDistance calculates the Euclidean distance between two descriptors.
func EuclideanDistance(d1, d2 models.Descriptor) float64 {
	var sum float64
	for i := range d1 {
		diff := float64(d1[i] - d2[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
