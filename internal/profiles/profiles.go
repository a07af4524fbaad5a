// Package profiles maps reference labels to the records shown on a match.
package profiles

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"facematch/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type file struct {
	Profiles map[string]models.Profile `yaml:"profiles"`
}

// Store is an immutable label -> profile mapping.
type Store struct {
	profiles map[string]models.Profile
}

// Load reads the mapping from path, or the embedded default when path is empty.
func Load(path string) (*Store, error) {
	if path == "" {
		return Parse(defaultYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML mapping.
func Parse(data []byte) (*Store, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]models.Profile{}
	}
	return &Store{profiles: f.Profiles}, nil
}

// Lookup returns the profile of label. A nil Store has no profiles.
func (s *Store) Lookup(label string) (models.Profile, bool) {
	if s == nil {
		return models.Profile{}, false
	}
	p, ok := s.profiles[label]
	return p, ok
}

// Labels returns every label with a profile, sorted.
func (s *Store) Labels() []string {
	labels := make([]string, 0, len(s.profiles))
	for label := range s.profiles {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
