package session

import (
	"sync"

	"facematch/internal/models"
)

// State holds the UI state written by the matcher loop and read by the
// presentation layer.
type State struct {
	mu        sync.RWMutex
	current   models.UIState
	listeners []func(models.UIState)
}

func NewState() *State {
	return &State{}
}

// Snapshot returns the current state.
func (s *State) Snapshot() models.UIState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn to be called after every change.
func (s *State) Subscribe(fn func(models.UIState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reset returns to the initial state: nothing matched, no banner.
func (s *State) Reset() {
	s.set(models.UIState{})
}

func (s *State) setMatched(label string) {
	s.set(models.UIState{MatchedLabel: label})
}

func (s *State) setNoMatch() {
	s.set(models.UIState{NoMatch: true})
}

func (s *State) set(next models.UIState) {
	s.mu.Lock()
	if s.current == next {
		s.mu.Unlock()
		return
	}
	s.current = next
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}
