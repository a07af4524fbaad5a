package models

// UIState is what the presentation renders: an optional matched label and
// the "no match yet" flag.
type UIState struct {
	MatchedLabel string `json:"matchedLabel,omitempty"`
	NoMatch      bool   `json:"noMatch"`
}

// Matched reports whether a label is currently shown as matched.
func (s UIState) Matched() bool {
	return s.MatchedLabel != ""
}

// Profile is the display record shown for a matched label.
type Profile struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}
