package models

import (
	"fmt"
	"time"
)

// UnknownLabel is reported when no reference is within the distance threshold.
const UnknownLabel = "unknown"

// MatchOutcome is the best match of one detected face against the reference set.
type MatchOutcome struct {
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

// Known reports whether the outcome names a reference identity.
func (m MatchOutcome) Known() bool {
	return m.Label != "" && m.Label != UnknownLabel
}

// String renders the outcome as drawn next to a face box, e.g. "user1 (0.42)".
func (m MatchOutcome) String() string {
	return fmt.Sprintf("%s (%.2f)", m.Label, m.Distance)
}

// FaceResult pairs a detection box with its match outcome.
type FaceResult struct {
	Box     Box          `json:"box"`
	Outcome MatchOutcome `json:"outcome"`
}

// Match is a stored lock event.
type Match struct {
	ID        int64       `json:"id"`
	Label     string      `json:"label"`
	Distance  float64     `json:"distance"`
	Filename  string      `json:"filename"`
	FileSize  int64       `json:"filesize"`
	MatchedAt time.Time   `json:"matched_at"`
	Faces     []MatchFace `json:"faces,omitempty"`
}

// MatchFace is one face visible in the frame that produced a Match.
type MatchFace struct {
	ID       int64   `json:"id"`
	MatchID  int64   `json:"match_id"`
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}
