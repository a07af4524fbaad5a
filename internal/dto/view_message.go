package dto

import (
	"facematch/internal/models"
)

// View message types pushed over the websocket.
const (
	MessageFrame   = "frame"
	MessageOverlay = "overlay"
	MessageState   = "state"
)

// ViewMessage is the envelope sent to /api/view clients.
type ViewMessage struct {
	Type    string          `json:"type"`
	Frame   *FramePayload   `json:"frame,omitempty"`
	Overlay *OverlayPayload `json:"overlay,omitempty"`
	State   *StatePayload   `json:"state,omitempty"`
}

// FramePayload carries one base64 JPEG frame.
type FramePayload struct {
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// OverlayPayload is the set of boxes drawn by the last matcher tick, in
// display coordinates.
type OverlayPayload struct {
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Faces  []OverlayFace `json:"faces"`
}

// OverlayFace is one box with its caption, e.g. "user1 (0.42)".
type OverlayFace struct {
	models.Box
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
	Caption  string  `json:"caption"`
	Known    bool    `json:"known"`
}

// StatePayload is the UI state plus the profile panel when one applies.
type StatePayload struct {
	MatchedLabel string          `json:"matchedLabel,omitempty"`
	NoMatch      bool            `json:"noMatch"`
	Profile      *models.Profile `json:"profile,omitempty"`
	Phase        string          `json:"phase,omitempty"`
	Ticks        int64           `json:"ticks"`
}

// NewOverlayPayload converts tick faces into overlay boxes.
func NewOverlayPayload(width, height int, faces []models.FaceResult) *OverlayPayload {
	out := &OverlayPayload{Width: width, Height: height, Faces: make([]OverlayFace, 0, len(faces))}
	for _, f := range faces {
		out.Faces = append(out.Faces, OverlayFace{
			Box:      f.Box,
			Label:    f.Outcome.Label,
			Distance: f.Outcome.Distance,
			Caption:  f.Outcome.String(),
			Known:    f.Outcome.Known(),
		})
	}
	return out
}
