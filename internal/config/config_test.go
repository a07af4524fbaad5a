package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "KNOWN_LABELS", "MATCH_THRESHOLD", "POLL_INTERVAL", "UNKNOWN_POLICY", "PASSWORD", "CAPTURE_WIDTH", "CAPTURE_HEIGHT", "FRAME_INTERVAL", "DISPLAY_WIDTH", "DISPLAY_HEIGHT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"user1", "user2", "user3", "user4"}, cfg.KnownLabels)
	assert.InDelta(t, 0.6, cfg.MatchThreshold, 1e-9)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "lock-wins", cfg.UnknownPolicy)
	assert.Equal(t, 640, cfg.CaptureWidth)
	assert.Equal(t, 480, cfg.CaptureHeight)
	assert.Equal(t, 100*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 320, cfg.DisplayWidth)
	assert.Equal(t, 240, cfg.DisplayHeight)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KNOWN_LABELS", " alice, bob ,,carol ")
	t.Setenv("MATCH_THRESHOLD", "0.45")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("PASSWORD", "secret")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"alice", "bob", "carol"}, cfg.KnownLabels)
	assert.InDelta(t, 0.45, cfg.MatchThreshold, 1e-9)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.AuthEnabled())
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{"go duration", "3s", 3 * time.Second},
		{"bare seconds", "5", 5 * time.Second},
		{"invalid", "soon", 2 * time.Second},
		{"negative", "-1s", 2 * time.Second},
		{"empty", "", 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INTERVAL", tt.value)
			assert.Equal(t, tt.expected, getEnvAsDuration("TEST_INTERVAL", 2*time.Second))
		})
	}
}

func TestGetEnvAsList_DefaultIsCopied(t *testing.T) {
	t.Setenv("KNOWN_LABELS", "")

	labels := getEnvAsList("KNOWN_LABELS", DefaultLabels)
	labels[0] = "changed"

	assert.Equal(t, "user1", DefaultLabels[0])
}
