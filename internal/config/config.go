package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultLabels are the identities looked up under KnownFacesRoot when KNOWN_LABELS is unset.
var DefaultLabels = []string{"user1", "user2", "user3", "user4"}

type Config struct {
	Port     int
	Password string

	ModelsDirectory string
	ModelsBaseURL   string // Optional source for missing model bundles

	KnownFacesRoot string // Directory or http(s) URL holding {label}.jpeg
	KnownLabels    []string
	ProfilesPath   string // YAML label -> profile mapping, empty uses the embedded default

	MatchThreshold float64
	PollInterval   time.Duration
	UnknownPolicy  string // lock-wins | legacy

	CameraDevice  string
	CaptureWidth  int
	CaptureHeight int
	FrameInterval time.Duration
	DisplayWidth  int
	DisplayHeight int

	DatabasePath             string
	ImageDirectory           string
	ImageBufferLimit         int
	ImageBufferFlushInterval int // seconds
	LogDirectory             string
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() *Config {
	return &Config{
		Port:                     getEnvAsInt("PORT", 8080),
		Password:                 getEnv("PASSWORD", ""),
		ModelsDirectory:          getEnv("MODELS_DIR", filepath.Join(".", "models")),
		ModelsBaseURL:            getEnv("MODELS_BASE_URL", ""),
		KnownFacesRoot:           getEnv("KNOWN_FACES_ROOT", filepath.Join(".", "known_faces")),
		KnownLabels:              getEnvAsList("KNOWN_LABELS", DefaultLabels),
		ProfilesPath:             getEnv("PROFILES_PATH", ""),
		MatchThreshold:           getEnvAsFloat("MATCH_THRESHOLD", 0.6),
		PollInterval:             getEnvAsDuration("POLL_INTERVAL", 2*time.Second),
		UnknownPolicy:            getEnv("UNKNOWN_POLICY", "lock-wins"),
		CameraDevice:             getEnv("CAMERA_DEVICE", "0"),
		CaptureWidth:             getEnvAsInt("CAPTURE_WIDTH", 640),
		CaptureHeight:            getEnvAsInt("CAPTURE_HEIGHT", 480),
		FrameInterval:            getEnvAsDuration("FRAME_INTERVAL", 100*time.Millisecond),
		DisplayWidth:             getEnvAsInt("DISPLAY_WIDTH", 320),
		DisplayHeight:            getEnvAsInt("DISPLAY_HEIGHT", 240),
		DatabasePath:             getEnv("DATABASE_PATH", filepath.Join(".", "data", "facematch.db")),
		ImageDirectory:           getEnv("IMAGE_DIR", filepath.Join(".", "images")),
		ImageBufferLimit:         getEnvAsInt("BUFFER_LIMIT", 7),
		ImageBufferFlushInterval: getEnvAsInt("FLUSH_INTERVAL", 30),
		LogDirectory:             getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

// AuthEnabled reports whether the pages are protected by the login form.
func (c *Config) AuthEnabled() bool {
	return c.Password != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("1500ms") and bare seconds ("2").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return items
}
