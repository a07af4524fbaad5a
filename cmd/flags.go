package cmd

import (
	"fmt"
	"strings"
	"time"

	"facematch/internal/config"

	"github.com/spf13/cobra"
)

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetDuration gets a duration flag value or panics if the flag doesn't exist.
func mustGetDuration(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// addRecognitionFlags registers the flags shared by commands that build a reference set.
func addRecognitionFlags(cmd *cobra.Command) {
	cmd.Flags().String("models", "", "Directory holding the dlib model bundles (MODELS_DIR)")
	cmd.Flags().String("known-faces", "", "Directory or URL holding {label}.jpeg reference photos (KNOWN_FACES_ROOT)")
	cmd.Flags().String("labels", "", "Comma separated reference labels (KNOWN_LABELS)")
	cmd.Flags().Float64("threshold", 0, "Maximum descriptor distance for a match (MATCH_THRESHOLD)")
}

// applyRecognitionFlags overrides cfg with the recognition flags the user set.
func applyRecognitionFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("models") {
		cfg.ModelsDirectory = mustGetString(cmd, "models")
	}
	if cmd.Flags().Changed("known-faces") {
		cfg.KnownFacesRoot = mustGetString(cmd, "known-faces")
	}
	if cmd.Flags().Changed("labels") {
		cfg.KnownLabels = splitLabels(mustGetString(cmd, "labels"))
	}
	if cmd.Flags().Changed("threshold") {
		cfg.MatchThreshold = mustGetFloat64(cmd, "threshold")
	}
}

func splitLabels(s string) []string {
	var labels []string
	for _, label := range strings.Split(s, ",") {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}
