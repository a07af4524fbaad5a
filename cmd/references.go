package cmd

import (
	"fmt"
	"net/http"
	"time"

	"facematch/internal/config"
	"facematch/internal/logger"
	"facematch/internal/profiles"
	"facematch/internal/service/ai"
	"facematch/internal/service/reference"

	"github.com/spf13/cobra"
)

var referencesCmd = &cobra.Command{
	Use:   "references",
	Short: "Check the reference photos",
	Long: `Load the models and build the reference set the same way the server does,
then report which labels produced a face descriptor and which were skipped.`,
	RunE: runReferences,
}

func init() {
	rootCmd.AddCommand(referencesCmd)
	addRecognitionFlags(referencesCmd)
}

func runReferences(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyRecognitionFlags(cmd, cfg)
	ctx := cmd.Context()

	log := logger.NewDiscard()
	store, err := profiles.Load(cfg.ProfilesPath)
	if err != nil {
		return err
	}

	fmt.Printf("Loading models from %s...\n", cfg.ModelsDirectory)
	rec, err := ai.LoadRecognizer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rec.Close()

	fetcher := reference.NewFetcher(cfg.KnownFacesRoot, &http.Client{Timeout: 30 * time.Second})
	start := time.Now()
	refs, err := reference.NewBuilder(fetcher, rec, cfg.KnownLabels, log).Build(ctx)
	if err != nil {
		return err
	}

	loaded := make(map[string]bool, len(refs))
	for _, r := range refs {
		loaded[r.Label] = true
	}

	fmt.Printf("Reference set from %s (%s):\n", cfg.KnownFacesRoot, time.Since(start).Round(time.Millisecond))
	for _, label := range cfg.KnownLabels {
		status := "skipped (missing image or no face)"
		if loaded[label] {
			status = "ok"
		}
		name := "-"
		if p, ok := store.Lookup(label); ok {
			name = p.Name
		}
		fmt.Printf("   %-12s %-24s %s\n", label, name, status)
	}
	fmt.Printf("%d/%d labels usable\n", len(refs), len(cfg.KnownLabels))

	if len(refs) == 0 {
		return fmt.Errorf("no known faces loaded, face matching would stay idle")
	}
	return nil
}
