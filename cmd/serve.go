package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"facematch/internal/app"
	"facematch/internal/config"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Match web server.
The server loads the recognition models, opens the webcam and, once frames
are flowing, builds the reference set and polls for a matching face.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (PORT)")
	serveCmd.Flags().String("camera", "", "Camera device index or URL (CAMERA_DEVICE)")
	serveCmd.Flags().Duration("interval", 0, "Matcher polling interval (POLL_INTERVAL)")
	serveCmd.Flags().String("policy", "", "How unknown faces interact with a match: lock-wins or legacy (UNKNOWN_POLICY)")
	addRecognitionFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyRecognitionFlags(cmd, cfg)
	if cmd.Flags().Changed("port") {
		cfg.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("camera") {
		cfg.CameraDevice = mustGetString(cmd, "camera")
	}
	if cmd.Flags().Changed("interval") {
		cfg.PollInterval = mustGetDuration(cmd, "interval")
	}
	if cmd.Flags().Changed("policy") {
		cfg.UnknownPolicy = mustGetString(cmd, "policy")
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}
