package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"dualvision-worker-go/internal/api"
	"dualvision-worker-go/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and camera pipeline",
	Long: `Start the HTTP API, the gRPC health endpoint and the pipeline loop.

The camera stays closed until POST /start_camera, a NATS control command,
or --auto-start.`,
	Example: `  # Serve on the default port
  streamer serve

  # Open camera 1 immediately on port 9000
  streamer serve --port 9000 --camera 1 --auto-start`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "HTTP port (default from PORT)")
	serveCmd.Flags().Int("camera", -1, "default camera index (default from CAMERA_INDEX)")
	serveCmd.Flags().Bool("auto-start", false, "open the default camera on startup")

	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("camera_index", serveCmd.Flags().Lookup("camera"))
	_ = viper.BindPFlag("auto_start", serveCmd.Flags().Lookup("auto-start"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("learned_backend", cfg.LearnedBackend).
		Int("detection_interval", cfg.DetectionInterval).
		Msg("Starting DualVision streamer")

	sc, err := services.NewServiceContainer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create services: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(cfg, sc, stop)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sc.Run(gctx) })
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Ending the pipeline first closes open video streams.
		err := sc.Shutdown(shutdownCtx)
		return multierr.Append(err, server.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Streamer stopped with error")
		return err
	}
	log.Info().Msg("Shutdown complete")
	return nil
}
