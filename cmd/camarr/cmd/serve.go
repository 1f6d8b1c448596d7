package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/camarr/camarr/internal/config"
	"github.com/camarr/camarr/internal/database"
	"github.com/camarr/camarr/internal/ffmpeg"
	internalhttp "github.com/camarr/camarr/internal/http"
	"github.com/camarr/camarr/internal/http/handlers"
	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/onvif"
	"github.com/camarr/camarr/internal/plugin"
	"github.com/camarr/camarr/internal/repository"
	"github.com/camarr/camarr/internal/scheduler"
	"github.com/camarr/camarr/internal/supervisor"
	"github.com/camarr/camarr/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the camarr server",
	Long: `Start the camarr HTTP server and API.

The server provides:
- REST API for managing cameras, streams, recordings, and schedules
- Static file serving for HLS segments, recordings, and thumbnails
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().Int("port", 3333, "Port to listen on")
	serveCmd.Flags().String("database", "", "Database file path (default is {data-dir}/cameras.db)")
	serveCmd.Flags().String("data-dir", "./data", "Data directory for streams and recordings")
	serveCmd.Flags().Bool("gpu-probe", true, "Probe GPU encoder capabilities on startup")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.path", serveCmd.Flags().Lookup("database"))
	mustBindPFlag("storage.base_dir", serveCmd.Flags().Lookup("data-dir"))
	mustBindPFlag("ffmpeg.gpu_probe", serveCmd.Flags().Lookup("gpu-probe"))
}

func runServe(_ *cobra.Command, _ []string) error {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := slog.Default()

	if err := prepareStorage(cfg.Storage); err != nil {
		return fmt.Errorf("preparing storage: %w", err)
	}

	db, err := database.New(cfg.Database, cfg.DatabasePath(), logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	cameraRepo := repository.NewCameraRepository(db.DB)
	recordingRepo := repository.NewRecordingRepository(db.DB)
	scheduleRepo := repository.NewScheduleRepository(db.DB)
	settingsRepo := repository.NewEncoderSettingsRepository(db.DB)

	bin, err := ffmpeg.FindBinary(cfg.FFmpeg)
	if err != nil {
		return fmt.Errorf("locating ffmpeg: %w", err)
	}
	logger.Info("using ffmpeg binary", slog.String("path", bin))

	onvifClient := onvif.NewClient(cfg.Onvif, logger)

	registry := plugin.NewRegistry(logger)
	registry.Register(plugin.NewOnvifPlugin(onvifClient))
	registry.Register(plugin.NewUvcPlugin(bin, logger))

	tz, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("loading scheduler timezone: %w", err)
	}

	caps := ffmpeg.NewCapabilityCache()
	detector := ffmpeg.NewDetector(bin, logger)

	finalizer := supervisor.NewFinalizer(bin, cfg.Storage, tz, recordingRepo, logger)
	sup := supervisor.New(supervisor.Options{
		Bin:        bin,
		Storage:    cfg.Storage,
		Registry:   registry,
		DB:         db,
		Cameras:    cameraRepo,
		Recordings: recordingRepo,
		Settings:   settingsRepo,
		Caps:       caps,
		Tester:     detector,
		Finalizer:  finalizer,
		Logger:     logger,
	})

	// The probe runs a dozen short transcodes; keep it off the serve path
	// so the API is up immediately.
	if cfg.FFmpeg.GpuProbe {
		go probeGpu(detector, caps, settingsRepo, logger)
	}

	sched := scheduler.New(tz, sup, scheduleRepo, logger)
	if err := sched.Reload(context.Background()); err != nil {
		return fmt.Errorf("reloading schedules: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	server := internalhttp.NewServer(cfg.Server, cfg.Storage, logger, version.Version)

	// Stream URLs are handed to browser players, so they use localhost
	// rather than the bind address (which may be 0.0.0.0).
	baseURL := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	handlers.NewCameraHandler(cameraRepo, registry, sup, logger).Register(server.API())
	handlers.NewStreamHandler(cameraRepo, sup, baseURL, logger).Register(server.API())
	handlers.NewRecordingHandler(recordingRepo, sup, cfg.Storage, logger).Register(server.API())
	handlers.NewScheduleHandler(scheduleRepo, sched, logger).Register(server.API())
	handlers.NewSettingsHandler(settingsRepo, detector, caps, logger).Register(server.API())
	handlers.NewPTZHandler(cameraRepo, registry, logger).Register(server.API())
	handlers.NewTimeHandler(cameraRepo, registry, sup, logger).Register(server.API())
	handlers.NewHealthHandler(db.DB, sup).Register(server.API())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting camarr server",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("version", version.Version),
	)

	serveErr := server.ListenAndServe(ctx)

	// Drain live transcoder children so open recordings get finalized.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	sup.Shutdown(shutdownCtx)

	return serveErr
}

// prepareStorage creates the storage tree and clears stale stream
// segments left behind by a previous run.
func prepareStorage(storage config.StorageConfig) error {
	if err := os.RemoveAll(storage.StreamPath()); err != nil {
		return fmt.Errorf("clearing stream directory: %w", err)
	}
	for _, dir := range []string{storage.StreamPath(), storage.RecordingPath(), storage.ThumbnailPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// probeGpu detects hardware encoders and records the preferred one as
// the default gpu_encoder when the operator has not picked one.
func probeGpu(detector *ffmpeg.Detector, caps *ffmpeg.CapabilityCache, settings repository.EncoderSettingsRepository, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	detected, err := detector.Detect(ctx)
	if err != nil {
		logger.Warn("gpu capability probe failed", slog.String("error", err.Error()))
		return
	}
	caps.Set(detected)
	preferred := models.StrVal(detected.PreferredEncoder)
	logger.Info("gpu capability probe complete",
		slog.String("gpu", string(detected.GPUVendor)),
		slog.String("preferred_encoder", preferred),
	)

	if preferred == "" {
		return
	}
	if err := settings.SetGpuEncoderIfUnset(ctx, preferred); err != nil {
		logger.Warn("storing detected gpu encoder failed", slog.String("error", err.Error()))
	}
}
