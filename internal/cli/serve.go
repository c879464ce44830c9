package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/synergix/vcall-recorder/internal/config"
	"github.com/synergix/vcall-recorder/internal/httpapi"
	"github.com/synergix/vcall-recorder/internal/logger"
	"github.com/synergix/vcall-recorder/internal/metrics"
	"github.com/synergix/vcall-recorder/internal/notify"
	"github.com/synergix/vcall-recorder/internal/store"
	"github.com/synergix/vcall-recorder/pkg/archive"
	"github.com/synergix/vcall-recorder/pkg/capture"
	"github.com/synergix/vcall-recorder/pkg/recording"
	"github.com/synergix/vcall-recorder/pkg/transcode"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recording service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	calls, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer calls.Close()

	objectStore, err := archive.NewS3Store(ctx, archive.S3Options{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	m := metrics.New()
	uploader := archive.NewUploader(objectStore, cfg.Storage.KeyPrefix, log.Logger)
	transcoder := transcode.New(transcode.Options{FFmpegPath: cfg.Recording.FFmpegPath}, log.Logger)
	engine := capture.NewRodEngine(capture.EngineOptions{
		BrowserPath:        cfg.Recording.BrowserPath,
		Headless:           cfg.Recording.Headless,
		NoSandbox:          cfg.Recording.NoSandbox,
		VideoBitsPerSecond: cfg.Recording.VideoBitsPerSecond,
	}, log.Logger)
	notifier := notify.NewHTTPNotifier(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.Timeout, log.Logger)

	registry := recording.NewRegistry()
	orchestrator := recording.NewOrchestrator(
		recording.Options{BaseDir: cfg.Recording.BaseDir},
		registry, engine, transcoder, uploader, calls, notifier, m, log.Logger,
	)

	var sweeper *archive.Sweeper
	if cfg.Recording.SweepSchedule != "" {
		sweeper = archive.NewSweeper(uploader, cfg.Recording.BaseDir, log.Logger)
		if err := sweeper.Start(cfg.Recording.SweepSchedule); err != nil {
			return fmt.Errorf("failed to start archive sweep: %w", err)
		}
		defer sweeper.Stop()
	}

	server := httpapi.NewServer(httpapi.ServerOptions{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, orchestrator, registry, m.Handler(), log.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	if err := server.Stop(); err != nil {
		log.Error().Err(err).Msg("Server shutdown reported errors")
	}
	if !orchestrator.Drain(5 * time.Minute) {
		log.Warn().Msg("Detached pipelines still running at shutdown")
	}
	return nil
}
