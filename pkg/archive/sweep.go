package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// sweepMinAge keeps the sweep away from directories whose own pipeline may
// still be writing or uploading the same files.
const sweepMinAge = time.Hour

// Sweeper retries archival of artifacts that previously fell back to a
// local-path reference. It is opt-in: without a schedule the system never
// retries on its own, matching the base archival contract.
type Sweeper struct {
	uploader *Uploader
	baseDir  string
	minAge   time.Duration
	logger   zerolog.Logger
	cron     *cron.Cron
}

// NewSweeper creates a sweeper over the recordings base directory
func NewSweeper(uploader *Uploader, baseDir string, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		uploader: uploader,
		baseDir:  baseDir,
		minAge:   sweepMinAge,
		logger:   logger.With().Str("component", "sweep").Logger(),
	}
}

// Start schedules the sweep with a cron expression
func (s *Sweeper) Start(schedule string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Archive sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("Archive sweep scheduled")
	return nil
}

// Stop cancels the scheduled sweep
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep re-archives every leftover work directory that still holds derived
// artifacts. Directories whose uploads all succeed are removed by the
// uploader's normal cleanup rules.
func (s *Sweeper) Sweep(ctx context.Context) error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read recordings directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "recording_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		// A recently modified directory may belong to a session still
		// between its transcode and archive stages; leave it for a later run.
		if time.Since(info.ModTime()) < s.minAge {
			continue
		}
		workDir := filepath.Join(s.baseDir, entry.Name())
		artifacts, source, ok := s.collect(workDir)
		if !ok {
			continue
		}

		s.logger.Info().Str("workDir", workDir).Msg("Retrying archival of leftover artifacts")
		res := s.uploader.Archive(ctx, workDir, source, artifacts)
		if !res.AllDurable {
			s.logger.Warn().Str("workDir", workDir).Msg("Leftover artifacts still not durable")
		}
	}
	return nil
}

// collect gathers retryable artifacts from a leftover work directory
func (s *Sweeper) collect(workDir string) (map[string]string, string, bool) {
	artifacts := make(map[string]string)
	var source string

	if matches, _ := filepath.Glob(filepath.Join(workDir, "*.mp4")); len(matches) == 1 {
		artifacts["video"] = matches[0]
	}
	if matches, _ := filepath.Glob(filepath.Join(workDir, "*.mp3")); len(matches) == 1 {
		artifacts["audio"] = matches[0]
	}
	if matches, _ := filepath.Glob(filepath.Join(workDir, "*.webm")); len(matches) == 1 {
		source = matches[0]
	}

	if len(artifacts) == 0 {
		return nil, "", false
	}
	if source == "" {
		// Source already gone; archive what is left and let cleanup skip it.
		source = filepath.Join(workDir, "recording.webm")
	}
	return artifacts, source, true
}
