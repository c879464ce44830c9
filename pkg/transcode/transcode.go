// Package transcode converts a captured source file into the two derived
// artifacts the archive expects: a size-reduced mp4 and an audio-only mp3.
package transcode

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Options declares the encode parameters for both jobs. These are
// configuration, not hidden defaults; zero values are filled from
// DefaultOptions.
type Options struct {
	FFmpegPath string

	// Video job: re-encode at a bounded width with constrained quality
	VideoCodec   string // default libx264
	CRF          int    // default 28
	Preset       string // default faster
	VideoAudio   string // audio codec inside the mp4, default aac
	AudioBitrate string // cap for both jobs, default 64k
	ScaleWidth   int    // default 640, height follows aspect ratio

	// Audio-only job: drop the video stream, default libmp3lame
	AudioCodec string
}

// DefaultOptions returns the documented encode defaults
func DefaultOptions() Options {
	return Options{
		FFmpegPath:   "ffmpeg",
		VideoCodec:   "libx264",
		CRF:          28,
		Preset:       "faster",
		VideoAudio:   "aac",
		AudioBitrate: "64k",
		ScaleWidth:   640,
		AudioCodec:   "libmp3lame",
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.FFmpegPath == "" {
		o.FFmpegPath = def.FFmpegPath
	}
	if o.VideoCodec == "" {
		o.VideoCodec = def.VideoCodec
	}
	if o.CRF == 0 {
		o.CRF = def.CRF
	}
	if o.Preset == "" {
		o.Preset = def.Preset
	}
	if o.VideoAudio == "" {
		o.VideoAudio = def.VideoAudio
	}
	if o.AudioBitrate == "" {
		o.AudioBitrate = def.AudioBitrate
	}
	if o.ScaleWidth == 0 {
		o.ScaleWidth = def.ScaleWidth
	}
	if o.AudioCodec == "" {
		o.AudioCodec = def.AudioCodec
	}
	return o
}

// EncodeError reports a failed encode job with the tool's diagnostic output
type EncodeError struct {
	Job    string // "video" or "audio"
	Output string // ffmpeg stderr/stdout
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s encode failed: %v: %s", e.Job, e.Err, truncate(e.Output, 512))
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Result holds the two derived artifact paths
type Result struct {
	VideoPath string
	AudioPath string
}

// Transcoder runs ffmpeg encode jobs
type Transcoder struct {
	options Options
	logger  zerolog.Logger

	// runCommand is swappable in tests
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates a transcoder
func New(options Options, logger zerolog.Logger) *Transcoder {
	return &Transcoder{
		options: options.withDefaults(),
		logger:  logger.With().Str("component", "transcode").Logger(),
		runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// DiscoverSource finds the capture output inside workDir. The capture engine
// is free to pick the literal filename, so the source is located by scanning
// for the expected extension at stage entry; zero or multiple matches are an
// inconsistency, never an ignorable case.
func (t *Transcoder) DiscoverSource(workDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(workDir, "*.webm"))
	if err != nil {
		return "", fmt.Errorf("failed to scan work directory: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no capture source found in %s", workDir)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("expected one capture source in %s, found %d", workDir, len(matches))
	}
}

// Run encodes both derived artifacts from source. The two jobs have no data
// dependency and run concurrently; failure of either fails the stage and the
// source file is preserved for manual recovery.
func (t *Transcoder) Run(ctx context.Context, source string) (*Result, error) {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	result := &Result{
		VideoPath: base + ".mp4",
		AudioPath: base + ".mp3",
	}

	errs := make(chan error, 2)
	go func() {
		errs <- t.encode(ctx, "video", t.videoArgs(source, result.VideoPath))
	}()
	go func() {
		errs <- t.encode(ctx, "audio", t.audioArgs(source, result.AudioPath))
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}

func (t *Transcoder) encode(ctx context.Context, job string, args []string) error {
	t.logger.Debug().Str("job", job).Strs("args", args).Msg("Starting encode job")

	output, err := t.runCommand(ctx, t.options.FFmpegPath, args...)
	if err != nil {
		return &EncodeError{Job: job, Output: string(output), Err: err}
	}

	t.logger.Info().Str("job", job).Msg("Encode job finished")
	return nil
}

func (t *Transcoder) videoArgs(source, output string) []string {
	return []string{
		"-y",
		"-i", source,
		"-c:v", t.options.VideoCodec,
		"-crf", fmt.Sprintf("%d", t.options.CRF),
		"-preset", t.options.Preset,
		"-c:a", t.options.VideoAudio,
		"-b:a", t.options.AudioBitrate,
		"-vf", fmt.Sprintf("scale=%d:-2", t.options.ScaleWidth),
		output,
	}
}

func (t *Transcoder) audioArgs(source, output string) []string {
	return []string{
		"-y",
		"-i", source,
		"-vn",
		"-c:a", t.options.AudioCodec,
		"-b:a", t.options.AudioBitrate,
		output,
	}
}
