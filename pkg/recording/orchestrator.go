// Package recording is the session lifecycle core: the registry enforcing
// at-most-one-active-session-per-call-key, the session state machine, and
// the orchestrator driving capture, teardown and the detached post-stop
// pipeline (transcode, archive, persist, notify).
package recording

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/synergix/vcall-recorder/internal/metrics"
	"github.com/synergix/vcall-recorder/internal/notify"
	"github.com/synergix/vcall-recorder/internal/store"
	"github.com/synergix/vcall-recorder/pkg/archive"
	"github.com/synergix/vcall-recorder/pkg/capture"
	"github.com/synergix/vcall-recorder/pkg/transcode"
)

// Transcoder produces the two derived artifacts from a capture source
type Transcoder interface {
	DiscoverSource(workDir string) (string, error)
	Run(ctx context.Context, source string) (*transcode.Result, error)
}

// Archiver moves artifacts to durable storage with local-path fallback
type Archiver interface {
	Archive(ctx context.Context, workDir, source string, artifacts map[string]string) archive.Result
}

// Options configures the orchestrator
type Options struct {
	// BaseDir is the directory holding per-session work directories
	BaseDir string
}

// StartRequest asks for a new capture session
type StartRequest struct {
	// Key identifies the call; at most one session per key may be active.
	// Empty key defaults to the capture URL.
	Key string
	// URL is the call page to capture
	URL string
	// Doctor and Patient label the work directory
	Doctor  string
	Patient string
}

// StartResult reports a successfully started session
type StartResult struct {
	Key        string
	WorkDir    string // directory name, not the full path
	SourceFile string // capture file name inside the work directory
	URL        string
}

// Orchestrator drives sessions through
// CREATED -> CAPTURING -> STOPPING -> PIPELINE_RUNNING -> DONE | FAILED.
// Stop returns as soon as capture resources are torn down; the pipeline
// runs detached and reports only through logs and metrics.
type Orchestrator struct {
	options    Options
	registry   *Registry
	engine     capture.Engine
	transcoder Transcoder
	archiver   Archiver
	calls      store.CallStore
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	// now is swappable in tests for deterministic work directory names
	now func() time.Time

	pipelines sync.WaitGroup
}

// NewOrchestrator creates the session orchestrator
func NewOrchestrator(
	options Options,
	registry *Registry,
	engine capture.Engine,
	transcoder Transcoder,
	archiver Archiver,
	calls store.CallStore,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		options:    options,
		registry:   registry,
		engine:     engine,
		transcoder: transcoder,
		archiver:   archiver,
		calls:      calls,
		notifier:   notifier,
		metrics:    m,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		now:        time.Now,
	}
}

// Start claims a session for the request's key and acquires capture
// resources. Any acquisition failure releases the claim and reports
// StartFailed; the claim itself failing reports AlreadyActive.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if req.URL == "" {
		return nil, NewError(ErrCodeStartFailed, "capture url is required")
	}
	if req.Doctor == "" || req.Patient == "" {
		return nil, NewError(ErrCodeStartFailed, "participant labels are required")
	}
	key := req.Key
	if key == "" {
		key = req.URL
	}

	dirName := WorkDirName(req.Doctor, req.Patient, o.now())
	workDir := filepath.Join(o.options.BaseDir, dirName)

	sess, err := o.registry.Claim(key, workDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(o.options.BaseDir, 0755); err != nil {
		o.registry.Release(key)
		return nil, WrapError(ErrCodeStartFailed, "failed to create recordings directory", err)
	}
	// Work directories are never reused. Mkdir doubles as the collision
	// check: hitting an existing directory is a fatal start error, not
	// something to silently overwrite.
	if err := os.Mkdir(workDir, 0755); err != nil {
		o.registry.Release(key)
		if os.IsExist(err) {
			return nil, NewError(ErrCodeStartFailed, fmt.Sprintf("work directory %s already exists", dirName))
		}
		return nil, WrapError(ErrCodeStartFailed, "failed to create work directory", err)
	}

	handle, err := o.engine.Acquire(ctx, req.URL, workDir)
	if err != nil {
		o.registry.Release(key)
		os.Remove(workDir)
		return nil, WrapError(ErrCodeStartFailed, "failed to acquire capture resources", err)
	}

	sess.attachHandle(handle)
	sess.recordArtifact(ArtifactSource, handle.SourcePath())
	sess.advance(StateCapturing)

	o.metrics.SessionsTotal.Inc()
	o.metrics.SessionsActive.Inc()
	o.logger.Info().
		Str("key", key).
		Str("workDir", dirName).
		Str("url", req.URL).
		Msg("Capture started")

	return &StartResult{
		Key:        key,
		WorkDir:    dirName,
		SourceFile: filepath.Base(handle.SourcePath()),
		URL:        req.URL,
	}, nil
}

// Stop tears down capture resources for key and hands the session off to
// the detached pipeline. It returns once teardown completed: the claim is
// released immediately so the same call can be re-recorded while the
// previous session is still archiving. callID names the external call
// record for persistence and notification; empty means the session key.
func (o *Orchestrator) Stop(ctx context.Context, key, callID string) error {
	sess, err := o.registry.Lookup(key)
	if err != nil {
		return err
	}
	if !sess.advance(StateStopping) {
		return NewError(ErrCodeNoActiveSession, fmt.Sprintf("session for key %q is already stopping", key))
	}

	// Best-effort teardown: the source file's existence gates pipeline
	// entry, not teardown success.
	if handle := sess.takeHandle(); handle != nil {
		if err := handle.Stop(ctx); err != nil {
			o.logger.Warn().Err(err).Str("key", key).Msg("Capture teardown reported errors")
		}
	}

	o.registry.Release(key)
	o.metrics.SessionsActive.Dec()
	sess.advance(StatePipelineRunning)

	o.pipelines.Add(1)
	go o.runPipeline(sess, callID)

	o.logger.Info().Str("key", key).Str("workDir", sess.WorkDir).Msg("Capture stopped, pipeline detached")
	return nil
}

// runPipeline executes transcode -> archive -> persist -> notify for one
// stopped session. The pipeline is not cancellable once started; it always
// runs to DONE or FAILED. Its errors are invisible to the original caller
// and surface through logs and metrics only.
func (o *Orchestrator) runPipeline(sess *Session, callID string) {
	defer o.pipelines.Done()

	ctx := context.Background()
	logger := o.logger.With().
		Str("sessionId", sess.ID).
		Str("key", sess.Key).
		Str("workDir", sess.WorkDir).
		Logger()

	source, err := o.transcoder.DiscoverSource(sess.WorkDir)
	if err != nil {
		o.failPipeline(sess, logger, WrapError(ErrCodeStartFailed, "capture source not usable", err))
		return
	}

	encodeStart := o.now()
	result, err := o.transcoder.Run(ctx, source)
	if err != nil {
		// Source file is preserved for manual recovery.
		o.failPipeline(sess, logger, WrapError(ErrCodeEncodeFailed, "transcode stage failed", err))
		return
	}
	o.metrics.EncodeDuration.Observe(o.now().Sub(encodeStart).Seconds())

	sess.recordArtifact(ArtifactVideo, result.VideoPath)
	sess.recordArtifact(ArtifactAudio, result.AudioPath)

	archived := o.archiver.Archive(ctx, sess.WorkDir, source, map[string]string{
		ArtifactVideo: result.VideoPath,
		ArtifactAudio: result.AudioPath,
	})
	sess.setResultURLs(archived.URLs)
	for kind, url := range archived.URLs {
		if strings.HasPrefix(url, archive.LocalScheme) {
			o.metrics.UploadFallbacksTotal.Inc()
			logger.Warn().Str("kind", kind).Str("url", url).Msg("Artifact degraded to local-path reference")
		}
	}

	id := callID
	if id == "" {
		id = sess.Key
	}
	if err := o.calls.UpdateRecordingURLs(ctx, id, archived.URLs[ArtifactVideo], archived.URLs[ArtifactAudio]); err != nil {
		o.metrics.CollaboratorFailuresTotal.WithLabelValues("persist").Inc()
		logger.Error().Err(err).Str("callId", id).Msg("Failed to persist recording urls")
	}
	if err := o.notifier.RecordingReady(ctx, id, archived.URLs[ArtifactVideo], archived.URLs[ArtifactAudio]); err != nil {
		o.metrics.CollaboratorFailuresTotal.WithLabelValues("notify").Inc()
		logger.Error().Err(err).Str("callId", id).Msg("Failed to notify upstream")
	}

	sess.advance(StateDone)
	o.metrics.PipelineOutcomesTotal.WithLabelValues("done").Inc()
	logger.Info().Bool("allDurable", archived.AllDurable).Msg("Pipeline finished")
}

func (o *Orchestrator) failPipeline(sess *Session, logger zerolog.Logger, err error) {
	sess.advance(StateFailed)
	o.metrics.PipelineOutcomesTotal.WithLabelValues("failed").Inc()
	logger.Error().Err(err).Msg("Pipeline failed")
}

// Drain waits up to timeout for detached pipelines to finish
func (o *Orchestrator) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		o.pipelines.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
