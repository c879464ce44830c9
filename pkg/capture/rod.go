package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
	"github.com/ysmood/gson"
)

// EngineOptions configures the Rod capture engine
type EngineOptions struct {
	BrowserPath        string // explicit Chrome binary, empty = auto-resolve
	Headless           bool
	NoSandbox          bool
	ViewportWidth      int
	ViewportHeight     int
	VideoBitsPerSecond int
	ChunkInterval      time.Duration // MediaRecorder timeslice
}

// RodEngine captures a call page with a controlled Chrome instance. The page
// runs a MediaRecorder over the tab's media stream and pumps webm chunks
// through an exposed binding into the session's sink file.
type RodEngine struct {
	options EngineOptions
	logger  zerolog.Logger
}

// NewRodEngine creates a Rod capture engine
func NewRodEngine(options EngineOptions, logger zerolog.Logger) *RodEngine {
	if options.ViewportWidth == 0 {
		options.ViewportWidth = 1920
	}
	if options.ViewportHeight == 0 {
		options.ViewportHeight = 1080
	}
	if options.VideoBitsPerSecond == 0 {
		options.VideoBitsPerSecond = 2500000
	}
	if options.ChunkInterval == 0 {
		options.ChunkInterval = time.Second
	}
	return &RodEngine{
		options: options,
		logger:  logger.With().Str("component", "capture").Logger(),
	}
}

// Acquire implements Engine
func (e *RodEngine) Acquire(ctx context.Context, pageURL, workDir string) (Handle, error) {
	target, err := url.Parse(pageURL)
	if err != nil || target.Scheme == "" {
		return nil, &Error{Code: ErrCodeNavigation, Message: fmt.Sprintf("invalid capture url %q", pageURL), Err: err}
	}

	l := launcher.New().
		Headless(e.options.Headless).
		Set("use-fake-ui-for-media-stream").
		Set("autoplay-policy", "no-user-gesture-required").
		Delete("mute-audio")
	if e.options.BrowserPath != "" {
		l = l.Bin(e.options.BrowserPath)
	}
	if e.options.NoSandbox {
		l = l.NoSandbox(true)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &Error{Code: ErrCodeLaunch, Message: "failed to launch browser", Err: err}
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, &Error{Code: ErrCodeLaunch, Message: "failed to connect to browser", Err: err}
	}

	fail := func(code, msg string, cause error) (Handle, error) {
		browser.Close()
		l.Kill()
		return nil, &Error{Code: code, Message: msg, Err: cause}
	}

	grant := mediaPermissions(target.Scheme + "://" + target.Host)
	if err := grant.Call(browser); err != nil {
		return fail(ErrCodePermission, "failed to grant media permissions", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fail(ErrCodeLaunch, "failed to create page", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             e.options.ViewportWidth,
		Height:            e.options.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fail(ErrCodeLaunch, "failed to set viewport", err)
	}

	if err := page.Navigate(pageURL); err != nil {
		return fail(ErrCodeNavigation, fmt.Sprintf("failed to navigate to %s", pageURL), err)
	}
	if err := page.WaitLoad(); err != nil {
		return fail(ErrCodeNavigation, "page load timeout", err)
	}

	sinkPath := filepath.Join(workDir, fmt.Sprintf("recording_%d.webm", time.Now().UnixMilli()))
	sink, err := newChunkSink(sinkPath)
	if err != nil {
		return fail(ErrCodeStream, "failed to create capture sink", err)
	}

	handle := &rodHandle{
		sourcePath: sinkPath,
		sink:       sink,
		page:       page,
		browser:    browser,
		launcher:   l,
		logger:     e.logger.With().Str("source", sinkPath).Logger(),
	}

	unbind, err := page.Expose("__recorderChunk", func(j gson.JSON) (interface{}, error) {
		chunk, err := base64.StdEncoding.DecodeString(j.Str())
		if err != nil {
			return nil, fmt.Errorf("malformed capture chunk: %w", err)
		}
		if err := sink.Write(chunk); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		sink.Close()
		return fail(ErrCodeStream, "failed to expose chunk binding", err)
	}
	handle.unbind = unbind

	if _, err := page.Eval(fmt.Sprintf(recorderScript, e.options.VideoBitsPerSecond, e.options.ChunkInterval.Milliseconds())); err != nil {
		sink.Close()
		return fail(ErrCodeStream, "failed to start media recorder", err)
	}

	e.logger.Info().Str("url", pageURL).Str("source", sinkPath).Msg("Capture acquired")
	return handle, nil
}

// mediaPermissions grants camera and microphone for the call page origin, so
// the page never blocks on a permission prompt.
func mediaPermissions(origin string) *proto.BrowserGrantPermissions {
	return &proto.BrowserGrantPermissions{
		Origin: origin,
		Permissions: []proto.BrowserPermissionType{
			proto.BrowserPermissionTypeAudioCapture,
			proto.BrowserPermissionTypeVideoCapture,
		},
	}
}

// recorderScript runs inside the call page. It records the tab's media
// stream and forwards base64 webm chunks to the exposed Go binding. Forwards
// are chained so __recorderStop resolves only after the final chunk has been
// handed to the binding.
const recorderScript = `async () => {
	const constraints = { video: true, audio: true };
	let stream;
	try {
		stream = await navigator.mediaDevices.getDisplayMedia(constraints);
	} catch (err) {
		stream = await navigator.mediaDevices.getUserMedia(constraints);
	}
	const recorder = new MediaRecorder(stream, {
		mimeType: 'video/webm',
		videoBitsPerSecond: %d,
	});
	let forwards = Promise.resolve();
	recorder.ondataavailable = (event) => {
		if (!event.data || event.data.size === 0) return;
		forwards = forwards.then(async () => {
			const buffer = await event.data.arrayBuffer();
			const bytes = new Uint8Array(buffer);
			let binary = '';
			for (let i = 0; i < bytes.length; i += 0x8000) {
				binary += String.fromCharCode.apply(null, bytes.subarray(i, i + 0x8000));
			}
			await window.__recorderChunk(btoa(binary));
		});
	};
	recorder.start(%d);
	window.__recorderStop = () => new Promise((resolve) => {
		recorder.onstop = () => {
			forwards.then(() => {
				stream.getTracks().forEach((track) => track.stop());
				resolve(true);
			});
		};
		recorder.stop();
	});
	return true;
}`

// rodHandle owns one session's live browser resources
type rodHandle struct {
	sourcePath string
	sink       *chunkSink
	page       *rod.Page
	browser    *rod.Browser
	launcher   *launcher.Launcher
	unbind     func() error
	logger     zerolog.Logger

	stopOnce sync.Once
	stopErr  error
}

// SourcePath implements Handle
func (h *rodHandle) SourcePath() string {
	return h.sourcePath
}

// Stop implements Handle. Teardown order: flush and close the byte sink,
// detach the capture stream, close the page, close the browser process.
// Each step is attempted regardless of earlier failures.
func (h *rodHandle) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		// The stop promise resolves only after the final dataavailable chunk
		// has been forwarded through the binding, so the sink can close
		// immediately afterwards.
		if _, err := h.page.Context(ctx).Eval(`() => window.__recorderStop ? window.__recorderStop() : true`); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to stop media recorder")
			h.recordStopErr(err)
		}

		if err := h.sink.Close(); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to close capture sink")
			h.recordStopErr(err)
		}
		if h.unbind != nil {
			if err := h.unbind(); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to detach chunk binding")
				h.recordStopErr(err)
			}
		}
		if err := h.page.Close(); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to close page")
			h.recordStopErr(err)
		}
		if err := h.browser.Close(); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to close browser")
			h.recordStopErr(err)
		}
		h.launcher.Kill()

		h.logger.Info().Msg("Capture released")
	})
	return h.stopErr
}

func (h *rodHandle) recordStopErr(err error) {
	if h.stopErr == nil {
		h.stopErr = err
	}
}
