package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synergix/vcall-recorder/internal/metrics"
	"github.com/synergix/vcall-recorder/pkg/archive"
	"github.com/synergix/vcall-recorder/pkg/capture"
	"github.com/synergix/vcall-recorder/pkg/recording"
	"github.com/synergix/vcall-recorder/pkg/transcode"
)

type stubHandle struct{ path string }

func (h *stubHandle) SourcePath() string             { return h.path }
func (h *stubHandle) Stop(ctx context.Context) error { return nil }

type stubEngine struct{}

func (e *stubEngine) Acquire(ctx context.Context, url, workDir string) (capture.Handle, error) {
	path := filepath.Join(workDir, "recording_1.webm")
	if err := os.WriteFile(path, []byte("webm"), 0644); err != nil {
		return nil, err
	}
	return &stubHandle{path: path}, nil
}

type stubTranscoder struct{}

func (t *stubTranscoder) DiscoverSource(workDir string) (string, error) {
	return filepath.Join(workDir, "recording_1.webm"), nil
}

func (t *stubTranscoder) Run(ctx context.Context, source string) (*transcode.Result, error) {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	return &transcode.Result{VideoPath: base + ".mp4", AudioPath: base + ".mp3"}, nil
}

type stubArchiver struct{}

func (a *stubArchiver) Archive(ctx context.Context, workDir, source string, artifacts map[string]string) archive.Result {
	urls := make(map[string]string, len(artifacts))
	for kind, path := range artifacts {
		urls[kind] = "https://bucket.test/" + filepath.Base(path)
	}
	return archive.Result{URLs: urls, AllDurable: true}
}

type stubCalls struct{}

func (s *stubCalls) UpdateRecordingURLs(ctx context.Context, callID, videoURL, audioURL string) error {
	return nil
}

type stubNotifier struct{}

func (n *stubNotifier) RecordingReady(ctx context.Context, callID, videoURL, audioURL string) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *recording.Orchestrator) {
	t.Helper()
	registry := recording.NewRegistry()
	m := metrics.New()
	orchestrator := recording.NewOrchestrator(
		recording.Options{BaseDir: t.TempDir()},
		registry, &stubEngine{}, &stubTranscoder{}, &stubArchiver{},
		&stubCalls{}, &stubNotifier{}, m, zerolog.Nop(),
	)
	srv := NewServer(ServerOptions{}, orchestrator, registry, m.Handler(), zerolog.Nop())
	return srv, orchestrator
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHandleStart(t *testing.T) {
	srv, o := newTestServer(t)
	handler := srv.Handler()

	rec, body := doJSON(t, handler, http.MethodPost, "/start",
		`{"url":"https://calls.example.com/room-1","doctor":"drA","patient":"pt1","key":"room-1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "room-1", body["key"])
	assert.Contains(t, body["workDir"], "recording_drA_pt1_")
	assert.Contains(t, body["fileName"], ".webm")

	_, _ = doJSON(t, handler, http.MethodPost, "/stop", `{"key":"room-1"}`)
	o.Drain(5 * time.Second)
}

func TestHandleStart_MissingParams(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec, body := doJSON(t, handler, http.MethodPost, "/start", `{"doctor":"drA","patient":"pt1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = doJSON(t, handler, http.MethodPost, "/start", `{"url":"https://x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodPost, "/start", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStart_Conflict(t *testing.T) {
	srv, o := newTestServer(t)
	handler := srv.Handler()

	payload := `{"url":"https://calls.example.com/room-1","doctor":"drA","patient":"pt1","key":"room-1"}`
	rec, _ := doJSON(t, handler, http.MethodPost, "/start", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same key while active; distinct labels so only the claim conflicts
	rec, body := doJSON(t, handler, http.MethodPost, "/start",
		`{"url":"https://calls.example.com/room-1","doctor":"drB","patient":"pt2","key":"room-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, recording.ErrCodeAlreadyActive, body["code"])

	_, _ = doJSON(t, handler, http.MethodPost, "/stop", `{"key":"room-1"}`)
	o.Drain(5 * time.Second)
}

func TestHandleStop(t *testing.T) {
	srv, o := newTestServer(t)
	handler := srv.Handler()

	rec, _ := doJSON(t, handler, http.MethodPost, "/start",
		`{"url":"https://calls.example.com/room-1","doctor":"drA","patient":"pt1","key":"room-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, handler, http.MethodPost, "/stop", `{"key":"room-1","callId":"call-42"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "room-1", body["key"])

	o.Drain(5 * time.Second)
}

func TestHandleStop_NoActiveSession(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec, body := doJSON(t, handler, http.MethodPost, "/stop", `{"key":"never-started"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, recording.ErrCodeNoActiveSession, body["code"])
}

func TestHandleStop_MissingKey(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, _ := doJSON(t, srv.Handler(), http.MethodPost, "/stop", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec, _ := doJSON(t, handler, http.MethodGet, "/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodGet, "/stop", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["activeSessions"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recorder_sessions_total")
}

func TestRequestsRejectedDuringShutdown(t *testing.T) {
	srv, _ := newTestServer(t)

	srv.shutdownMu.Lock()
	srv.isShuttingDown = true
	srv.shutdownMu.Unlock()

	rec, _ := doJSON(t, srv.Handler(), http.MethodPost, "/stop", `{"key":"room-1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
