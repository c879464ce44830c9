package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	m := New()

	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
	m.PipelineOutcomesTotal.WithLabelValues("done").Inc()
	m.PipelineOutcomesTotal.WithLabelValues("failed").Inc()
	m.EncodeDuration.Observe(12.5)
	m.UploadFallbacksTotal.Inc()
	m.CollaboratorFailuresTotal.WithLabelValues("persist").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "recorder_sessions_total 1")
	assert.Contains(t, body, "recorder_sessions_active 1")
	assert.Contains(t, body, `recorder_pipeline_outcomes_total{outcome="done"} 1`)
	assert.Contains(t, body, `recorder_pipeline_outcomes_total{outcome="failed"} 1`)
	assert.Contains(t, body, "recorder_upload_fallbacks_total 1")
	assert.Contains(t, body, `recorder_collaborator_failures_total{operation="persist"} 1`)
	assert.Contains(t, body, "recorder_encode_duration_seconds_count 1")
}

func TestNew_IsolatedRegistries(t *testing.T) {
	a := New()
	b := New()
	a.SessionsTotal.Inc()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "recorder_sessions_total 0")
}
