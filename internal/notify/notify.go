// Package notify informs the upstream call service that a recording is
// ready. Like persistence, notification is best-effort.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier reports a finished recording upstream
type Notifier interface {
	RecordingReady(ctx context.Context, callID, videoURL, audioURL string) error
}

// HTTPNotifier implements Notifier against the upstream HTTP API
type HTTPNotifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPNotifier creates a notifier for the upstream API
func NewHTTPNotifier(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *HTTPNotifier {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPNotifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

type readyPayload struct {
	CallID   string `json:"call_id"`
	VideoURL string `json:"video_url"`
	AudioURL string `json:"audio_url"`
}

// RecordingReady implements Notifier
func (n *HTTPNotifier) RecordingReady(ctx context.Context, callID, videoURL, audioURL string) error {
	body, err := json.Marshal(readyPayload{
		CallID:   callID,
		VideoURL: videoURL,
		AudioURL: audioURL,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.baseURL+"/recordings/ready", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upstream rejected notification: status %d", resp.StatusCode)
	}

	n.logger.Info().Str("callId", callID).Msg("Upstream notified")
	return nil
}
