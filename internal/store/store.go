// Package store persists recording results on the call record. Persistence
// is best-effort from the pipeline's point of view: the recording already
// succeeded, so a database hiccup is logged, never escalated.
package store

import "context"

// CallStore updates the call row, keyed by the caller-supplied identifier,
// with the resulting artifact locations
type CallStore interface {
	UpdateRecordingURLs(ctx context.Context, callID, videoURL, audioURL string) error
}
