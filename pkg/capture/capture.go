// Package capture abstracts the browser-automation engine that records a
// remote call page into a continuous media byte stream. The orchestrator
// only ever sees the Engine and Handle contracts; the underlying automation
// API never leaks past this package.
package capture

import (
	"context"
	"fmt"
)

// Engine acquires capture resources for a call page
type Engine interface {
	// Acquire launches a controlled browser, grants media permissions for
	// the page origin, navigates to url and attaches the capture stream to
	// a sink file inside workDir. The returned handle exclusively owns the
	// live browser resources until Stop is called.
	Acquire(ctx context.Context, url, workDir string) (Handle, error)
}

// Handle owns the live capture resources of one session
type Handle interface {
	// SourcePath returns the path of the file the capture stream writes to
	SourcePath() string
	// Stop tears capture resources down in order: byte sink, capture
	// stream, page, browser process. Teardown is best-effort; the first
	// error is returned after all steps have been attempted.
	Stop(ctx context.Context) error
}

// Error codes for capture failures
const (
	ErrCodeLaunch     = "LAUNCH_FAILED"
	ErrCodePermission = "PERMISSION_FAILED"
	ErrCodeNavigation = "NAVIGATION_FAILED"
	ErrCodeStream     = "STREAM_FAILED"
)

// Error is a capture engine error
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
