package capture

import (
	"fmt"
	"os"
	"sync"
)

// chunkSink appends media chunks to the session's source file. Chunks may
// arrive from browser event goroutines after Stop has begun, so writes after
// Close are silently dropped rather than racing a closed file descriptor.
type chunkSink struct {
	path string

	mu     sync.Mutex
	file   *os.File
	closed bool
}

func newChunkSink(path string) (*chunkSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture sink: %w", err)
	}
	return &chunkSink{path: path, file: file}, nil
}

// Path returns the sink's file path
func (s *chunkSink) Path() string {
	return s.path
}

// Write appends a chunk to the sink file
func (s *chunkSink) Write(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if _, err := s.file.Write(chunk); err != nil {
		return fmt.Errorf("failed to write capture chunk: %w", err)
	}
	return nil
}

// Close flushes and closes the sink file. Subsequent writes are dropped.
func (s *chunkSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to sync capture sink: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close capture sink: %w", err)
	}
	return nil
}
