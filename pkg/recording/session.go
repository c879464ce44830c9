package recording

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synergix/vcall-recorder/pkg/capture"
)

// State is a session lifecycle state
type State int

const (
	StateCreated State = iota
	StateCapturing
	StateStopping
	StatePipelineRunning
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateCapturing:
		return "capturing"
	case StateStopping:
		return "stopping"
	case StatePipelineRunning:
		return "pipeline_running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the state admits no further transitions
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Artifact kinds produced over a session's lifetime
const (
	ArtifactSource = "source"
	ArtifactVideo  = "video"
	ArtifactAudio  = "audio"
)

// Session tracks one capture-to-archive lifecycle for a single call key.
// It is created by Registry.Claim and mutated only by the Orchestrator.
type Session struct {
	ID        string
	Key       string
	WorkDir   string
	StartedAt time.Time

	mu         sync.Mutex
	state      State
	handle     capture.Handle
	artifacts  map[string]string
	resultURLs map[string]string
}

func newSession(key, workDir string) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Key:        key,
		WorkDir:    workDir,
		StartedAt:  time.Now(),
		state:      StateCreated,
		artifacts:  make(map[string]string),
		resultURLs: make(map[string]string),
	}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// advance moves the session forward to next. Sessions never move backward:
// the transition is refused unless next is strictly later than the current
// state, except that StateFailed is reachable from any non-terminal state.
func (s *Session) advance(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return false
	}
	if next == StateFailed {
		s.state = StateFailed
		return true
	}
	if next <= s.state {
		return false
	}
	s.state = next
	return true
}

func (s *Session) attachHandle(h capture.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = h
}

func (s *Session) takeHandle() capture.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handle
	s.handle = nil
	return h
}

// recordArtifact registers a produced file path. Artifacts are immutable
// once recorded; a second write for the same kind is ignored.
func (s *Session) recordArtifact(kind, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.artifacts[kind]; exists {
		return
	}
	s.artifacts[kind] = path
}

// Artifacts returns a copy of the recorded artifact paths
func (s *Session) Artifacts() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.artifacts))
	for k, v := range s.artifacts {
		out[k] = v
	}
	return out
}

func (s *Session) setResultURLs(urls map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range urls {
		s.resultURLs[k] = v
	}
}

// ResultURLs returns a copy of the durable (or fallback) artifact locations
func (s *Session) ResultURLs() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.resultURLs))
	for k, v := range s.resultURLs {
		out[k] = v
	}
	return out
}
