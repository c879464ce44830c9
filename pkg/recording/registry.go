package recording

import (
	"fmt"
	"sync"
)

// Registry is the concurrency-safe map from call key to active session.
// It is the sole authority for session existence: a key is present exactly
// while its session is active, and is removed as soon as capture resources
// are torn down, not when the post-stop pipeline finishes.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Claim atomically creates and registers a session for key. It fails with
// AlreadyActive if a non-terminal session already holds the key. A leftover
// terminal session (failed before release) is evicted and replaced.
func (r *Registry) Claim(key, workDir string) (*Session, error) {
	if key == "" {
		return nil, NewError(ErrCodeStartFailed, "session key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[key]; ok && !existing.State().Terminal() {
		return nil, NewError(ErrCodeAlreadyActive, fmt.Sprintf("session already active for key %q", key))
	}

	sess := newSession(key, workDir)
	r.sessions[key] = sess
	return sess, nil
}

// Release removes key from the registry. Releasing an unknown key is a no-op.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// Lookup returns the active session for key
func (r *Registry) Lookup(key string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[key]
	if !ok {
		return nil, NewError(ErrCodeNoActiveSession, fmt.Sprintf("no active session for key %q", key))
	}
	return sess, nil
}

// Len returns the number of registered sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
