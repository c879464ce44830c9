package recording

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := NewError(ErrCodeAlreadyActive, "session already active")
	assert.Equal(t, "ALREADY_ACTIVE: session already active", err.Error())

	wrapped := WrapError(ErrCodeEncodeFailed, "transcode stage failed", errors.New("exit status 1"))
	assert.Contains(t, wrapped.Error(), "ENCODE_FAILED")
	assert.Contains(t, wrapped.Error(), "exit status 1")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(ErrCodeStartFailed, "failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsCode(t *testing.T) {
	err := NewError(ErrCodeNoActiveSession, "nothing here")
	assert.True(t, IsCode(err, ErrCodeNoActiveSession))
	assert.False(t, IsCode(err, ErrCodeAlreadyActive))

	// Works through wrapping
	assert.True(t, IsCode(fmt.Errorf("handler: %w", err), ErrCodeNoActiveSession))

	assert.False(t, IsCode(errors.New("plain"), ErrCodeNoActiveSession))
	assert.False(t, IsCode(nil, ErrCodeNoActiveSession))
}
