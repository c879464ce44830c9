package capture

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSink_AppendsChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording_1.webm")
	sink, err := newChunkSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Write([]byte("abc")))
	require.NoError(t, sink.Write([]byte("def")))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))
	assert.Equal(t, path, sink.Path())
}

func TestChunkSink_WriteAfterCloseIsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording_1.webm")
	sink, err := newChunkSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Write([]byte("abc")))
	require.NoError(t, sink.Close())

	// Chunks still in flight from browser event goroutines
	assert.NoError(t, sink.Write([]byte("late")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestChunkSink_DoubleCloseIsIdempotent(t *testing.T) {
	sink, err := newChunkSink(filepath.Join(t.TempDir(), "recording_1.webm"))
	require.NoError(t, err)

	require.NoError(t, sink.Close())
	assert.NoError(t, sink.Close())
}

func TestChunkSink_ConcurrentWritersDoNotInterleaveWithClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording_1.webm")
	sink, err := newChunkSink(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = sink.Write([]byte("x"))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = sink.Close()
	}()
	wg.Wait()

	// Whatever made it in before Close must be intact on disk
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, b := range data {
		assert.Equal(t, byte('x'), b)
	}
}

func TestNewChunkSink_BadDirectory(t *testing.T) {
	_, err := newChunkSink(filepath.Join(t.TempDir(), "missing", "recording_1.webm"))
	assert.Error(t, err)
}
