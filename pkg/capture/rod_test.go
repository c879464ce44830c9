package capture

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
)

func TestMediaPermissions(t *testing.T) {
	grant := mediaPermissions("https://calls.example.com")

	assert.Equal(t, "https://calls.example.com", grant.Origin)
	assert.Equal(t, []proto.BrowserPermissionType{
		proto.BrowserPermissionTypeAudioCapture,
		proto.BrowserPermissionTypeVideoCapture,
	}, grant.Permissions)
}

func TestRecorderScript_Rendering(t *testing.T) {
	script := fmt.Sprintf(recorderScript, 2500000, time.Second.Milliseconds())

	assert.Contains(t, script, "videoBitsPerSecond: 2500000")
	assert.Contains(t, script, "recorder.start(1000)")
	assert.NotContains(t, script, "%d")
}

func TestRecorderScript_StopWaitsForQueuedForwards(t *testing.T) {
	// Chunk forwards are chained and the stop promise resolves behind them,
	// so the last chunk reaches the binding before teardown closes the sink.
	assert.Contains(t, recorderScript, "forwards = forwards.then(")
	assert.Contains(t, recorderScript, "forwards.then(() => {")
}
