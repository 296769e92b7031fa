package spinner

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestNewAppliesDefaults(t *testing.T) {
	tr := New(Config{Writer: &bytes.Buffer{}})
	assert.Equal(t, Drop, tr.config.CharSet)
	assert.Equal(t, 120*time.Millisecond, tr.config.RefreshRate)
	assert.False(t, tr.IsTTY(), "a buffer is not a terminal")

	tr = New(Config{Writer: &bytes.Buffer{}, IsTTY: boolPtr(true)})
	assert.True(t, tr.IsTTY())
}

func TestPlayNonTTYPrintsOnceAndWaits(t *testing.T) {
	var buf bytes.Buffer
	tr := New(Config{Writer: &buf, IsTTY: boolPtr(false)})

	start := time.Now()
	require.NoError(t, tr.Play(context.Background(), 50*time.Millisecond, "You drew a red ball."))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, "You drew a red ball.\n", buf.String())
}

func TestPlayTTYAnimatesAndClears(t *testing.T) {
	var buf bytes.Buffer
	tr := New(Config{
		Writer:      &buf,
		IsTTY:       boolPtr(true),
		HideCursor:  true,
		RefreshRate: 5 * time.Millisecond,
		CharSet:     Line,
	})

	start := time.Now()
	require.NoError(t, tr.Play(context.Background(), 60*time.Millisecond, "drawing"))
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, hideCursor))
	assert.True(t, strings.HasSuffix(out, showCursor))
	assert.Contains(t, out, "| drawing")
	assert.Contains(t, out, "/ drawing")
	assert.Zero(t, tr.lastOutput, "line should be cleared")
}

func TestPlayCancelled(t *testing.T) {
	for _, tty := range []bool{true, false} {
		var buf bytes.Buffer
		tr := New(Config{Writer: &buf, IsTTY: boolPtr(tty), RefreshRate: 5 * time.Millisecond})

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := tr.Play(ctx, 10*time.Second, "drawing")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 5*time.Second)
	}
}

func TestPlayZeroDuration(t *testing.T) {
	var buf bytes.Buffer
	tr := New(Config{Writer: &buf, IsTTY: boolPtr(false)})
	require.NoError(t, tr.Play(context.Background(), 0, "instant"))
	assert.Equal(t, "instant\n", buf.String())
}

func TestClearUsesVisibleWidth(t *testing.T) {
	var buf bytes.Buffer
	tr := New(Config{Writer: &buf, IsTTY: boolPtr(true), CharSet: Drop})

	// "⠁ it is " + "red": the frame is three bytes and the color is wrapped in SGR codes
	tr.render(0, "it is \x1b[1mred\x1b[0m")
	assert.Equal(t, 11, tr.lastOutput)

	buf.Reset()
	tr.clearLine()
	assert.Equal(t, "\r"+strings.Repeat(" ", 11)+"\r", buf.String())
}
