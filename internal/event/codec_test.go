package event_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonkass/eventsink/internal/event"
)

func TestFrameRoundTrip(t *testing.T) {
	t.Parallel()

	ev := event.New([]byte("payload-123")).
		WithHeader("source", "tcp").
		WithHeader("host", "node-1")

	var buf bytes.Buffer
	require.NoError(t, event.WriteFrame(&buf, ev))

	got, err := event.ReadFrame(&buf)
	require.NoError(t, err)

	assert.Equal(t, ev.Body, got.Body)
	assert.Equal(t, ev.Headers, got.Headers)
}

func TestFrameRoundTrip_NoHeaders(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, event.WriteFrame(&buf, event.New([]byte("bare"))))

	got, err := event.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("bare"), got.Body)
	assert.Empty(t, got.Headers)
}

func TestReadFrame_CorruptChecksum(t *testing.T) {
	t.Parallel()

	frame := event.AppendFrame(nil, event.New([]byte("damaged")))
	frame[len(frame)-1] ^= 0xFF

	_, err := event.ReadFrame(bytes.NewReader(frame))
	assert.ErrorIs(t, err, event.ErrCorruptFrame)
}

func TestReadFrame_ZeroLength(t *testing.T) {
	t.Parallel()

	_, err := event.ReadFrame(bytes.NewReader(make([]byte, event.FrameHeaderSize)))
	assert.ErrorIs(t, err, event.ErrFrameTooLarge)
}

func TestDecodeFrame_Truncated(t *testing.T) {
	t.Parallel()

	frame := event.AppendFrame(nil, event.New([]byte("short")))
	_, err := event.DecodeFrame(frame[:len(frame)-2])
	assert.ErrorIs(t, err, event.ErrCorruptFrame)
}
