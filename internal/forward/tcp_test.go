package forward_test

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/antonkass/eventsink/internal/event"
	"github.com/antonkass/eventsink/internal/forward"
)

// fakeCollector accepts one connection and acks every batch with the
// given byte, recording the decoded events.
func fakeCollector(t *testing.T, ack byte, received chan<- event.Event) *forward.TCPConfig {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lis.Close() })

	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var countBuf [4]byte
			if _, err := io.ReadFull(conn, countBuf[:]); err != nil {
				return
			}
			count := binary.LittleEndian.Uint32(countBuf[:])
			for i := uint32(0); i < count; i++ {
				ev, err := event.ReadFrame(conn)
				if err != nil {
					return
				}
				received <- ev
			}
			if _, err := conn.Write([]byte{ack}); err != nil {
				return
			}
		}
	}()

	addr := lis.Addr().(*net.TCPAddr)
	return &forward.TCPConfig{
		Host:         "127.0.0.1",
		Port:         addr.Port,
		DialTimeout:  time.Second,
		WriteTimeout: time.Second,
		AckTimeout:   time.Second,
	}
}

func TestTCPClient_AppendBatch(t *testing.T) {
	t.Parallel()

	received := make(chan event.Event, 8)
	cfg := fakeCollector(t, 0x00, received)

	client, err := forward.NewTCPClient(zaptest.NewLogger(t), cfg, 100)
	require.NoError(t, err)
	defer client.Close()

	batch := []event.Event{
		event.New([]byte("a")).WithHeader("seq", "1"),
		event.New([]byte("b")).WithHeader("seq", "2"),
	}
	require.NoError(t, client.AppendBatch(context.Background(), batch))
	assert.True(t, client.IsActive())

	for i, want := range batch {
		select {
		case got := <-received:
			assert.Equal(t, want.Body, got.Body)
			assert.Equal(t, want.Headers, got.Headers)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}
}

func TestTCPClient_RejectedBatchGoesInactive(t *testing.T) {
	t.Parallel()

	received := make(chan event.Event, 8)
	cfg := fakeCollector(t, 0x01, received)

	client, err := forward.NewTCPClient(zaptest.NewLogger(t), cfg, 10)
	require.NoError(t, err)
	defer client.Close()

	err = client.AppendBatch(context.Background(), []event.Event{event.New([]byte("x"))})
	assert.ErrorContains(t, err, "rejected batch")
	assert.False(t, client.IsActive())
}

func TestTCPClient_AppendAfterCloseFails(t *testing.T) {
	t.Parallel()

	received := make(chan event.Event, 1)
	cfg := fakeCollector(t, 0x00, received)

	client, err := forward.NewTCPClient(zaptest.NewLogger(t), cfg, 10)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	assert.False(t, client.IsActive())
	err = client.AppendBatch(context.Background(), []event.Event{event.New([]byte("x"))})
	assert.Error(t, err)
}

func TestTCPClient_DialFailure(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())

	_, err = forward.NewTCPClient(zaptest.NewLogger(t), &forward.TCPConfig{
		Host:         "127.0.0.1",
		Port:         port,
		DialTimeout:  200 * time.Millisecond,
		WriteTimeout: time.Second,
		AckTimeout:   time.Second,
	}, 10)
	assert.Error(t, err)
}
