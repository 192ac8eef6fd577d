package ingest_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/antonkass/eventsink/internal/channel"
	"github.com/antonkass/eventsink/internal/event"
	"github.com/antonkass/eventsink/internal/forward"
	"github.com/antonkass/eventsink/internal/ingest"
)

func startServer(t *testing.T, ch channel.Channel) *net.TCPAddr {
	t.Helper()

	srv := ingest.NewTCPServer(zaptest.NewLogger(t), &ingest.TCPConfig{
		BindAddr:       "127.0.0.1:0",
		MaxConnections: 4,
		ReadTimeout:    time.Second,
	}, false)

	go func() {
		_ = srv.Serve(context.Background(), ch)
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Close(ctx)
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if addr := srv.Addr(); addr != nil {
			return addr.(*net.TCPAddr)
		}
		if time.Now().After(deadline) {
			t.Fatal("server did not bind in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dialClient(t *testing.T, addr *net.TCPAddr) *forward.TCPClient {
	t.Helper()
	client, err := forward.NewTCPClient(zaptest.NewLogger(t), &forward.TCPConfig{
		Host:         "127.0.0.1",
		Port:         addr.Port,
		DialTimeout:  time.Second,
		WriteTimeout: time.Second,
		AckTimeout:   time.Second,
	}, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// The forwarder and the ingest server speak the same wire format, so a
// sink can tier into another agent. Exercise the pair end to end.
func TestTCPServer_AcceptsForwardedBatch(t *testing.T) {
	t.Parallel()

	ch := channel.NewMemory(&channel.MemConfig{Capacity: 16})
	addr := startServer(t, ch)
	client := dialClient(t, addr)

	batch := []event.Event{
		event.New([]byte("one")).WithHeader("seq", "1"),
		event.New([]byte("two")).WithHeader("seq", "2"),
	}
	require.NoError(t, client.AppendBatch(context.Background(), batch))
	assert.Equal(t, 2, ch.Depth())

	tx, err := ch.BeginTx()
	require.NoError(t, err)
	defer tx.Close()

	ev, ok, err := tx.Take()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), ev.Body)
	assert.Equal(t, "1", ev.Headers["seq"])
}

func TestTCPServer_FullChannelRejectsBatch(t *testing.T) {
	t.Parallel()

	ch := channel.NewMemory(&channel.MemConfig{Capacity: 1})
	addr := startServer(t, ch)
	client := dialClient(t, addr)

	err := client.AppendBatch(context.Background(), []event.Event{
		event.New([]byte("a")),
		event.New([]byte("b")),
	})
	assert.Error(t, err)
	assert.False(t, client.IsActive())

	// The first event fit before the channel filled up.
	assert.Equal(t, 1, ch.Depth())
}

func TestTCPServer_SequentialBatches(t *testing.T) {
	t.Parallel()

	ch := channel.NewMemory(&channel.MemConfig{Capacity: 64})
	addr := startServer(t, ch)
	client := dialClient(t, addr)

	for i := 0; i < 5; i++ {
		require.NoError(t, client.AppendBatch(context.Background(), []event.Event{
			event.New([]byte("x")),
		}))
	}
	assert.Equal(t, 5, ch.Depth())
}
