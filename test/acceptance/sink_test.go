package acceptance_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/antonkass/eventsink/internal/event"
	"github.com/antonkass/eventsink/internal/forward"
)

// Requires a running agent (ingest on :9000, forward type=kafka,
// topic=events) and a Kafka broker on localhost:9092.
func TestSinkEndToEnd(t *testing.T) {
	if os.Getenv("ACCEPTANCE") == "" {
		t.Skip("set ACCEPTANCE=1 to run against a live agent")
	}

	const count = 100

	client, err := forward.NewTCPClient(zaptest.NewLogger(t), &forward.TCPConfig{
		Host:         "localhost",
		Port:         9000,
		DialTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		AckTimeout:   2 * time.Second,
	}, count)
	require.NoError(t, err)
	defer client.Close()

	for i := 0; i < count; i++ {
		body := []byte(fmt.Sprintf("acceptance-%d", i))
		err := client.AppendBatch(context.Background(), []event.Event{
			event.New(body).WithHeader("test", "acceptance"),
		})
		require.NoError(t, err)
	}

	msgs := readFromKafka(t, "events", count)
	require.Len(t, msgs, count)

	seen := make(map[string]struct{}, count)
	for _, raw := range msgs {
		seen[raw] = struct{}{}
	}
	for i := 0; i < count; i++ {
		_, ok := seen[fmt.Sprintf("acceptance-%d", i)]
		require.True(t, ok, "missing event %d", i)
	}
}

func readFromKafka(t *testing.T, topic string, expected int) []string {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{"localhost:9092"},
		Topic:    topic,
		GroupID:  "acceptance-test-group",
		MaxWait:  1 * time.Second,
		MinBytes: 1,
		MaxBytes: 1_000_000,
	})
	defer r.Close()

	var results []string
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for len(results) < expected {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			t.Fatalf("failed to read from kafka: %v", err)
		}
		results = append(results, string(m.Value))
	}

	return results
}
