package ingest

import (
	"context"

	"github.com/antonkass/eventsink/internal/channel"
)

// Ingest accepts upstream agents and feeds their events into the
// channel.
type Ingest interface {
	Serve(ctx context.Context, ch channel.Channel) error
	Close(ctx context.Context) error
}
