package forward

import (
	"context"

	"github.com/antonkass/eventsink/internal/event"
)

// Client is a live handle to the downstream collector. AppendBatch is
// synchronous and atomic at the batch level: it either delivers every
// event or fails as a unit. IsActive is the handle's own liveness
// report; a client that returns false must be closed and replaced.
type Client interface {
	IsActive() bool
	AppendBatch(ctx context.Context, batch []event.Event) error
	Close() error
}

// Factory opens a new client. The capacity hint is the sink's batch
// size, letting transports pre-size buffers.
type Factory func(capacityHint int) (Client, error)
