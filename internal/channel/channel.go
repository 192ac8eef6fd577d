package channel

import (
	"errors"

	"github.com/antonkass/eventsink/internal/event"
)

var (
	// ErrChannelFull is returned by Put when the channel is at capacity.
	ErrChannelFull = errors.New("channel is full")

	// ErrClosed is returned for operations on a closed channel.
	ErrClosed = errors.New("channel is closed")
)

// Channel is a transactional event queue. Put appends an event;
// consumption happens through a Tx so that a batch of takes commits or
// rolls back as a unit.
type Channel interface {
	Put(ev event.Event) error
	BeginTx() (Tx, error)
	Depth() int
	Close() error
}

// Tx bounds one batch of takes. Take reports ok=false when the channel
// has no more events visible to this transaction; the caller stops
// collecting at that point. Close releases the transaction and rolls
// back any takes not yet committed; it is safe to call after either
// Commit or Rollback.
type Tx interface {
	Take() (ev event.Event, ok bool, err error)
	Commit() error
	Rollback() error
	Close()
}
