package channel

import (
	"sync"

	"github.com/antonkass/eventsink/internal/event"
)

// MemoryChannel is a bounded in-memory queue. Takes are staged inside
// a transaction and only leave the queue for good on commit; rollback
// puts them back at the head in their original order.
//
// Put is safe to call from ingest goroutines concurrently with one
// consuming transaction. The design assumes a single consumer driving
// at most one transaction at a time.
type MemoryChannel struct {
	mu       sync.Mutex
	queue    []event.Event
	capacity int
	closed   bool
}

func NewMemory(cfg *MemConfig) *MemoryChannel {
	return &MemoryChannel{
		queue:    make([]event.Event, 0, cfg.Capacity),
		capacity: cfg.Capacity,
	}
}

func (c *MemoryChannel) Put(ev event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if len(c.queue) >= c.capacity {
		return ErrChannelFull
	}
	c.queue = append(c.queue, ev)
	return nil
}

func (c *MemoryChannel) BeginTx() (Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	return &memoryTx{ch: c}, nil
}

func (c *MemoryChannel) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *MemoryChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type memoryTx struct {
	ch    *MemoryChannel
	taken []event.Event
	done  bool
}

func (t *memoryTx) Take() (event.Event, bool, error) {
	t.ch.mu.Lock()
	defer t.ch.mu.Unlock()

	if t.done {
		return event.Event{}, false, ErrClosed
	}
	if len(t.ch.queue) == 0 {
		return event.Event{}, false, nil
	}

	ev := t.ch.queue[0]
	t.ch.queue = t.ch.queue[1:]
	t.taken = append(t.taken, ev)
	return ev, true, nil
}

func (t *memoryTx) Commit() error {
	t.ch.mu.Lock()
	defer t.ch.mu.Unlock()

	if t.done {
		return nil
	}
	t.done = true
	t.taken = nil
	return nil
}

func (t *memoryTx) Rollback() error {
	t.ch.mu.Lock()
	defer t.ch.mu.Unlock()
	t.rollbackLocked()
	return nil
}

// Close rolls back any unresolved takes so the scope never leaks
// events, then becomes a no-op.
func (t *memoryTx) Close() {
	t.ch.mu.Lock()
	defer t.ch.mu.Unlock()
	t.rollbackLocked()
}

func (t *memoryTx) rollbackLocked() {
	if t.done {
		return
	}
	t.done = true
	if len(t.taken) > 0 {
		t.ch.queue = append(t.taken, t.ch.queue...)
		t.taken = nil
	}
}
