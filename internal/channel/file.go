package channel

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/antonkass/eventsink/internal/event"
)

// FileChannel is a durable channel backed by a pebble keyspace. Events
// are stored under 8-byte big-endian sequence keys so iteration order
// is arrival order. A transaction reads through a snapshot iterator and
// stages deletes in a pebble batch; commit applies the batch with fsync,
// rollback discards it, so a crash mid-batch re-delivers the events.
type FileChannel struct {
	db      *pebble.DB
	cfg     *FileConfig
	logger  *zap.Logger
	mu      sync.Mutex
	nextSeq uint64
	closed  bool
}

func OpenFile(logger *zap.Logger, cfg *FileConfig) (*FileChannel, error) {
	db, err := pebble.Open(cfg.Dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open channel db: %w", err)
	}

	c := &FileChannel{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
	if err := c.recoverSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("file channel opened",
		zap.String("dir", cfg.Dir),
		zap.Uint64("next_seq", c.nextSeq),
	)
	return c, nil
}

func (c *FileChannel) recoverSeq() error {
	iter, err := c.db.NewIter(nil)
	if err != nil {
		return fmt.Errorf("recover seq: %w", err)
	}
	defer iter.Close()

	if iter.Last() && iter.Valid() {
		c.nextSeq = binary.BigEndian.Uint64(iter.Key()) + 1
	}
	return nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func (c *FileChannel) Put(ev event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	opts := pebble.NoSync
	if c.cfg.SyncOnPut {
		opts = pebble.Sync
	}
	if err := c.db.Set(seqKey(c.nextSeq), event.AppendFrame(nil, ev), opts); err != nil {
		return fmt.Errorf("channel put: %w", err)
	}
	c.nextSeq++
	return nil
}

func (c *FileChannel) BeginTx() (Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	iter, err := c.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("channel tx: %w", err)
	}
	return &fileTx{
		ch:    c,
		iter:  iter,
		batch: c.db.NewBatch(),
	}, nil
}

// Depth scans the keyspace; intended for startup reporting and the
// compact command, not the hot path.
func (c *FileChannel) Depth() int {
	iter, err := c.db.NewIter(nil)
	if err != nil {
		c.logger.Warn("depth scan failed", zap.Error(err))
		return 0
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n
}

// Compact runs a manual compaction over the whole keyspace, reclaiming
// space left by committed (deleted) events.
func (c *FileChannel) Compact() error {
	start := make([]byte, 8)
	end := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	if err := c.db.Compact(start, end, true); err != nil {
		return fmt.Errorf("channel compact: %w", err)
	}
	return nil
}

func (c *FileChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

type fileTx struct {
	ch      *FileChannel
	iter    *pebble.Iterator
	batch   *pebble.Batch
	started bool
	done    bool
}

func (t *fileTx) Take() (event.Event, bool, error) {
	if t.done {
		return event.Event{}, false, ErrClosed
	}

	var valid bool
	if !t.started {
		valid = t.iter.First()
		t.started = true
	} else {
		valid = t.iter.Next()
	}
	if !valid {
		return event.Event{}, false, nil
	}

	ev, err := event.DecodeFrame(t.iter.Value())
	if err != nil {
		return event.Event{}, false, fmt.Errorf("channel take: %w", err)
	}
	if err := t.batch.Delete(t.iter.Key(), nil); err != nil {
		return event.Event{}, false, fmt.Errorf("channel take: %w", err)
	}
	return ev, true, nil
}

func (t *fileTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.closeIter()

	if err := t.batch.Commit(pebble.Sync); err != nil {
		_ = t.batch.Close()
		return fmt.Errorf("channel commit: %w", err)
	}
	return nil
}

func (t *fileTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.closeIter()

	if err := t.batch.Close(); err != nil {
		return fmt.Errorf("channel rollback: %w", err)
	}
	return nil
}

func (t *fileTx) Close() {
	if t.done {
		return
	}
	if err := t.Rollback(); err != nil {
		t.ch.logger.Warn("tx close rollback failed", zap.Error(err))
	}
}

func (t *fileTx) closeIter() {
	if t.iter == nil {
		return
	}
	if err := t.iter.Close(); err != nil {
		t.ch.logger.Warn("tx iterator close failed", zap.Error(err))
	}
	t.iter = nil
}
