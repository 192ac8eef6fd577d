package sink

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/antonkass/eventsink/internal/channel"
	"github.com/antonkass/eventsink/internal/event"
	"github.com/antonkass/eventsink/internal/forward"
)

// Outcome tells the runner whether to invoke Process again immediately
// or delay the next invocation.
type Outcome int

const (
	Ready Outcome = iota
	Backoff
)

func (o Outcome) String() string {
	if o == Backoff {
		return "backoff"
	}
	return "ready"
}

// DeliveryError is the only hard failure Process surfaces: the batch
// could not be delivered downstream, the transaction was rolled back
// and the connection was destroyed.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("event delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Sink drains the channel in bounded batches and forwards them
// downstream. It owns a single connection slot: at any instant the slot
// is either empty or holds exactly one client believed live, created
// lazily and destroyed on failure or shutdown.
//
// All methods are driven by one runner goroutine at a time; the slot
// needs no locking under that assumption.
type Sink struct {
	cfg     Config
	channel channel.Channel
	dial    forward.Factory
	client  forward.Client
	rec     Recorder
	logger  *zap.Logger
}

func New(logger *zap.Logger, cfg Config, ch channel.Channel, dial forward.Factory, rec Recorder) *Sink {
	return &Sink{
		cfg:     cfg,
		channel: ch,
		dial:    dial,
		rec:     rec,
		logger:  logger,
	}
}

// Start eagerly opens the connection so the first Process call does not
// pay the dial latency. Failure here is logged and swallowed: Process
// reconnects lazily, and the downstream may simply not be up yet.
func (s *Sink) Start() {
	s.logger.Info("starting sink", zap.Int("batch_size", s.cfg.BatchSize))

	if err := s.ensureConnection(); err != nil {
		s.logger.Warn("eager connect failed, will retry on demand", zap.Error(err))
		s.destroyConnection()
	}
}

// Stop tears the connection down unconditionally. Idempotent.
func (s *Sink) Stop() {
	s.logger.Info("stopping sink")
	s.destroyConnection()
}

// Process is one complete dispatch attempt: begin a channel
// transaction, verify the connection, take up to the batch size,
// forward, commit. Channel-level failures roll back and come out as
// Backoff only; everything else in the protected region rolls back,
// destroys the connection and surfaces a *DeliveryError.
func (s *Sink) Process(ctx context.Context) (Outcome, error) {
	tx, err := s.channel.BeginTx()
	if err != nil {
		s.logger.Error("channel begin failed", zap.Error(err))
		return Backoff, nil
	}
	defer tx.Close()

	if err := s.verifyConnection(); err != nil {
		s.rollback(tx)
		s.destroyConnection()
		return Backoff, &DeliveryError{Err: err}
	}

	batch := make([]event.Event, 0, s.cfg.BatchSize)
	for i := 0; i < s.cfg.BatchSize; i++ {
		ev, ok, err := tx.Take()
		if err != nil {
			s.logger.Error("channel take failed", zap.Error(err))
			s.rollback(tx)
			return Backoff, nil
		}
		if !ok {
			s.rec.IncUnderflow()
			break
		}
		batch = append(batch, ev)
	}

	outcome := Ready
	if len(batch) == 0 {
		// No round trip for an empty batch.
		s.rec.IncEmpty()
		outcome = Backoff
	} else {
		if err := s.client.AppendBatch(ctx, batch); err != nil {
			s.rollback(tx)
			s.destroyConnection()
			return Backoff, &DeliveryError{Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("channel commit failed", zap.Error(err))
		s.rollback(tx)
		return Backoff, nil
	}
	s.rec.IncSuccess()

	return outcome, nil
}

// ensureConnection fills the slot if empty. A no-op when a client is
// already held, regardless of its health.
func (s *Sink) ensureConnection() error {
	if s.client != nil {
		return nil
	}

	client, err := s.dial(s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.client = client
	return nil
}

// verifyConnection guarantees a client believed live before a send,
// replacing a handle whose liveness check fails.
func (s *Sink) verifyConnection() error {
	if s.client == nil {
		return s.ensureConnection()
	}
	if !s.client.IsActive() {
		s.logger.Warn("connection inactive, reconnecting")
		s.destroyConnection()
		return s.ensureConnection()
	}
	return nil
}

// destroyConnection empties the slot. Close failures are logged, never
// propagated: they must not mask the error that brought us here.
func (s *Sink) destroyConnection() {
	if s.client == nil {
		return
	}
	if err := s.client.Close(); err != nil {
		s.logger.Warn("connection close failed", zap.Error(err))
	}
	s.client = nil
}

func (s *Sink) rollback(tx channel.Tx) {
	if err := tx.Rollback(); err != nil {
		s.logger.Error("transaction rollback failed", zap.Error(err))
	}
}
