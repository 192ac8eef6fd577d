package sink

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Processor is the runner's view of a sink: one dispatch attempt per
// call.
type Processor interface {
	Process(ctx context.Context) (Outcome, error)
}

// Runner drives a sink in a single goroutine: Ready invokes again
// immediately, Backoff and failures delay the next invocation with
// exponential backoff. It guarantees at most one in-flight Process call
// per sink, which is what keeps the connection slot single-threaded.
type Runner struct {
	sink       Processor
	maxBackoff time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
	wg         sync.WaitGroup
	logger     *zap.Logger
}

func NewRunner(logger *zap.Logger, s Processor, maxBackoff time.Duration) *Runner {
	return &Runner{
		sink:       s,
		maxBackoff: maxBackoff,
		logger:     logger,
	}
}

func (r *Runner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run()
	}()
}

func (r *Runner) run() {
	logger := r.logger.With(zap.String("method", "run"))

	var delay time.Duration
	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		outcome, err := r.sink.Process(r.ctx)
		switch {
		case err != nil:
			logger.Error("dispatch failed", zap.Error(err))
			delay = nextBackoff(delay, r.maxBackoff)
		case outcome == Backoff:
			delay = nextBackoff(delay, r.maxBackoff)
		default:
			delay = 0
			continue
		}

		select {
		case <-time.After(delay):
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Runner) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Info("sink runner shutting down...")

		if r.cancel != nil {
			r.cancel()
		}

		done := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			r.logger.Info("sink runner shutdown complete")
		case <-ctx.Done():
			err = ctx.Err()
			r.logger.Warn("sink runner shutdown timeout", zap.Error(err))
		}
	})
	return err
}

func nextBackoff(prev, max time.Duration) time.Duration {
	if prev <= 0 {
		return 500 * time.Millisecond
	}
	return min(prev*2, max)
}
