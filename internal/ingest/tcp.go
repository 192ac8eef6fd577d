package ingest

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/antonkass/eventsink/internal/channel"
	"github.com/antonkass/eventsink/internal/event"
)

const (
	ackOK     = 0x00
	ackFailed = 0x01
)

// TCPServer listens for framed event batches and puts them into the
// channel. The wire format matches the forwarder's, so one agent's sink
// can point at another agent's ingest: a uint32 LE count, that many
// event frames, one ack byte back for the whole batch.
type TCPServer struct {
	cfg       *TCPConfig
	metrics   *metrics
	mu        sync.Mutex
	listener  net.Listener
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	logger    *zap.Logger
}

func NewTCPServer(logger *zap.Logger, cfg *TCPConfig, registerMetrics bool) *TCPServer {
	return &TCPServer{
		cfg:     cfg,
		metrics: initMetrics(registerMetrics),
		logger:  logger,
	}
}

func (s *TCPServer) Serve(ctx context.Context, ch channel.Channel) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	sem := make(chan struct{}, s.cfg.MaxConnections)
	s.logger.Info("TCP ingest started", zap.String("addr", s.cfg.BindAddr))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.ctx.Err() != nil {
				return nil // graceful shutdown
			}

			s.logger.Error("tcp accept failed", zap.Error(err))
			s.metrics.incError()
			continue
		}

		select {
		case sem <- struct{}{}:
			s.wg.Add(1)
			go func(c net.Conn) {
				defer func() {
					<-sem
					s.wg.Done()
				}()
				s.handleConn(c, ch)
			}(conn)
		default:
			s.logger.Warn("too many connections - rejecting client")
			conn.Close()
		}
	}
}

func (s *TCPServer) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("TCP ingest shutting down...")

		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Lock()
		if s.listener != nil {
			err = s.listener.Close()
		}
		s.mu.Unlock()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			s.logger.Info("TCP ingest shutdown complete")
		case <-ctx.Done():
			err = ctx.Err()
			s.logger.Warn("TCP ingest shutdown timeout", zap.Error(err))
		}
	})
	return err
}

// Addr reports the bound listen address, or nil before Serve has bound
// it. Lets tests listen on port 0.
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *TCPServer) handleConn(conn net.Conn, ch channel.Channel) {
	defer conn.Close()

	logger := s.logger.With(zap.String("remote", conn.RemoteAddr().String()))

	for {
		select {
		case <-s.ctx.Done():
			logger.Info("context canceled - closing connection")
			return
		default:
		}

		start := time.Now()

		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		var countBuf [4]byte
		if _, err := io.ReadFull(conn, countBuf[:]); err != nil {
			if os.IsTimeout(err) {
				logger.Warn("timeout reading batch count")
			} else if err != io.EOF {
				logger.Error("read batch count error", zap.Error(err))
			}
			s.metrics.incError()
			return
		}

		count := binary.LittleEndian.Uint32(countBuf[:])
		if count == 0 || count > MaxBatchCount {
			logger.Warn("invalid batch count", zap.Uint32("count", count))
			s.metrics.incError()
			return
		}

		accepted := true
		for i := uint32(0); i < count; i++ {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
			ev, err := event.ReadFrame(conn)
			if err != nil {
				logger.Error("read event frame error", zap.Error(err))
				s.metrics.incError()
				return
			}
			if err := ch.Put(ev); err != nil {
				logger.Warn("channel put failed", zap.Error(err))
				s.metrics.incError()
				accepted = false
			}
		}

		ack := byte(ackOK)
		if !accepted {
			ack = ackFailed
		}
		_ = conn.SetWriteDeadline(time.Now().Add(1 * time.Second))
		if _, err := conn.Write([]byte{ack}); err != nil {
			logger.Error("failed to write ack", zap.Error(err))
			s.metrics.incError()
			return
		}

		s.metrics.batchLatency.Observe(time.Since(start).Seconds())
	}
}
