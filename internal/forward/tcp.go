package forward

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/antonkass/eventsink/internal/event"
)

const ackOK = 0x00

// TCPClient speaks the framed batch protocol to a downstream agent's
// ingest listener: a uint32 LE event count followed by that many event
// frames, answered by a single ack byte for the whole batch.
type TCPClient struct {
	conn   net.Conn
	cfg    *TCPConfig
	logger *zap.Logger
	buf    []byte
	alive  bool
}

// NewTCPClient dials the collector. The returned client is live until
// the first transport error, failed ack or Close.
func NewTCPClient(logger *zap.Logger, cfg *TCPConfig, capacityHint int) (*TCPClient, error) {
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial collector %s: %w", addr, err)
	}

	logger.Info("collector connection established",
		zap.String("addr", addr),
		zap.Int("capacity_hint", capacityHint),
	)

	return &TCPClient{
		conn:   conn,
		cfg:    cfg,
		logger: logger,
		buf:    make([]byte, 0, capacityHint*256),
		alive:  true,
	}, nil
}

func (c *TCPClient) IsActive() bool {
	return c.alive
}

func (c *TCPClient) AppendBatch(ctx context.Context, batch []event.Event) error {
	if !c.alive {
		return fmt.Errorf("append batch: connection is not active")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.buf = c.buf[:0]
	c.buf = binary.LittleEndian.AppendUint32(c.buf, uint32(len(batch)))
	for _, ev := range batch {
		c.buf = event.AppendFrame(c.buf, ev)
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if _, err := c.conn.Write(c.buf); err != nil {
		c.alive = false
		return fmt.Errorf("write batch: %w", err)
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.AckTimeout))
	var ack [1]byte
	if _, err := io.ReadFull(c.conn, ack[:]); err != nil {
		c.alive = false
		return fmt.Errorf("read batch ack: %w", err)
	}
	if ack[0] != ackOK {
		c.alive = false
		return fmt.Errorf("collector rejected batch: ack=0x%02X", ack[0])
	}
	return nil
}

func (c *TCPClient) Close() error {
	c.alive = false
	return c.conn.Close()
}
