package ingest

import (
	"fmt"
	"time"
)

// MaxBatchCount bounds the declared event count of one inbound batch.
const MaxBatchCount = 10000

type Config struct {
	Type string     `mapstructure:"type"`
	TCP  *TCPConfig `mapstructure:"tcp"`
}

type TCPConfig struct {
	BindAddr       string        `mapstructure:"bind_addr"`
	MaxConnections int           `mapstructure:"max_connections"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
}

func (c *Config) Validate() error {
	switch c.Type {
	case "tcp":
		if c.TCP == nil {
			return fmt.Errorf("tcp config must be provided for type=tcp")
		}
		if err := c.TCP.Validate(); err != nil {
			return fmt.Errorf("tcp config: %w", err)
		}
	case "":
		return fmt.Errorf("ingest type is required")
	default:
		return fmt.Errorf("unsupported ingest type: %s", c.Type)
	}
	return nil
}

func (t *TCPConfig) Validate() error {
	if t.BindAddr == "" {
		return fmt.Errorf("tcp.bind_addr is required")
	}
	if t.MaxConnections <= 0 {
		return fmt.Errorf("tcp.max_connections must be > 0")
	}
	if t.ReadTimeout <= 0 {
		return fmt.Errorf("tcp.read_timeout must be > 0")
	}
	return nil
}
