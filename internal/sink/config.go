package sink

import (
	"fmt"
	"time"
)

const (
	DefaultBatchSize  = 100
	DefaultMaxBackoff = 3 * time.Second
)

type Config struct {
	BatchSize  int           `mapstructure:"batch_size"`
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
}

// Validate fills defaults for optional fields and rejects nonsense.
func (c *Config) Validate() error {
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be > 0")
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.MaxBackoff < 0 {
		return fmt.Errorf("max_backoff must be > 0")
	}
	return nil
}
