package forward

import (
	"fmt"
	"time"
)

type Config struct {
	Type  string       `mapstructure:"type"`
	TCP   *TCPConfig   `mapstructure:"tcp"`
	Kafka *KafkaConfig `mapstructure:"kafka"`
}

type TCPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AckTimeout   time.Duration `mapstructure:"ack_timeout"`
}

type KafkaConfig struct {
	Brokers     []string      `mapstructure:"brokers"`
	Topic       string        `mapstructure:"topic"`
	MaxRetries  int           `mapstructure:"max_retries"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
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
	case "kafka":
		if c.Kafka == nil {
			return fmt.Errorf("kafka config must be provided for type=kafka")
		}
		if err := c.Kafka.Validate(); err != nil {
			return fmt.Errorf("kafka config: %w", err)
		}
	case "":
		return fmt.Errorf("forward type is required")
	default:
		return fmt.Errorf("unsupported forward type: %s", c.Type)
	}
	return nil
}

func (t *TCPConfig) Validate() error {
	if t.Host == "" {
		return fmt.Errorf("tcp.host is required")
	}
	if t.Port <= 0 || t.Port > 65535 {
		return fmt.Errorf("tcp.port must be a valid port")
	}
	if t.DialTimeout <= 0 {
		return fmt.Errorf("tcp.dial_timeout must be > 0")
	}
	if t.WriteTimeout <= 0 {
		return fmt.Errorf("tcp.write_timeout must be > 0")
	}
	if t.AckTimeout <= 0 {
		return fmt.Errorf("tcp.ack_timeout must be > 0")
	}
	return nil
}

func (k *KafkaConfig) Validate() error {
	if len(k.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must not be empty")
	}
	if k.Topic == "" {
		return fmt.Errorf("kafka.topic is required")
	}
	if k.MaxRetries < 0 {
		return fmt.Errorf("kafka.max_retries must be >= 0")
	}
	return nil
}
