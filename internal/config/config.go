package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/antonkass/eventsink/internal/channel"
	"github.com/antonkass/eventsink/internal/forward"
	"github.com/antonkass/eventsink/internal/ingest"
	"github.com/antonkass/eventsink/internal/logger"
	"github.com/antonkass/eventsink/internal/sink"
)

type Config struct {
	MetricsAddr string `mapstructure:"metrics_addr"`

	Channel channel.Config `mapstructure:"channel"`
	Ingest  ingest.Config  `mapstructure:"ingest"`
	Sink    sink.Config    `mapstructure:"sink"`
	Forward forward.Config `mapstructure:"forward"`
	Logger  logger.Config  `mapstructure:"logger"`
}

func NewConfigInit(cfgFile *string) func() {
	return func() {
		if strings.TrimSpace(*cfgFile) == "" {
			log.Fatalf("invalid config file name")
		}
		if _, err := os.Stat(*cfgFile); err != nil {
			log.Fatalf("invalid config path: %v", err)
		}
		viper.SetConfigFile(*cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("Failed to read config: %v\n", err)
		}
	}
}

func New(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger config: %w", err)
	}
	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("channel config: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest config: %w", err)
	}
	if err := c.Sink.Validate(); err != nil {
		return fmt.Errorf("sink config: %w", err)
	}
	if err := c.Forward.Validate(); err != nil {
		return fmt.Errorf("forward config: %w", err)
	}
	return nil
}
