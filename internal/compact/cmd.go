package compact

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/antonkass/eventsink/internal/config"
	"github.com/antonkass/eventsink/internal/logger"
)

const EnvStage = "ENVIRONMENT"

func CompactCmd(_ *cobra.Command, _ []string) error {
	cfg, err := config.New(viper.GetViper())
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	var devMode = strings.ToLower(os.Getenv(EnvStage)) != "prod"
	l, err := logger.New(cfg.Logger, devMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer l.Sync()

	if cfg.Channel.Type != "file" || cfg.Channel.File == nil {
		l.Info("skipping compaction: channel is not file-backed")
		return nil
	}

	svc := NewService(l, &Config{Dir: cfg.Channel.File.Dir})
	return svc.CompactChannel()
}
