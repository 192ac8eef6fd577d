package compact

import (
	"go.uber.org/zap"

	"github.com/antonkass/eventsink/internal/channel"
)

type Config struct {
	Dir string
}

// Service reclaims disk space in a file channel that is not currently
// owned by a running agent, and reports how many events are pending.
type Service struct {
	cfg    *Config
	logger *zap.Logger
}

func NewService(logger *zap.Logger, cfg *Config) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Service) CompactChannel() error {
	ch, err := channel.OpenFile(s.logger, &channel.FileConfig{Dir: s.cfg.Dir})
	if err != nil {
		return err
	}
	defer ch.Close()

	depth := ch.Depth()

	if err := ch.Compact(); err != nil {
		return err
	}

	s.logger.Info("channel compaction completed",
		zap.String("dir", s.cfg.Dir),
		zap.Int("pending_events", depth),
	)
	return nil
}
