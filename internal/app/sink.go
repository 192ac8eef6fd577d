package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/antonkass/eventsink/internal/channel"
	"github.com/antonkass/eventsink/internal/config"
	"github.com/antonkass/eventsink/internal/forward"
	"github.com/antonkass/eventsink/internal/ingest"
	"github.com/antonkass/eventsink/internal/logger"
	"github.com/antonkass/eventsink/internal/metrics"
	"github.com/antonkass/eventsink/internal/sink"
)

const EnvStage = "ENVIRONMENT"

func SinkCmd(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	collectMetrics := cfg.MetricsAddr != ""
	var metricsCloser func(ctx context.Context) error
	if collectMetrics {
		metricsSrv, cl := metrics.New(l, cfg.MetricsAddr)
		metricsSrv.Start()
		metricsCloser = cl
	}

	ch, err := func() (channel.Channel, error) {
		switch cfg.Channel.Type {
		case "memory":
			return channel.NewMemory(cfg.Channel.Memory), nil
		case "file":
			return channel.OpenFile(l, cfg.Channel.File)
		default:
			return nil, fmt.Errorf("unsupported channel type: %s", cfg.Channel.Type)
		}
	}()
	if err != nil {
		return fmt.Errorf("channel init error: %w", err)
	}

	factory, err := func() (forward.Factory, error) {
		switch cfg.Forward.Type {
		case "tcp":
			return func(hint int) (forward.Client, error) {
				return forward.NewTCPClient(l, cfg.Forward.TCP, hint)
			}, nil
		case "kafka":
			return func(_ int) (forward.Client, error) {
				return forward.NewKafkaClient(l, cfg.Forward.Kafka)
			}, nil
		default:
			return nil, fmt.Errorf("unsupported forward type: %s", cfg.Forward.Type)
		}
	}()
	if err != nil {
		return fmt.Errorf("forward init error: %w", err)
	}

	snk := sink.New(l, cfg.Sink, ch, factory, sink.NewRecorder(collectMetrics))
	snk.Start()

	runner := sink.NewRunner(l, snk, cfg.Sink.MaxBackoff)
	runner.Start(ctx)

	ingestor := ingest.NewTCPServer(l, cfg.Ingest.TCP, collectMetrics)
	go func() {
		if err := ingestor.Serve(ctx, ch); err != nil {
			l.Error("ingest server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	l.Info("shutdown signal received")

	clCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// Stop accepting before draining: ingest first, then the runner, then
	// the connection and the store.
	if err := ingestor.Close(clCtx); err != nil {
		l.Error("error shutting down ingest", zap.Error(err))
	}
	if err := runner.Close(clCtx); err != nil {
		l.Error("error shutting down runner", zap.Error(err))
	}

	g, _ := errgroup.WithContext(clCtx)
	g.Go(func() error { snk.Stop(); return nil })
	g.Go(func() error { return ch.Close() })
	if collectMetrics {
		g.Go(func() error { return metricsCloser(clCtx) })
	}

	if err := g.Wait(); err != nil {
		l.Error("shutdown errors", zap.Error(err))
	} else {
		l.Info("shutdown complete")
	}

	return nil
}
