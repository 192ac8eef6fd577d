package forward

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/antonkass/eventsink/internal/event"
)

// KafkaClient delivers batches to a Kafka topic. The sync producer
// keeps AppendBatch's unit semantics: SendMessages fails if any message
// in the batch fails, and the caller rolls the whole batch back.
type KafkaClient struct {
	producer sarama.SyncProducer
	cfg      *KafkaConfig
	logger   *zap.Logger
	closed   bool
}

func NewKafkaClient(logger *zap.Logger, cfg *KafkaConfig) (*KafkaClient, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Retry.Max = cfg.MaxRetries
	if cfg.DialTimeout > 0 {
		saramaCfg.Net.DialTimeout = cfg.DialTimeout
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)

	return &KafkaClient{
		producer: producer,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

func (k *KafkaClient) IsActive() bool {
	return !k.closed
}

func (k *KafkaClient) AppendBatch(ctx context.Context, batch []event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(batch))
	for _, ev := range batch {
		msg := &sarama.ProducerMessage{
			Topic: k.cfg.Topic,
			Value: sarama.ByteEncoder(ev.Body),
		}
		for key, val := range ev.Headers {
			msg.Headers = append(msg.Headers, sarama.RecordHeader{
				Key:   []byte(key),
				Value: []byte(val),
			})
		}
		msgs = append(msgs, msg)
	}

	if err := k.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("kafka send batch: %w", err)
	}
	return nil
}

func (k *KafkaClient) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	if err := k.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
