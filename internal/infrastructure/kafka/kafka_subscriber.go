package publisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

type DefaultKafkaSubscriber struct {
	brokers []string
	dialer  *kafka.Dialer
	logger  *slog.Logger
}

func NewDefaultKafkaSubscriber(cfg KafkaConfig, logger *slog.Logger) (*DefaultKafkaSubscriber, error) {
	mechanism, err := cfg.saslMechanism()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultKafkaSubscriber{
		brokers: cfg.Brokers,
		dialer: &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			SASLMechanism: mechanism,
			TLS:           cfg.tlsConfig(),
		},
		logger: logger,
	}, nil
}

// Subscribe streams committed-on-read messages until ctx is done; the
// channel is closed when the reader stops.
func (k *DefaultKafkaSubscriber) Subscribe(ctx context.Context, topic, groupID string) (<-chan domain.Message, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: k.brokers,
		Topic:   topic,
		GroupID: groupID,
		Dialer:  k.dialer,
	})
	out := make(chan domain.Message)
	go func() {
		defer close(out)
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					k.logger.Error("kafka reader stopped", slog.String("topic", topic), slog.String("error", err.Error()))
				}
				return
			}
			select {
			case out <- domain.Message{Key: m.Key, Value: m.Value}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
