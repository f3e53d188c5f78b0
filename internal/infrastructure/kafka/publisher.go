package publisher

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

type KafkaConfig struct {
	Brokers    []string
	Username   string
	Password   string
	Mechanism  string
	TLSEnabled bool
	// Per-write deadline; defaults to 10s.
	WriteTimeout time.Duration
}

// saslMechanism maps the configured mechanism name. Empty username means
// the cluster is unauthenticated.
func (c KafkaConfig) saslMechanism() (sasl.Mechanism, error) {
	if c.Username == "" {
		return nil, nil
	}
	switch strings.ToUpper(c.Mechanism) {
	case "", "PLAIN":
		return plain.Mechanism{Username: c.Username, Password: c.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.Username, c.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.Username, c.Password)
	default:
		return nil, fmt.Errorf("unsupported sasl mechanism %q", c.Mechanism)
	}
}

func (c KafkaConfig) tlsConfig() *tls.Config {
	if !c.TLSEnabled {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// KafkaPublisher writes JSON events keyed by partner id, so every event for
// one partner lands on the same partition.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	mechanism, err := cfg.saslMechanism()
	if err != nil {
		return nil, err
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Transport: &kafka.Transport{
				SASL: mechanism,
				TLS:  cfg.tlsConfig(),
			},
		},
		timeout: timeout,
	}, nil
}

func (k *KafkaPublisher) Publish(topic string, msgs ...domain.Message) error {
	km := make([]kafka.Message, 0, len(msgs))
	now := time.Now()
	for _, m := range msgs {
		km = append(km, kafka.Message{
			Topic: topic,
			Key:   m.Key,
			Value: m.Value,
			Time:  now,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, km...)
}

func (k *KafkaPublisher) PublishCommission(commission *domain.PartnerCommission) error {
	msg, err := EncodeCommission(commission)
	if err != nil {
		return err
	}
	return k.Publish(domain.TopicCommissionSnapshots, msg)
}

func (k *KafkaPublisher) PublishSyncRun(run *domain.SyncRunSummary) error {
	msg, err := EncodeSyncRun(run)
	if err != nil {
		return err
	}
	return k.Publish(domain.TopicSyncRuns, msg)
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// NopPublisher drops every event. Used when kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishCommission(*domain.PartnerCommission) error { return nil }
func (NopPublisher) PublishSyncRun(*domain.SyncRunSummary) error { return nil }
