package downstream

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vyrodovalexey/aviotgw/internal/observability"
)

// Topic prefixes per message kind. The tenant ID is appended, so
// consumers can subscribe per tenant.
const (
	telemetryTopicPrefix = "telemetry."
	eventTopicPrefix     = "event."
)

// Kafka header names for message metadata.
const (
	headerContentType  = "content-type"
	headerCreationTime = "creation-time"
	headerMessageID    = "message-id"
)

// KafkaConfig holds the producer settings for the downstream Kafka
// cluster.
type KafkaConfig struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string `yaml:"brokers"`

	// BatchSize is the target number of messages per producer batch.
	BatchSize int `yaml:"batchSize"`

	// BatchTimeout bounds how long a batch may stay open.
	BatchTimeout time.Duration `yaml:"batchTimeout"`

	// MaxAttempts is the number of delivery attempts per message.
	MaxAttempts int `yaml:"maxAttempts"`
}

// Validate checks the configuration.
func (c *KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}

	return nil
}

// DefaultKafkaConfig returns the default producer settings.
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		BatchSize:    100,
		BatchTimeout: 5 * time.Millisecond,
		MaxAttempts:  3,
	}
}

// kafkaWriter is the subset of kafka.Writer the factory uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSenderFactory produces senders backed by a shared pair of
// Kafka writers. The telemetry writer runs async with leader acks,
// the event writer is synchronous and waits for all in-sync replicas.
type KafkaSenderFactory struct {
	telemetry kafkaWriter
	event     kafkaWriter
	logger    observability.Logger
}

var _ SenderFactory = (*KafkaSenderFactory)(nil)

// KafkaSenderFactoryOption configures a KafkaSenderFactory.
type KafkaSenderFactoryOption func(*KafkaSenderFactory)

// WithKafkaLogger sets the logger used for delivery failures.
func WithKafkaLogger(logger observability.Logger) KafkaSenderFactoryOption {
	return func(f *KafkaSenderFactory) {
		f.logger = logger
	}
}

// NewKafkaSenderFactory creates a factory connected to the brokers in
// cfg.
func NewKafkaSenderFactory(cfg *KafkaConfig, opts ...KafkaSenderFactoryOption) (*KafkaSenderFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory := &KafkaSenderFactory{
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(factory)
	}

	// Delivery failures of async writes surface here instead of at
	// the call site.
	completion := func(messages []kafka.Message, err error) {
		if err == nil {
			return
		}

		for _, msg := range messages {
			factory.logger.Warn("failed to deliver telemetry message",
				observability.String("topic", msg.Topic),
				observability.String("key", string(msg.Key)),
				observability.Error(err),
			)
		}
	}

	factory.telemetry = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion:   completion,
		Compression:  kafka.Snappy,
	}

	factory.event = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
	}

	return factory, nil
}

// GetTelemetrySender implements SenderFactory.
func (f *KafkaSenderFactory) GetTelemetrySender(tenantID string) Sender {
	return &kafkaSender{
		writer:        f.telemetry,
		outcomeWriter: f.event,
		topic:         telemetryTopicPrefix + tenantID,
	}
}

// GetEventSender implements SenderFactory.
func (f *KafkaSenderFactory) GetEventSender(tenantID string) Sender {
	return &kafkaSender{
		writer:        f.event,
		outcomeWriter: f.event,
		topic:         eventTopicPrefix + tenantID,
	}
}

// Close implements SenderFactory.
func (f *KafkaSenderFactory) Close() error {
	telemetryErr := f.telemetry.Close()
	eventErr := f.event.Close()

	if telemetryErr != nil {
		return telemetryErr
	}

	return eventErr
}

// kafkaSender publishes to a single topic through shared writers.
// Send goes through the kind's default writer, which may be async;
// SendAndWaitForOutcome always goes through the synchronous writer so
// the returned error reflects broker settlement.
type kafkaSender struct {
	writer        kafkaWriter
	outcomeWriter kafkaWriter
	topic         string
}

var _ Sender = (*kafkaSender)(nil)

// Send implements Sender.
func (s *kafkaSender) Send(ctx context.Context, msg *Message) error {
	return s.writer.WriteMessages(ctx, toKafkaMessage(ctx, s.topic, msg))
}

// SendAndWaitForOutcome implements Sender.
func (s *kafkaSender) SendAndWaitForOutcome(ctx context.Context, msg *Message) error {
	return s.outcomeWriter.WriteMessages(ctx, toKafkaMessage(ctx, s.topic, msg))
}

// toKafkaMessage maps a downstream message onto the Kafka record
// layout. The device ID keys the record so per-device ordering is
// preserved, and the active trace context rides along in the headers.
func toKafkaMessage(ctx context.Context, topic string, msg *Message) kafka.Message {
	carrier := make(observability.PropertiesCarrier, len(msg.Properties)+4)
	for name, value := range msg.Properties {
		carrier[name] = value
	}

	carrier[headerMessageID] = msg.ID
	carrier[headerContentType] = msg.ContentType
	if !msg.CreationTime.IsZero() {
		carrier[headerCreationTime] = msg.CreationTime.UTC().Format(time.RFC3339Nano)
	}

	observability.InjectSpanContext(ctx, carrier)

	headers := make([]kafka.Header, 0, len(carrier))
	for _, name := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: name, Value: []byte(carrier[name])})
	}

	return kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.DeviceID),
		Value:   msg.Payload,
		Headers: headers,
	}
}
