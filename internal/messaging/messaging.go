package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/swiftcart/swiftcart/internal/config"
)

// fetchBackoff is the pause after a failed fetch before retrying.
const fetchBackoff = time.Second

// Message is one event consumed from the bus.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// Handler processes an inbound message. A non-nil error leaves the
// message uncommitted so the group redelivers it.
type Handler func(context.Context, Message) error

// Client publishes and consumes order lifecycle events. Publish keys
// every event by order code; the keyed balancer then keeps all events
// for one order on one partition, so consumers see them in order.
type Client interface {
	Publish(ctx context.Context, key []byte, value []byte) error
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

// Module wires the messaging client.
var Module = fx.Provide(NewClient)

// NewClient builds a messaging client based on configuration.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	if !cfg.Messaging.Enabled || cfg.Messaging.Driver == "noop" {
		logger.Info("messaging disabled; using noop client")
		return noopClient{topic: cfg.Messaging.Kafka.Topic}, nil
	}

	switch cfg.Messaging.Driver {
	case "kafka":
		return newKafkaClient(lc, cfg.Messaging, logger)
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
}

type noopClient struct {
	topic string
}

func (n noopClient) Publish(context.Context, []byte, []byte) error { return nil }
func (n noopClient) Topic() string                                 { return n.topic }

func (n noopClient) Consume(ctx context.Context, handler Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

type kafkaClient struct {
	writer *kafka.Writer
	reader *kafka.Reader
	topic  string
	logger *zap.Logger
}

func newKafkaClient(lc fx.Lifecycle, cfg config.Messaging, logger *zap.Logger) (Client, error) {
	topic := cfg.Kafka.Topic

	writer := &kafka.Writer{
		Addr:  kafka.TCP(cfg.Kafka.Brokers...),
		Topic: topic,
		// Hash keeps every event for one order code on one partition.
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.Kafka.ConnectTimeout,
		ErrorLogger:  kafkaLogger{logger: logger},
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.ConsumerGroup,
		Topic:          topic,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: cfg.Kafka.CommitInterval,
		Dialer: &kafka.Dialer{
			Timeout:  cfg.Kafka.ConnectTimeout,
			ClientID: cfg.Kafka.ClientID,
		},
	})

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing kafka client")
			return errors.Join(writer.Close(), reader.Close())
		},
	})

	return &kafkaClient{writer: writer, reader: reader, topic: topic, logger: logger}, nil
}

func (k *kafkaClient) Publish(ctx context.Context, key []byte, value []byte) error {
	return k.writer.WriteMessages(ctx, outbound(key, value))
}

// outbound builds a message for the topic-scoped writer. The Topic field
// must stay empty: kafka-go rejects messages that name a topic when the
// writer already carries one.
func outbound(key, value []byte) kafka.Message {
	return kafka.Message{Key: key, Value: value}
}

func (k *kafkaClient) Topic() string { return k.topic }

func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	for {
		raw, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			k.logger.Error("kafka fetch failed", zap.Error(err))
			select {
			case <-time.After(fetchBackoff):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := handler(ctx, wrap(raw)); err != nil {
			// Uncommitted: the group will redeliver this offset.
			k.logger.Error("message handler failed",
				zap.Error(err),
				zap.ByteString("key", raw.Key),
				zap.Int64("offset", raw.Offset),
			)
			continue
		}

		if err := k.reader.CommitMessages(ctx, raw); err != nil {
			k.logger.Warn("commit failed", zap.Error(err), zap.Int64("offset", raw.Offset))
		}
	}
}

func wrap(raw kafka.Message) Message {
	msg := Message{
		Topic:  raw.Topic,
		Key:    append([]byte(nil), raw.Key...),
		Value:  append([]byte(nil), raw.Value...),
		Offset: raw.Offset,
		Time:   raw.Time,
	}
	if len(raw.Headers) > 0 {
		msg.Headers = make(map[string]string, len(raw.Headers))
		for _, h := range raw.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}

type kafkaLogger struct {
	logger *zap.Logger
}

func (k kafkaLogger) Printf(msg string, args ...interface{}) {
	k.logger.Sugar().Debugf(msg, args...)
}
