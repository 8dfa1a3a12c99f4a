package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer returns a synchronous producer. Produce returns once all
// in-sync replicas acknowledged the batch.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Debug(fmt.Sprintf(msg, args...)) }),
		ErrorLogger:            kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Error(fmt.Sprintf(msg, args...)) }),
	}

	return &Producer{
		writer: writer,
		logger: logger,
	}
}

// Message is one keyed record. Records sharing a key land on the same
// partition and keep their order.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func (p *Producer) Produce(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		out[i] = kafka.Message{Key: []byte(m.Key), Value: m.Value}
		for k, v := range m.Headers {
			out[i].Headers = append(out[i].Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}

	produceCtx, cancel := context.WithTimeout(ctx, p.writer.WriteTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(produceCtx, out...); err != nil {
		p.logger.Error("Failed to produce messages to Kafka",
			zap.String("topic", p.writer.Topic),
			zap.Int("count", len(out)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to produce messages to Kafka: %w", err)
	}

	p.logger.Debug("Messages produced to Kafka", zap.String("topic", p.writer.Topic), zap.Int("count", len(out)))
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}

	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka producer", zap.Error(err))
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}

	p.logger.Info("Kafka producer closed")
	return nil
}
