// Package outbox relays order events written in the business transaction
// to Kafka.
package outbox

import (
	"context"
	"time"

	"farmDirect/domain"
	"farmDirect/internal/repository/kafka"
	"farmDirect/pkg/metrics"

	"go.uber.org/zap"
)

type Repository interface {
	RelayPending(ctx context.Context, limit int, publish func(ctx context.Context, msgs []domain.OutboxMessage) error) (int, error)
}

type Publisher interface {
	Produce(ctx context.Context, msgs ...kafka.Message) error
}

type Processor struct {
	repo         Repository
	publisher    Publisher
	pollInterval time.Duration
	batchSize    int
	logger       *zap.Logger
}

func NewProcessor(repo Repository, publisher Publisher, pollInterval time.Duration, batchSize int, logger *zap.Logger) *Processor {
	if batchSize <= 0 {
		batchSize = 50
	}

	return &Processor{
		repo:         repo,
		publisher:    publisher,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Run polls until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("Starting outbox processor", zap.Duration("poll_interval", p.pollInterval))

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopped")
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

// drain keeps relaying full batches so a backlog clears within one tick.
func (p *Processor) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := p.ProcessOnce(ctx)
		if err != nil || n < p.batchSize {
			return
		}
	}
}

func (p *Processor) ProcessOnce(ctx context.Context) (int, error) {
	n, err := p.repo.RelayPending(ctx, p.batchSize, p.publish)
	if err != nil {
		metrics.OutboxPublished.WithLabelValues("error").Inc()
		p.logger.Error("Failed to relay outbox messages", zap.Error(err))
		return 0, err
	}

	if n > 0 {
		metrics.OutboxPublished.WithLabelValues("sent").Add(float64(n))
		p.logger.Debug("Outbox messages relayed", zap.Int("count", n))
	}

	return n, nil
}

func (p *Processor) publish(ctx context.Context, msgs []domain.OutboxMessage) error {
	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		out[i] = kafka.Message{
			Key:   m.AggregateID,
			Value: m.Payload,
			Headers: map[string]string{
				"event_type": m.EventType,
				"message_id": m.ID.String(),
			},
		}
	}

	return p.publisher.Produce(ctx, out...)
}
