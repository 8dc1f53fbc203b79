package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/ticket-checkout/internal/adapters/crdb"
	"github.com/robertarktes/ticket-checkout/internal/observability"
)

const batchSize = 10

type Store interface {
	PublishPending(ctx context.Context, limit int, publish func(crdb.OutboxRecord) error) (int, error)
	OldestUnpublished(ctx context.Context) (*time.Time, error)
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	repo      Store
	rabbitPub Broker
	logger    observability.Logger
}

func NewPublisher(repo Store, rabbitPub Broker, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("outbox publisher started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Drain(ctx); err != nil {
				p.logger.WithError(err).Error("outbox drain failed")
			}
		}
	}
}

// Drain publishes batches until the outbox is empty or a batch publishes nothing.
func (p *Publisher) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := p.PublishBatch(ctx)
		total += n
		if err != nil || n < batchSize {
			p.updateLag(ctx)
			return total, err
		}
	}
}

func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	return p.repo.PublishPending(ctx, batchSize, func(rec crdb.OutboxRecord) error {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Timestamp:   rec.CreatedAt,
			Type:        rec.EventType,
			Body:        rec.Payload,
		}
		err := p.rabbitPub.Publish(ctx, rec.EventType, msg)
		if err != nil {
			p.logger.WithField("outbox_id", rec.ID).WithError(err).Warn("publish outbox record failed")
		}
		return err
	})
}

func (p *Publisher) updateLag(ctx context.Context) {
	oldest, err := p.repo.OldestUnpublished(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("read outbox lag")
		return
	}
	if oldest == nil {
		observability.OutboxLag.Set(0)
		return
	}
	observability.OutboxLag.Set(time.Since(*oldest).Seconds())
}
