package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/libs/kafkax"
	otelx "github.com/katharina-voss/lashoffice/libs/otel"
)

// Publisher drains the outbox table to Kafka. Rows are claimed with
// SKIP LOCKED and marked published in the same transaction the write
// succeeds in, so a crashed publisher re-delivers instead of losing
// events (consumers dedup on event_id).
type Publisher struct {
	pool      *db.Pool
	repo      *Repository
	logger    *slog.Logger
	brokers   []string
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
}

func NewPublisher(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	p := &Publisher{
		pool:      pool,
		repo:      repo,
		logger:    logger,
		brokers:   kafkax.SplitBrokers(cfg.Brokers),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
	if p.pollEvery <= 0 {
		p.pollEvery = 2 * time.Second
	}
	if p.batchSize <= 0 {
		p.batchSize = 50
	}
	return p
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(p.brokers...),
		Balancer: &kafka.Hash{},
	}
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.drain(ctx, writer)
			if err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			} else if n > 0 {
				p.logger.Debug("outbox batch published", "events", n)
			}
		}
	}
}

// drain claims one batch, ships it and marks it published. The claim and
// the mark share a transaction; the Kafka write sits between them, which
// gives at-least-once delivery.
func (p *Publisher) drain(ctx context.Context, writer *kafka.Writer) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, tx.Commit(ctx)
	}

	msgs := make([]kafka.Message, len(records))
	ids := make([]int64, len(records))
	for i, rec := range records {
		msgs[i] = p.toMessage(ctx, rec)
		ids[i] = rec.ID
	}

	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
		return 0, err
	}
	return len(records), tx.Commit(ctx)
}

func (p *Publisher) toMessage(ctx context.Context, rec Record) kafka.Message {
	msgCtx := otelx.ContextWithTraceContext(ctx, rec.Traceparent, rec.Tracestate)
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(rec.EventID)},
		{Key: "event_type", Value: []byte(rec.EventType)},
	}
	return kafka.Message{
		Topic:   rec.EventType,
		Key:     []byte(rec.AggregateID),
		Value:   rec.Payload,
		Headers: kafkax.InjectTraceHeaders(msgCtx, headers),
	}
}
