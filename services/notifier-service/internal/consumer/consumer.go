package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpontes/clinicore/libs/kafkax"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox claims event ids for dedupe and releases claims after failures.
// Satisfied by inbox.Repository.
type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

// Consumer reads one topic with manual offset commits. A failed message is
// retried in place until it succeeds or the context ends; the offset is
// committed only afterwards, so fetching never moves past an unprocessed
// message. The inbox table absorbs duplicates across restarts.
type Consumer struct {
	reader     *kafka.Reader
	logger     *slog.Logger
	inbox      Inbox
	handler    Handler
	retryDelay time.Duration
}

func New(logger *slog.Logger, inboxRepo Inbox, cfg Config, handler Handler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  kafkax.SplitBrokers(cfg.Brokers),
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger:     logger,
		inbox:      inboxRepo,
		handler:    handler,
		retryDelay: time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			time.Sleep(c.retryDelay)
			continue
		}

		if !c.processWithRetry(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit error", "err", err)
		}
	}
}

// processWithRetry keeps working the same message until it is handled. It
// returns false only when the context ends first.
func (c *Consumer) processWithRetry(ctx context.Context, msg kafka.Message) bool {
	for {
		if c.process(ctx, msg) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	ctx = kafkax.ExtractTraceContext(ctx, msg)
	ctx, span := otel.Tracer("kafka").Start(ctx, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)

	claimed, err := c.inbox.Record(ctx, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err)
		span.RecordError(err)
		return false
	}
	if !claimed {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return true
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		// Release the claim so the retry is not dropped as a duplicate.
		if ferr := c.inbox.Forget(ctx, meta.EventID); ferr != nil {
			c.logger.Error("inbox forget failed", "err", ferr, "event_id", meta.EventID)
		}
		return false
	}
	return true
}
