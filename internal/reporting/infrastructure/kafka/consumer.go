package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukasoft/dukapos/internal/reporting/application"
	"github.com/dukasoft/dukapos/pkg/tracing"
)

// Deduper remembers consumed offsets across rebalances and restarts.
type Deduper interface {
	OffsetKey(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	svc    *application.Service
	idem   Deduper
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, svc *application.Service, idem Deduper) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("reporting-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		if c.process(ctx, msg) {
			_ = c.reader.CommitMessages(ctx, msg)
		}
	}
}

// process applies one message and reports whether its offset may be
// committed. A failed projection keeps the offset uncommitted and
// releases the dedupe key so the redelivery is applied, not skipped.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	key := c.idem.OffsetKey(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Error("idempotency check failed", "err", err)
		return false
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return true
	}

	eventType := headerValue(msg.Headers, "event_type")
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ProjectSaleEvent")
	defer span.End()

	if err := c.svc.Apply(msgCtx, eventType, msg.Value); err != nil {
		if errors.Is(err, application.ErrMalformedEvent) {
			c.log.Error("dropping malformed event", "event_type", eventType, "err", err)
			return true
		}
		c.log.Error("projection failed", "event_type", eventType, "err", err)
		if ferr := c.idem.Forget(ctx, key); ferr != nil {
			c.log.Error("idempotency release failed", "key", key, "err", ferr)
		}
		return false
	}
	c.log.Info("event projected", "event_type", eventType)
	return true
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
