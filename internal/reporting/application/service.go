package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	saledomain "github.com/dukasoft/dukapos/internal/sale/domain"
)

// ErrMalformedEvent marks payloads that can never be applied; consumers
// drop these instead of retrying.
var ErrMalformedEvent = errors.New("malformed event payload")

// Service projects sale events into the daily summary table. It is
// driven by the kafka consumer and must tolerate replays: the consumer
// dedupes by offset before calling Apply.
type Service struct {
	log   *slog.Logger
	store SummaryStore
}

func NewService(log *slog.Logger, store SummaryStore) *Service {
	return &Service{log: log, store: store}
}

func (s *Service) Apply(ctx context.Context, eventType string, payload []byte) error {
	switch eventType {
	case saledomain.EventSaleRecorded:
		var ev saledomain.SaleRecorded
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrMalformedEvent, eventType, err)
		}
		day := ev.RecordedAt.UTC().Truncate(24 * time.Hour)
		return s.store.AddSale(ctx, day, ev.TotalCents, ev.Status == saledomain.StatusPaid)

	case saledomain.EventPaymentConfirmed:
		var ev saledomain.PaymentConfirmed
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrMalformedEvent, eventType, err)
		}
		return s.store.SettleSale(ctx, ev.SaleID, true)

	case saledomain.EventPaymentFailed:
		var ev saledomain.PaymentFailed
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrMalformedEvent, eventType, err)
		}
		return s.store.SettleSale(ctx, ev.SaleID, false)

	default:
		s.log.Debug("ignoring event", "event_type", eventType)
		return nil
	}
}
