package application

import (
	"context"
	"time"
)

// SummaryStore maintains the per-day sales rollup that the consumer
// projects sale events into.
type SummaryStore interface {
	AddSale(ctx context.Context, day time.Time, totalCents int64, paid bool) error
	SettleSale(ctx context.Context, saleID string, paid bool) error
}
