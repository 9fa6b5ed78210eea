package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SummaryRepository struct {
	pool *pgxpool.Pool
}

func NewSummaryRepository(pool *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

func (r *SummaryRepository) AddSale(ctx context.Context, day time.Time, totalCents int64, paid bool) error {
	paidInc := 0
	if paid {
		paidInc = 1
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sales_daily_summary (day, sales_count, gross_cents, paid_count, failed_count)
		VALUES ($1, 1, $2, $3, 0)
		ON CONFLICT (day) DO UPDATE SET
			sales_count = sales_daily_summary.sales_count + 1,
			gross_cents = sales_daily_summary.gross_cents + EXCLUDED.gross_cents,
			paid_count  = sales_daily_summary.paid_count + EXCLUDED.paid_count`,
		day, totalCents, paidInc)
	if err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}

// SettleSale bumps the paid or failed counter on the day the sale was
// recorded, not the day the confirmation arrived.
func (r *SummaryRepository) SettleSale(ctx context.Context, saleID string, paid bool) error {
	col := "failed_count"
	if paid {
		col = "paid_count"
	}
	paidInc, failedInc := 0, 1
	if paid {
		paidInc, failedInc = 1, 0
	}
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO sales_daily_summary (day, sales_count, gross_cents, paid_count, failed_count)
		SELECT created_at::date, 0, 0, $2, $3 FROM sales WHERE id = $1
		ON CONFLICT (day) DO UPDATE SET %[1]s = sales_daily_summary.%[1]s + 1`, col),
		saleID, paidInc, failedInc)
	if err != nil {
		return fmt.Errorf("settle daily summary: %w", err)
	}
	return nil
}
