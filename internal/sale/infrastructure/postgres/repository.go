package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	invdomain "github.com/dukasoft/dukapos/internal/inventory/domain"
	"github.com/dukasoft/dukapos/internal/sale/application"
	"github.com/dukasoft/dukapos/internal/sale/domain"
)

// Repository owns the sales, sale_lines, inventory mutation and outbox
// writes. Everything a sale touches commits in one transaction.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Record(ctx context.Context, sale *domain.Sale, initiate application.InitiateFunc) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO sales (id, total_cents, method, payment_ref, status, operator_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		sale.ID, sale.TotalCents, sale.Method, nullable(sale.PaymentRef), sale.Status, sale.OperatorID, sale.CreatedAt)
	if err != nil {
		return err
	}

	for i, line := range sale.Lines {
		// Quantity is re-read under a row lock inside this transaction;
		// a snapshot taken before BeginTx must never be trusted here.
		var name string
		var available int
		err := tx.QueryRow(ctx,
			`SELECT name, quantity FROM inventory_items WHERE id=$1 FOR UPDATE`,
			line.ItemID).Scan(&name, &available)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: unknown item %s", domain.ErrInvalidInput, line.ItemID)
		}
		if err != nil {
			return err
		}

		if !invdomain.CanDecrement(available, line.Quantity) {
			return &domain.InsufficientStockError{
				ItemID:    line.ItemID,
				ItemName:  name,
				Available: available,
				Requested: line.Quantity,
			}
		}

		_, err = tx.Exec(ctx, `INSERT INTO sale_lines (sale_id, line_no, item_id, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			sale.ID, i+1, line.ItemID, line.Quantity, line.UnitPriceCents)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE inventory_items SET quantity = quantity - $1, updated_at = now() WHERE id=$2`,
			line.Quantity, line.ItemID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `INSERT INTO inventory_movements (item_id, delta, sale_id, note, operator_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			line.ItemID, -line.Quantity, sale.ID, fmt.Sprintf("sale %s", sale.ID), sale.OperatorID, time.Now().UTC())
		if err != nil {
			return err
		}
	}

	payload, err := json.Marshal(domain.SaleRecorded{
		SaleID:     sale.ID,
		TotalCents: sale.TotalCents,
		Method:     sale.Method,
		Status:     sale.Status,
		OperatorID: sale.OperatorID,
		RecordedAt: sale.CreatedAt,
	})
	if err != nil {
		return err
	}
	if err := insertOutbox(ctx, tx, sale.ID, domain.EventSaleRecorded, payload); err != nil {
		return err
	}

	if initiate != nil {
		init, err := initiate(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPaymentInitiation, err)
		}
		sale.PaymentRef = init.CheckoutID
		if _, err := tx.Exec(ctx, `UPDATE sales SET payment_ref=$1 WHERE id=$2`, init.CheckoutID, sale.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Sale, error) {
	var s domain.Sale
	var ref *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, total_cents, method, payment_ref, status, operator_id, created_at FROM sales WHERE id=$1`, id).
		Scan(&s.ID, &s.TotalCents, &s.Method, &ref, &s.Status, &s.OperatorID, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	if err != nil {
		return domain.Sale{}, err
	}
	if ref != nil {
		s.PaymentRef = *ref
	}

	rows, err := r.pool.Query(ctx,
		`SELECT item_id, quantity, unit_price_cents FROM sale_lines WHERE sale_id=$1 ORDER BY line_no`, id)
	if err != nil {
		return domain.Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		l := domain.Line{SaleID: id}
		if err := rows.Scan(&l.ItemID, &l.Quantity, &l.UnitPriceCents); err != nil {
			return domain.Sale{}, err
		}
		s.Lines = append(s.Lines, l)
	}
	return s, rows.Err()
}

func (r *Repository) ListByOperator(ctx context.Context, operatorID string, limit int) ([]domain.Sale, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, total_cents, method, payment_ref, status, operator_id, created_at
		 FROM sales WHERE operator_id=$1 ORDER BY created_at DESC LIMIT $2`,
		operatorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Sale
	for rows.Next() {
		var s domain.Sale
		var ref *string
		if err := rows.Scan(&s.ID, &s.TotalCents, &s.Method, &ref, &s.Status, &s.OperatorID, &s.CreatedAt); err != nil {
			return nil, err
		}
		if ref != nil {
			s.PaymentRef = *ref
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ConfirmPayment settles a pending sale identified by its checkout
// reference. Status is the only sale field this touches.
func (r *Repository) ConfirmPayment(ctx context.Context, checkoutID, receipt string) error {
	return r.settle(ctx, checkoutID, domain.StatusPaid, domain.EventPaymentConfirmed,
		func(saleID string) ([]byte, error) {
			return json.Marshal(domain.PaymentConfirmed{SaleID: saleID, Receipt: receipt})
		})
}

// FailPayment marks a pending sale failed after the gateway rejected or
// never confirmed the charge.
func (r *Repository) FailPayment(ctx context.Context, checkoutID, reason string) error {
	return r.settle(ctx, checkoutID, domain.StatusFailed, domain.EventPaymentFailed,
		func(saleID string) ([]byte, error) {
			return json.Marshal(domain.PaymentFailed{SaleID: saleID, Reason: reason})
		})
}

func (r *Repository) settle(ctx context.Context, checkoutID string, next domain.Status, eventType string,
	payloadFor func(saleID string) ([]byte, error)) error {

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var saleID string
	var status domain.Status
	err = tx.QueryRow(ctx,
		`SELECT id, status FROM sales WHERE payment_ref=$1 FOR UPDATE`, checkoutID).
		Scan(&saleID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: checkout %s", domain.ErrSaleNotFound, checkoutID)
	}
	if err != nil {
		return err
	}
	if !status.CanTransitionTo(next) {
		return fmt.Errorf("%w: sale %s is %s", domain.ErrInvalidTransition, saleID, status)
	}

	if _, err := tx.Exec(ctx, `UPDATE sales SET status=$1 WHERE id=$2`, next, saleID); err != nil {
		return err
	}

	payload, err := payloadFor(saleID)
	if err != nil {
		return err
	}
	if err := insertOutbox(ctx, tx, saleID, eventType, payload); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FailStalePending fails sales of the given method still pending after
// the cutoff, one outbox event per sale.
func (r *Repository) FailStalePending(ctx context.Context, method domain.Method, cutoff time.Time) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx,
		`UPDATE sales SET status=$1
		 WHERE method=$2 AND status=$3 AND created_at < $4
		 RETURNING id`,
		domain.StatusFailed, method, domain.StatusPending, cutoff)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		payload, err := json.Marshal(domain.PaymentFailed{SaleID: id, Reason: "confirmation deadline elapsed"})
		if err != nil {
			return 0, err
		}
		if err := insertOutbox(ctx, tx, id, domain.EventPaymentFailed, payload); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateID, eventType string, payload []byte) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, status) VALUES ('sale',$1,$2,$3,'pending')`,
		aggregateID, eventType, payload)
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
