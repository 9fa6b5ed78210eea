package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukasoft/dukapos/internal/inventory/domain"
	saledomain "github.com/dukasoft/dukapos/internal/sale/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) GetItem(ctx context.Context, id string) (domain.Item, error) {
	var it domain.Item
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, quantity, updated_at FROM inventory_items WHERE id=$1`, id).
		Scan(&it.ID, &it.Name, &it.Quantity, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.Item{}, err
	}
	return it, nil
}

func (r *Repository) ListItems(ctx context.Context, limit int) ([]domain.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, quantity, updated_at FROM inventory_items ORDER BY name LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repository) ListMovementsByItem(ctx context.Context, itemID string, limit int) ([]domain.Movement, error) {
	return r.listMovements(ctx,
		`SELECT id, item_id, delta, COALESCE(sale_id::text,''), note, operator_id, created_at
		 FROM inventory_movements WHERE item_id=$1 ORDER BY created_at DESC LIMIT $2`,
		itemID, limit)
}

func (r *Repository) ListMovementsBySale(ctx context.Context, saleID string) ([]domain.Movement, error) {
	return r.listMovements(ctx,
		`SELECT id, item_id, delta, COALESCE(sale_id::text,''), note, operator_id, created_at
		 FROM inventory_movements WHERE sale_id=$1 ORDER BY id`,
		saleID)
}

func (r *Repository) listMovements(ctx context.Context, query string, args ...any) ([]domain.Movement, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Movement
	for rows.Next() {
		var m domain.Movement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Delta, &m.SaleID, &m.Note, &m.OperatorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) Adjust(ctx context.Context, itemID string, delta int, note, operatorID string) (domain.Item, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.Item{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var it domain.Item
	err = tx.QueryRow(ctx,
		`SELECT id, name, quantity FROM inventory_items WHERE id=$1 FOR UPDATE`, itemID).
		Scan(&it.ID, &it.Name, &it.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.Item{}, err
	}

	if delta < 0 && !domain.CanDecrement(it.Quantity, -delta) {
		return domain.Item{}, &saledomain.InsufficientStockError{
			ItemID:    it.ID,
			ItemName:  it.Name,
			Available: it.Quantity,
			Requested: -delta,
		}
	}

	err = tx.QueryRow(ctx,
		`UPDATE inventory_items SET quantity = quantity + $1, updated_at = now() WHERE id=$2
		 RETURNING quantity, updated_at`,
		delta, itemID).Scan(&it.Quantity, &it.UpdatedAt)
	if err != nil {
		return domain.Item{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO inventory_movements (item_id, delta, note, operator_id, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		itemID, delta, fmt.Sprintf("adjustment: %s", note), operatorID, time.Now().UTC())
	if err != nil {
		return domain.Item{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Item{}, err
	}
	return it, nil
}
