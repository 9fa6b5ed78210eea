package application

import (
	"context"

	"github.com/dukasoft/dukapos/internal/auth"
	"github.com/dukasoft/dukapos/internal/inventory/domain"
)

type StockRepository interface {
	GetItem(ctx context.Context, id string) (domain.Item, error)
	ListItems(ctx context.Context, limit int) ([]domain.Item, error)
	ListMovementsByItem(ctx context.Context, itemID string, limit int) ([]domain.Movement, error)
	ListMovementsBySale(ctx context.Context, saleID string) ([]domain.Movement, error)

	// Adjust applies a signed delta under the same locked
	// check-then-write sequence the sale path uses, and appends the
	// matching movement row in one transaction.
	Adjust(ctx context.Context, itemID string, delta int, note, operatorID string) (domain.Item, error)
}

type AuthGate interface {
	CanAdjustStock(actor auth.Actor) bool
}
