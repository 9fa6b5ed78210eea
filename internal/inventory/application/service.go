package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukasoft/dukapos/internal/auth"
	"github.com/dukasoft/dukapos/internal/inventory/domain"
	saledomain "github.com/dukasoft/dukapos/internal/sale/domain"
)

type Service struct {
	log  *slog.Logger
	repo StockRepository
	gate AuthGate
}

func NewService(log *slog.Logger, repo StockRepository, gate AuthGate) *Service {
	return &Service{log: log, repo: repo, gate: gate}
}

func (s *Service) GetItem(ctx context.Context, id string) (domain.Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, limit int) ([]domain.Item, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListItems(ctx, limit)
}

func (s *Service) ListMovementsByItem(ctx context.Context, itemID string, limit int) ([]domain.Movement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListMovementsByItem(ctx, itemID, limit)
}

func (s *Service) ListMovementsBySale(ctx context.Context, saleID string) ([]domain.Movement, error) {
	return s.repo.ListMovementsBySale(ctx, saleID)
}

// AdjustStock records a restock or correction. Negative deltas go
// through the same stock check as sales so the quantity never goes
// below zero.
func (s *Service) AdjustStock(ctx context.Context, itemID string, delta int, note string, actor auth.Actor) (domain.Item, error) {
	if !s.gate.CanAdjustStock(actor) {
		return domain.Item{}, saledomain.ErrUnauthorized
	}
	if delta == 0 {
		return domain.Item{}, fmt.Errorf("%w: adjustment delta must not be zero", saledomain.ErrInvalidInput)
	}
	if strings.TrimSpace(note) == "" {
		return domain.Item{}, fmt.Errorf("%w: adjustment note is required", saledomain.ErrInvalidInput)
	}

	item, err := s.repo.Adjust(ctx, itemID, delta, note, actor.ID)
	if err != nil {
		return domain.Item{}, err
	}
	s.log.Info("stock adjusted",
		"item_id", itemID, "delta", delta, "operator_id", actor.ID, "quantity", item.Quantity)
	return item, nil
}
