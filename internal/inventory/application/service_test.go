package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukasoft/dukapos/internal/auth"
	"github.com/dukasoft/dukapos/internal/inventory/domain"
	saledomain "github.com/dukasoft/dukapos/internal/sale/domain"
	"github.com/dukasoft/dukapos/pkg/logging"
)

type fakeRepo struct {
	item      domain.Item
	adjusted  int
	gotNote   string
	adjustErr error
}

func (f *fakeRepo) GetItem(_ context.Context, _ string) (domain.Item, error) { return f.item, nil }

func (f *fakeRepo) ListItems(_ context.Context, _ int) ([]domain.Item, error) {
	return []domain.Item{f.item}, nil
}

func (f *fakeRepo) ListMovementsByItem(_ context.Context, _ string, _ int) ([]domain.Movement, error) {
	return nil, nil
}

func (f *fakeRepo) ListMovementsBySale(_ context.Context, _ string) ([]domain.Movement, error) {
	return nil, nil
}

func (f *fakeRepo) Adjust(_ context.Context, _ string, delta int, note, _ string) (domain.Item, error) {
	if f.adjustErr != nil {
		return domain.Item{}, f.adjustErr
	}
	f.adjusted += delta
	f.gotNote = note
	f.item.Quantity += delta
	return f.item, nil
}

var manager = auth.Actor{ID: "op-2", Role: auth.RoleManager}

func TestAdjustStock(t *testing.T) {
	repo := &fakeRepo{item: domain.Item{ID: "item-x", Name: "Sugar 1kg", Quantity: 10}}
	svc := NewService(logging.New("error"), repo, auth.NewTableGate())

	item, err := svc.AdjustStock(context.Background(), "item-x", 24, "weekly restock", manager)

	require.NoError(t, err)
	assert.Equal(t, 34, item.Quantity)
	assert.Equal(t, 24, repo.adjusted)
	assert.Equal(t, "weekly restock", repo.gotNote)
}

func TestAdjustStockRequiresCapability(t *testing.T) {
	repo := &fakeRepo{item: domain.Item{ID: "item-x", Quantity: 10}}
	svc := NewService(logging.New("error"), repo, auth.NewTableGate())

	cashier := auth.Actor{ID: "op-1", Role: auth.RoleCashier}
	_, err := svc.AdjustStock(context.Background(), "item-x", 5, "restock", cashier)

	require.ErrorIs(t, err, saledomain.ErrUnauthorized)
	assert.Zero(t, repo.adjusted)
}

func TestAdjustStockValidation(t *testing.T) {
	repo := &fakeRepo{item: domain.Item{ID: "item-x", Quantity: 10}}
	svc := NewService(logging.New("error"), repo, auth.NewTableGate())

	_, err := svc.AdjustStock(context.Background(), "item-x", 0, "noop", manager)
	require.ErrorIs(t, err, saledomain.ErrInvalidInput)

	_, err = svc.AdjustStock(context.Background(), "item-x", 5, "   ", manager)
	require.ErrorIs(t, err, saledomain.ErrInvalidInput)
}
