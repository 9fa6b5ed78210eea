package application

import (
	"context"

	"github.com/dukasoft/dukapos/internal/auth"
	paydomain "github.com/dukasoft/dukapos/internal/payment/domain"
	"github.com/dukasoft/dukapos/internal/sale/domain"
)

// InitiateFunc requests the external charge for a sale. The store runs it
// inside the same atomic unit as the stock mutation, after every line has
// been applied and before commit.
type InitiateFunc func(ctx context.Context) (paydomain.Initiation, error)

type SaleStore interface {
	// Record persists the sale, its lines, the stock decrements and the
	// movement ledger rows as one atomic unit. If initiate is non-nil it
	// is called before commit; its failure aborts the whole unit, its
	// checkout id is stored on the sale. Either everything commits or
	// nothing is visible.
	Record(ctx context.Context, sale *domain.Sale, initiate InitiateFunc) error

	Get(ctx context.Context, id string) (domain.Sale, error)
	ListByOperator(ctx context.Context, operatorID string, limit int) ([]domain.Sale, error)
}

type PaymentInitiator interface {
	Initiate(ctx context.Context, phone string, amountCents int64, accountRef string) (paydomain.Initiation, error)
}

type AuthGate interface {
	CanCreateSale(actor auth.Actor) bool
}
