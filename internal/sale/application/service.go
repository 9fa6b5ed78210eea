package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukasoft/dukapos/internal/auth"
	paydomain "github.com/dukasoft/dukapos/internal/payment/domain"
	"github.com/dukasoft/dukapos/internal/sale/domain"
)

const defaultInitiateTimeout = 10 * time.Second

type CreateSaleLine struct {
	ItemID         string
	Quantity       int
	UnitPriceCents int64
}

type CreateSaleRequest struct {
	Lines      []CreateSaleLine
	TotalCents int64
	Method     string
	Reference  string
	PayerPhone string
}

type Receipt struct {
	SaleID     string
	Message    string
	PaymentRef string
}

// Service is the sale transaction engine. It validates the cart, opens
// one atomic unit through the store, and branches between the manual and
// asynchronous payment confirmation protocols.
type Service struct {
	log             *slog.Logger
	store           SaleStore
	initiator       PaymentInitiator
	gate            AuthGate
	initiateTimeout time.Duration
}

func NewService(log *slog.Logger, store SaleStore, initiator PaymentInitiator, gate AuthGate) *Service {
	return &Service{
		log:             log,
		store:           store,
		initiator:       initiator,
		gate:            gate,
		initiateTimeout: defaultInitiateTimeout,
	}
}

// SetInitiateTimeout bounds the in-transaction payment initiation call.
func (s *Service) SetInitiateTimeout(d time.Duration) {
	if d > 0 {
		s.initiateTimeout = d
	}
}

func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest, actor auth.Actor) (*Receipt, error) {
	if !s.gate.CanCreateSale(actor) {
		return nil, domain.ErrUnauthorized
	}

	method, ok := domain.ParseMethod(req.Method)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidInput, req.Method)
	}

	lines, err := validateLines(req.Lines)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, l := range lines {
		total += int64(l.Quantity) * l.UnitPriceCents
	}
	if total != req.TotalCents {
		return nil, fmt.Errorf("%w: declared total %d does not match line total %d",
			domain.ErrInvalidInput, req.TotalCents, total)
	}

	var phone string
	if method.Manual() {
		if strings.TrimSpace(req.Reference) == "" {
			return nil, fmt.Errorf("%w: payment reference required for %s", domain.ErrInvalidInput, method)
		}
	} else {
		phone, err = paydomain.NormalizePhone(req.PayerPhone)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}

	sale := domain.NewSale(actor.ID, method, req.Reference, lines)

	var initiate InitiateFunc
	if !method.Manual() {
		initiate = func(ctx context.Context) (paydomain.Initiation, error) {
			ctx, cancel := context.WithTimeout(ctx, s.initiateTimeout)
			defer cancel()
			return s.initiator.Initiate(ctx, phone, sale.TotalCents, sale.ID)
		}
	}

	if err := s.store.Record(ctx, &sale, initiate); err != nil {
		var stock *domain.InsufficientStockError
		switch {
		case errors.As(err, &stock),
			errors.Is(err, domain.ErrInvalidInput),
			errors.Is(err, domain.ErrPaymentInitiation):
			return nil, err
		default:
			s.log.Error("recording sale failed", "sale_id", sale.ID, "err", err)
			return nil, fmt.Errorf("%w: sale %s", domain.ErrPersistence, sale.ID)
		}
	}

	msg := "sale recorded and paid"
	if !method.Manual() {
		msg = "sale recorded; payment request sent to the customer's phone"
	}
	s.log.Info("sale recorded",
		"sale_id", sale.ID,
		"operator_id", actor.ID,
		"method", method,
		"total_cents", sale.TotalCents,
		"status", sale.Status,
	)

	return &Receipt{SaleID: sale.ID, Message: msg, PaymentRef: sale.PaymentRef}, nil
}

// GetSale is the read side; no engine semantics.
func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	return s.store.Get(ctx, id)
}

// ListSalesByOperator returns newest-first sale history for one operator.
func (s *Service) ListSalesByOperator(ctx context.Context, operatorID string, limit int) ([]domain.Sale, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListByOperator(ctx, operatorID, limit)
}

func validateLines(in []CreateSaleLine) ([]domain.Line, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrInvalidInput)
	}

	lines := make([]domain.Line, 0, len(in))
	for i, l := range in {
		if strings.TrimSpace(l.ItemID) == "" {
			return nil, fmt.Errorf("%w: line %d has no item", domain.ErrInvalidInput, i+1)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d quantity must be a positive integer", domain.ErrInvalidInput, i+1)
		}
		if l.UnitPriceCents < 0 {
			return nil, fmt.Errorf("%w: line %d unit price must not be negative", domain.ErrInvalidInput, i+1)
		}
		lines = append(lines, domain.Line{
			ItemID:         l.ItemID,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
		})
	}
	return lines, nil
}
