package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	saledomain "github.com/dukasoft/dukapos/internal/sale/domain"
)

// SaleSettler is the slice of the sale store that the confirmation side
// owns: status transitions of pending sales, nothing else.
type SaleSettler interface {
	ConfirmPayment(ctx context.Context, checkoutID, receipt string) error
	FailPayment(ctx context.Context, checkoutID, reason string) error
	FailStalePending(ctx context.Context, method saledomain.Method, cutoff time.Time) (int, error)
}

// Callback is the gateway's out-of-band confirmation for a push charge.
// Result code zero means the payer completed the charge.
type Callback struct {
	CheckoutID string
	ResultCode int
	ResultDesc string
	Receipt    string
}

type Service struct {
	log     *slog.Logger
	settler SaleSettler
}

func NewService(log *slog.Logger, settler SaleSettler) *Service {
	return &Service{log: log, settler: settler}
}

// HandleCallback applies a gateway result to the sale it correlates
// with. Unknown or already settled sales are logged and swallowed so the
// gateway stops redelivering.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) error {
	var err error
	if cb.ResultCode == 0 {
		err = s.settler.ConfirmPayment(ctx, cb.CheckoutID, cb.Receipt)
	} else {
		err = s.settler.FailPayment(ctx, cb.CheckoutID, cb.ResultDesc)
	}

	switch {
	case err == nil:
		s.log.Info("payment callback applied",
			"checkout_id", cb.CheckoutID, "result_code", cb.ResultCode)
		return nil
	case errors.Is(err, saledomain.ErrSaleNotFound), errors.Is(err, saledomain.ErrInvalidTransition):
		s.log.Warn("payment callback ignored", "checkout_id", cb.CheckoutID, "err", err)
		return nil
	default:
		return err
	}
}

// Sweeper fails mobile-push sales whose confirmation never arrived
// within the deadline. It is the reconciliation half of keeping the
// external charge outside the store's durability domain.
type Sweeper struct {
	log      *slog.Logger
	settler  SaleSettler
	deadline time.Duration
	interval time.Duration
}

func NewSweeper(log *slog.Logger, settler SaleSettler, deadline time.Duration) *Sweeper {
	return &Sweeper{
		log:      log,
		settler:  settler,
		deadline: deadline,
		interval: 30 * time.Second,
	}
}

func (w *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("pending sweeper stopping")
			return nil
		case <-t.C:
			cutoff := time.Now().UTC().Add(-w.deadline)
			n, err := w.settler.FailStalePending(ctx, saledomain.MethodMobilePush, cutoff)
			if err != nil {
				w.log.Error("pending sweep failed", "err", err)
				continue
			}
			if n > 0 {
				w.log.Info("stale pending sales failed", "count", n)
			}
		}
	}
}
