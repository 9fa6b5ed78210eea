package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	saledomain "github.com/dukasoft/dukapos/internal/sale/domain"
	"github.com/dukasoft/dukapos/pkg/logging"
)

type fakeSettler struct {
	confirmed  map[string]string
	failed     map[string]string
	confirmErr error
	failErr    error
	staleErr   error
	staleN     int
	gotCutoff  time.Time
}

func newFakeSettler() *fakeSettler {
	return &fakeSettler{confirmed: map[string]string{}, failed: map[string]string{}}
}

func (f *fakeSettler) ConfirmPayment(_ context.Context, checkoutID, receipt string) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirmed[checkoutID] = receipt
	return nil
}

func (f *fakeSettler) FailPayment(_ context.Context, checkoutID, reason string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.failed[checkoutID] = reason
	return nil
}

func (f *fakeSettler) FailStalePending(_ context.Context, _ saledomain.Method, cutoff time.Time) (int, error) {
	f.gotCutoff = cutoff
	return f.staleN, f.staleErr
}

func TestHandleCallbackConfirms(t *testing.T) {
	settler := newFakeSettler()
	svc := NewService(logging.New("error"), settler)

	err := svc.HandleCallback(context.Background(), Callback{
		CheckoutID: "chk-1",
		ResultCode: 0,
		Receipt:    "RCP123",
	})

	require.NoError(t, err)
	assert.Equal(t, "RCP123", settler.confirmed["chk-1"])
	assert.Empty(t, settler.failed)
}

func TestHandleCallbackFails(t *testing.T) {
	settler := newFakeSettler()
	svc := NewService(logging.New("error"), settler)

	err := svc.HandleCallback(context.Background(), Callback{
		CheckoutID: "chk-1",
		ResultCode: 1032,
		ResultDesc: "request cancelled by user",
	})

	require.NoError(t, err)
	assert.Equal(t, "request cancelled by user", settler.failed["chk-1"])
	assert.Empty(t, settler.confirmed)
}

func TestHandleCallbackSwallowsSettledSales(t *testing.T) {
	for _, sentinel := range []error{saledomain.ErrSaleNotFound, saledomain.ErrInvalidTransition} {
		settler := newFakeSettler()
		settler.confirmErr = sentinel
		svc := NewService(logging.New("error"), settler)

		err := svc.HandleCallback(context.Background(), Callback{CheckoutID: "chk-1"})
		assert.NoError(t, err, "sentinel %v must not trigger gateway retries", sentinel)
	}
}

func TestHandleCallbackPropagatesStoreErrors(t *testing.T) {
	settler := newFakeSettler()
	settler.confirmErr = errors.New("connection lost")
	svc := NewService(logging.New("error"), settler)

	err := svc.HandleCallback(context.Background(), Callback{CheckoutID: "chk-1"})
	assert.Error(t, err)
}

func TestSweeperFailsStalePending(t *testing.T) {
	settler := newFakeSettler()
	settler.staleN = 2
	sw := NewSweeper(logging.New("error"), settler, 2*time.Minute)
	sw.interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, sw.Run(ctx))

	require.False(t, settler.gotCutoff.IsZero(), "sweeper must have run at least once")
	assert.WithinDuration(t, time.Now().UTC().Add(-2*time.Minute), settler.gotCutoff, 5*time.Second)
}
