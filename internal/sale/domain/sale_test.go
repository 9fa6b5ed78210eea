package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSaleFoldsTotal(t *testing.T) {
	sale := NewSale("op-1", MethodCard, "REF1", []Line{
		{ItemID: "item-a", Quantity: 3, UnitPriceCents: 500},
		{ItemID: "item-b", Quantity: 2, UnitPriceCents: 1250},
	})

	assert.Equal(t, int64(3*500+2*1250), sale.TotalCents)
	require.Len(t, sale.Lines, 2)
	for _, l := range sale.Lines {
		assert.Equal(t, sale.ID, l.SaleID)
	}
}

func TestNewSaleManualIsPaidImmediately(t *testing.T) {
	for _, m := range []Method{MethodCard, MethodBankTransfer, MethodVoucher} {
		sale := NewSale("op-1", m, "REF1", []Line{{ItemID: "x", Quantity: 1, UnitPriceCents: 100}})
		assert.Equal(t, StatusPaid, sale.Status, "method %s", m)
		assert.Equal(t, "REF1", sale.PaymentRef, "method %s", m)
	}
}

func TestNewSaleMobilePushStartsPending(t *testing.T) {
	sale := NewSale("op-1", MethodMobilePush, "ignored", []Line{{ItemID: "x", Quantity: 1, UnitPriceCents: 100}})
	assert.Equal(t, StatusPending, sale.Status)
	// The correlation reference is only known after initiation succeeds.
	assert.Empty(t, sale.PaymentRef)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusPaid))
	assert.True(t, StatusPending.CanTransitionTo(StatusFailed))
	assert.False(t, StatusPaid.CanTransitionTo(StatusFailed))
	assert.False(t, StatusFailed.CanTransitionTo(StatusPaid))
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
}

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod("mobile_push")
	require.True(t, ok)
	assert.False(t, m.Manual())

	m, ok = ParseMethod("bank_transfer")
	require.True(t, ok)
	assert.True(t, m.Manual())

	_, ok = ParseMethod("cowrie_shells")
	assert.False(t, ok)
}
