package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("operator may not record sales")
	ErrInvalidInput      = errors.New("invalid sale input")
	ErrPaymentInitiation = errors.New("payment initiation failed")
	ErrPersistence       = errors.New("sale could not be persisted")
	ErrInvalidTransition = errors.New("invalid sale status transition")
	ErrSaleNotFound      = errors.New("sale not found")
)

// InsufficientStockError aborts the whole attempt; nothing from the call
// survives in the store.
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): %d available, %d requested",
		e.ItemName, e.ItemID, e.Available, e.Requested)
}
