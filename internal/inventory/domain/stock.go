package domain

import (
	"errors"
	"time"
)

var ErrItemNotFound = errors.New("inventory item not found")

// Item is a stocked catalog entry. Quantity is only ever changed through
// a check-then-decrement sequence inside a single store transaction.
type Item struct {
	ID        string
	Name      string
	Quantity  int
	UpdatedAt time.Time
}

// Movement is one append-only row of the stock ledger. Delta is negative
// for sales. SaleID is set when the movement was caused by a sale.
type Movement struct {
	ID         int64
	ItemID     string
	Delta      int
	SaleID     string
	Note       string
	OperatorID string
	CreatedAt  time.Time
}

// CanDecrement reports whether a stock level covers a requested quantity.
// It must only be evaluated against a row read under lock in the same
// transaction that performs the decrement.
func CanDecrement(current, requested int) bool {
	return current >= requested
}
