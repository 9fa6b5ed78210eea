package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// CanTransitionTo restricts post-creation status changes to settling a
// pending sale. Paid and failed are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && (next == StatusPaid || next == StatusFailed)
}

type Method string

const (
	// Manual methods: the operator confirms payment out-of-band and keys
	// in the external reference before submitting.
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
	MethodVoucher      Method = "voucher"

	// MethodMobilePush sends a charge request to the payer's phone;
	// confirmation arrives later through the gateway callback.
	MethodMobilePush Method = "mobile_push"
)

func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodCard, MethodBankTransfer, MethodVoucher, MethodMobilePush:
		return Method(s), true
	}
	return "", false
}

// Manual reports whether the method is confirmed by the operator at
// submission time rather than awaited asynchronously.
func (m Method) Manual() bool {
	return m != MethodMobilePush
}

// Sale is one checkout event. Status is the only field mutated after
// creation, by the payment confirmation side.
type Sale struct {
	ID         string
	TotalCents int64
	Method     Method
	PaymentRef string
	Status     Status
	OperatorID string
	Lines      []Line
	CreatedAt  time.Time
}

// Line freezes the unit price at the time of sale; it is never re-read
// from the catalog afterwards.
type Line struct {
	SaleID         string
	ItemID         string
	Quantity       int
	UnitPriceCents int64
}

// NewSale builds the aggregate with the total folded from its lines.
// Mobile-push sales start pending; manual methods are already confirmed
// and start paid with the operator-entered reference.
func NewSale(operatorID string, method Method, reference string, lines []Line) Sale {
	id := uuid.NewString()

	var total int64
	for i := range lines {
		lines[i].SaleID = id
		total += int64(lines[i].Quantity) * lines[i].UnitPriceCents
	}

	status := StatusPaid
	if !method.Manual() {
		status = StatusPending
		reference = ""
	}

	return Sale{
		ID:         id,
		TotalCents: total,
		Method:     method,
		PaymentRef: reference,
		Status:     status,
		OperatorID: operatorID,
		Lines:      lines,
		CreatedAt:  time.Now().UTC(),
	}
}
