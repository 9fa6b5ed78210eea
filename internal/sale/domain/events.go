package domain

import "time"

const (
	EventSaleRecorded     = "SaleRecorded"
	EventPaymentConfirmed = "PaymentConfirmed"
	EventPaymentFailed    = "PaymentFailed"
)

type SaleRecorded struct {
	SaleID     string    `json:"sale_id"`
	TotalCents int64     `json:"total_cents"`
	Method     Method    `json:"method"`
	Status     Status    `json:"status"`
	OperatorID string    `json:"operator_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

type PaymentConfirmed struct {
	SaleID  string `json:"sale_id"`
	Receipt string `json:"receipt"`
}

type PaymentFailed struct {
	SaleID string `json:"sale_id"`
	Reason string `json:"reason"`
}
