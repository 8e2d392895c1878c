package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusWaitingPayment OrderStatus = "waiting_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusServed         OrderStatus = "served"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type Order struct {
	ID            uuid.UUID
	UserID        *uuid.UUID
	Status        OrderStatus
	PaymentStatus PaymentStatus
	PaymentMethod *string
	TotalAmount   decimal.Decimal
	FinalAmount   *decimal.Decimal
	DepositAmount decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PayableAmount is the amount charged at checkout: the voucher-adjusted
// final amount when one was computed, otherwise the order total.
func (o *Order) PayableAmount() decimal.Decimal {
	if o.FinalAmount != nil {
		return *o.FinalAmount
	}
	return o.TotalAmount
}
