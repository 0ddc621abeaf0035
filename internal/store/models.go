package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the production status of an order.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusProduction OrderStatus = "production"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus is derived from the paid amount and the payable total.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Order is a row of the orders table.
type Order struct {
	ID             int64           `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	Title          string          `json:"title"`
	ClientName     string          `json:"clientName"`
	ClientPhone    string          `json:"clientPhone"`
	ManagerID      int64           `json:"managerId"`
	Status         OrderStatus     `json:"status"`
	DeadlineAt     *time.Time      `json:"deadlineAt,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountKind   string          `json:"discountKind"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	PayableTotal   decimal.Decimal `json:"payableTotal"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// OrderItem is a row of the order_items table. ManualDiscount is set when the
// discount value was supplied explicitly rather than derived from a percent.
type OrderItem struct {
	ID              int64               `json:"id"`
	OrderID         int64               `json:"orderId"`
	ProductID       *int64              `json:"productId,omitempty"`
	ProductName     string              `json:"productName"`
	Unit            string              `json:"unit"`
	Quantity        int                 `json:"quantity"`
	BasePrice       decimal.Decimal     `json:"basePrice"`
	UnitPrice       decimal.Decimal     `json:"unitPrice"`
	DiscountPercent decimal.Decimal     `json:"discountPercent"`
	ManualDiscount  decimal.NullDecimal `json:"manualDiscount"`
	DiscountValue   decimal.Decimal     `json:"discountValue"`
	TotalPrice      decimal.Decimal     `json:"totalPrice"`
	Comment         string              `json:"comment"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// Payment is an append-only row of the payments table. Reversal entries carry
// a negative amount and reference the payment they compensate.
type Payment struct {
	ID                int64           `json:"id"`
	OrderID           int64           `json:"orderId"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method"`
	PaidAt            time.Time       `json:"paidAt"`
	CreatedBy         int64           `json:"createdBy"`
	ShiftID           *int64          `json:"shiftId,omitempty"`
	ReversesPaymentID *int64          `json:"reversesPaymentId,omitempty"`
	Note              string          `json:"note,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// CashShift is a row of the cash_shifts table.
type CashShift struct {
	ID          int64           `json:"id"`
	OpenedAt    time.Time       `json:"openedAt"`
	ClosedAt    *time.Time      `json:"closedAt,omitempty"`
	OpenedBy    int64           `json:"openedBy"`
	ClosedBy    *int64          `json:"closedBy,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IsOpen reports whether the shift has not been closed.
func (s CashShift) IsOpen() bool {
	return s.ClosedAt == nil
}

// ShiftMethodTotal aggregates payments of one method within a shift.
type ShiftMethodTotal struct {
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
	Count  int64           `json:"count"`
}

// DomainEvent is a row of the domain_events table.
type DomainEvent struct {
	ID            int64     `json:"id"`
	EventID       string    `json:"eventId"`
	Topic         string    `json:"topic"`
	AggregateType string    `json:"aggregateType"`
	AggregateID   int64     `json:"aggregateId"`
	Payload       []byte    `json:"payload"`
	OccurredAt    time.Time `json:"occurredAt"`
}
