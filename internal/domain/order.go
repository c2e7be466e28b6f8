package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the order lifecycle status. The transition graph over these
// values lives in internal/lifecycle; nothing else may move an order
// between statuses.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s has no outbound transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus progresses unpaid -> processing -> paid. The regression
// processing -> unpaid exists only behind the administrative override.
type PaymentStatus string

const (
	PaymentUnpaid     PaymentStatus = "unpaid"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPaid       PaymentStatus = "paid"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentProcessing, PaymentPaid:
		return true
	}
	return false
}

type Order struct {
	ID              uuid.UUID     `json:"id"`
	StoreID         uuid.UUID     `json:"store_id"`
	CustomerName    string        `json:"customer_name"`
	CustomerPhone   string        `json:"customer_phone"`
	CustomerEmail   string        `json:"customer_email,omitempty"`
	TotalAmount     float64       `json:"total_amount"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	Items           []OrderItem   `json:"items"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// OrderItem rows are immutable after the order is created.
type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
}
