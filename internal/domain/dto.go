package domain

import "github.com/google/uuid"

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type CreateOrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
}

type CreateOrderRequest struct {
	Customer Customer          `json:"customer"`
	Items    []CreateOrderItem `json:"items"`
	Total    float64           `json:"total"`
	StoreID  uuid.UUID         `json:"store_id"`
}

// Result is the envelope every command returns over the wire. Commands never
// panic across this boundary.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func OK(data any) Result     { return Result{Success: true, Data: data} }
func Fail(msg string) Result { return Result{Success: false, Error: msg} }
