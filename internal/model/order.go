package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type CheckoutType string

const (
	CheckoutTypeCart   CheckoutType = "cart"
	CheckoutTypeDirect CheckoutType = "direct"
)

// Address is a shipping or billing address. It is stored as JSON.
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Value implements driver.Valuer
func (a Address) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Address{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return errors.New("address: unsupported scan type")
}

// Order is a placed order. Items are only populated by reads that ask for them.
type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	OrderNumber      string          `json:"order_number"`
	Status           OrderStatus     `json:"status"`
	CheckoutType     CheckoutType    `json:"checkout_type"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	ShippingAddress  Address         `json:"shipping_address"`
	BillingAddress   *Address        `json:"billing_address,omitempty"`
	PaymentReference string          `json:"payment_reference"`
	Items            []OrderItem     `json:"items,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OrderItem is an immutable snapshot of one purchased line
type OrderItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Color       string          `json:"color,omitempty"`
	Size        string          `json:"size,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderFilter narrows order listings
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Since  time.Time
	Limit  int
	Offset int
}

// PaymentConfirmation is what the store applies when a payment succeeds
type PaymentConfirmation struct {
	PaymentReference string
	ShippingAddress  *Address
	ConfirmedAt      time.Time
}
