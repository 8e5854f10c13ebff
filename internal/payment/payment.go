package payment

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/model"
)

// Metadata keys attached to every hosted session
const (
	MetaOrderNumber  = "order_number"
	MetaCheckoutType = "checkout_type"
	MetaUserID       = "user_id"
)

type LineItem struct {
	Name       string
	UnitAmount decimal.Decimal
	Quantity   int
}

type SessionRequest struct {
	OrderNumber   string
	CheckoutType  model.CheckoutType
	UserID        string
	CustomerEmail string
	Currency      string
	Items         []LineItem
	SuccessURL    string
	CancelURL     string
}

// Session is the processor's view of a hosted checkout
type Session struct {
	ID       string
	URL      string
	Paid     bool
	Metadata map[string]string
	// Shipping is the address collected by the processor, nil if none
	Shipping *model.Address
}

// Processor is the hosted payment boundary
type Processor interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ExpireSession(ctx context.Context, id string) error
}

// Currencies whose smallest unit is not a hundredth
var (
	zeroDecimal = map[string]bool{
		"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
		"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
		"vuv": true, "xaf": true, "xof": true, "xpf": true,
	}
	threeDecimal = map[string]bool{
		"bhd": true, "jod": true, "kwd": true, "omr": true, "tnd": true,
	}
)

// MinorUnitExponent returns how many decimal places separate currency's
// major unit from its smallest unit
func MinorUnitExponent(currency string) int32 {
	c := strings.ToLower(currency)
	switch {
	case zeroDecimal[c]:
		return 0
	case threeDecimal[c]:
		return 3
	default:
		return 2
	}
}

// ToMinorUnits converts an amount to the smallest unit of currency.
// Three-decimal amounts are rounded to a multiple of 10 since Stripe rejects
// anything finer.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	exp := MinorUnitExponent(currency)
	if exp == 3 {
		return amount.Round(2).Shift(3).IntPart()
	}
	return amount.Shift(exp).Round(0).IntPart()
}
