package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		expected int64
	}{
		{"45.00", "usd", 4500},
		{"0.01", "eur", 1},
		{"19.995", "usd", 2000},
		{"120", "gbp", 12000},
		{"1500", "jpy", 1500},
		{"1500.00", "JPY", 1500},
		{"980.4", "krw", 980},
		{"25000.5", "vnd", 25001},
		{"12.345", "kwd", 12350},
		{"7.5", "bhd", 7500},
	}

	for _, tt := range tests {
		t.Run(tt.amount+" "+tt.currency, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToMinorUnits(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}

func TestMinorUnitExponent(t *testing.T) {
	assert.Equal(t, int32(2), MinorUnitExponent("usd"))
	assert.Equal(t, int32(0), MinorUnitExponent("jpy"))
	assert.Equal(t, int32(3), MinorUnitExponent("KWD"))
	assert.Equal(t, int32(2), MinorUnitExponent(""))
}

func TestToSession_PaidWithShipping(t *testing.T) {
	s := toSession(&stripe.CheckoutSession{
		ID:            "cs_test_1",
		URL:           "https://checkout.stripe.com/c/pay/cs_test_1",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{MetaOrderNumber: "ORD-1"},
		ShippingDetails: &stripe.ShippingDetails{
			Name: "Jane Doe",
			Address: &stripe.Address{
				Line1: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "US",
			},
		},
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{Phone: "+15550100"},
	})

	assert.True(t, s.Paid)
	assert.Equal(t, "ORD-1", s.Metadata[MetaOrderNumber])
	require.NotNil(t, s.Shipping)
	assert.Equal(t, "Jane Doe", s.Shipping.Name)
	assert.Equal(t, "+15550100", s.Shipping.Phone)
	assert.Equal(t, "62701", s.Shipping.PostalCode)
}

func TestToSession_UnpaidWithoutShipping(t *testing.T) {
	s := toSession(&stripe.CheckoutSession{
		ID:            "cs_test_2",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
	})

	assert.False(t, s.Paid)
	assert.Nil(t, s.Shipping)
}
