package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/example/storefront/internal/model"
)

var shippingCountries = []string{"US", "CA", "GB", "AU", "DE", "FR", "JP"}

// StripeProcessor creates and reads Stripe Checkout sessions
type StripeProcessor struct {
	api *client.API
}

func NewStripeProcessor(secretKey string) *StripeProcessor {
	return &StripeProcessor{api: client.New(secretKey, nil)}
}

func (p *StripeProcessor) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(shippingCountries),
		},
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
		ClientReferenceID: stripe.String(req.OrderNumber),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, it := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(it.Name),
				},
				UnitAmount: stripe.Int64(ToMinorUnits(it.UnitAmount, req.Currency)),
			},
			Quantity: stripe.Int64(int64(it.Quantity)),
		})
	}
	params.AddMetadata(MetaOrderNumber, req.OrderNumber)
	params.AddMetadata(MetaCheckoutType, string(req.CheckoutType))
	params.AddMetadata(MetaUserID, req.UserID)
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return toSession(s), nil
}

func (p *StripeProcessor) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session %s: %w", id, err)
	}
	return toSession(s), nil
}

func (p *StripeProcessor) ExpireSession(ctx context.Context, id string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := p.api.CheckoutSessions.Expire(id, params); err != nil {
		return fmt.Errorf("stripe: expire checkout session %s: %w", id, err)
	}
	return nil
}

func toSession(s *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:       s.ID,
		URL:      s.URL,
		Paid:     s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: s.Metadata,
	}
	if sd := s.ShippingDetails; sd != nil && sd.Address != nil {
		addr := &model.Address{
			Name:       sd.Name,
			Phone:      sd.Phone,
			Line1:      sd.Address.Line1,
			Line2:      sd.Address.Line2,
			City:       sd.Address.City,
			State:      sd.Address.State,
			PostalCode: sd.Address.PostalCode,
			Country:    sd.Address.Country,
		}
		if addr.Phone == "" && s.CustomerDetails != nil {
			addr.Phone = s.CustomerDetails.Phone
		}
		out.Shipping = addr
	}
	return out
}
