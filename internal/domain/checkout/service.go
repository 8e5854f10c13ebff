package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/model"
	"github.com/example/storefront/internal/payment"
)

var (
	ErrNotAuthenticated     = apperr.New(apperr.ErrUnauthorized, "sign in to check out")
	ErrInvalidCheckoutType  = apperr.New(apperr.ErrInvalidArgument, "type must be cart or direct")
	ErrNoItems              = apperr.New(apperr.ErrInvalidArgument, "there are no items to check out")
	ErrInvalidQuantity      = apperr.New(apperr.ErrInvalidArgument, "quantity must be at least 1")
	ErrInvalidVariant       = apperr.New(apperr.ErrInvalidArgument, "color or size is not offered for this product")
	ErrProductNotFound      = apperr.New(apperr.ErrNotFound, "product not found")
	ErrInsufficientStock    = apperr.New(apperr.ErrInsufficientStock, "not enough stock to fulfil the order")
	ErrMissingSession       = apperr.New(apperr.ErrInvalidArgument, "session_id is required")
	ErrPaymentNotCompleted  = apperr.New(apperr.ErrInvalidArgument, "payment has not been completed")
	ErrOrderNotFound        = apperr.New(apperr.ErrNotFound, "no order matches this payment")
	ErrPaymentUnavailable   = apperr.New(apperr.ErrInternal, "payment processor is unavailable")
	ErrOrderNotPersisted    = apperr.New(apperr.ErrInternal, "order could not be saved")
)

// CartLedger is the part of the cart the checkout depends on
type CartLedger interface {
	Totals(ctx context.Context, id auth.Identity) (*cart.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// Notifier dispatches order notifications. Implementations log their own
// failures; dispatch never fails the caller.
type Notifier interface {
	OrderPaid(ctx context.Context, order *model.Order)
}

type Options struct {
	// PublicBaseURL is where the processor sends the shopper back to
	PublicBaseURL string
	Currency      string
}

type Service struct {
	orders    store.OrderStore
	products  store.ProductStore
	cart      CartLedger
	processor payment.Processor
	notifier  Notifier
	metrics   *metrics.AppMetrics
	opts      Options
	now       func() time.Time
}

func NewService(
	orders store.OrderStore,
	products store.ProductStore,
	ledger CartLedger,
	processor payment.Processor,
	notifier Notifier,
	m *metrics.AppMetrics,
	opts Options,
) *Service {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &Service{
		orders:    orders,
		products:  products,
		cart:      ledger,
		processor: processor,
		notifier:  notifier,
		metrics:   m,
		opts:      opts,
		now:       time.Now,
	}
}

type DirectItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

type Request struct {
	Type     model.CheckoutType `json:"type"`
	Item     *DirectItem        `json:"item,omitempty"`
	Shipping model.Address      `json:"shipping"`
	Billing  *model.Address     `json:"billing,omitempty"`
}

type Result struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
	SessionID   string          `json:"session_id"`
	RedirectURL string          `json:"redirect_url"`
}

type Confirmation struct {
	Order            *model.Order `json:"order"`
	AlreadyProcessed bool         `json:"already_processed"`
}

// Checkout validates the request, opens a hosted payment session and stores
// the pending order with its items in one transaction. If the order cannot
// be stored the session is expired so it can never be paid.
func (s *Service) Checkout(ctx context.Context, id auth.Identity, req Request) (*Result, error) {
	if id.Anonymous() {
		return nil, ErrNotAuthenticated
	}
	if req.Type == "" {
		req.Type = model.CheckoutTypeCart
	}
	if req.Type != model.CheckoutTypeCart && req.Type != model.CheckoutTypeDirect {
		return nil, ErrInvalidCheckoutType
	}
	if err := ValidateAddress("shipping", &req.Shipping); err != nil {
		return nil, err
	}
	billing := req.Shipping
	if req.Billing != nil {
		if err := ValidateAddress("billing", req.Billing); err != nil {
			return nil, err
		}
		billing = *req.Billing
	}

	items, err := s.resolveItems(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	now := s.now()
	orderID := uuid.New().String()
	total := decimal.Zero
	lineItems := make([]payment.LineItem, 0, len(items))
	for i := range items {
		items[i].ID = uuid.New().String()
		items[i].OrderID = orderID
		items[i].CreatedAt = now
		total = total.Add(items[i].Price.Mul(decimal.NewFromInt(int64(items[i].Quantity))))
		lineItems = append(lineItems, payment.LineItem{
			Name:       items[i].ProductName,
			UnitAmount: items[i].Price,
			Quantity:   items[i].Quantity,
		})
	}
	total = total.Round(2)
	orderNumber := NewOrderNumber(now)

	session, err := s.processor.CreateSession(ctx, payment.SessionRequest{
		OrderNumber:   orderNumber,
		CheckoutType:  req.Type,
		UserID:        id.UserID,
		CustomerEmail: id.Email,
		Currency:      s.opts.Currency,
		Items:         lineItems,
		SuccessURL:    s.opts.PublicBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.opts.PublicBaseURL + "/cart",
	})
	if err != nil {
		log.Printf("[Checkout] Failed to create payment session for %s: %v", orderNumber, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}

	order := &model.Order{
		ID:               orderID,
		UserID:           id.UserID,
		OrderNumber:      orderNumber,
		Status:           model.OrderStatusPending,
		CheckoutType:     req.Type,
		TotalAmount:      total,
		ShippingAddress:  req.Shipping,
		BillingAddress:   &billing,
		PaymentReference: session.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.orders.CreateOrder(ctx, order, items); err != nil {
		log.Printf("[Checkout] Failed to persist order %s, expiring session %s: %v", orderNumber, session.ID, err)
		if expErr := s.processor.ExpireSession(ctx, session.ID); expErr != nil {
			log.Printf("[Checkout] Failed to expire session %s: %v", session.ID, expErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrOrderNotPersisted, err)
	}

	s.metrics.RecordOrderCreated(ctx, string(req.Type))
	log.Printf("[Checkout] Order %s created for user %s: %d items, total %s", orderNumber, id.UserID, len(items), total.StringFixed(2))

	return &Result{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Total:       total,
		SessionID:   session.ID,
		RedirectURL: session.URL,
	}, nil
}

// resolveItems captures the unit price of every line at this moment
func (s *Service) resolveItems(ctx context.Context, id auth.Identity, req Request) ([]model.OrderItem, error) {
	if req.Type == model.CheckoutTypeDirect {
		return s.resolveDirect(ctx, req.Item)
	}

	c, err := s.cart.Totals(ctx, id)
	if err != nil {
		return nil, err
	}
	items := make([]model.OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.OverStock {
			return nil, apperr.Newf(apperr.ErrInsufficientStock, "only %d of %s left in stock", l.Product.Stock, l.Product.Name)
		}
		items = append(items, model.OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			Price:       l.UnitPrice,
			Color:       l.Color,
			Size:        l.Size,
		})
	}
	return items, nil
}

func (s *Service) resolveDirect(ctx context.Context, item *DirectItem) ([]model.OrderItem, error) {
	if item == nil || strings.TrimSpace(item.ProductID) == "" {
		return nil, ErrNoItems
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetProduct(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperr.Internal("get product", err)
	}
	if (item.Color != "" && !slices.Contains(p.Colors, item.Color)) ||
		(item.Size != "" && !slices.Contains(p.Sizes, item.Size)) {
		return nil, ErrInvalidVariant
	}
	if p.Stock < item.Quantity {
		return nil, ErrInsufficientStock
	}

	return []model.OrderItem{{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    item.Quantity,
		Price:       product.EffectivePrice(p),
		Color:       item.Color,
		Size:        item.Size,
	}}, nil
}

// Confirm reconciles a completed hosted session with its order. Only the
// first confirmation for a payment moves the order to paid, commits stock,
// clears the cart and dispatches the notification. Replays return the
// current order state.
func (s *Service) Confirm(ctx context.Context, sessionID string) (*Confirmation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	session, err := s.processor.GetSession(ctx, sessionID)
	if err != nil {
		log.Printf("[Checkout] Failed to retrieve session %s: %v", sessionID, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	if !session.Paid {
		return nil, ErrPaymentNotCompleted
	}

	res, err := s.orders.ConfirmPayment(ctx, model.PaymentConfirmation{
		PaymentReference: sessionID,
		ShippingAddress:  session.Shipping,
		ConfirmedAt:      s.now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("[Checkout] Paid session %s (order %s) has no stored order",
				sessionID, session.Metadata[payment.MetaOrderNumber])
			return nil, ErrOrderNotFound
		}
		return nil, apperr.Internal("confirm payment", err)
	}

	order := res.Order
	if !res.Applied {
		log.Printf("[Checkout] Order %s already confirmed (status %s)", order.OrderNumber, order.Status)
		return &Confirmation{Order: order, AlreadyProcessed: true}, nil
	}

	if len(res.Oversold) > 0 {
		log.Printf("[Checkout] WARNING: order %s oversold products %v, stock clamped at 0", order.OrderNumber, res.Oversold)
	}
	if order.CheckoutType == model.CheckoutTypeCart {
		if err := s.cart.Clear(ctx, order.UserID); err != nil {
			log.Printf("[Checkout] Failed to clear cart for user %s after order %s: %v", order.UserID, order.OrderNumber, err)
		}
	}
	s.notifier.OrderPaid(ctx, order)
	s.metrics.RecordOrderPaid(ctx, order.TotalAmount)
	log.Printf("[Checkout] Order %s paid", order.OrderNumber)

	return &Confirmation{Order: order}, nil
}

// NewOrderNumber builds ORD-<UTC timestamp>-<8 random hex chars>
func NewOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return "ORD-" + now.UTC().Format("20060102150405") + "-" + strings.ToUpper(suffix)
}

// ValidateAddress checks the required address fields
func ValidateAddress(label string, a *model.Address) error {
	trim := func(v *string) string {
		*v = strings.TrimSpace(*v)
		return *v
	}
	required := []struct {
		name  string
		value string
	}{
		{"name", trim(&a.Name)},
		{"phone", trim(&a.Phone)},
		{"line1", trim(&a.Line1)},
		{"city", trim(&a.City)},
		{"state", trim(&a.State)},
		{"postal_code", trim(&a.PostalCode)},
		{"country", trim(&a.Country)},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Newf(apperr.ErrInvalidArgument, "%s address is missing: %s", label, strings.Join(missing, ", "))
	}
	return nil
}
