package cart

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/model"
)

var (
	ErrNotAuthenticated  = apperr.New(apperr.ErrUnauthorized, "sign in to use the cart")
	ErrInvalidProduct    = apperr.New(apperr.ErrInvalidArgument, "product_id is required")
	ErrInvalidQuantity   = apperr.New(apperr.ErrInvalidArgument, "quantity must be at least 1")
	ErrInvalidVariant    = apperr.New(apperr.ErrInvalidArgument, "color or size is not offered for this product")
	ErrProductNotFound   = apperr.New(apperr.ErrNotFound, "product not found")
	ErrLineNotFound      = apperr.New(apperr.ErrNotFound, "cart item not found")
	ErrNotLineOwner      = apperr.New(apperr.ErrForbidden, "cart item belongs to another user")
	ErrInsufficientStock = apperr.New(apperr.ErrInsufficientStock, "not enough stock for the requested quantity")
)

// Locker serializes stock-affecting mutations per key
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Line is a cart line priced against the current catalog
type Line struct {
	*model.CartLine
	Product   *product.View   `json:"product"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	// OverStock is set when stock fell below the line's quantity after it was written
	OverStock bool `json:"over_stock,omitempty"`
}

// Cart is the priced view of a user's cart, rebuilt on every read
type Cart struct {
	Lines     []*Line         `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

type AddInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

type Service struct {
	lines    store.CartStore
	products store.ProductStore
	locker   Locker
	metrics  *metrics.AppMetrics
}

func NewService(lines store.CartStore, products store.ProductStore, locker Locker, m *metrics.AppMetrics) *Service {
	return &Service{lines: lines, products: products, locker: locker, metrics: m}
}

func lockKey(userID, productID string) string {
	return "cart:" + userID + ":" + productID
}

// AddItem puts quantity units of a product variant in the cart, merging into
// the existing line for the same (product, color, size).
func (s *Service) AddItem(ctx context.Context, id auth.Identity, in AddInput) (*model.CartLine, error) {
	if id.Anonymous() {
		return nil, ErrNotAuthenticated
	}
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.ProductID == "" {
		return nil, ErrInvalidProduct
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	unlock, err := s.locker.Lock(ctx, lockKey(id.UserID, in.ProductID))
	if err != nil {
		return nil, apperr.Internal("lock cart line", err)
	}
	defer unlock()

	p, err := s.getProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !offered(p.Colors, in.Color) || !offered(p.Sizes, in.Size) {
		return nil, ErrInvalidVariant
	}
	if p.Stock < in.Quantity {
		return nil, ErrInsufficientStock
	}

	line, err := s.lines.AddToCartLine(ctx, model.CartLineKey{
		UserID:    id.UserID,
		ProductID: in.ProductID,
		Color:     in.Color,
		Size:      in.Size,
	}, in.Quantity)
	if err != nil {
		if errors.Is(err, store.ErrStockExceeded) {
			return nil, ErrInsufficientStock
		}
		return nil, apperr.Internal("add cart line", err)
	}

	s.metrics.RecordCartItemAdded(ctx, in.ProductID, in.Quantity)
	log.Printf("[Cart] User %s added %d x %s (line %s now %d)", id.UserID, in.Quantity, in.ProductID, line.ID, line.Quantity)
	return line, nil
}

// SetQuantity replaces a line's quantity. On failure the line is unchanged.
func (s *Service) SetQuantity(ctx context.Context, id auth.Identity, lineID string, quantity int) (*model.CartLine, error) {
	if id.Anonymous() {
		return nil, ErrNotAuthenticated
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	line, err := s.ownedLine(ctx, id, lineID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(id.UserID, line.ProductID))
	if err != nil {
		return nil, apperr.Internal("lock cart line", err)
	}
	defer unlock()

	p, err := s.getProduct(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if quantity > p.Stock {
		return nil, ErrInsufficientStock
	}

	updated, err := s.lines.SetCartLineQuantity(ctx, lineID, quantity)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrStockExceeded):
			return nil, ErrInsufficientStock
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrLineNotFound
		}
		return nil, apperr.Internal("set cart line quantity", err)
	}
	return updated, nil
}

func (s *Service) RemoveItem(ctx context.Context, id auth.Identity, lineID string) error {
	if id.Anonymous() {
		return ErrNotAuthenticated
	}
	if _, err := s.ownedLine(ctx, id, lineID); err != nil {
		return err
	}
	if err := s.lines.DeleteCartLine(ctx, lineID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrLineNotFound
		}
		return apperr.Internal("delete cart line", err)
	}
	return nil
}

// Clear empties the user's cart
func (s *Service) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	if err := s.lines.ClearCart(ctx, userID); err != nil {
		return apperr.Internal("clear cart", err)
	}
	return nil
}

// Totals prices every line from the current catalog. Nothing is cached, so a
// discount change shows up on the next read.
func (s *Service) Totals(ctx context.Context, id auth.Identity) (*Cart, error) {
	if id.Anonymous() {
		return nil, ErrNotAuthenticated
	}

	lines, err := s.lines.ListCartLines(ctx, id.UserID)
	if err != nil {
		return nil, apperr.Internal("list cart lines", err)
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("get products", err)
	}

	cart := &Cart{Lines: make([]*Line, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			log.Printf("[Cart] Skipping line %s: product %s no longer exists", l.ID, l.ProductID)
			continue
		}
		view := product.NewView(p)
		lineTotal := view.DiscountedPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		cart.Lines = append(cart.Lines, &Line{
			CartLine:  l,
			Product:   view,
			UnitPrice: view.DiscountedPrice,
			LineTotal: lineTotal,
			OverStock: l.Quantity > p.Stock,
		})
		cart.Total = cart.Total.Add(lineTotal)
		cart.ItemCount += l.Quantity
	}
	cart.Total = cart.Total.Round(2)
	return cart, nil
}

func (s *Service) ownedLine(ctx context.Context, id auth.Identity, lineID string) (*model.CartLine, error) {
	line, err := s.lines.GetCartLine(ctx, lineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLineNotFound
		}
		return nil, apperr.Internal("get cart line", err)
	}
	if line.UserID != id.UserID {
		return nil, ErrNotLineOwner
	}
	return line, nil
}

func (s *Service) getProduct(ctx context.Context, productID string) (*model.Product, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperr.Internal("get product", err)
	}
	return p, nil
}

// offered reports whether choice is allowed by the product's option set.
// An empty choice is always allowed.
func offered(options []string, choice string) bool {
	return choice == "" || slices.Contains(options, choice)
}
