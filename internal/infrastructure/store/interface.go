package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/storefront/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned on a unique constraint violation
	ErrDuplicate = errors.New("record already exists")
	// ErrStockExceeded is returned when a conditional cart write would push a
	// line above the product's stock
	ErrStockExceeded = errors.New("quantity exceeds stock")
	// ErrStatusChanged is returned when an order's status moved since it was read
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// ProductStore persists catalog products
type ProductStore interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]*model.Product, error)
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)
	CountProducts(ctx context.Context) (int, error)
	// SetDiscountPercentage sets (or clears, when pct is nil) the discount on the given products
	SetDiscountPercentage(ctx context.Context, productIDs []string, pct *int) error
}

// CategoryStore persists product categories
type CategoryStore interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	UpdateCategory(ctx context.Context, c *model.Category) error
	DeleteCategory(ctx context.Context, id string) error
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
}

// BannerStore persists storefront banners
type BannerStore interface {
	CreateBanner(ctx context.Context, b *model.Banner) error
	UpdateBanner(ctx context.Context, b *model.Banner) error
	DeleteBanner(ctx context.Context, id string) error
	GetBanner(ctx context.Context, id string) (*model.Banner, error)
	ListBanners(ctx context.Context, activeOnly bool) ([]*model.Banner, error)
}

// DiscountStore persists promotions
type DiscountStore interface {
	CreateDiscount(ctx context.Context, d *model.Discount) error
	UpdateDiscount(ctx context.Context, d *model.Discount) error
	DeleteDiscount(ctx context.Context, id string) error
	GetDiscount(ctx context.Context, id string) (*model.Discount, error)
	ListDiscounts(ctx context.Context) ([]*model.Discount, error)
}

// ProfileStore persists user profiles
type ProfileStore interface {
	CreateProfile(ctx context.Context, p *model.Profile) error
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	CountProfiles(ctx context.Context) (int, error)
	ListProfilesSince(ctx context.Context, since time.Time) ([]*model.Profile, error)
}

// CartStore persists cart lines. Quantity writes are conditional on the
// referenced product's current stock and fail with ErrStockExceeded.
type CartStore interface {
	ListCartLines(ctx context.Context, userID string) ([]*model.CartLine, error)
	GetCartLine(ctx context.Context, id string) (*model.CartLine, error)
	// AddToCartLine creates the line for key or adds quantity to the existing one
	AddToCartLine(ctx context.Context, key model.CartLineKey, quantity int) (*model.CartLine, error)
	SetCartLineQuantity(ctx context.Context, id string, quantity int) (*model.CartLine, error)
	DeleteCartLine(ctx context.Context, id string) error
	ClearCart(ctx context.Context, userID string) error
}

// PaymentResult describes the outcome of ConfirmPayment
type PaymentResult struct {
	Order *model.Order
	// Applied is false when the order was already past pending
	Applied bool
	// Oversold lists products whose stock could not cover the order
	Oversold []string
}

// OrderStore persists orders and their items
type OrderStore interface {
	// CreateOrder inserts the order and all of its items in one transaction
	CreateOrder(ctx context.Context, o *model.Order, items []model.OrderItem) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	GetOrderByPaymentReference(ctx context.Context, ref string) (*model.Order, error)
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error)
	ListOrderItems(ctx context.Context, orderIDs []string) ([]model.OrderItem, error)
	// UpdateOrderStatus moves an order from one status to another, failing
	// with ErrStatusChanged if the order is no longer in from
	UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) error
	// ConfirmPayment moves a pending order to paid, records the shipping
	// address and decrements stock, all in one transaction
	ConfirmPayment(ctx context.Context, c model.PaymentConfirmation) (*PaymentResult, error)
}
