package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

var (
	ErrProductNotFound  = apperr.New(apperr.ErrNotFound, "product not found")
	ErrInvalidName      = apperr.New(apperr.ErrInvalidArgument, "name is required")
	ErrInvalidPrice     = apperr.New(apperr.ErrInvalidArgument, "price must be zero or greater")
	ErrInvalidStock     = apperr.New(apperr.ErrInvalidArgument, "stock must be zero or greater")
	ErrInvalidDiscount  = apperr.New(apperr.ErrInvalidArgument, "discount percentage must be between 0 and 100")
	ErrCategoryNotFound = apperr.New(apperr.ErrInvalidArgument, "category does not exist")
)

const maxPageSize = 100

var hundred = decimal.NewFromInt(100)

// EffectivePrice is the unit price after the product's discount, rounded to
// cents. Products without a positive discount sell at list price.
func EffectivePrice(p *model.Product) decimal.Decimal {
	if p.DiscountPercentage == nil || *p.DiscountPercentage <= 0 {
		return p.Price
	}
	off := decimal.NewFromInt(int64(100 - *p.DiscountPercentage))
	return p.Price.Mul(off).Div(hundred).Round(2)
}

// View is a product as served to the storefront
type View struct {
	*model.Product
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}

func NewView(p *model.Product) *View {
	return &View{Product: p, DiscountedPrice: EffectivePrice(p)}
}

// Input carries the writable product fields
type Input struct {
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	Stock              int             `json:"stock"`
	DiscountPercentage *int            `json:"discount_percentage"`
	Colors             []string        `json:"colors"`
	Sizes              []string        `json:"sizes"`
	Images             []string        `json:"images"`
	CategoryID         string          `json:"category_id"`
	IsFeatured         bool            `json:"is_featured"`
}

type Service struct {
	products   store.ProductStore
	categories store.CategoryStore
}

func NewService(products store.ProductStore, categories store.CategoryStore) *Service {
	return &Service{products: products, categories: categories}
}

func (s *Service) validate(ctx context.Context, in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrInvalidName
	}
	if in.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if in.Stock < 0 {
		return ErrInvalidStock
	}
	if d := in.DiscountPercentage; d != nil && (*d < 0 || *d > 100) {
		return ErrInvalidDiscount
	}
	if in.CategoryID != "" {
		if _, err := s.categories.GetCategory(ctx, in.CategoryID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrCategoryNotFound
			}
			return apperr.Internal("get category", err)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*model.Product, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	now := time.Now()
	p := &model.Product{
		ID:        uuid.New().String(),
		CreatedAt: now,
	}
	apply(p, in, now)

	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, apperr.Internal("create product", err)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Product, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(p, in, time.Now())

	if err := s.products.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperr.Internal("update product", err)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProductNotFound
		}
		return apperr.Internal("delete product", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewView(p), nil
}

func (s *Service) List(ctx context.Context, filter model.ProductFilter) ([]*View, error) {
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, err := s.products.ListProducts(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("list products", err)
	}
	views := make([]*View, 0, len(products))
	for _, p := range products {
		views = append(views, NewView(p))
	}
	return views, nil
}

func (s *Service) get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperr.Internal("get product", err)
	}
	return p, nil
}

func apply(p *model.Product, in Input, now time.Time) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.Stock = in.Stock
	p.DiscountPercentage = in.DiscountPercentage
	p.Colors = nonNil(in.Colors)
	p.Sizes = nonNil(in.Sizes)
	p.Images = nonNil(in.Images)
	p.CategoryID = in.CategoryID
	p.IsFeatured = in.IsFeatured
	p.UpdatedAt = now
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
