package discount

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

var (
	ErrDiscountNotFound  = apperr.New(apperr.ErrNotFound, "discount not found")
	ErrInvalidName       = apperr.New(apperr.ErrInvalidArgument, "name is required")
	ErrInvalidPercentage = apperr.New(apperr.ErrInvalidArgument, "percentage must be between 1 and 100")
	ErrInvalidWindow     = apperr.New(apperr.ErrInvalidArgument, "ends_at must be after starts_at")
	ErrNoProducts        = apperr.New(apperr.ErrInvalidArgument, "at least one product is required")
)

type Input struct {
	Name       string     `json:"name"`
	Percentage int        `json:"percentage"`
	ProductIDs []string   `json:"product_ids"`
	IsActive   bool       `json:"is_active"`
	StartsAt   *time.Time `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
}

// Service manages promotions. Every product covered by a promotion carries
// the highest percentage among its live promotions in discount_percentage,
// or none when no covering promotion is live. Reconcile restores that after
// each write and Run repeats it so window boundaries take effect.
type Service struct {
	discounts store.DiscountStore
	products  store.ProductStore
	now       func() time.Time
}

func NewService(discounts store.DiscountStore, products store.ProductStore) *Service {
	return &Service{discounts: discounts, products: products, now: time.Now}
}

// Live reports whether d currently applies
func Live(d *model.Discount, now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return false
	}
	if d.EndsAt != nil && !now.Before(*d.EndsAt) {
		return false
	}
	return true
}

func (s *Service) validate(ctx context.Context, in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrInvalidName
	}
	if in.Percentage < 1 || in.Percentage > 100 {
		return ErrInvalidPercentage
	}
	if in.StartsAt != nil && in.EndsAt != nil && !in.EndsAt.After(*in.StartsAt) {
		return ErrInvalidWindow
	}
	in.ProductIDs = dedupe(in.ProductIDs)
	if len(in.ProductIDs) == 0 {
		return ErrNoProducts
	}

	found, err := s.products.GetProducts(ctx, in.ProductIDs)
	if err != nil {
		return apperr.Internal("get products", err)
	}
	for _, id := range in.ProductIDs {
		if _, ok := found[id]; !ok {
			return apperr.Newf(apperr.ErrInvalidArgument, "product %s does not exist", id)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*model.Discount, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	now := s.now()
	d := &model.Discount{
		ID:         uuid.New().String(),
		Name:       in.Name,
		Percentage: in.Percentage,
		ProductIDs: in.ProductIDs,
		IsActive:   in.IsActive,
		StartsAt:   in.StartsAt,
		EndsAt:     in.EndsAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.discounts.CreateDiscount(ctx, d); err != nil {
		return nil, apperr.Internal("create discount", err)
	}
	if err := s.Reconcile(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Discount, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := d.ProductIDs

	d.Name = in.Name
	d.Percentage = in.Percentage
	d.ProductIDs = in.ProductIDs
	d.IsActive = in.IsActive
	d.StartsAt = in.StartsAt
	d.EndsAt = in.EndsAt
	d.UpdatedAt = s.now()

	if err := s.discounts.UpdateDiscount(ctx, d); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDiscountNotFound
		}
		return nil, apperr.Internal("update discount", err)
	}
	if err := s.Reconcile(ctx, previous...); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.discounts.DeleteDiscount(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDiscountNotFound
		}
		return apperr.Internal("delete discount", err)
	}
	if err := s.Reconcile(ctx, d.ProductIDs...); err != nil {
		return err
	}
	log.Printf("[Discount] Deleted %s covering %d products", d.Name, len(d.ProductIDs))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Discount, error) {
	d, err := s.discounts.GetDiscount(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDiscountNotFound
		}
		return nil, apperr.Internal("get discount", err)
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Discount, error) {
	discounts, err := s.discounts.ListDiscounts(ctx)
	if err != nil {
		return nil, apperr.Internal("list discounts", err)
	}
	return discounts, nil
}

// Reconcile recomputes discount_percentage for every product covered by a
// promotion, plus released. released names products that may have just lost
// coverage and must be cleared when nothing else covers them.
func (s *Service) Reconcile(ctx context.Context, released ...string) error {
	discounts, err := s.discounts.ListDiscounts(ctx)
	if err != nil {
		return apperr.Internal("list discounts", err)
	}

	now := s.now()
	best := make(map[string]int)
	for _, id := range released {
		best[id] = 0
	}
	for _, d := range discounts {
		live := Live(d, now)
		for _, id := range d.ProductIDs {
			if live && d.Percentage > best[id] {
				best[id] = d.Percentage
			} else if _, ok := best[id]; !ok {
				best[id] = 0
			}
		}
	}

	groups := make(map[int][]string)
	for id, pct := range best {
		groups[pct] = append(groups[pct], id)
	}
	for pct, ids := range groups {
		slices.Sort(ids)
		var p *int
		if pct > 0 {
			v := pct
			p = &v
		}
		if err := s.products.SetDiscountPercentage(ctx, ids, p); err != nil {
			return apperr.Internal(fmt.Sprintf("apply %d%% discount", pct), err)
		}
	}
	return nil
}

// Run reconciles every interval until ctx ends
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reconcile(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[Discount] Reconcile failed: %v", err)
			}
		}
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
