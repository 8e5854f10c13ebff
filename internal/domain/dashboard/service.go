// Package dashboard builds the read-only admin summaries over a trailing
// window of orders and sign-ups.
package dashboard

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

type Range string

const (
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
)

const topProductLimit = 5

var ErrInvalidRange = apperr.New(apperr.ErrInvalidArgument, "range must be week, month or year")

// ParseRange accepts week, month or year. An empty value means week.
func ParseRange(s string) (Range, error) {
	switch r := Range(s); r {
	case "":
		return RangeWeek, nil
	case RangeWeek, RangeMonth, RangeYear:
		return r, nil
	}
	return "", ErrInvalidRange
}

// Since returns the start of the window ending at now
func (r Range) Since(now time.Time) time.Time {
	switch r {
	case RangeMonth:
		return monthsBefore(now, 1)
	case RangeYear:
		return monthsBefore(now, 12)
	default:
		return now.AddDate(0, 0, -7)
	}
}

// monthsBefore steps back n calendar months, clamping the day to the end of
// the target month so Mar 31 becomes Feb 28 rather than Mar 3.
func monthsBefore(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()-time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), lastDay)-1)
}

// bucket returns the chronological sort key and display label for t.
// Week and month windows bucket by calendar day, year windows by month.
func (r Range) bucket(t time.Time) (key, label string) {
	if r == RangeYear {
		return t.Format("2006-01"), t.Format("Jan")
	}
	return t.Format("2006-01-02"), t.Format("02")
}

type Overview struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	OrderCount    int             `json:"order_count"`
	CustomerCount int             `json:"customer_count"`
	ProductCount  int             `json:"product_count"`
}

type RevenuePoint struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
}

type GrowthPoint struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Customers int    `json:"customers"`
}

type TopProduct struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type StatusCount struct {
	Status model.OrderStatus `json:"status"`
	Count  int               `json:"count"`
}

type Report struct {
	Range          Range          `json:"range"`
	Since          time.Time      `json:"since"`
	Overview       Overview       `json:"overview"`
	Revenue        []RevenuePoint `json:"revenue"`
	CustomerGrowth []GrowthPoint  `json:"customer_growth"`
	TopProducts    []TopProduct   `json:"top_products"`
	OrdersByStatus []StatusCount  `json:"orders_by_status"`
}

type Service struct {
	orders   store.OrderStore
	profiles store.ProfileStore
	products store.ProductStore
	now      func() time.Time
}

func NewService(orders store.OrderStore, profiles store.ProfileStore, products store.ProductStore) *Service {
	return &Service{orders: orders, profiles: profiles, products: products, now: time.Now}
}

// Report summarizes the window. Revenue counts every order created in the
// window whatever its status.
func (s *Service) Report(ctx context.Context, r Range) (*Report, error) {
	now := s.now()
	since := r.Since(now)

	orders, err := s.orders.ListOrders(ctx, model.OrderFilter{Since: since})
	if err != nil {
		return nil, apperr.Internal("list orders", err)
	}
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	var items []model.OrderItem
	if len(ids) > 0 {
		if items, err = s.orders.ListOrderItems(ctx, ids); err != nil {
			return nil, apperr.Internal("list order items", err)
		}
	}

	profiles, err := s.profiles.ListProfilesSince(ctx, since)
	if err != nil {
		return nil, apperr.Internal("list profiles", err)
	}
	customers, err := s.profiles.CountProfiles(ctx)
	if err != nil {
		return nil, apperr.Internal("count profiles", err)
	}
	productCount, err := s.products.CountProducts(ctx)
	if err != nil {
		return nil, apperr.Internal("count products", err)
	}

	report := &Report{
		Range:          r,
		Since:          since,
		Revenue:        revenueSeries(r, now.Location(), orders),
		CustomerGrowth: growthSeries(r, now.Location(), profiles),
		TopProducts:    topProducts(items, topProductLimit),
		OrdersByStatus: ordersByStatus(orders),
		Overview: Overview{
			TotalRevenue:  decimal.Zero,
			OrderCount:    len(orders),
			CustomerCount: customers,
			ProductCount:  productCount,
		},
	}
	for _, o := range orders {
		report.Overview.TotalRevenue = report.Overview.TotalRevenue.Add(o.TotalAmount)
	}
	return report, nil
}

func revenueSeries(r Range, loc *time.Location, orders []*model.Order) []RevenuePoint {
	points := make(map[string]*RevenuePoint)
	for _, o := range orders {
		key, label := r.bucket(o.CreatedAt.In(loc))
		p, ok := points[key]
		if !ok {
			p = &RevenuePoint{Key: key, Label: label, Revenue: decimal.Zero}
			points[key] = p
		}
		p.Revenue = p.Revenue.Add(o.TotalAmount)
	}

	out := make([]RevenuePoint, 0, len(points))
	for _, p := range points {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// growthSeries counts non-admin sign-ups per bucket and accumulates them
func growthSeries(r Range, loc *time.Location, profiles []*model.Profile) []GrowthPoint {
	points := make(map[string]*GrowthPoint)
	for _, p := range profiles {
		if p.IsAdmin {
			continue
		}
		key, label := r.bucket(p.CreatedAt.In(loc))
		g, ok := points[key]
		if !ok {
			g = &GrowthPoint{Key: key, Label: label}
			points[key] = g
		}
		g.Customers++
	}

	out := make([]GrowthPoint, 0, len(points))
	for _, g := range points {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	total := 0
	for i := range out {
		total += out[i].Customers
		out[i].Customers = total
	}
	return out
}

func topProducts(items []model.OrderItem, limit int) []TopProduct {
	byProduct := make(map[string]*TopProduct)
	for _, it := range items {
		tp, ok := byProduct[it.ProductID]
		if !ok {
			tp = &TopProduct{ProductID: it.ProductID, Name: it.ProductName, Revenue: decimal.Zero}
			byProduct[it.ProductID] = tp
		}
		tp.Quantity += it.Quantity
		tp.Revenue = tp.Revenue.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	out := make([]TopProduct, 0, len(byProduct))
	for _, tp := range byProduct {
		out = append(out, *tp)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func ordersByStatus(orders []*model.Order) []StatusCount {
	counts := make(map[model.OrderStatus]int)
	for _, o := range orders {
		counts[o.Status]++
	}
	out := make([]StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}
