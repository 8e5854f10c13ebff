package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

// MockStore is an in-memory implementation of every store interface for testing
type MockStore struct {
	mu sync.RWMutex

	products   map[string]model.Product
	categories map[string]model.Category
	banners    map[string]model.Banner
	discounts  map[string]model.Discount
	profiles   map[string]model.Profile
	cart       map[string]model.CartLine
	orders     map[string]model.Order
	orderItems map[string][]model.OrderItem

	// For tracking calls in tests
	CreateOrderCalls    []CreateOrderCall
	ConfirmPaymentCalls []model.PaymentConfirmation
	ClearCartCalls      []string
	StatusUpdateCalls   []StatusUpdateCall

	// Error injection
	CreateOrderErr    error
	ConfirmPaymentErr error
	ClearCartErr      error
	ListOrdersErr     error
	GetProductErr     error
}

// CreateOrderCall records parameters passed to CreateOrder
type CreateOrderCall struct {
	Order model.Order
	Items []model.OrderItem
}

// StatusUpdateCall records parameters passed to UpdateOrderStatus
type StatusUpdateCall struct {
	ID   string
	From model.OrderStatus
	To   model.OrderStatus
}

// NewMockStore creates an empty MockStore
func NewMockStore() *MockStore {
	m := &MockStore{}
	m.Reset()
	return m
}

// Reset clears all data, recorded calls and injected errors
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products = make(map[string]model.Product)
	m.categories = make(map[string]model.Category)
	m.banners = make(map[string]model.Banner)
	m.discounts = make(map[string]model.Discount)
	m.profiles = make(map[string]model.Profile)
	m.cart = make(map[string]model.CartLine)
	m.orders = make(map[string]model.Order)
	m.orderItems = make(map[string][]model.OrderItem)

	m.CreateOrderCalls = nil
	m.ConfirmPaymentCalls = nil
	m.ClearCartCalls = nil
	m.StatusUpdateCalls = nil
	m.CreateOrderErr = nil
	m.ConfirmPaymentErr = nil
	m.ClearCartErr = nil
	m.ListOrdersErr = nil
	m.GetProductErr = nil
}

// ==========================================
// Products
// ==========================================

func (m *MockStore) CreateProduct(ctx context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; ok {
		return store.ErrDuplicate
	}
	m.products[p.ID] = *p
	return nil
}

func (m *MockStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	m.products[p.ID] = *p
	return nil
}

func (m *MockStore) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.products, id)
	for lineID, l := range m.cart {
		if l.ProductID == id {
			delete(m.cart, lineID)
		}
	}
	return nil
}

func (m *MockStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetProductErr != nil {
		return nil, m.GetProductErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *MockStore) GetProducts(ctx context.Context, ids []string) (map[string]*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetProductErr != nil {
		return nil, m.GetProductErr
	}
	out := make(map[string]*model.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (m *MockStore) ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Product
	search := strings.ToLower(filter.Search)
	for _, p := range m.products {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Featured && !p.IsFeatured {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (m *MockStore) CountProducts(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products), nil
}

func (m *MockStore) SetDiscountPercentage(ctx context.Context, productIDs []string, pct *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range productIDs {
		p, ok := m.products[id]
		if !ok {
			continue
		}
		if pct == nil {
			p.DiscountPercentage = nil
		} else {
			v := *pct
			p.DiscountPercentage = &v
		}
		m.products[id] = p
	}
	return nil
}

// SetStock overwrites a product's stock
func (m *MockStore) SetStock(id string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.Stock = stock
		m.products[id] = p
	}
}

// ==========================================
// Categories
// ==========================================

func (m *MockStore) CreateCategory(ctx context.Context, c *model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.Slug == c.Slug {
			return store.ErrDuplicate
		}
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *MockStore) UpdateCategory(ctx context.Context, c *model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range m.categories {
		if existing.ID != c.ID && existing.Slug == c.Slug {
			return store.ErrDuplicate
		}
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *MockStore) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *MockStore) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (m *MockStore) ListCategories(ctx context.Context) ([]*model.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Category
	for _, c := range m.categories {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ==========================================
// Banners
// ==========================================

func (m *MockStore) CreateBanner(ctx context.Context, b *model.Banner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banners[b.ID] = *b
	return nil
}

func (m *MockStore) UpdateBanner(ctx context.Context, b *model.Banner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.banners[b.ID]; !ok {
		return store.ErrNotFound
	}
	m.banners[b.ID] = *b
	return nil
}

func (m *MockStore) DeleteBanner(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.banners[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.banners, id)
	return nil
}

func (m *MockStore) GetBanner(ctx context.Context, id string) (*model.Banner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.banners[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (m *MockStore) ListBanners(ctx context.Context, activeOnly bool) ([]*model.Banner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Banner
	for _, b := range m.banners {
		if activeOnly && !b.IsActive {
			continue
		}
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ==========================================
// Discounts
// ==========================================

func (m *MockStore) CreateDiscount(ctx context.Context, d *model.Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discounts[d.ID] = *d
	return nil
}

func (m *MockStore) UpdateDiscount(ctx context.Context, d *model.Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.discounts[d.ID]; !ok {
		return store.ErrNotFound
	}
	m.discounts[d.ID] = *d
	return nil
}

func (m *MockStore) DeleteDiscount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.discounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.discounts, id)
	return nil
}

func (m *MockStore) GetDiscount(ctx context.Context, id string) (*model.Discount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.discounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (m *MockStore) ListDiscounts(ctx context.Context) ([]*model.Discount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Discount
	for _, d := range m.discounts {
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ==========================================
// Profiles
// ==========================================

func (m *MockStore) CreateProfile(ctx context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if strings.EqualFold(existing.Email, p.Email) {
			return store.ErrDuplicate
		}
	}
	m.profiles[p.ID] = *p
	return nil
}

func (m *MockStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *MockStore) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) CountProfiles(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.profiles {
		if !p.IsAdmin {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) ListProfilesSince(ctx context.Context, since time.Time) ([]*model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Profile
	for _, p := range m.profiles {
		if p.CreatedAt.Before(since) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ==========================================
// Cart
// ==========================================

func (m *MockStore) ListCartLines(ctx context.Context, userID string) ([]*model.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.CartLine
	for _, l := range m.cart {
		if l.UserID == userID {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockStore) GetCartLine(ctx context.Context, id string) (*model.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.cart[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

func (m *MockStore) AddToCartLine(ctx context.Context, key model.CartLineKey, quantity int) (*model.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[key.ProductID]
	if !ok {
		return nil, store.ErrStockExceeded
	}
	now := time.Now()
	for id, l := range m.cart {
		if l.UserID == key.UserID && l.ProductID == key.ProductID && l.Color == key.Color && l.Size == key.Size {
			if l.Quantity+quantity > p.Stock {
				return nil, store.ErrStockExceeded
			}
			l.Quantity += quantity
			l.UpdatedAt = now
			m.cart[id] = l
			return &l, nil
		}
	}
	if quantity > p.Stock {
		return nil, store.ErrStockExceeded
	}
	l := model.CartLine{
		ID:        uuid.New().String(),
		UserID:    key.UserID,
		ProductID: key.ProductID,
		Quantity:  quantity,
		Color:     key.Color,
		Size:      key.Size,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.cart[l.ID] = l
	return &l, nil
}

func (m *MockStore) SetCartLineQuantity(ctx context.Context, id string, quantity int) (*model.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.cart[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p, ok := m.products[l.ProductID]; !ok || quantity > p.Stock {
		return nil, store.ErrStockExceeded
	}
	l.Quantity = quantity
	l.UpdatedAt = time.Now()
	m.cart[id] = l
	return &l, nil
}

func (m *MockStore) DeleteCartLine(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cart[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.cart, id)
	return nil
}

func (m *MockStore) ClearCart(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCartCalls = append(m.ClearCartCalls, userID)
	if m.ClearCartErr != nil {
		return m.ClearCartErr
	}
	for id, l := range m.cart {
		if l.UserID == userID {
			delete(m.cart, id)
		}
	}
	return nil
}

// ==========================================
// Orders
// ==========================================

func (m *MockStore) CreateOrder(ctx context.Context, o *model.Order, items []model.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateOrderCalls = append(m.CreateOrderCalls, CreateOrderCall{Order: *o, Items: append([]model.OrderItem(nil), items...)})
	if m.CreateOrderErr != nil {
		return m.CreateOrderErr
	}
	for _, existing := range m.orders {
		if existing.OrderNumber == o.OrderNumber || existing.PaymentReference == o.PaymentReference {
			return store.ErrDuplicate
		}
	}
	m.orders[o.ID] = *o
	stored := make([]model.OrderItem, len(items))
	for i, it := range items {
		it.OrderID = o.ID
		stored[i] = it
	}
	m.orderItems[o.ID] = stored
	return nil
}

func (m *MockStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (m *MockStore) GetOrderByPaymentReference(ctx context.Context, ref string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.PaymentReference == ref {
			return &o, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) ListOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListOrdersErr != nil {
		return nil, m.ListOrdersErr
	}
	var out []*model.Order
	for _, o := range m.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && o.CreatedAt.Before(filter.Since) {
			continue
		}
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (m *MockStore) ListOrderItems(ctx context.Context, orderIDs []string) ([]model.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.OrderItem
	for _, id := range orderIDs {
		out = append(out, m.orderItems[id]...)
	}
	return out, nil
}

func (m *MockStore) UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusUpdateCalls = append(m.StatusUpdateCalls, StatusUpdateCall{ID: id, From: from, To: to})
	o, ok := m.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	if o.Status != from {
		return store.ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	return nil
}

func (m *MockStore) ConfirmPayment(ctx context.Context, c model.PaymentConfirmation) (*store.PaymentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmPaymentCalls = append(m.ConfirmPaymentCalls, c)
	if m.ConfirmPaymentErr != nil {
		return nil, m.ConfirmPaymentErr
	}

	var found *model.Order
	for _, o := range m.orders {
		if o.PaymentReference == c.PaymentReference {
			o := o
			found = &o
			break
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	if found.Status != model.OrderStatusPending {
		return &store.PaymentResult{Order: found}, nil
	}

	found.Status = model.OrderStatusPaid
	if c.ShippingAddress != nil {
		found.ShippingAddress = *c.ShippingAddress
	}
	found.UpdatedAt = c.ConfirmedAt
	m.orders[found.ID] = *found

	result := &store.PaymentResult{Order: found, Applied: true}
	for _, it := range m.orderItems[found.ID] {
		p, ok := m.products[it.ProductID]
		if !ok {
			continue
		}
		if p.Stock < it.Quantity {
			result.Oversold = append(result.Oversold, p.ID)
			p.Stock = 0
		} else {
			p.Stock -= it.Quantity
		}
		m.products[p.ID] = p
	}
	return result, nil
}

// PutOrder stores an order and its items directly
func (m *MockStore) PutOrder(o model.Order, items ...model.OrderItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.orderItems[o.ID] = items
}

// OrderCount returns the number of stored orders
func (m *MockStore) OrderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var (
	_ store.ProductStore  = (*MockStore)(nil)
	_ store.CategoryStore = (*MockStore)(nil)
	_ store.BannerStore   = (*MockStore)(nil)
	_ store.DiscountStore = (*MockStore)(nil)
	_ store.ProfileStore  = (*MockStore)(nil)
	_ store.CartStore     = (*MockStore)(nil)
	_ store.OrderStore    = (*MockStore)(nil)
)
