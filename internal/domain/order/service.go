package order

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

var (
	ErrNotAuthenticated = apperr.New(apperr.ErrUnauthorized, "sign in to view orders")
	ErrOrderNotFound    = apperr.New(apperr.ErrNotFound, "order not found")
	ErrUnknownStatus    = apperr.New(apperr.ErrInvalidArgument, "unknown order status")
	ErrInvalidStatus    = apperr.New(apperr.ErrInvalidArgument, "invalid order status transition")
	ErrOrderCancelled   = apperr.New(apperr.ErrInvalidArgument, "order is already cancelled")
	ErrOrderCompleted   = apperr.New(apperr.ErrInvalidArgument, "order is already completed")
	ErrOrderNotPaid     = apperr.New(apperr.ErrInvalidArgument, "order must be paid first")
	ErrStatusConflict   = apperr.New(apperr.ErrInvalidArgument, "order status changed, reload and retry")
)

const maxPageSize = 100

// validTransitions defines allowed state transitions
var validTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusPaid, model.OrderStatusCancelled},
	model.OrderStatusPaid:       {model.OrderStatusProcessing, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusCompleted, model.OrderStatusCancelled},
	model.OrderStatusCompleted:  {}, // terminal state
	model.OrderStatusCancelled:  {}, // terminal state
}

// CanTransition checks if an order in from may move to target
func CanTransition(from, target model.OrderStatus) bool {
	for _, s := range validTransitions[from] {
		if s == target {
			return true
		}
	}
	return false
}

// transitionError returns an appropriate error for an invalid transition
func transitionError(from, target model.OrderStatus) error {
	switch {
	case from == model.OrderStatusCancelled:
		return ErrOrderCancelled
	case from == model.OrderStatusCompleted:
		return ErrOrderCompleted
	case from == model.OrderStatusPending &&
		(target == model.OrderStatusProcessing || target == model.OrderStatusCompleted):
		return ErrOrderNotPaid
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, from, target)
	}
}

type Service struct {
	orders store.OrderStore
}

func NewService(orders store.OrderStore) *Service {
	return &Service{orders: orders}
}

// Get returns an order with its items. Orders owned by someone else are
// reported as missing unless the caller is an admin.
func (s *Service) Get(ctx context.Context, id auth.Identity, orderID string) (*model.Order, error) {
	if id.Anonymous() {
		return nil, ErrNotAuthenticated
	}
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, apperr.Internal("get order", err)
	}
	if !id.CanAccess(o.UserID) {
		return nil, ErrOrderNotFound
	}
	if err := s.attachItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListForUser returns the caller's orders, newest first
func (s *Service) ListForUser(ctx context.Context, id auth.Identity, limit, offset int) ([]*model.Order, error) {
	if id.Anonymous() {
		return nil, ErrNotAuthenticated
	}
	return s.list(ctx, model.OrderFilter{UserID: id.UserID, Limit: limit, Offset: offset})
}

// List returns every order, optionally narrowed to one status
func (s *Service) List(ctx context.Context, status model.OrderStatus, limit, offset int) ([]*model.Order, error) {
	if status != "" && !status.Valid() {
		return nil, ErrUnknownStatus
	}
	return s.list(ctx, model.OrderFilter{Status: status, Limit: limit, Offset: offset})
}

func (s *Service) list(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error) {
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("list orders", err)
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves an order forward through the status machine. Setting
// the current status again succeeds without a write.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, target model.OrderStatus) (*model.Order, error) {
	if !target.Valid() {
		return nil, ErrUnknownStatus
	}

	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, apperr.Internal("get order", err)
	}
	if o.Status == target {
		return o, nil
	}
	if !CanTransition(o.Status, target) {
		return nil, transitionError(o.Status, target)
	}

	if err := s.orders.UpdateOrderStatus(ctx, o.ID, o.Status, target); err != nil {
		switch {
		case errors.Is(err, store.ErrStatusChanged):
			return nil, ErrStatusConflict
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrOrderNotFound
		}
		return nil, apperr.Internal("update order status", err)
	}
	log.Printf("[Order] Order %s moved from %s to %s", o.OrderNumber, o.Status, target)

	updated, err := s.orders.GetOrder(ctx, o.ID)
	if err != nil {
		return nil, apperr.Internal("reload order", err)
	}
	return updated, nil
}

func (s *Service) attachItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*model.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []model.OrderItem{}
	}
	items, err := s.orders.ListOrderItems(ctx, ids)
	if err != nil {
		return apperr.Internal("list order items", err)
	}
	for _, it := range items {
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return nil
}
