package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
	"github.com/example/storefront/internal/sms"
)

// EmailSender sends the order confirmation mail
type EmailSender interface {
	SendOrderConfirmation(to string, c email.OrderConfirmation) error
}

// SMSSender sends a text message and returns its provider id
type SMSSender interface {
	Send(to, body string) (string, error)
}

// Handler processes events for sending notifications
type Handler struct {
	orders   store.OrderStore
	profiles store.ProfileStore
	email    EmailSender
	sms      SMSSender
}

// NewHandler creates a new notification handler. A nil SMS sender disables
// text messages.
func NewHandler(orders store.OrderStore, profiles store.ProfileStore, emailSvc EmailSender, smsSvc SMSSender) *Handler {
	return &Handler{
		orders:   orders,
		profiles: profiles,
		email:    emailSvc,
		sms:      smsSvc,
	}
}

// HandleEvent processes an event from Kafka. Only a malformed payload or a
// failed order lookup is returned; channel failures are logged separately
// so one channel never blocks the other.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event OrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	if event.Type != EventOrderPaid {
		return nil
	}
	return h.handleOrderPaid(ctx, event)
}

func (h *Handler) handleOrderPaid(ctx context.Context, event OrderEvent) error {
	log.Printf("[Notifier] Processing %s for order %s", event.Type, event.OrderNumber)

	order, err := h.orders.GetOrder(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("[Notifier] Order not found: %s", event.OrderID)
			return nil
		}
		return fmt.Errorf("get order %s: %w", event.OrderID, err)
	}

	items, err := h.orders.ListOrderItems(ctx, []string{order.ID})
	if err != nil {
		return fmt.Errorf("list items for order %s: %w", order.ID, err)
	}

	h.sendEmail(ctx, order, items)
	h.sendSMS(order)
	return nil
}

func (h *Handler) sendEmail(ctx context.Context, order *model.Order, items []model.OrderItem) {
	profile, err := h.profiles.GetProfile(ctx, order.UserID)
	if err != nil {
		log.Printf("[Notifier] Error getting user %s: %v", order.UserID, err)
		return
	}

	emailItems := make([]email.OrderItem, len(items))
	for i, it := range items {
		emailItems[i] = email.OrderItem{
			Name:     it.ProductName,
			Quantity: it.Quantity,
			Price:    it.Price,
			Color:    it.Color,
			Size:     it.Size,
		}
	}

	name := profile.Name
	if name == "" {
		name = order.ShippingAddress.Name
	}
	err = h.email.SendOrderConfirmation(profile.Email, email.OrderConfirmation{
		OrderNumber:  order.OrderNumber,
		CustomerName: name,
		Items:        emailItems,
		Total:        order.TotalAmount,
		Shipping:     order.ShippingAddress,
	})
	if err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", profile.Email, err)
		return
	}
	log.Printf("[Notifier] Order confirmation email sent to %s for order %s", profile.Email, order.OrderNumber)
}

func (h *Handler) sendSMS(order *model.Order) {
	phone := order.ShippingAddress.Phone
	if h.sms == nil || phone == "" {
		return
	}
	sid, err := h.sms.Send(phone, sms.OrderPaidMessage(order.OrderNumber, order.TotalAmount.StringFixed(2)))
	if err != nil {
		log.Printf("[Notifier] Failed to send SMS for order %s: %v", order.OrderNumber, err)
		return
	}
	log.Printf("[Notifier] SMS %s sent for order %s", sid, order.OrderNumber)
}
