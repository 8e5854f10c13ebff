package notification

import (
	"context"
	"log"
	"time"

	"github.com/example/storefront/internal/model"
)

const EventOrderPaid = "order.paid"

const publishTimeout = 5 * time.Second

// OrderEvent is the message published for the notifier process
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher writes keyed events to the message bus
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Dispatcher hands paid orders to the notifier over the message bus
type Dispatcher struct {
	publisher Publisher
	now       func() time.Time
}

func NewDispatcher(p Publisher) *Dispatcher {
	return &Dispatcher{publisher: p, now: time.Now}
}

// OrderPaid publishes an order.paid event. Failures are logged and never
// returned; the publish outlives request cancellation but is bounded by
// publishTimeout.
func (d *Dispatcher) OrderPaid(ctx context.Context, order *model.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := OrderEvent{
		Type:        EventOrderPaid,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OccurredAt:  d.now().UTC(),
	}
	if err := d.publisher.Publish(ctx, order.ID, event); err != nil {
		log.Printf("[Notifier] Failed to publish %s for order %s: %v", EventOrderPaid, order.OrderNumber, err)
		return
	}
	log.Printf("[Notifier] Published %s for order %s", EventOrderPaid, order.OrderNumber)
}
