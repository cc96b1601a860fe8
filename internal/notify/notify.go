package notify

import (
	"context"
	"log"
)

// Event is one outbound customer notification.
type Event struct {
	Type    string `json:"type"` // order.ready, order.delivered, order.collected
	OrderNo string `json:"order_no"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

const (
	EventOrderReady     = "order.ready"
	EventOrderDelivered = "order.delivered"
	EventOrderCollected = "order.collected"
)

// Notifier delivers customer notifications. Dispatch is fire-and-forget:
// callers must never fail a state transition because Send returned an error.
type Notifier interface {
	Send(ctx context.Context, ev Event) error
}

// LogNotifier writes notifications to the process log. Used in development
// and whenever no provider webhook is configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, ev Event) error {
	log.Printf("notify: %s order=%s phone=%s msg=%q", ev.Type, ev.OrderNo, ev.Phone, ev.Message)
	return nil
}
