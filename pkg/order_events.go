package pkg

import "time"

const (
	// OrderStatusTopic delivers authoritative order lifecycle changes to
	// kitchen, waiter and manager views.
	OrderStatusTopic = "orders.status"

	// EventOrderSubmitted identifies a freshly accepted order.
	EventOrderSubmitted = "order.submitted"
	// EventOrderStatusChanged identifies a status transition on an order.
	EventOrderStatusChanged = "order.status.changed"
	// EventOrderArchived identifies an order leaving the active set.
	EventOrderArchived = "order.archived"
)

// OrderStatusEvent carries the minimal information role views need to keep
// their boards current without querying the order store.
type OrderStatusEvent struct {
	EventType      string    `json:"event_type"`
	OrderID        string    `json:"order_id"`
	RestaurantID   string    `json:"restaurant_id"`
	TableID        string    `json:"table_id"`
	TableNumber    string    `json:"table_number,omitempty"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Total          float64   `json:"total,omitempty"`
	Source         string    `json:"source,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
