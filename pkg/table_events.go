package pkg

import "time"

const (
	// TableStatusTopic delivers authoritative status changes for tables.
	// The ordering core both publishes on it (occupancy driven by order
	// flow) and consumes from it (management disabling a table).
	TableStatusTopic = "tables.status"

	// EventTableStatusChanged identifies a table status change payload.
	EventTableStatusChanged = "table.status.changed"
)

// TableStatusEvent captures a table moving between occupancy states.
type TableStatusEvent struct {
	EventType      string    `json:"event_type"`
	TableID        string    `json:"table_id"`
	RestaurantID   string    `json:"restaurant_id,omitempty"`
	Number         string    `json:"number,omitempty"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Source         string    `json:"source,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
