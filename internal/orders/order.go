package orders

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

const (
	OrderStatusNeedsApproval = "needs_approval"
	OrderStatusPending       = "pending"
	OrderStatusPreparing     = "preparing"
	OrderStatusReady         = "ready"
	OrderStatusServed        = "served"
	OrderStatusPaid          = "paid"
	OrderStatusCancelled     = "cancelled"
)

// statusRank orders the forward flow. needs_approval sits before pending;
// cancelled is outside the rank and handled separately.
var statusRank = map[string]int{
	OrderStatusNeedsApproval: 0,
	OrderStatusPending:       1,
	OrderStatusPreparing:     2,
	OrderStatusReady:         3,
	OrderStatusServed:        4,
	OrderStatusPaid:          5,
}

func ValidOrderStatus(status string) bool {
	if status == OrderStatusCancelled {
		return true
	}
	_, ok := statusRank[status]
	return ok
}

func IsTerminalStatus(status string) bool {
	return status == OrderStatusPaid || status == OrderStatusCancelled
}

// Order is the aggregate for a table submission. Items are embedded so the
// whole order lands in one write.
type Order struct {
	ID             uuid.UUID   `json:"id" bson:"_id"`
	RestaurantID   uuid.UUID   `json:"restaurant_id" bson:"restaurant_id"`
	TableID        uuid.UUID   `json:"table_id" bson:"table_id"`
	TableNumber    string      `json:"table_number" bson:"table_number"`
	SessionID      string      `json:"session_id" bson:"session_id"`
	CustomerID     *uuid.UUID  `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	Status         string      `json:"status" bson:"status"`
	Items          []OrderItem `json:"items" bson:"items"`
	Total          float64     `json:"total" bson:"total"`
	Archived       bool        `json:"archived" bson:"archived"`
	IdempotencyKey string      `json:"idempotency_key" bson:"idempotency_key"`
	CreatedAt      time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" bson:"updated_at"`
}

func NewOrder() *Order {
	return &Order{
		ID:     apt.GenerateNewID(),
		Status: OrderStatusPending,
	}
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func (o *Order) ResourceType() string {
	return "orders"
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now().UTC()
}

// CanTransition reports whether moving to target is allowed. Forward moves
// only, one-way: a served order never goes back to preparing. Cancellation
// is allowed from any non-terminal status. An order waiting on approval
// only leaves that state through the approval workflow.
func (o *Order) CanTransition(target string) bool {
	if IsTerminalStatus(o.Status) {
		return false
	}
	if o.Status == OrderStatusNeedsApproval {
		return false
	}
	if target == OrderStatusCancelled {
		return true
	}
	from, ok := statusRank[o.Status]
	if !ok {
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	return to > from
}

func (o *Order) Transition(target string) error {
	if !ValidOrderStatus(target) {
		return NewError(KindInvalidTransition, "unknown status %q", target)
	}
	if !o.CanTransition(target) {
		return NewError(KindInvalidTransition, "cannot move order from %s to %s", o.Status, target)
	}
	o.Status = target
	return nil
}

// Editable reports whether the item list can still change. Edits stay open
// until the order is paid, cancelled, or archived.
func (o *Order) Editable() bool {
	return !IsTerminalStatus(o.Status) && !o.Archived
}

func (o *Order) Archive() {
	o.Archived = true
}

// RecomputeTotal recalculates the order total from its items, rounded to
// cents.
func (o *Order) RecomputeTotal() {
	total := 0.0
	for i := range o.Items {
		total += o.Items[i].LineTotal()
	}
	o.Total = roundCents(total)
}
