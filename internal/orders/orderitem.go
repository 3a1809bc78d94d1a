package orders

import (
	"math"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// OrderItem is a line inside an order. UnitPrice and the modifier prices are
// snapshots taken from the menu at order time; later menu edits never touch
// historical orders.
type OrderItem struct {
	ID         uuid.UUID           `json:"id" bson:"id"`
	MenuItemID uuid.UUID           `json:"menu_item_id" bson:"menu_item_id"`
	Name       string              `json:"name" bson:"name"`
	Quantity   int                 `json:"quantity" bson:"quantity"`
	UnitPrice  float64             `json:"unit_price" bson:"unit_price"`
	Notes      string              `json:"notes,omitempty" bson:"notes,omitempty"`
	Modifiers  []ModifierSelection `json:"modifiers,omitempty" bson:"modifiers,omitempty"`
}

// ModifierSelection is a chosen modifier with its own price snapshot.
type ModifierSelection struct {
	ModifierID uuid.UUID `json:"modifier_id" bson:"modifier_id"`
	Name       string    `json:"name,omitempty" bson:"name,omitempty"`
	Quantity   int       `json:"quantity" bson:"quantity"`
	UnitPrice  float64   `json:"unit_price" bson:"unit_price"`
}

func NewOrderItem() *OrderItem {
	return &OrderItem{
		ID: apt.GenerateNewID(),
	}
}

func (oi *OrderItem) EnsureID() {
	if oi.ID == uuid.Nil {
		oi.ID = apt.GenerateNewID()
	}
}

// LineTotal is quantity times unit price plus all modifier lines, rounded
// to cents.
func (oi *OrderItem) LineTotal() float64 {
	total := float64(oi.Quantity) * oi.UnitPrice
	for _, m := range oi.Modifiers {
		total += float64(m.Quantity) * m.UnitPrice
	}
	return roundCents(total)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
