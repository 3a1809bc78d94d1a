package orders

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

const (
	TableStatusFree           = "free"
	TableStatusOccupied       = "occupied"
	TableStatusPaymentPending = "payment_pending"
	TableStatusDirty          = "dirty"
	TableStatusDisabled       = "disabled"
)

type Table struct {
	ID           uuid.UUID `json:"id" bson:"_id"`
	RestaurantID uuid.UUID `json:"restaurant_id" bson:"restaurant_id"`
	Number       string    `json:"number" bson:"number"`
	Status       string    `json:"status" bson:"status"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	CreatedBy    string    `json:"created_by" bson:"created_by"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
	UpdatedBy    string    `json:"updated_by" bson:"updated_by"`
}

func (t *Table) GetID() uuid.UUID {
	return t.ID
}

func (t *Table) ResourceType() string {
	return "table"
}

func (t *Table) SetID(id uuid.UUID) {
	t.ID = id
}

func NewTable() *Table {
	return &Table{
		ID:     apt.GenerateNewID(),
		Status: TableStatusFree,
	}
}

func (t *Table) EnsureID() {
	if t.ID == uuid.Nil {
		t.ID = apt.GenerateNewID()
	}
}

func (t *Table) BeforeCreate() {
	t.EnsureID()
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
}

func (t *Table) BeforeUpdate() {
	t.UpdatedAt = time.Now()
}

// AcceptsOrders reports whether new sessions and submissions are allowed.
// A table awaiting payment or cleaning takes no further orders.
func (t *Table) AcceptsOrders() bool {
	return t.Status == TableStatusFree || t.Status == TableStatusOccupied
}

func (t *Table) Occupy() {
	t.Status = TableStatusOccupied
	t.UpdatedAt = time.Now()
}

func (t *Table) AwaitPayment() {
	t.Status = TableStatusPaymentPending
	t.UpdatedAt = time.Now()
}

func (t *Table) MarkDirty() {
	t.Status = TableStatusDirty
	t.UpdatedAt = time.Now()
}

func (t *Table) Free() {
	t.Status = TableStatusFree
	t.UpdatedAt = time.Now()
}

func ValidTableStatus(status string) bool {
	switch status {
	case TableStatusFree, TableStatusOccupied, TableStatusPaymentPending,
		TableStatusDirty, TableStatusDisabled:
		return true
	}
	return false
}
