package orders

import (
	"strings"

	"github.com/google/uuid"
)

type SessionCreateRequest struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	TableNumber  string    `json:"table_number"`
	SessionID    string    `json:"session_id"`
}

type SubmitModifierRequest struct {
	ModifierID uuid.UUID `json:"modifier_id"`
	Name       string    `json:"name,omitempty"`
	Quantity   int       `json:"quantity"`
}

type SubmitItemRequest struct {
	MenuItemID uuid.UUID               `json:"menu_item_id"`
	Name       string                  `json:"name,omitempty"`
	Quantity   int                     `json:"quantity"`
	Notes      string                  `json:"notes,omitempty"`
	Modifiers  []SubmitModifierRequest `json:"modifiers,omitempty"`
}

type SubmitOrderRequest struct {
	RestaurantID   uuid.UUID           `json:"restaurant_id"`
	TableNumber    string              `json:"table_number"`
	SessionID      string              `json:"session_id"`
	IdempotencyKey string              `json:"idempotency_key"`
	CustomerID     *uuid.UUID          `json:"customer_id,omitempty"`
	ExpectedTotal  *float64            `json:"expected_total,omitempty"`
	Items          []SubmitItemRequest `json:"items"`
}

// Validate checks structural problems a client should never send. Menu
// lookups happen later in the pipeline.
func (r SubmitOrderRequest) Validate() error {
	if r.RestaurantID == uuid.Nil || strings.TrimSpace(r.TableNumber) == "" {
		return NewError(KindInvalidTable, "restaurant_id and table_number are required")
	}
	if strings.TrimSpace(r.SessionID) == "" {
		return NewError(KindNoActiveSession, "session_id is required")
	}
	if issues := ValidateSubmitOrder(r); len(issues) > 0 {
		return NewError(KindInvalidItems, "%s", strings.Join(issues, "; "))
	}
	return nil
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ApproveOrderRequest struct {
	Items []SubmitItemRequest `json:"items,omitempty"`
}

type UpdateItemsRequest struct {
	Items []SubmitItemRequest `json:"items"`
}
