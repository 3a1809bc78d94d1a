package orders

import (
	"time"

	"github.com/google/uuid"
)

// Session binds a table to a client device for the duration of a dining
// visit. The identifier is generated client side and stays stable across
// refreshes; only the expiry moves.
type Session struct {
	ID           string    `json:"id" bson:"_id"`
	TableID      uuid.UUID `json:"table_id" bson:"table_id"`
	RestaurantID uuid.UUID `json:"restaurant_id" bson:"restaurant_id"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt    time.Time `json:"expires_at" bson:"expires_at"`
}

func NewSession(id string, tableID, restaurantID uuid.UUID, ttl time.Duration, now time.Time) *Session {
	return &Session{
		ID:           id,
		TableID:      tableID,
		RestaurantID: restaurantID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

func (s *Session) Expired(at time.Time) bool {
	return !at.Before(s.ExpiresAt)
}

// Refresh extends expiry by ttl from now. Identity never changes.
func (s *Session) Refresh(ttl time.Duration, now time.Time) {
	s.ExpiresAt = now.Add(ttl)
}
