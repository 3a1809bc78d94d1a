package orders

import (
	"context"

	"github.com/google/uuid"
)

// MenuSnapshotProvider answers price and availability questions against the
// current menu. Implementations must return the authoritative server-side
// values; client-submitted prices are never trusted.
type MenuSnapshotProvider interface {
	ItemPrice(ctx context.Context, restaurantID, menuItemID uuid.UUID) (float64, error)
	ModifierPrice(ctx context.Context, restaurantID, modifierID uuid.UUID) (float64, error)
	IsAvailable(ctx context.Context, restaurantID, menuItemID uuid.UUID) (bool, error)
}

// SettingsProvider exposes per-restaurant ordering policy.
type SettingsProvider interface {
	RequiresApproval(ctx context.Context, restaurantID uuid.UUID) (bool, error)
}
