package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// menuItemResource mirrors the item representation served by the menu
// service.
type menuItemResource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Available bool      `json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
}

type modifierResource struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type restaurantSettingsResource struct {
	RestaurantID     string `json:"restaurant_id"`
	RequiresApproval bool   `json:"requires_approval"`
}

// MenuDataAccess resolves live prices and availability from the menu
// service. It implements MenuSnapshotProvider and SettingsProvider.
type MenuDataAccess struct {
	client *apt.ServiceClient
}

func NewMenuDataAccess(client *apt.ServiceClient) *MenuDataAccess {
	return &MenuDataAccess{client: client}
}

func (da *MenuDataAccess) item(ctx context.Context, restaurantID, menuItemID uuid.UUID) (*menuItemResource, error) {
	if da == nil || da.client == nil {
		return nil, fmt.Errorf("menu client not configured")
	}

	path := fmt.Sprintf("/restaurants/%s/menu-items/%s", restaurantID, menuItemID)
	resp, err := da.client.Request(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var item menuItemResource
	if err := decodeSuccessResponse(resp, &item); err != nil {
		return nil, err
	}

	return &item, nil
}

func (da *MenuDataAccess) ItemPrice(ctx context.Context, restaurantID, menuItemID uuid.UUID) (float64, error) {
	item, err := da.item(ctx, restaurantID, menuItemID)
	if err != nil {
		return 0, err
	}
	return item.Price, nil
}

func (da *MenuDataAccess) IsAvailable(ctx context.Context, restaurantID, menuItemID uuid.UUID) (bool, error) {
	item, err := da.item(ctx, restaurantID, menuItemID)
	if err != nil {
		return false, err
	}
	return item.Available, nil
}

func (da *MenuDataAccess) ModifierPrice(ctx context.Context, restaurantID, modifierID uuid.UUID) (float64, error) {
	if da == nil || da.client == nil {
		return 0, fmt.Errorf("menu client not configured")
	}

	path := fmt.Sprintf("/restaurants/%s/modifiers/%s", restaurantID, modifierID)
	resp, err := da.client.Request(ctx, "GET", path, nil)
	if err != nil {
		return 0, err
	}

	var mod modifierResource
	if err := decodeSuccessResponse(resp, &mod); err != nil {
		return 0, err
	}

	return mod.Price, nil
}

func (da *MenuDataAccess) RequiresApproval(ctx context.Context, restaurantID uuid.UUID) (bool, error) {
	if da == nil || da.client == nil {
		return false, fmt.Errorf("menu client not configured")
	}

	path := fmt.Sprintf("/restaurants/%s/settings", restaurantID)
	resp, err := da.client.Request(ctx, "GET", path, nil)
	if err != nil {
		return false, err
	}

	var settings restaurantSettingsResource
	if err := decodeSuccessResponse(resp, &settings); err != nil {
		return false, err
	}

	return settings.RequiresApproval, nil
}

// decodeSuccessResponse copies the dynamic response payload into dest.
func decodeSuccessResponse(resp *apt.SuccessResponse, dest interface{}) error {
	if resp == nil {
		return errors.New("nil success response")
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}

	return nil
}
