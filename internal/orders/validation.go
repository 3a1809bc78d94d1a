package orders

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func ValidateSubmitOrder(req SubmitOrderRequest) []string {
	var errors []string

	if strings.TrimSpace(req.IdempotencyKey) == "" {
		errors = append(errors, "idempotency_key is required")
	}

	if len(req.Items) == 0 {
		errors = append(errors, "order must contain at least one item")
	}

	for i, item := range req.Items {
		errors = append(errors, validateItem(i, item)...)
	}

	return errors
}

func validateItem(idx int, item SubmitItemRequest) []string {
	var errors []string

	if item.MenuItemID == uuid.Nil {
		errors = append(errors, itemIssue(idx, "menu_item_id is required"))
	}

	if item.Quantity <= 0 {
		errors = append(errors, itemIssue(idx, "quantity must be greater than 0"))
	}

	for _, mod := range item.Modifiers {
		if mod.ModifierID == uuid.Nil {
			errors = append(errors, itemIssue(idx, "modifier_id is required"))
		}
		if mod.Quantity <= 0 {
			errors = append(errors, itemIssue(idx, "modifier quantity must be greater than 0"))
		}
	}

	return errors
}

func itemIssue(idx int, msg string) string {
	return fmt.Sprintf("item %d: %s", idx, msg)
}
