package store

import (
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
)

// FillUserDefaults sets the role of a user inserted without one.
func FillUserDefaults(user *models.User) {
	if user.Role == "" {
		user.Role = enums.UserRoleBuyer
	}
}

// FillOrderDefaults sets the status of an order inserted without one.
func FillOrderDefaults(order *models.Order) {
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
}
