package cart

import (
	"time"

	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	dbtypes "github.com/farmlinker/farmlinker-backend/pkg/db/types"
)

// CartItem is one line of a cart.
type CartItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// UpdateCartRequest replaces the cart contents. Version, when sent, must
// equal the stored version (0 for a cart that was never saved).
type UpdateCartRequest struct {
	Items   []CartItem `json:"items" validate:"dive"`
	Version *int       `json:"version,omitempty" validate:"omitempty,gte=0"`
}

// CartDTO is the cart as seen by its owner.
type CartDTO struct {
	UserID    int64      `json:"user_id"`
	Items     []CartItem `json:"items"`
	Version   int        `json:"version"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func emptyCart(userID int64) *CartDTO {
	return &CartDTO{UserID: userID, Items: []CartItem{}}
}

func FromModel(c *models.Cart) *CartDTO {
	if c == nil {
		return nil
	}
	items := make([]CartItem, 0, len(c.Items))
	for _, line := range c.Items {
		items = append(items, CartItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	updatedAt := c.UpdatedAt
	return &CartDTO{
		UserID:    c.UserID,
		Items:     items,
		Version:   c.Version,
		UpdatedAt: &updatedAt,
	}
}

func toLines(items []CartItem) dbtypes.CartLines {
	lines := make(dbtypes.CartLines, 0, len(items))
	for _, item := range items {
		lines = append(lines, dbtypes.CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}
