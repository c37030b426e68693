package products

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
)

// ProductDTO is the listing shape returned to clients.
type ProductDTO struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Unit        string          `json:"unit"`
	ImageURL    *string         `json:"image_url,omitempty"`
	SellerID    int64           `json:"seller_id"`
	Available   bool            `json:"available"`
	Location    *string         `json:"location,omitempty"`
	County      *string         `json:"county,omitempty"`
	Organic     bool            `json:"organic"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateProductRequest is the seller payload for a new listing. Omitted
// available defaults to true and omitted organic to false.
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category" validate:"required,max=100"`
	Price       decimal.Decimal `json:"price" validate:"required,gt=0,cents"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Unit        string          `json:"unit" validate:"required,max=50"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Available   *bool           `json:"available,omitempty"`
	Location    *string         `json:"location,omitempty"`
	County      *string         `json:"county,omitempty"`
	Organic     *bool           `json:"organic,omitempty"`
}

// UpdateProductRequest is a partial update; nil fields are left untouched.
type UpdateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gt=0,cents"`
	Quantity    *int             `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Unit        *string          `json:"unit,omitempty" validate:"omitempty,min=1,max=50"`
	ImageURL    *string          `json:"image_url,omitempty"`
	Available   *bool            `json:"available,omitempty"`
	Location    *string          `json:"location,omitempty"`
	County      *string          `json:"county,omitempty"`
	Organic     *bool            `json:"organic,omitempty"`
}

// ListParams are exact-match filters; nil fields are ignored.
type ListParams struct {
	Category  *string
	SellerID  *int64
	County    *string
	Organic   *bool
	Available *bool
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Unit:        p.Unit,
		ImageURL:    p.ImageURL,
		SellerID:    p.SellerID,
		Available:   p.Available,
		Location:    p.Location,
		County:      p.County,
		Organic:     p.Organic,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromModels(list []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
