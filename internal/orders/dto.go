package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
)

// LineInput is one requested line of a new order. UnitPrice is optional; when
// sent it must equal the live product price.
type LineInput struct {
	ProductID int64            `json:"product_id" validate:"required,gt=0"`
	Quantity  int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gt=0,cents"`
}

// CreateOrderRequest is the checkout payload. BuyerID is accepted for older
// clients and must match the caller when present.
type CreateOrderRequest struct {
	BuyerID            *int64          `json:"buyer_id,omitempty"`
	TotalAmount        decimal.Decimal `json:"total_amount" validate:"required,gt=0,cents"`
	ShippingAddress    string          `json:"shipping_address" validate:"required,max=500"`
	County             *string         `json:"county,omitempty"`
	PaymentMethod      string          `json:"payment_method" validate:"required"`
	MpesaReceiptNumber *string         `json:"mpesa_receipt_number,omitempty"`
	DeliveryNotes      *string         `json:"delivery_notes,omitempty"`
	Items              []LineInput     `json:"items" validate:"required,min=1,dive"`
}

// UpdateStatusRequest moves an order along its lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderItemDTO is a priced order line.
type OrderItemDTO struct {
	ID         int64           `json:"id"`
	ProductID  int64           `json:"product_id"`
	SellerID   int64           `json:"seller_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderDTO is an order, optionally with its lines.
type OrderDTO struct {
	ID                 int64               `json:"id"`
	BuyerID            int64               `json:"buyer_id"`
	Status             enums.OrderStatus   `json:"status"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	ShippingAddress    string              `json:"shipping_address"`
	County             *string             `json:"county,omitempty"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	MpesaReceiptNumber *string             `json:"mpesa_receipt_number,omitempty"`
	DeliveryNotes      *string             `json:"delivery_notes,omitempty"`
	Items              []OrderItemDTO      `json:"items,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func FromModel(o *models.Order, items []models.OrderItem) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                 o.ID,
		BuyerID:            o.BuyerID,
		Status:             o.Status,
		TotalAmount:        o.TotalAmount,
		ShippingAddress:    o.ShippingAddress,
		County:             o.County,
		PaymentMethod:      o.PaymentMethod,
		MpesaReceiptNumber: o.MpesaReceiptNumber,
		DeliveryNotes:      o.DeliveryNotes,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if items != nil {
		dto.Items = make([]OrderItemDTO, 0, len(items))
		for _, item := range items {
			dto.Items = append(dto.Items, OrderItemDTO{
				ID:         item.ID,
				ProductID:  item.ProductID,
				SellerID:   item.SellerID,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				TotalPrice: item.TotalPrice,
			})
		}
	}
	return dto
}
