package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/farmlinker/farmlinker-backend/pkg/enums"
)

// Order is a buyer's committed purchase.
type Order struct {
	ID                 int64               `gorm:"column:id;primaryKey;autoIncrement"`
	BuyerID            int64               `gorm:"column:buyer_id;not null;index:idx_orders_buyer_id"`
	Buyer              *User               `gorm:"foreignKey:BuyerID"`
	Status             enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount        decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingAddress    string              `gorm:"column:shipping_address;not null"`
	County             *string             `gorm:"column:county"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	MpesaReceiptNumber *string             `gorm:"column:mpesa_receipt_number"`
	DeliveryNotes      *string             `gorm:"column:delivery_notes"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
