package models

import "github.com/shopspring/decimal"

// OrderItem snapshots a product line at the time the order was placed.
// ProductID carries no foreign key so deleting a product keeps order history intact.
type OrderItem struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID    int64           `gorm:"column:order_id;not null;index:idx_order_items_order_id"`
	Order      *Order          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ProductID  int64           `gorm:"column:product_id;not null;index:idx_order_items_product_id"`
	SellerID   int64           `gorm:"column:seller_id;not null;index:idx_order_items_seller_id"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
}
