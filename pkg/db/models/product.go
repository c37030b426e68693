package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a seller listing.
type Product struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null"`
	Category    string          `gorm:"column:category;not null;index:idx_products_category"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Unit        string          `gorm:"column:unit;not null"`
	ImageURL    *string         `gorm:"column:image_url"`
	SellerID    int64           `gorm:"column:seller_id;not null;index:idx_products_seller_id"`
	Seller      *User           `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
	Available   bool            `gorm:"column:available;not null"`
	Location    *string         `gorm:"column:location"`
	County      *string         `gorm:"column:county"`
	Organic     bool            `gorm:"column:organic;not null;default:false"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
