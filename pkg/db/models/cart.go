package models

import (
	"time"

	dbtypes "github.com/farmlinker/farmlinker-backend/pkg/db/types"
)

// Cart holds a single user's pending selections. Version increments on every save.
type Cart struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64             `gorm:"column:user_id;not null;uniqueIndex:idx_carts_user_id"`
	User      *User             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Items     dbtypes.CartLines `gorm:"column:items;type:jsonb;not null;default:'[]'"`
	Version   int               `gorm:"column:version;not null;default:1"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
