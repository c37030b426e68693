package models

import "time"

// WaitlistEntry is a pre-launch signup. Email uniqueness is enforced by the schema.
type WaitlistEntry struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex:idx_waitlist_email"`
	Company   *string   `gorm:"column:company"`
	Role      *string   `gorm:"column:role"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (WaitlistEntry) TableName() string {
	return "waitlist"
}
