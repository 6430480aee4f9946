package models

import "time"

// Asset records one issued upload URL. The object may or may not actually
// be uploaded; the row only tracks the key we handed out.
type Asset struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	ObjectKey   string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"object_key"`
	ContentType string    `gorm:"size:64;not null" json:"content_type"`
	PublicURL   string    `gorm:"type:text;not null" json:"public_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Asset) TableName() string {
	return "assets"
}
