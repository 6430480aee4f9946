package models

import "time"

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"size:100" json:"name"`
	Role      string    `gorm:"type:enum('user','admin');default:'user'" json:"role"`
	Status    string    `gorm:"type:enum('Active','Suspended');default:'Active'" json:"status"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}
