package models

import "time"

const (
	OrderPending   = "PENDING"
	OrderPaid      = "PAID"
	OrderFailed    = "FAILED"
	OrderCancelled = "CANCELLED"
)

// Order is a purchase intent against a plan. AmountCents and Credits are
// snapshots taken at creation time so a later plan price change cannot
// drift the charged amount or the credited total.
type Order struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"order_id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"-"`
	PlanID      uint      `gorm:"not null;index" json:"plan_id"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Credits     int64     `gorm:"not null" json:"credits"`
	Status      string    `gorm:"type:enum('PENDING','PAID','FAILED','CANCELLED');not null;default:'PENDING'" json:"status"`
	InvoiceID   *string   `gorm:"type:varchar(191)" json:"invoice_id,omitempty"`
	PaymentURL  *string   `gorm:"type:text" json:"payment_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`
}

func (Order) TableName() string {
	return "orders"
}
