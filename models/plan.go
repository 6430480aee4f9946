package models

import "time"

// Plan is a purchasable credit bundle. Rows are seeded out-of-band and
// read-only from the API's point of view.
type Plan struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Credits    int64     `gorm:"not null" json:"credits"`
	PriceCents int64     `gorm:"not null" json:"price_cents"`
	Active     bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

func (Plan) TableName() string {
	return "plans"
}

// UnitPriceCents is the price per credit in minor units, rounded down.
func (p Plan) UnitPriceCents() int64 {
	if p.Credits <= 0 {
		return 0
	}
	return p.PriceCents / p.Credits
}
