package models

import "time"

// Ledger reasons. The set is closed: new reasons require a migration of the
// enum column below.
const (
	ReasonBonus    = "BONUS"
	ReasonPurchase = "PURCHASE"
	ReasonDebit    = "DEBIT"
	ReasonRefund   = "REFUND"
)

// CreditTransaction is an append-only ledger entry. Rows are never updated
// or deleted; the wallet balance must equal the sum of deltas at all times.
type CreditTransaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WalletID    uint      `gorm:"not null;index" json:"wallet_id"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:enum('BONUS','PURCHASE','DEBIT','REFUND');not null" json:"reason"`
	ReferenceID string    `gorm:"type:varchar(191);not null" json:"reference_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
