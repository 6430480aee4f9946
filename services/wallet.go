package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"pixelmuse/models"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SignupBonusReference is the fixed ledger reference for the one-time
// signup bonus entry.
const SignupBonusReference = "signup_bonus"

// walletLedgerWindow is how many recent ledger entries a wallet read
// returns, newest first.
const walletLedgerWindow = 10

// SignupBonusCredits reads the configured signup bonus.
func SignupBonusCredits() int64 {
	if s := os.Getenv("SIGNUP_BONUS_CREDITS"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v >= 0 {
			return v
		}
	}
	return 4
}

// WalletView is a wallet together with its most recent ledger entries.
type WalletView struct {
	Wallet       models.Wallet
	Transactions []models.CreditTransaction
}

// GetOrCreateWallet returns the caller's wallet with its last 10 ledger
// entries. On first access the wallet is provisioned with the signup bonus:
// the wallet row and its BONUS ledger entry are written in one database
// transaction, so no reader can observe one without the other. A concurrent
// first access races on the wallets.user_id unique index; the loser catches
// the duplicate-key error and re-reads the winner's row.
func GetOrCreateWallet(db *gorm.DB, userID uint) (*WalletView, error) {
	var wallet models.Wallet
	err := db.Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet, err = createWalletWithBonus(db, userID)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	var ledger []models.CreditTransaction
	if err := db.Where("wallet_id = ?", wallet.ID).
		Order("created_at DESC, id DESC").
		Limit(walletLedgerWindow).
		Find(&ledger).Error; err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	return &WalletView{Wallet: wallet, Transactions: ledger}, nil
}

func createWalletWithBonus(db *gorm.DB, userID uint) (models.Wallet, error) {
	bonus := SignupBonusCredits()
	wallet := models.Wallet{UserID: userID, Balance: bonus}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&wallet).Error; err != nil {
			return err
		}
		entry := models.CreditTransaction{
			WalletID:    wallet.ID,
			Delta:       bonus,
			Reason:      models.ReasonBonus,
			ReferenceID: SignupBonusReference,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		if isDuplicateEntry(err) {
			// Lost the provisioning race; the committed wallet wins and the
			// bonus was granted exactly once by the other caller.
			var existing models.Wallet
			if rerr := db.Where("user_id = ?", userID).First(&existing).Error; rerr != nil {
				return models.Wallet{}, fmt.Errorf("re-read wallet after race: %w", rerr)
			}
			return existing, nil
		}
		return models.Wallet{}, fmt.Errorf("provision wallet: %w", err)
	}
	return wallet, nil
}

func isDuplicateEntry(err error) bool {
	var myErr *mysqldriver.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

// ApplyTransaction appends a ledger entry and moves the wallet balance in
// the same unit of work, keeping balance == sum(deltas). tx must be an open
// transaction; the wallet row is locked FOR UPDATE for the duration.
func ApplyTransaction(tx *gorm.DB, walletID uint, delta int64, reason, referenceID string) error {
	var wallet models.Wallet
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, walletID).Error; err != nil {
		return fmt.Errorf("lock wallet: %w", err)
	}
	if err := tx.Model(&wallet).Update("balance", wallet.Balance+delta).Error; err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	entry := models.CreditTransaction{
		WalletID:    wallet.ID,
		Delta:       delta,
		Reason:      reason,
		ReferenceID: referenceID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}
