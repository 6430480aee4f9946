package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"pixelmuse/models"
	"pixelmuse/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentGateway is the narrow interface the order initiator needs from the
// payment provider. invoiceID is supplied by us (the public order id);
// amountCents is converted to major units inside the implementation.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, invoiceID string, amountCents int64, description, customerEmail string) (paymentURL string, err error)
}

// KytapayGateway is the production PaymentGateway backed by the hosted
// checkout API in utils.
type KytapayGateway struct {
	Client   *http.Client
	Currency string
}

func NewKytapayGateway() *KytapayGateway {
	currency := os.Getenv("KYTAPAY_CURRENCY")
	if currency == "" {
		currency = "USD"
	}
	return &KytapayGateway{
		Client:   &http.Client{Timeout: 30 * time.Second},
		Currency: currency,
	}
}

func (g *KytapayGateway) CreateCheckout(ctx context.Context, invoiceID string, amountCents int64, description, customerEmail string) (string, error) {
	resp, err := utils.CreateKytapayCheckout(ctx, g.Client, invoiceID, float64(amountCents)/100, g.Currency, description, customerEmail)
	if err != nil {
		return "", err
	}
	return resp.Checkout.PaymentURL, nil
}

// CreateOrderResult is what POST /wallet/purchase returns to the client.
type CreateOrderResult struct {
	OrderID     string `json:"order_id"`
	PaymentURL  string `json:"payment_url"`
	AmountCents int64  `json:"amount_cents"`
}

// CreateOrder validates the plan, creates (or reuses) a PENDING order with
// the plan's price and credits snapshotted, and asks the gateway for a
// payment URL. An existing PENDING order for the same plan that already has
// a payment URL is returned as-is instead of creating a duplicate; one left
// without an invoice by an earlier gateway failure gets a fresh gateway
// attempt. On gateway failure the order stays PENDING with no invoice
// attached and ErrGateway is returned.
func CreateOrder(ctx context.Context, db *gorm.DB, gw PaymentGateway, userID, planID uint) (*CreateOrderResult, error) {
	var plan models.Plan
	if err := db.Where("id = ? AND active = ?", planID, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("load plan: %w", err)
	}

	var user models.User
	if err := db.Select("id, email").First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	order, err := findOrCreatePendingOrder(db, userID, plan)
	if err != nil {
		return nil, err
	}
	if order.PaymentURL != nil {
		return &CreateOrderResult{OrderID: order.OrderID, PaymentURL: *order.PaymentURL, AmountCents: order.AmountCents}, nil
	}

	description := fmt.Sprintf("Purchase of plan %s", plan.Name)
	paymentURL, err := gw.CreateCheckout(ctx, order.OrderID, order.AmountCents, description, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	// The order's own public id doubles as the gateway-facing invoice id.
	invoiceID := order.OrderID
	if err := db.Model(order).Updates(map[string]interface{}{
		"invoice_id":  invoiceID,
		"payment_url": paymentURL,
	}).Error; err != nil {
		return nil, fmt.Errorf("attach invoice: %w", err)
	}

	return &CreateOrderResult{OrderID: order.OrderID, PaymentURL: paymentURL, AmountCents: order.AmountCents}, nil
}

func findOrCreatePendingOrder(db *gorm.DB, userID uint, plan models.Plan) (*models.Order, error) {
	var order models.Order
	err := db.Where("user_id = ? AND plan_id = ? AND status = ?", userID, plan.ID, models.OrderPending).
		Order("id DESC").
		First(&order).Error
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load pending order: %w", err)
	}

	order = models.Order{
		OrderID:     utils.GenerateOrderID(userID),
		UserID:      userID,
		PlanID:      plan.ID,
		AmountCents: plan.PriceCents,
		Credits:     plan.Credits,
		Status:      models.OrderPending,
	}
	if err := db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

// SettleOrder is driven by the gateway callback. It idempotently moves a
// PENDING order to PAID and credits the snapshotted amount to the owner's
// wallet, or marks the order FAILED. A callback for an already settled
// order is a no-op.
func SettleOrder(db *gorm.DB, orderID string, paid bool) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load order: %w", err)
		}
		if order.Status != models.OrderPending {
			return nil
		}

		if !paid {
			return tx.Model(&order).Update("status", models.OrderFailed).Error
		}

		wallet, err := walletForSettlement(tx, order.UserID)
		if err != nil {
			return err
		}
		if err := ApplyTransaction(tx, wallet.ID, order.Credits, models.ReasonPurchase, order.OrderID); err != nil {
			return err
		}
		return tx.Model(&order).Update("status", models.OrderPaid).Error
	})
}

// walletForSettlement loads the wallet inside the settlement transaction.
// A wallet always exists by the time an order settles (purchase requires a
// session, and any session touches /wallet), but a missing one is still
// provisioned with the bonus so the credit has somewhere to land.
func walletForSettlement(tx *gorm.DB, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	bonus := SignupBonusCredits()
	wallet = models.Wallet{UserID: userID, Balance: bonus}
	if err := tx.Create(&wallet).Error; err != nil {
		return nil, fmt.Errorf("provision wallet: %w", err)
	}
	entry := models.CreditTransaction{
		WalletID:    wallet.ID,
		Delta:       bonus,
		Reason:      models.ReasonBonus,
		ReferenceID: SignupBonusReference,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("append bonus entry: %w", err)
	}
	return &wallet, nil
}
