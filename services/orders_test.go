package services

import (
	"context"
	"errors"
	"testing"

	"pixelmuse/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	calls      int
	invoiceID  string
	amount     int64
	desc       string
	email      string
	paymentURL string
	err        error
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, invoiceID string, amountCents int64, description, customerEmail string) (string, error) {
	g.calls++
	g.invoiceID = invoiceID
	g.amount = amountCents
	g.desc = description
	g.email = customerEmail
	if g.err != nil {
		return "", g.err
	}
	return g.paymentURL, nil
}

func planRow(id uint, name string, credits, priceCents int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "credits", "price_cents", "active"}).
		AddRow(id, name, credits, priceCents, true)
}

func TestCreateOrder_PlanNotFound(t *testing.T) {
	gdb, mock := newTestDB(t)
	gw := &fakeGateway{}

	// covers both "does not exist" and "inactive": the lookup filters on active
	mock.ExpectQuery("SELECT (.+) FROM `plans`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := CreateOrder(context.Background(), gdb, gw, 1, 99)
	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.Zero(t, gw.calls)
	// fail fast: no order row was written
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_SnapshotsPlanAndAttachesInvoice(t *testing.T) {
	gdb, mock := newTestDB(t)
	gw := &fakeGateway{paymentURL: "https://pay.kytapay.com/c/abc"}

	mock.ExpectQuery("SELECT (.+) FROM `plans`").
		WillReturnRows(planRow(2, "Starter", 100, 1299))
	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(1, "ada@example.com"))
	mock.ExpectQuery("SELECT (.+) FROM `orders`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `orders`").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `orders` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := CreateOrder(context.Background(), gdb, gw, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, gw.calls)
	// the order's own public id is reused as the gateway invoice id
	assert.Equal(t, result.OrderID, gw.invoiceID)
	assert.Equal(t, int64(1299), gw.amount)
	assert.Equal(t, "Purchase of plan Starter", gw.desc)
	assert.Equal(t, "ada@example.com", gw.email)

	assert.Equal(t, "https://pay.kytapay.com/c/abc", result.PaymentURL)
	assert.Equal(t, int64(1299), result.AmountCents)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_GatewayFailureLeavesOrderPending(t *testing.T) {
	gdb, mock := newTestDB(t)
	gw := &fakeGateway{err: errors.New("gateway 5000000: upstream down")}

	mock.ExpectQuery("SELECT (.+) FROM `plans`").
		WillReturnRows(planRow(2, "Starter", 100, 1299))
	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(1, "ada@example.com"))
	mock.ExpectQuery("SELECT (.+) FROM `orders`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `orders`").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	_, err := CreateOrder(context.Background(), gdb, gw, 1, 2)
	assert.ErrorIs(t, err, ErrGateway)
	// no invoice was attached (no UPDATE expected above)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_ReusesOpenOrder(t *testing.T) {
	gdb, mock := newTestDB(t)
	gw := &fakeGateway{}

	mock.ExpectQuery("SELECT (.+) FROM `plans`").
		WillReturnRows(planRow(2, "Starter", 100, 1299))
	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(1, "ada@example.com"))
	mock.ExpectQuery("SELECT (.+) FROM `orders`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "user_id", "plan_id", "amount_cents", "credits", "status", "invoice_id", "payment_url"}).
			AddRow(5, "PXM-0005", 1, 2, 1299, 100, models.OrderPending, "PXM-0005", "https://pay.kytapay.com/c/abc"))

	result, err := CreateOrder(context.Background(), gdb, gw, 1, 2)
	require.NoError(t, err)

	// no duplicate order, no second gateway checkout
	assert.Zero(t, gw.calls)
	assert.Equal(t, "PXM-0005", result.OrderID)
	assert.Equal(t, "https://pay.kytapay.com/c/abc", result.PaymentURL)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleOrder_CreditsSnapshotAmount(t *testing.T) {
	gdb, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `orders`(.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "user_id", "plan_id", "amount_cents", "credits", "status"}).
			AddRow(5, "PXM-0005", 1, 2, 1299, 100, models.OrderPending))
	mock.ExpectQuery("SELECT (.+) FROM `wallets`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance"}).AddRow(7, 1, 4))
	mock.ExpectQuery("SELECT (.+) FROM `wallets`(.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance"}).AddRow(7, 1, 4))
	mock.ExpectExec("UPDATE `wallets` SET").
		WithArgs(int64(104), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `credit_transactions`").
		WithArgs(sqlmock.AnyArg(), int64(100), models.ReasonPurchase, "PXM-0005", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE `orders` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := SettleOrder(gdb, "PXM-0005", true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleOrder_ReplayIsNoOp(t *testing.T) {
	gdb, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `orders`(.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "user_id", "plan_id", "amount_cents", "credits", "status"}).
			AddRow(5, "PXM-0005", 1, 2, 1299, 100, models.OrderPaid))
	mock.ExpectCommit()

	err := SettleOrder(gdb, "PXM-0005", true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleOrder_FailureMarksOrderFailed(t *testing.T) {
	gdb, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `orders`(.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "user_id", "plan_id", "amount_cents", "credits", "status"}).
			AddRow(5, "PXM-0005", 1, 2, 1299, 100, models.OrderPending))
	mock.ExpectExec("UPDATE `orders` SET").
		WithArgs(models.OrderFailed, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := SettleOrder(gdb, "PXM-0005", false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleOrder_UnknownOrder(t *testing.T) {
	gdb, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `orders`(.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := SettleOrder(gdb, "PXM-none", true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
