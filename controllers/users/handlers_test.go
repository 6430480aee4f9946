package users

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pixelmuse/database"
	"pixelmuse/models"
	"pixelmuse/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB swaps the package-global DB handle for a sqlmock-backed one for
// the duration of the test.
func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	prev := database.DB
	database.DB = gdb
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})
	return mock
}

func withUser(r *http.Request, uid uint) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), utils.UserIDKey, uid))
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandlersRequireSession(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		method  string
	}{
		{"wallet", WalletHandler, http.MethodGet},
		{"purchase", PurchaseHandler, http.MethodPost},
		{"jobs", ListJobsHandler, http.MethodGet},
		{"recent jobs", RecentJobsHandler, http.MethodGet},
		{"upload", UploadHandler, http.MethodPost},
		{"assets", ListAssetsHandler, http.MethodGet},
		{"asset download", AssetDownloadHandler, http.MethodGet},
		{"asset delete", DeleteAssetHandler, http.MethodDelete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/v1/x", nil)
			rec := httptest.NewRecorder()

			tc.handler(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", errorBody(t, rec)["error"])
		})
	}
}

func TestWalletHandler_ReturnsBalanceAndLedger(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM `wallets`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance"}).AddRow(7, 1, 104))
	mock.ExpectQuery("SELECT (.+) FROM `credit_transactions`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "wallet_id", "delta", "reason", "reference_id"}).
			AddRow(2, 7, 100, models.ReasonPurchase, "PXM-0001").
			AddRow(1, 7, 4, models.ReasonBonus, "signup_bonus"))

	req := withUser(httptest.NewRequest(http.MethodGet, "/v1/wallet", nil), 1)
	rec := httptest.NewRecorder()

	WalletHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Balance      int64                    `json:"balance"`
			Transactions []map[string]interface{} `json:"transactions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(104), resp.Data.Balance)
	require.Len(t, resp.Data.Transactions, 2)
	assert.Equal(t, "PURCHASE", resp.Data.Transactions[0]["reason"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListJobsHandler_PaginationReflectsClampedLimit(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `generation_jobs`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(100))
	mock.ExpectQuery("SELECT (.+) FROM `generation_jobs`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "prompt", "model"}))

	req := withUser(httptest.NewRequest(http.MethodGet, "/v1/jobs?limit=500", nil), 1)
	rec := httptest.NewRecorder()

	ListJobsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Pagination struct {
				Limit      int   `json:"limit"`
				Offset     int   `json:"offset"`
				TotalRows  int64 `json:"total_rows"`
				TotalPages int   `json:"total_pages"`
			} `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// the metadata reports the limit the query ran with, not the raw input
	assert.Equal(t, 50, resp.Data.Pagination.Limit)
	assert.Equal(t, 0, resp.Data.Pagination.Offset)
	assert.Equal(t, int64(100), resp.Data.Pagination.TotalRows)
	assert.Equal(t, 2, resp.Data.Pagination.TotalPages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseHandler_MalformedBody(t *testing.T) {
	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/wallet/purchase", strings.NewReader("{not json")), 1)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	PurchaseHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", errorBody(t, rec)["error"])
}

func TestPurchaseHandler_MissingPlan(t *testing.T) {
	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/wallet/purchase", strings.NewReader(`{}`)), 1)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	PurchaseHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", errorBody(t, rec)["error"])
}

func TestUploadHandler_UnsupportedContentType(t *testing.T) {
	body := `{"filename":"cat.gif","content_type":"image/gif"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/upload", strings.NewReader(body)), 1)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	UploadHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func assetRow(id, uid uint, key string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "object_key", "content_type", "public_url"}).
		AddRow(id, uid, key, "image/png", "https://cdn.pixelmuse.app/"+key)
}

func TestAssetDownloadHandler_SignsOwnedObject(t *testing.T) {
	t.Setenv("R2_ACCOUNT_ID", "acct")
	t.Setenv("R2_ACCESS_KEY_ID", "ak")
	t.Setenv("R2_SECRET_ACCESS_KEY", "sk")
	t.Setenv("R2_BUCKET_NAME", "pixelmuse-assets")
	mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM `assets` WHERE id = \\? AND user_id = \\?").
		WillReturnRows(assetRow(3, 1, "uploads/1/abc.png"))

	req := withUser(httptest.NewRequest(http.MethodGet, "/v1/assets/3/download", nil), 1)
	req = mux.SetURLVars(req, map[string]string{"id": "3"})
	rec := httptest.NewRecorder()

	AssetDownloadHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			DownloadURL string `json:"download_url"`
			ExpiresIn   int    `json:"expires_in_seconds"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Data.DownloadURL, "uploads/1/abc.png")
	assert.Contains(t, resp.Data.DownloadURL, "X-Amz-Signature=")
	assert.Equal(t, 600, resp.Data.ExpiresIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetDownloadHandler_NotOwnedLooksMissing(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM `assets` WHERE id = \\? AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := withUser(httptest.NewRequest(http.MethodGet, "/v1/assets/3/download", nil), 1)
	req = mux.SetURLVars(req, map[string]string{"id": "3"})
	rec := httptest.NewRecorder()

	AssetDownloadHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Asset not found", errorBody(t, rec)["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAssetHandler_RemovesRow(t *testing.T) {
	// no R2 config: the storage delete fails and is logged, the row still goes
	mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM `assets` WHERE id = \\? AND user_id = \\?").
		WillReturnRows(assetRow(3, 1, "uploads/1/abc.png"))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `assets`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := withUser(httptest.NewRequest(http.MethodDelete, "/v1/assets/3", nil), 1)
	req = mux.SetURLVars(req, map[string]string{"id": "3"})
	rec := httptest.NewRecorder()

	DeleteAssetHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func signCallback(body []byte, timestamp, secret string) string {
	bodyHash := sha256.Sum256(body)
	stringToSign := "POST:/v1/callback/payments:" + hex.EncodeToString(bodyHash[:]) + ":" + timestamp
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestPaymentCallback_RejectsBadSignature(t *testing.T) {
	t.Setenv("KYTAPAY_CLIENT_SECRET", "secret")

	body := []byte(`{"invoice_id":"PXM-0005","status":"PAID"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/callback/payments", bytes.NewReader(body))
	req.Header.Set("X-TIMESTAMP", "2025-01-02T03:04:05Z")
	req.Header.Set("X-SIGNATURE", "forged")
	rec := httptest.NewRecorder()

	PaymentCallbackHandler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentCallback_ReplayIsAccepted(t *testing.T) {
	t.Setenv("KYTAPAY_CLIENT_SECRET", "secret")
	mock := newMockDB(t)

	// order already settled; the handler still answers 200 so the gateway
	// stops retrying
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `orders`(.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "user_id", "plan_id", "amount_cents", "credits", "status"}).
			AddRow(5, "PXM-0005", 1, 2, 1299, 100, models.OrderPaid))
	mock.ExpectCommit()

	body := []byte(`{"invoice_id":"PXM-0005","status":"PAID"}`)
	ts := "2025-01-02T03:04:05Z"
	req := httptest.NewRequest(http.MethodPost, "/v1/callback/payments", bytes.NewReader(body))
	req.Header.Set("X-TIMESTAMP", ts)
	req.Header.Set("X-SIGNATURE", signCallback(body, ts, "secret"))
	rec := httptest.NewRecorder()

	PaymentCallbackHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentCallback_UnknownOrder(t *testing.T) {
	t.Setenv("KYTAPAY_CLIENT_SECRET", "secret")
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `orders`(.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	body := []byte(`{"invoice_id":"PXM-none","status":"PAID"}`)
	ts := "2025-01-02T03:04:05Z"
	req := httptest.NewRequest(http.MethodPost, "/v1/callback/payments", bytes.NewReader(body))
	req.Header.Set("X-TIMESTAMP", ts)
	req.Header.Set("X-SIGNATURE", signCallback(body, ts, "secret"))
	rec := httptest.NewRecorder()

	PaymentCallbackHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
