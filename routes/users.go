package routes

import (
	"net/http"

	"pixelmuse/controllers/users"
	"pixelmuse/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes registers all session-authenticated routes on the given
// subrouter, plus the gateway callback which authenticates by signature
// instead of session.
func UsersRoutes(api *mux.Router, webhookLimiter *middleware.WebhookLimiter) {
	// Session limits: 120 reads / 60 writes per user per minute
	userLimiter := middleware.NewUserRateLimiter(120, 60, 60)

	// Wallet
	api.Handle("/wallet", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.WalletHandler)))).Methods(http.MethodGet)
	api.Handle("/wallet/purchase", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.PurchaseHandler)))).Methods(http.MethodPost)

	// Generation jobs (read-only; jobs are written by the generation worker)
	api.Handle("/jobs", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.ListJobsHandler)))).Methods(http.MethodGet)
	api.Handle("/jobs/recent", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.RecentJobsHandler)))).Methods(http.MethodGet)
	api.Handle("/jobs/{id:[0-9]+}", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.GetJobHandler)))).Methods(http.MethodGet)

	// Uploads
	api.Handle("/upload", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.UploadHandler)))).Methods(http.MethodPost)
	api.Handle("/assets", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.ListAssetsHandler)))).Methods(http.MethodGet)
	api.Handle("/assets/{id:[0-9]+}/download", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.AssetDownloadHandler)))).Methods(http.MethodGet)
	api.Handle("/assets/{id:[0-9]+}", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.DeleteAssetHandler)))).Methods(http.MethodDelete)

	// Payment gateway settlement callback (signature-verified, no session)
	api.Handle("/callback/payments", webhookLimiter.Middleware(http.HandlerFunc(users.PaymentCallbackHandler))).Methods(http.MethodPost)
}
