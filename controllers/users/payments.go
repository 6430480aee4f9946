package users

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"pixelmuse/database"
	"pixelmuse/middleware"
	"pixelmuse/services"
	"pixelmuse/utils"
)

// Gateway is the payment gateway used by the purchase handler. Swapped out
// in handler tests.
var Gateway services.PaymentGateway = services.NewKytapayGateway()

type PurchaseRequest struct {
	PlanID uint `json:"plan_id" validate:"required"`
}

// POST /v1/wallet/purchase
func PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req PurchaseRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	result, err := services.CreateOrder(r.Context(), database.DB, Gateway, uid, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPlanNotFound):
			utils.WriteError(w, http.StatusNotFound, "Plan not found")
		case errors.Is(err, services.ErrGateway):
			log.Printf("[purchase] gateway user=%d plan=%d: %v", uid, req.PlanID, err)
			utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		default:
			log.Printf("[purchase] user=%d plan=%d: %v", uid, req.PlanID, err)
			utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    result,
	})
}

type paymentCallback struct {
	InvoiceID string `json:"invoice_id"`
	Status    string `json:"status"`
}

// POST /v1/callback/payments
// Settlement webhook from the payment gateway. Signature-verified against
// the raw body; idempotent on replays.
func PaymentCallbackHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	timestamp := r.Header.Get("X-TIMESTAMP")
	signature := r.Header.Get("X-SIGNATURE")
	if !utils.VerifyCallbackSignature(body, timestamp, signature) {
		log.Printf("[callback] bad signature from %s", r.RemoteAddr)
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var cb paymentCallback
	if err := json.Unmarshal(body, &cb); err != nil || cb.InvoiceID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	if err := services.SettleOrder(database.DB, cb.InvoiceID, utils.IsKytapaySuccessStatus(cb.Status)); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("[callback] settle order=%s: %v", cb.InvoiceID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully"})
}
