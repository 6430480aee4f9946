package users

import (
	"log"
	"net/http"
	"time"

	"pixelmuse/database"
	"pixelmuse/services"
	"pixelmuse/utils"
)

// GET /v1/wallet
// Returns the caller's wallet with its 10 newest ledger entries, lazily
// provisioning the wallet (with the signup bonus) on first access.
func WalletHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	view, err := services.GetOrCreateWallet(database.DB, uid)
	if err != nil {
		log.Printf("[wallet] get-or-create user=%d: %v", uid, err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	type transactionDTO struct {
		ID          uint   `json:"id"`
		Delta       int64  `json:"delta"`
		Reason      string `json:"reason"`
		ReferenceID string `json:"reference_id"`
		CreatedAt   string `json:"created_at"`
	}

	items := make([]transactionDTO, 0, len(view.Transactions))
	for _, t := range view.Transactions {
		items = append(items, transactionDTO{
			ID:          t.ID,
			Delta:       t.Delta,
			Reason:      t.Reason,
			ReferenceID: t.ReferenceID,
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		})
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"id":           view.Wallet.ID,
			"balance":      view.Wallet.Balance,
			"transactions": items,
		},
	})
}
