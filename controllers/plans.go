package controllers

import (
	"log"
	"net/http"

	"pixelmuse/database"
	"pixelmuse/models"
	"pixelmuse/utils"
)

// GET /v1/plans
// Public catalog of active credit plans.
func PlanListHandler(w http.ResponseWriter, r *http.Request) {
	var plans []models.Plan
	if err := database.DB.Where("active = ?", true).Order("price_cents ASC").Find(&plans).Error; err != nil {
		log.Printf("[plans] list: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	type planDTO struct {
		ID             uint   `json:"id"`
		Name           string `json:"name"`
		Credits        int64  `json:"credits"`
		PriceCents     int64  `json:"price_cents"`
		UnitPriceCents int64  `json:"unit_price_cents"`
	}

	items := make([]planDTO, 0, len(plans))
	for _, p := range plans {
		items = append(items, planDTO{
			ID:             p.ID,
			Name:           p.Name,
			Credits:        p.Credits,
			PriceCents:     p.PriceCents,
			UnitPriceCents: p.UnitPriceCents(),
		})
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    items,
	})
}
