package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"pixelmuse/database"
	"pixelmuse/utils"
)

// HealthHandler reports storage connectivity and whether each external
// integration has its configuration present. Booleans only; values are
// never echoed.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	healthy := true
	dbOK := true
	if err := database.Ping(); err != nil {
		log.Printf("[health] database ping: %v", err)
		dbOK = false
		healthy = false
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":       healthy,
		"database": dbOK,
		"integrations": map[string]bool{
			"payments": utils.PaymentsConfigured(),
			"storage":  utils.StorageConfigured(),
			"auth":     os.Getenv("JWT_SECRET") != "",
		},
		"timestamp": time.Now().Unix(),
		"service":   "pixelmuse-api",
	})
}
