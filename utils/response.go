package utils

import (
	"encoding/json"
	"net/http"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError writes the flat error shape clients key on: {"error": "..."}.
// Optional detail carries field-level validation messages.
func WriteError(w http.ResponseWriter, status int, msg string, detail ...interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{"error": msg}
	if len(detail) > 0 && detail[0] != nil {
		body["detail"] = detail[0]
	}
	_ = json.NewEncoder(w).Encode(body)
}
