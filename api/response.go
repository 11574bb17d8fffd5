package api

import (
	"encoding/json"
	"net/http"

	"github.com/storebridge/storebridge/utils"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, apiErr *utils.APIError) {
	writeJSON(w, apiErr.Code, ErrorResponse{
		Error:   apiErr.Message,
		Details: apiErr.Details,
	})
}
