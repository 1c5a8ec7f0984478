// Package api defines the stateless HTTP handlers for account lifecycle and
// messaging. The handlers are request/response glue around the stores; the
// interesting work (presence, delivery) happens in the realtime package they
// hand off to.
package api

import (
	"encoding/json"
	"net/http"
)

// apiResponse is the uniform JSON body shape of every REST response.
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := apiResponse{Status: "success", Message: message, Data: data}
	if status >= http.StatusBadRequest {
		body.Status = "error"
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, message, nil)
}
