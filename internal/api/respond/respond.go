package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Envelope is the response shape every API endpoint returns.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Success writes a 200 success envelope around data.
func Success(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Fail writes a failure envelope with the given status.
func Fail(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, Envelope{Success: false, Error: message})
}
