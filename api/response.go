package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes a plain-text error response. Error bodies are shown to
// the user verbatim by the console, so the message is the display text, not
// a machine-readable envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}
