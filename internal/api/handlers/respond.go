package handlers

import (
	"encoding/json"
	"math"
	"net/http"
)

// dateFormat renders chart timestamps the way the frontend expects.
const dateFormat = "2006-01-02 15:04"

// finiteOrZero keeps chart payloads JSON encodable.
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
