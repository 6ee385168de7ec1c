package handlers

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// fieldError reports a validation failure naming the offending field, so the
// dashboard can highlight it.
func fieldError(w http.ResponseWriter, status int, msg, field string) {
	writeJSON(w, status, map[string]string{"error": msg, "field": field})
}
