package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"budgetviz/internal/core"
)

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetailError reports an error in the {"detail": "..."} shape the JSON
// API clients expect.
func writeDetailError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatAmount renders a money value with its currency symbol for the
// dashboard. Unknown currencies fall back to the bare code.
func formatAmount(m core.Money, currency string) string {
	symbol, err := core.Symbol(currency)
	if err != nil {
		return currency + " " + m.Format("")
	}
	return m.Format(symbol)
}
