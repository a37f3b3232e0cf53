// Package api provides the live engine's read-only HTTP status surface.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"statarb-systemv1/internal/portfolio"
)

// NewRouter sets up the status routes. states reports each pair's
// current strategy state keyed by pair symbol.
func NewRouter(ledger *portfolio.Ledger, states func() map[string]string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/v1/positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, ledger.OpenPositions())
	})

	mux.HandleFunc("/api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, ledger.Trades())
	})

	mux.HandleFunc("/api/v1/summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, ledger.Summarize())
	})

	mux.HandleFunc("/api/v1/strategies", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, states())
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}
