package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// StatsHandler serves the aggregator's current snapshot as JSON.
func StatsHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(agg.Stats()); err != nil {
			slog.Error("writing analytics response", "error", err)
		}
	}
}
