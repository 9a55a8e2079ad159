package waf

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/stats"
)

// StatsHandler serves GET ?window=today|<duration> as a stats.Summary.
func StatsHandler(agg *stats.Aggregator, log zerolog.Logger) http.Handler {
	return statsHandler(agg, log, time.Now)
}

func statsHandler(agg *stats.Aggregator, log zerolog.Logger, now func() time.Time) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		window, err := stats.ParseWindow(r.URL.Query().Get("window"), now())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		summary, err := agg.GetStats(r.Context(), window)
		if err != nil {
			log.Error().Err(err).Msg("stats query failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
