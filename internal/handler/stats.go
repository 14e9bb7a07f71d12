package handler

import (
	"log/slog"
	"net/http"

	"taskbeacon/internal/auth"
	"taskbeacon/internal/stats"
)

type StatsHandler struct {
	aggregator *stats.Aggregator
	logger     *slog.Logger
}

func NewStatsHandler(aggregator *stats.Aggregator, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{aggregator: aggregator, logger: logger}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	s, err := h.aggregator.Stats(userID)
	if err != nil {
		h.logger.Error("compute stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, s)
}
