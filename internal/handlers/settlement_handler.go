package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vandelay/guacbot/internal/models"
	"github.com/vandelay/guacbot/internal/services"
)

type SettlementRunner interface {
	Run(ctx context.Context) (*services.Report, error)
}

type SettlementHandler struct {
	service SettlementRunner
}

func NewSettlementHandler(service SettlementRunner) *SettlementHandler {
	return &SettlementHandler{service: service}
}

// RunSettlement settles the period ending now and returns the report.
func (h *SettlementHandler) RunSettlement(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Run(r.Context())
	switch {
	case errors.Is(err, models.ErrPeriodAlreadySettled):
		services.SendErrorResponse(w, "Period already settled", http.StatusConflict, nil)
		return
	case errors.Is(err, models.ErrPeriodLocked):
		services.SendErrorResponse(w, "Settlement already running", http.StatusConflict, nil)
		return
	case err != nil:
		slog.Error("[SETTLEMENT] run failed", "error", err)
		services.SendErrorResponse(w, "Settlement failed", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"report":  report,
	})
}
