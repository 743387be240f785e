package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vandelay/guacbot/internal/middleware"
	"github.com/vandelay/guacbot/internal/models"
	"github.com/vandelay/guacbot/internal/services"
)

type WagerPlacer interface {
	PlaceWager(ctx context.Context, bettor, target string, amount int64) (models.Wager, models.Account, error)
}

type WagerHandler struct {
	service   WagerPlacer
	validator *services.ValidationHelper
}

func NewWagerHandler(service WagerPlacer) *WagerHandler {
	return &WagerHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// PlaceWager bets that target will have the lowest sentiment this period.
// The bettor is the authenticated user.
func (h *WagerHandler) PlaceWager(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Target string `json:"target" validate:"required"`
		Amount int64  `json:"amount" validate:"required,gt=0"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	wager, acct, err := h.service.PlaceWager(r.Context(), userID, req.Target, req.Amount)
	switch {
	case errors.Is(err, models.ErrInvalidWager):
		services.SendErrorResponse(w, "Invalid wager", http.StatusBadRequest, err)
		return
	case errors.Is(err, models.ErrInsufficientBalance):
		services.SendErrorResponse(w, "Insufficient balance", http.StatusUnprocessableEntity, nil)
		return
	case errors.Is(err, models.ErrOptimisticLock):
		services.SendErrorResponse(w, "Account changed, retry", http.StatusConflict, nil)
		return
	case err != nil:
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"wagerId": wager.ID,
		"target":  wager.Target,
		"amount":  wager.Amount,
		"balance": acct.Balance,
	})
}
