package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vandelay/guacbot/internal/models"
	"github.com/vandelay/guacbot/internal/services"
)

type AccountReader interface {
	GetAccount(ctx context.Context, id string) (models.Account, error)
	ListEvents(ctx context.Context, id string, limit int) ([]models.LedgerEvent, error)
}

type AccountHandler struct {
	service AccountReader
}

func NewAccountHandler(service AccountReader) *AccountHandler {
	return &AccountHandler{service: service}
}

// GetAccount returns an account's balance and totals.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		sendAccountError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"account": acct,
	})
}

// ListEvents returns the account's ledger history, newest first.
func (h *AccountHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := services.DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > services.MaxEventLimit {
			services.SendErrorResponse(w, "limit must be between 1 and 100", http.StatusBadRequest, nil)
			return
		}
		limit = n
	}

	events, err := h.service.ListEvents(r.Context(), chi.URLParam(r, "accountId"), limit)
	if err != nil {
		sendAccountError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"events":  events,
	})
}

func sendAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidAccountRef):
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
	case errors.Is(err, models.ErrAccountNotFound):
		services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
	default:
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}
