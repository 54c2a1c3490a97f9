package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"playquestAPI/internal/wallet"
	"playquestAPI/services"
)

type WalletHandler struct {
	walletService *services.WalletService
	userService   *services.UserService
}

func NewWalletHandler(walletService *services.WalletService, userService *services.UserService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		userService:   userService,
	}
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	wlt, err := h.walletService.GetWallet(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get wallet")
		return
	}

	respondWithJSON(w, http.StatusOK, wlt)
}

func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	transactions, err := h.walletService.GetTransactions(ctx, userID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get transactions")
		return
	}

	respondWithJSON(w, http.StatusOK, transactions)
}

// Credit awards PlayCoins. Invoked by trusted flows (bonuses, manual
// teacher grants); game and task payouts go through their own services.
func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	var req wallet.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}
	if req.SourceType == "" {
		req.SourceType = wallet.SourceBonus
	}

	result, err := h.walletService.Credit(ctx, userID, &req)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAmount) {
			respondWithError(w, http.StatusBadRequest, "invalid_amount", "Amount must be positive")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to credit wallet")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
