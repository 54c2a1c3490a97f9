package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"playquestAPI/internal/reward"
	"playquestAPI/internal/wallet"
	"playquestAPI/services"
)

type RewardHandler struct {
	rewardService *services.RewardService
	userService   *services.UserService
}

func NewRewardHandler(rewardService *services.RewardService, userService *services.UserService) *RewardHandler {
	return &RewardHandler{
		rewardService: rewardService,
		userService:   userService,
	}
}

func (h *RewardHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	catalog, err := h.rewardService.GetCatalog(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get reward catalog")
		return
	}

	respondWithJSON(w, http.StatusOK, catalog)
}

func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	var req reward.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	result, err := h.rewardService.Redeem(ctx, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, reward.ErrRewardNotFound):
			respondWithError(w, http.StatusNotFound, "reward_not_found", "Reward not found")
		case errors.Is(err, reward.ErrOutOfStock):
			respondWithError(w, http.StatusConflict, "out_of_stock", "Reward is out of stock")
		case errors.Is(err, wallet.ErrWalletNotFound):
			respondWithError(w, http.StatusNotFound, "wallet_not_found", "Wallet not found")
		case errors.Is(err, wallet.ErrInsufficientBalance):
			respondWithError(w, http.StatusConflict, "insufficient_balance", "Not enough PlayCoins")
		default:
			respondWithError(w, http.StatusInternalServerError, "internal", "Failed to redeem reward")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *RewardHandler) GetRedemptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	redemptions, err := h.rewardService.GetRedemptions(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get redemptions")
		return
	}

	respondWithJSON(w, http.StatusOK, redemptions)
}
