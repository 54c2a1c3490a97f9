package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"playquestAPI/internal/challenge"
	"playquestAPI/services"

	"github.com/google/uuid"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
	userService      *services.UserService
}

func NewChallengeHandler(challengeService *services.ChallengeService, userService *services.UserService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		userService:      userService,
	}
}

// Initialize seeds zeroed progress rows for the current day and week.
// The app calls this on every dashboard load; it is idempotent.
func (h *ChallengeHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	if err := h.challengeService.InitializeForPeriod(ctx, userID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to initialize challenges")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChallengeHandler) BumpProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	var req struct {
		ChallengeType challenge.ChallengeType `json:"challenge_type"`
		Increment     int                     `json:"increment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	if err := h.challengeService.BumpProgress(ctx, userID, req.ChallengeType, req.Increment); err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to update challenge progress")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChallengeHandler) Claim(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	var req struct {
		UserChallengeID string `json:"user_challenge_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	userChallengeID, err := uuid.Parse(req.UserChallengeID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid user_challenge_id")
		return
	}

	if err := h.challengeService.Claim(ctx, userID, userChallengeID); err != nil {
		switch {
		case errors.Is(err, challenge.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "not_found", "Challenge not found")
		case errors.Is(err, challenge.ErrNotCompleted):
			respondWithError(w, http.StatusConflict, "not_completed", "Challenge is not completed yet")
		case errors.Is(err, challenge.ErrAlreadyClaimed):
			respondWithError(w, http.StatusConflict, "already_claimed", "Challenge reward already claimed")
		default:
			respondWithError(w, http.StatusInternalServerError, "internal", "Failed to claim challenge")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "claimed"})
}

func (h *ChallengeHandler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	challenges, err := h.challengeService.GetActiveChallenges(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get challenges")
		return
	}

	respondWithJSON(w, http.StatusOK, challenges)
}
