package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"playquestAPI/internal/experience"
	"playquestAPI/services"
)

type ProgressionHandler struct {
	experienceService  *services.ExperienceService
	streakService      *services.StreakService
	achievementService *services.AchievementService
	progressionService *services.ProgressionService
	userService        *services.UserService
}

func NewProgressionHandler(experienceService *services.ExperienceService, streakService *services.StreakService, achievementService *services.AchievementService, progressionService *services.ProgressionService, userService *services.UserService) *ProgressionHandler {
	return &ProgressionHandler{
		experienceService:  experienceService,
		streakService:      streakService,
		achievementService: achievementService,
		progressionService: progressionService,
		userService:        userService,
	}
}

func (h *ProgressionHandler) AddXP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	var req experience.AddXPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	result, err := h.experienceService.AddXP(ctx, userID, &req)
	if err != nil {
		if errors.Is(err, experience.ErrInvalidAmount) {
			respondWithError(w, http.StatusBadRequest, "invalid_amount", "XP amount must be positive")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to add XP")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ProgressionHandler) GetLevelState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	state, err := h.experienceService.GetLevelState(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get level state")
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

func (h *ProgressionHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.experienceService.GetLeaderboard(ctx, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func (h *ProgressionHandler) TouchStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	result, err := h.streakService.Touch(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to update streak")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ProgressionHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	st, err := h.streakService.GetStreak(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get streak")
		return
	}

	respondWithJSON(w, http.StatusOK, st)
}

func (h *ProgressionHandler) EvaluateAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	result, err := h.achievementService.Evaluate(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to evaluate achievements")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ProgressionHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	achievements, err := h.achievementService.GetAchievements(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get achievements")
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}

// GetAchievementProgress reports how far the user is toward one
// achievement, for the detail view.
func (h *ProgressionHandler) GetAchievementProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	achievementID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid achievement id")
		return
	}

	progress, err := h.achievementService.GetUnlockProgress(ctx, userID, achievementID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get achievement progress")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"progress": progress})
}

func (h *ProgressionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	summary, err := h.progressionService.GetSummary(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get progression summary")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}
