package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"playquestAPI/internal/game"
	"playquestAPI/services"
)

type GameHandler struct {
	gameService *services.GameService
	userService *services.UserService
}

func NewGameHandler(gameService *services.GameService, userService *services.UserService) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		userService: userService,
	}
}

func (h *GameHandler) GetGames(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	games, err := h.gameService.GetGames(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get games")
		return
	}

	respondWithJSON(w, http.StatusOK, games)
}

// CompleteGame receives the result of a finished mini-game run. The
// reward cascade can take a few round trips, so the timeout is wider
// than the read endpoints.
func (h *GameHandler) CompleteGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	var req game.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	result, err := h.gameService.CompleteGame(ctx, userID, &req)
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			respondWithError(w, http.StatusNotFound, "game_not_found", "Game not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to record game completion")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *GameHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	progress, err := h.gameService.GetProgress(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get game progress")
		return
	}

	respondWithJSON(w, http.StatusOK, progress)
}
