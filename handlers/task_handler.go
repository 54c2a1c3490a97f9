package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"playquestAPI/internal/task"
	"playquestAPI/internal/user"
	"playquestAPI/middleware"
	"playquestAPI/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type TaskHandler struct {
	taskService *services.TaskService
	userService *services.UserService
}

func NewTaskHandler(taskService *services.TaskService, userService *services.UserService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		userService: userService,
	}
}

func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	var req task.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	submission, err := h.taskService.Submit(ctx, userID, &req)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			respondWithError(w, http.StatusNotFound, "task_not_found", "Task not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to submit task")
		return
	}

	respondWithJSON(w, http.StatusCreated, submission)
}

// Approve is a teacher-only action: approving pays the student the
// task's reward.
func (h *TaskHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if !h.requireTeacher(ctx, w) {
		return
	}

	submissionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid submission id")
		return
	}

	if err := h.taskService.Approve(ctx, submissionID); err != nil {
		switch {
		case errors.Is(err, task.ErrSubmissionNotFound):
			respondWithError(w, http.StatusNotFound, "not_found", "Submission not found")
		case errors.Is(err, task.ErrAlreadyReviewed):
			respondWithError(w, http.StatusConflict, "already_reviewed", "Submission already reviewed")
		default:
			respondWithError(w, http.StatusInternalServerError, "internal", "Failed to approve submission")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *TaskHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.requireTeacher(ctx, w) {
		return
	}

	submissionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "bad_request", "Invalid submission id")
		return
	}

	if err := h.taskService.Reject(ctx, submissionID); err != nil {
		if errors.Is(err, task.ErrSubmissionNotFound) {
			respondWithError(w, http.StatusNotFound, "not_found", "Submission not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to reject submission")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *TaskHandler) GetSubmissions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := resolveUser(ctx, w, h.userService)
	if !ok {
		return
	}

	submissions, err := h.taskService.GetSubmissions(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "Failed to get submissions")
		return
	}

	respondWithJSON(w, http.StatusOK, submissions)
}

func (h *TaskHandler) requireTeacher(ctx context.Context, w http.ResponseWriter) bool {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return false
	}

	u, err := h.userService.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "not_found", "User not found")
		return false
	}
	if u.Role != user.RoleTeacher {
		respondWithError(w, http.StatusForbidden, "forbidden", "Teacher role required")
		return false
	}

	return true
}
