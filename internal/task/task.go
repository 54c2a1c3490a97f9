package task

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrSubmissionNotFound = errors.New("task submission not found")
	ErrAlreadyReviewed    = errors.New("task submission already reviewed")
)

// Task is a teacher-assigned activity with a fixed coin/XP reward paid
// out when the submission is approved.
type Task struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	PlaycoinsReward int       `json:"playcoins_reward" db:"playcoins_reward"`
	XPReward        int       `json:"xp_reward" db:"xp_reward"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type Submission struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	UserID      uuid.UUID        `json:"user_id" db:"user_id"`
	TaskID      uuid.UUID        `json:"task_id" db:"task_id"`
	Note        string           `json:"note" db:"note"`
	PhotoURL    *string          `json:"photo_url,omitempty" db:"photo_url"`
	Status      SubmissionStatus `json:"status" db:"status"`
	SubmittedAt time.Time        `json:"submitted_at" db:"submitted_at"`
	ReviewedAt  *time.Time       `json:"reviewed_at" db:"reviewed_at"`

	Task *Task `json:"task,omitempty"`
}

type SubmitRequest struct {
	TaskID   string  `json:"task_id"`
	Note     string  `json:"note"`
	PhotoURL *string `json:"photo_url,omitempty"`
}
