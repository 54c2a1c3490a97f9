package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"playquestAPI/internal/challenge"
	"playquestAPI/internal/task"
	"playquestAPI/internal/wallet"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskService struct {
	db                 *pgxpool.Pool
	achievementService *AchievementService
	challengeService   *ChallengeService
}

func NewTaskService(db *pgxpool.Pool, achievementService *AchievementService, challengeService *ChallengeService) *TaskService {
	return &TaskService{
		db:                 db,
		achievementService: achievementService,
		challengeService:   challengeService,
	}
}

func (s *TaskService) Submit(ctx context.Context, userID uuid.UUID, req *task.SubmitRequest) (*task.Submission, error) {
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return nil, task.ErrTaskNotFound
	}

	var isActive bool
	err = s.db.QueryRow(ctx, `SELECT is_active FROM tasks WHERE id = $1`, taskID).Scan(&isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, task.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if !isActive {
		return nil, task.ErrTaskNotFound
	}

	submission := &task.Submission{
		ID:          uuid.New(),
		UserID:      userID,
		TaskID:      taskID,
		Note:        req.Note,
		PhotoURL:    req.PhotoURL,
		Status:      task.StatusPending,
		SubmittedAt: time.Now(),
	}

	query := `
	INSERT INTO task_submissions (id, user_id, task_id, note, photo_url, status, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.Exec(ctx, query,
		submission.ID,
		submission.UserID,
		submission.TaskID,
		submission.Note,
		submission.PhotoURL,
		submission.Status,
		submission.SubmittedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	return submission, nil
}

// Approve reviews a pending submission and pays the task's reward in the
// same transaction as the status flip. The approved count feeds the
// tasks_completed achievement stat, so achievements are re-evaluated
// afterwards.
func (s *TaskService) Approve(ctx context.Context, submissionID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		studentID       uuid.UUID
		status          task.SubmissionStatus
		title           string
		playcoinsReward int
		xpReward        int
	)

	query := `
	SELECT ts.user_id, ts.status, t.title, t.playcoins_reward, t.xp_reward
	FROM task_submissions ts
	JOIN tasks t ON t.id = ts.task_id
	WHERE ts.id = $1
	FOR UPDATE OF ts
	`
	err = tx.QueryRow(ctx, query, submissionID).Scan(&studentID, &status, &title, &playcoinsReward, &xpReward)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.ErrSubmissionNotFound
		}
		return fmt.Errorf("failed to get submission: %w", err)
	}

	if status != task.StatusPending {
		return task.ErrAlreadyReviewed
	}

	updateQuery := `
	UPDATE task_submissions
	SET status = 'approved', reviewed_at = NOW()
	WHERE id = $1
	`
	if _, err := tx.Exec(ctx, updateQuery, submissionID); err != nil {
		return fmt.Errorf("failed to approve submission: %w", err)
	}

	sourceID := submissionID.String()
	if playcoinsReward > 0 {
		_, err := creditWalletTx(ctx, tx, studentID, &wallet.CreditRequest{
			Amount:      playcoinsReward,
			SourceType:  wallet.SourceTask,
			SourceID:    &sourceID,
			Description: fmt.Sprintf("Task approved: %s", title),
		})
		if err != nil {
			return fmt.Errorf("failed to pay task coins: %w", err)
		}
	}
	if xpReward > 0 {
		if _, err := addXPTx(ctx, tx, studentID, xpReward); err != nil {
			return fmt.Errorf("failed to pay task xp: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit approval: %w", err)
	}

	// Post-commit cascades, same policy as game completion.
	if err := s.challengeService.BumpProgress(ctx, studentID, challenge.TypeCompleteTasks, 1); err != nil {
		log.Printf("ApproveTask: failed to bump challenges for user %s: %v", studentID, err)
	}
	if _, err := s.achievementService.Evaluate(ctx, studentID); err != nil {
		log.Printf("ApproveTask: failed to evaluate achievements for user %s: %v", studentID, err)
	}

	return nil
}

func (s *TaskService) Reject(ctx context.Context, submissionID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
	UPDATE task_submissions
	SET status = 'rejected', reviewed_at = NOW()
	WHERE id = $1 AND status = 'pending'
	`, submissionID)
	if err != nil {
		return fmt.Errorf("failed to reject submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return task.ErrSubmissionNotFound
	}
	return nil
}

func (s *TaskService) GetSubmissions(ctx context.Context, userID uuid.UUID) ([]*task.Submission, error) {
	query := `
	SELECT ts.id, ts.user_id, ts.task_id, ts.note, ts.photo_url, ts.status, ts.submitted_at, ts.reviewed_at,
	       t.id, t.title, t.description, t.playcoins_reward, t.xp_reward, t.is_active, t.created_at
	FROM task_submissions ts
	JOIN tasks t ON t.id = ts.task_id
	WHERE ts.user_id = $1
	ORDER BY ts.submitted_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*task.Submission
	for rows.Next() {
		sub := &task.Submission{Task: &task.Task{}}
		err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.TaskID,
			&sub.Note,
			&sub.PhotoURL,
			&sub.Status,
			&sub.SubmittedAt,
			&sub.ReviewedAt,
			&sub.Task.ID,
			&sub.Task.Title,
			&sub.Task.Description,
			&sub.Task.PlaycoinsReward,
			&sub.Task.XPReward,
			&sub.Task.IsActive,
			&sub.Task.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, sub)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return submissions, nil
}
