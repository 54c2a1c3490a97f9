package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"playquestAPI/internal/experience"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExperienceService struct {
	db                  *pgxpool.Pool
	notificationService *NotificationService
}

func NewExperienceService(db *pgxpool.Pool) *ExperienceService {
	return &ExperienceService{db: db}
}

// SetNotificationService wires the optional level-up notification. Set
// after construction because the achievement service sits between the
// two in the dependency order.
func (s *ExperienceService) SetNotificationService(n *NotificationService) {
	s.notificationService = n
}

// AddXP credits experience and cascades level-ups. A single large grant
// can clear several levels in one call.
func (s *ExperienceService) AddXP(ctx context.Context, userID uuid.UUID, req *experience.AddXPRequest) (*experience.AddXPResult, error) {
	if req.Amount <= 0 {
		return nil, experience.ErrInvalidAmount
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := addXPTx(ctx, tx, userID, req.Amount)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit xp grant: %w", err)
	}

	if result.LevelUp {
		log.Printf("XP: user %s reached level %d (+%d levels, source: %s)",
			userID, result.CurrentLevel, result.LevelsGained, req.Source)
		if s.notificationService != nil {
			s.notificationService.NotifyLevelUp(ctx, userID, result.CurrentLevel)
		}
	}

	return result, nil
}

// addXPTx locks the level row, applies the curve and writes the result
// back. Shared with claim/approval flows that pay XP atomically.
func addXPTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (*experience.AddXPResult, error) {
	state := &experience.LevelState{}

	query := `
	SELECT id, user_id, current_level, current_xp, total_xp, xp_to_next_level
	FROM level_states
	WHERE user_id = $1
	FOR UPDATE
	`

	err := tx.QueryRow(ctx, query, userID).Scan(
		&state.ID,
		&state.UserID,
		&state.CurrentLevel,
		&state.CurrentXP,
		&state.TotalXP,
		&state.XPToNextLevel,
	)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to get level state: %w", err)
		}

		state = &experience.LevelState{
			ID:            uuid.New(),
			UserID:        userID,
			CurrentLevel:  1,
			XPToNextLevel: experience.XPForLevel(1),
		}
		insertQuery := `
		INSERT INTO level_states (id, user_id, current_level, current_xp, total_xp, xp_to_next_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
		`
		if _, err := tx.Exec(ctx, insertQuery, state.ID, state.UserID, state.CurrentLevel, 0, 0, state.XPToNextLevel); err != nil {
			return nil, fmt.Errorf("failed to init level state: %w", err)
		}
		// Re-read under lock in case a concurrent call seeded it first.
		if err := tx.QueryRow(ctx, query, userID).Scan(
			&state.ID, &state.UserID, &state.CurrentLevel, &state.CurrentXP, &state.TotalXP, &state.XPToNextLevel,
		); err != nil {
			return nil, fmt.Errorf("failed to reread level state: %w", err)
		}
	}

	gained := experience.Apply(state, amount)

	updateQuery := `
	UPDATE level_states
	SET current_level = $1, current_xp = $2, total_xp = $3, xp_to_next_level = $4, updated_at = NOW()
	WHERE user_id = $5
	`
	if _, err := tx.Exec(ctx, updateQuery, state.CurrentLevel, state.CurrentXP, state.TotalXP, state.XPToNextLevel, userID); err != nil {
		return nil, fmt.Errorf("failed to update level state: %w", err)
	}

	return &experience.AddXPResult{
		CurrentLevel:  state.CurrentLevel,
		CurrentXP:     state.CurrentXP,
		TotalXP:       state.TotalXP,
		XPToNextLevel: state.XPToNextLevel,
		LevelsGained:  gained,
		LevelUp:       gained > 0,
	}, nil
}

func (s *ExperienceService) GetLevelState(ctx context.Context, userID uuid.UUID) (*experience.LevelState, error) {
	query := `
	SELECT id, user_id, current_level, current_xp, total_xp, xp_to_next_level, created_at, updated_at
	FROM level_states
	WHERE user_id = $1
	`

	state := &experience.LevelState{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&state.ID,
		&state.UserID,
		&state.CurrentLevel,
		&state.CurrentXP,
		&state.TotalXP,
		&state.XPToNextLevel,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &experience.LevelState{
				UserID:        userID,
				CurrentLevel:  1,
				XPToNextLevel: experience.XPForLevel(1),
			}, nil
		}
		return nil, fmt.Errorf("failed to get level state: %w", err)
	}

	return state, nil
}

// GetLeaderboard ranks users by lifetime XP.
func (s *ExperienceService) GetLeaderboard(ctx context.Context, limit int) ([]*experience.LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 25
	}

	query := `
	SELECT
		u.username,
		COALESCE(u.image_url, '') AS image_url,
		ls.current_level,
		ls.total_xp
	FROM level_states ls
	JOIN users u ON u.id = ls.user_id
	ORDER BY ls.total_xp DESC, ls.current_level DESC
	LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*experience.LeaderboardEntry
	rank := 1
	for rows.Next() {
		entry := &experience.LeaderboardEntry{}
		err := rows.Scan(
			&entry.Username,
			&entry.ImageURL,
			&entry.CurrentLevel,
			&entry.TotalXP,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entry.Rank = rank
		rank++
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
