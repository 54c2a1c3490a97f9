package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"playquestAPI/internal/achievement"
	"playquestAPI/internal/experience"
	"playquestAPI/internal/wallet"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AchievementService struct {
	db                  *pgxpool.Pool
	walletService       *WalletService
	experienceService   *ExperienceService
	notificationService *NotificationService
}

func NewAchievementService(db *pgxpool.Pool, walletService *WalletService, experienceService *ExperienceService, notificationService *NotificationService) *AchievementService {
	return &AchievementService{
		db:                  db,
		walletService:       walletService,
		experienceService:   experienceService,
		notificationService: notificationService,
	}
}

// buildSnapshot reads the latest cross-component stats. Never cached:
// the evaluator runs right after ledger/level/streak writes and must see
// them.
func (s *AchievementService) buildSnapshot(ctx context.Context, userID uuid.UUID) (*achievement.StatsSnapshot, error) {
	snapshot := &achievement.StatsSnapshot{CurrentLevel: 1}

	query := `
	SELECT
		COALESCE(ls.current_level, 1),
		COALESCE(ls.total_xp, 0),
		COALESCE(st.current_streak, 0),
		COALESCE(st.longest_streak, 0),
		COALESCE(w.total_earned, 0),
		(SELECT COUNT(*) FROM game_progress gp WHERE gp.user_id = u.id AND gp.is_completed),
		(SELECT COUNT(*) FROM task_submissions ts WHERE ts.user_id = u.id AND ts.status = 'approved')
	FROM users u
	LEFT JOIN level_states ls ON ls.user_id = u.id
	LEFT JOIN streaks st ON st.user_id = u.id
	LEFT JOIN wallets w ON w.user_id = u.id
	WHERE u.id = $1
	`

	err := s.db.QueryRow(ctx, query, userID).Scan(
		&snapshot.CurrentLevel,
		&snapshot.TotalXP,
		&snapshot.CurrentStreak,
		&snapshot.LongestStreak,
		&snapshot.PlaycoinsEarned,
		&snapshot.GamesCompleted,
		&snapshot.TasksCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build stats snapshot: %w", err)
	}

	return snapshot, nil
}

// Evaluate unlocks every active achievement whose threshold the user's
// current stats satisfy. Safe to call repeatedly; a second call with
// unchanged stats unlocks nothing.
func (s *AchievementService) Evaluate(ctx context.Context, userID uuid.UUID) (*achievement.EvaluateResult, error) {
	snapshot, err := s.buildSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT a.id, a.name, a.description, a.icon, a.requirement_type, a.requirement_value,
	       a.xp_reward, a.playcoins_reward, a.is_active, a.created_at
	FROM achievements a
	WHERE a.is_active
	  AND NOT EXISTS (
		SELECT 1 FROM achievement_unlocks au
		WHERE au.user_id = $1 AND au.achievement_id = a.id
	  )
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}

	var candidates []*achievement.Achievement
	for rows.Next() {
		a := &achievement.Achievement{}
		err := rows.Scan(
			&a.ID,
			&a.Name,
			&a.Description,
			&a.Icon,
			&a.RequirementType,
			&a.RequirementValue,
			&a.XPReward,
			&a.PlaycoinsReward,
			&a.IsActive,
			&a.CreatedAt,
		)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		candidates = append(candidates, a)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	var newlyUnlocked []*achievement.Achievement
	for _, a := range candidates {
		progress, ok := snapshot.Progress(a.RequirementType)
		if !ok {
			// Catalog rows with requirement kinds this build does not
			// know about are skipped, not failed.
			continue
		}
		if progress < a.RequirementValue {
			continue
		}

		unlocked, err := s.insertUnlock(ctx, userID, a.ID, progress)
		if err != nil {
			return nil, err
		}
		if !unlocked {
			// A concurrent evaluation got there first.
			continue
		}

		newlyUnlocked = append(newlyUnlocked, a)
		s.cascadeRewards(ctx, userID, a)
	}

	var totalUnlocked int
	countQuery := `SELECT COUNT(*) FROM achievement_unlocks WHERE user_id = $1`
	if err := s.db.QueryRow(ctx, countQuery, userID).Scan(&totalUnlocked); err != nil {
		return nil, fmt.Errorf("failed to count unlocks: %w", err)
	}

	return &achievement.EvaluateResult{
		NewlyUnlocked: newlyUnlocked,
		TotalUnlocked: totalUnlocked,
	}, nil
}

// insertUnlock is the compare-and-set: the unique constraint on
// (user_id, achievement_id) makes the unlock happen at most once no
// matter how many evaluations race.
func (s *AchievementService) insertUnlock(ctx context.Context, userID, achievementID uuid.UUID, progress int) (bool, error) {
	query := `
	INSERT INTO achievement_unlocks (id, user_id, achievement_id, progress, unlocked_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	tag, err := s.db.Exec(ctx, query, uuid.New(), userID, achievementID, progress)
	if err != nil {
		return false, fmt.Errorf("failed to insert unlock: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// cascadeRewards pays out the coin/XP rewards for a fresh unlock. The
// unlock row is already durable at this point; a failed payout is logged
// and not rolled back.
func (s *AchievementService) cascadeRewards(ctx context.Context, userID uuid.UUID, a *achievement.Achievement) {
	if a.PlaycoinsReward > 0 {
		sourceID := a.ID.String()
		_, err := s.walletService.Credit(ctx, userID, &wallet.CreditRequest{
			Amount:      a.PlaycoinsReward,
			SourceType:  wallet.SourceAchievement,
			SourceID:    &sourceID,
			Description: fmt.Sprintf("Achievement unlocked: %s", a.Name),
		})
		if err != nil {
			log.Printf("Achievement %s: failed to credit %d coins to user %s: %v", a.Name, a.PlaycoinsReward, userID, err)
		}
	}

	if a.XPReward > 0 {
		_, err := s.experienceService.AddXP(ctx, userID, &experience.AddXPRequest{
			Amount: a.XPReward,
			Source: fmt.Sprintf("achievement:%s", a.Name),
		})
		if err != nil {
			log.Printf("Achievement %s: failed to grant %d xp to user %s: %v", a.Name, a.XPReward, userID, err)
		}
	}

	if s.notificationService != nil {
		s.notificationService.NotifyAchievementUnlocked(ctx, userID, a)
	}
}

// GetAchievements lists the full catalog with the user's unlock status.
func (s *AchievementService) GetAchievements(ctx context.Context, userID uuid.UUID) ([]*achievement.AchievementWithStatus, error) {
	query := `
	SELECT a.id, a.name, a.description, a.icon, a.requirement_type, a.requirement_value,
	       a.xp_reward, a.playcoins_reward, a.is_active, a.created_at,
	       au.unlocked_at
	FROM achievements a
	LEFT JOIN achievement_unlocks au ON au.achievement_id = a.id AND au.user_id = $1
	WHERE a.is_active
	ORDER BY a.requirement_type, a.requirement_value
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*achievement.AchievementWithStatus
	for rows.Next() {
		a := &achievement.AchievementWithStatus{}
		err := rows.Scan(
			&a.ID,
			&a.Name,
			&a.Description,
			&a.Icon,
			&a.RequirementType,
			&a.RequirementValue,
			&a.XPReward,
			&a.PlaycoinsReward,
			&a.IsActive,
			&a.CreatedAt,
			&a.UnlockedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		a.Unlocked = a.UnlockedAt != nil
		achievements = append(achievements, a)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return achievements, nil
}

// GetUnlockProgress reports current progress for a single achievement,
// for the detail view.
func (s *AchievementService) GetUnlockProgress(ctx context.Context, userID, achievementID uuid.UUID) (int, error) {
	var kind achievement.RequirementType
	err := s.db.QueryRow(ctx, `SELECT requirement_type FROM achievements WHERE id = $1`, achievementID).Scan(&kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("achievement not found")
		}
		return 0, fmt.Errorf("failed to get achievement: %w", err)
	}

	snapshot, err := s.buildSnapshot(ctx, userID)
	if err != nil {
		return 0, err
	}

	progress, _ := snapshot.Progress(kind)
	return progress, nil
}
