package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"playquestAPI/internal/challenge"
	"playquestAPI/internal/wallet"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChallengeService struct {
	db *pgxpool.Pool
}

func NewChallengeService(db *pgxpool.Pool) *ChallengeService {
	return &ChallengeService{db: db}
}

// InitializeForPeriod creates zeroed progress rows for every active
// challenge the user has no row for in the current period. Idempotent,
// called on every dashboard load.
func (s *ChallengeService) InitializeForPeriod(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()

	query := `
	INSERT INTO user_challenges (id, user_id, challenge_id, period_key, progress, is_completed, is_claimed, created_at)
	SELECT gen_random_uuid(), $1, c.id,
	       CASE WHEN c.cadence = 'weekly' THEN $3 ELSE $2 END,
	       0, FALSE, FALSE, NOW()
	FROM challenges c
	WHERE c.is_active
	ON CONFLICT (user_id, challenge_id, period_key) DO NOTHING
	`

	_, err := s.db.Exec(ctx, query, userID,
		challenge.PeriodKey(challenge.CadenceDaily, now),
		challenge.PeriodKey(challenge.CadenceWeekly, now),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize challenges: %w", err)
	}
	return nil
}

// BumpProgress advances every active challenge matching the event type
// for the current period. Completed rows are frozen; further bumps for
// them are no-ops.
func (s *ChallengeService) BumpProgress(ctx context.Context, userID uuid.UUID, challengeType challenge.ChallengeType, increment int) error {
	if increment < 1 {
		increment = 1
	}
	now := time.Now()

	query := `
	UPDATE user_challenges uc
	SET progress = LEAST(uc.progress + $4, c.requirement_value),
	    is_completed = (uc.progress + $4) >= c.requirement_value,
	    completed_at = CASE WHEN (uc.progress + $4) >= c.requirement_value THEN NOW() ELSE NULL END
	FROM challenges c
	WHERE uc.challenge_id = c.id
	  AND uc.user_id = $1
	  AND c.challenge_type = $2
	  AND c.is_active
	  AND NOT uc.is_completed
	  AND uc.period_key = CASE WHEN c.cadence = 'weekly' THEN $5 ELSE $3 END
	`

	_, err := s.db.Exec(ctx, query,
		userID,
		challengeType,
		challenge.PeriodKey(challenge.CadenceDaily, now),
		increment,
		challenge.PeriodKey(challenge.CadenceWeekly, now),
	)
	if err != nil {
		return fmt.Errorf("failed to bump challenge progress: %w", err)
	}
	return nil
}

// Claim flips is_claimed and pays the challenge reward in the same
// transaction, so a crash can never leave a claimed-but-unpaid row.
// Claiming an incomplete or already-claimed row is rejected.
func (s *ChallengeService) Claim(ctx context.Context, userID uuid.UUID, userChallengeID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		isCompleted, isClaimed bool
		name                   string
		playcoinsReward        int
		xpReward               int
	)

	query := `
	SELECT uc.is_completed, uc.is_claimed, c.name, c.playcoins_reward, c.xp_reward
	FROM user_challenges uc
	JOIN challenges c ON c.id = uc.challenge_id
	WHERE uc.id = $1 AND uc.user_id = $2
	FOR UPDATE OF uc
	`

	err = tx.QueryRow(ctx, query, userChallengeID, userID).Scan(
		&isCompleted, &isClaimed, &name, &playcoinsReward, &xpReward,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return challenge.ErrNotFound
		}
		return fmt.Errorf("failed to get user challenge: %w", err)
	}

	if !isCompleted {
		return challenge.ErrNotCompleted
	}
	if isClaimed {
		return challenge.ErrAlreadyClaimed
	}

	updateQuery := `
	UPDATE user_challenges
	SET is_claimed = TRUE, claimed_at = NOW()
	WHERE id = $1
	`
	if _, err := tx.Exec(ctx, updateQuery, userChallengeID); err != nil {
		return fmt.Errorf("failed to mark challenge claimed: %w", err)
	}

	sourceID := userChallengeID.String()
	if playcoinsReward > 0 {
		_, err := creditWalletTx(ctx, tx, userID, &wallet.CreditRequest{
			Amount:      playcoinsReward,
			SourceType:  wallet.SourceBonus,
			SourceID:    &sourceID,
			Description: fmt.Sprintf("Challenge reward: %s", name),
		})
		if err != nil {
			return fmt.Errorf("failed to pay challenge coins: %w", err)
		}
	}
	if xpReward > 0 {
		if _, err := addXPTx(ctx, tx, userID, xpReward); err != nil {
			return fmt.Errorf("failed to pay challenge xp: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit claim: %w", err)
	}

	log.Printf("Challenge: user %s claimed %q (+%d coins, +%d xp)", userID, name, playcoinsReward, xpReward)
	return nil
}

// GetActiveChallenges returns the user's current-period rows joined with
// their definitions. Rows from past periods stay in the table for
// history but are filtered out here by period key.
func (s *ChallengeService) GetActiveChallenges(ctx context.Context, userID uuid.UUID) ([]*challenge.UserChallenge, error) {
	now := time.Now()

	query := `
	SELECT uc.id, uc.user_id, uc.challenge_id, uc.period_key, uc.progress,
	       uc.is_completed, uc.is_claimed, uc.completed_at, uc.claimed_at, uc.created_at,
	       c.id, c.name, c.description, c.cadence, c.challenge_type,
	       c.requirement_value, c.playcoins_reward, c.xp_reward, c.is_active, c.created_at
	FROM user_challenges uc
	JOIN challenges c ON c.id = uc.challenge_id
	WHERE uc.user_id = $1
	  AND c.is_active
	  AND uc.period_key = CASE WHEN c.cadence = 'weekly' THEN $3 ELSE $2 END
	ORDER BY c.cadence, c.name
	`

	rows, err := s.db.Query(ctx, query, userID,
		challenge.PeriodKey(challenge.CadenceDaily, now),
		challenge.PeriodKey(challenge.CadenceWeekly, now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenges: %w", err)
	}
	defer rows.Close()

	var userChallenges []*challenge.UserChallenge
	for rows.Next() {
		uc := &challenge.UserChallenge{Challenge: &challenge.Challenge{}}
		err := rows.Scan(
			&uc.ID,
			&uc.UserID,
			&uc.ChallengeID,
			&uc.PeriodKey,
			&uc.Progress,
			&uc.IsCompleted,
			&uc.IsClaimed,
			&uc.CompletedAt,
			&uc.ClaimedAt,
			&uc.CreatedAt,
			&uc.Challenge.ID,
			&uc.Challenge.Name,
			&uc.Challenge.Description,
			&uc.Challenge.Cadence,
			&uc.Challenge.ChallengeType,
			&uc.Challenge.RequirementValue,
			&uc.Challenge.PlaycoinsReward,
			&uc.Challenge.XPReward,
			&uc.Challenge.IsActive,
			&uc.Challenge.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user challenge: %w", err)
		}
		userChallenges = append(userChallenges, uc)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return userChallenges, nil
}
