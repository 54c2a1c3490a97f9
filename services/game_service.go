package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"playquestAPI/internal/challenge"
	"playquestAPI/internal/experience"
	"playquestAPI/internal/game"
	"playquestAPI/internal/wallet"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GameService struct {
	db                 *pgxpool.Pool
	walletService      *WalletService
	experienceService  *ExperienceService
	streakService      *StreakService
	achievementService *AchievementService
	challengeService   *ChallengeService
}

func NewGameService(db *pgxpool.Pool, walletService *WalletService, experienceService *ExperienceService, streakService *StreakService, achievementService *AchievementService, challengeService *ChallengeService) *GameService {
	return &GameService{
		db:                 db,
		walletService:      walletService,
		experienceService:  experienceService,
		streakService:      streakService,
		achievementService: achievementService,
		challengeService:   challengeService,
	}
}

func (s *GameService) GetGames(ctx context.Context) ([]*game.Game, error) {
	query := `
	SELECT id, name, description, subject, playcoins_reward, xp_reward, is_active, created_at
	FROM games
	WHERE is_active
	ORDER BY subject, name
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get games: %w", err)
	}
	defer rows.Close()

	var games []*game.Game
	for rows.Next() {
		g := &game.Game{}
		err := rows.Scan(
			&g.ID,
			&g.Name,
			&g.Description,
			&g.Subject,
			&g.PlaycoinsReward,
			&g.XPReward,
			&g.IsActive,
			&g.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return games, nil
}

// CompleteGame is the progression entry point for a finished mini-game
// run. It upserts the play record and then, only on the first completion
// ever, pays the game's rewards, touches the streak, bumps gameplay
// challenges and re-evaluates achievements.
func (s *GameService) CompleteGame(ctx context.Context, userID uuid.UUID, req *game.CompleteRequest) (*game.CompleteResult, error) {
	g := &game.Game{}
	gameQuery := `
	SELECT id, name, playcoins_reward, xp_reward, is_active
	FROM games
	WHERE id = $1
	`
	err := s.db.QueryRow(ctx, gameQuery, req.GameID).Scan(
		&g.ID,
		&g.Name,
		&g.PlaycoinsReward,
		&g.XPReward,
		&g.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, game.ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	completionPct := game.CompletionPercent(req.Score, req.MaxScore)
	completedThisAttempt := completionPct >= game.CompletionThreshold

	var gameState []byte
	if req.GameState != nil {
		gameState, _ = json.Marshal(req.GameState)
	}

	result, err := s.upsertProgress(ctx, userID, g.ID, req, completionPct, completedThisAttempt, gameState)
	if err != nil {
		return nil, err
	}

	if result.IsFirstCompletion {
		// The progress row is committed; everything below is a cascade
		// and must not undo it if a step fails.
		sourceID := g.ID.String()

		if g.PlaycoinsReward > 0 {
			_, err := s.walletService.Credit(ctx, userID, &wallet.CreditRequest{
				Amount:      g.PlaycoinsReward,
				SourceType:  wallet.SourceGame,
				SourceID:    &sourceID,
				Description: fmt.Sprintf("Completed game: %s", g.Name),
			})
			if err != nil {
				log.Printf("CompleteGame: failed to credit %d coins to user %s: %v", g.PlaycoinsReward, userID, err)
			} else {
				result.PlaycoinsAwarded = g.PlaycoinsReward
			}
		}

		if g.XPReward > 0 {
			_, err := s.experienceService.AddXP(ctx, userID, &experience.AddXPRequest{
				Amount: g.XPReward,
				Source: fmt.Sprintf("game:%s", g.Name),
			})
			if err != nil {
				log.Printf("CompleteGame: failed to grant %d xp to user %s: %v", g.XPReward, userID, err)
			} else {
				result.XPAwarded = g.XPReward
			}
		}

		if _, err := s.streakService.Touch(ctx, userID); err != nil {
			log.Printf("CompleteGame: failed to touch streak for user %s: %v", userID, err)
		}

		if err := s.challengeService.BumpProgress(ctx, userID, challenge.TypeCompleteGames, 1); err != nil {
			log.Printf("CompleteGame: failed to bump challenges for user %s: %v", userID, err)
		}

		if _, err := s.achievementService.Evaluate(ctx, userID); err != nil {
			log.Printf("CompleteGame: failed to evaluate achievements for user %s: %v", userID, err)
		}
	}

	return result, nil
}

// upsertProgress applies the bookkeeping rules: high score retained,
// completion sticky, completed_at written once, time and attempts
// accumulate. The conditional insert is the compare-and-set for
// first-completion: exactly one attempt per (user, game) creates the
// row, every later or concurrent attempt falls through to the locked
// update path and reads the prior state the winner left behind.
func (s *GameService) upsertProgress(ctx context.Context, userID, gameID uuid.UUID, req *game.CompleteRequest, completionPct int, completedThisAttempt bool, gameState []byte) (*game.CompleteResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
	INSERT INTO game_progress (id, user_id, game_id, score, max_score, completion_percentage,
	                           is_completed, completed_at, time_spent_seconds, attempts, last_played_at, game_state)
	VALUES ($1, $2, $3, $4, $5, $6, $7, CASE WHEN $7 THEN NOW() END, $8, 1, NOW(), $9)
	ON CONFLICT (user_id, game_id) DO NOTHING
	`
	tag, err := tx.Exec(ctx, insertQuery,
		uuid.New(),
		userID,
		gameID,
		req.Score,
		req.MaxScore,
		completionPct,
		completedThisAttempt,
		req.TimeSpentSeconds,
		gameState,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert game progress: %w", err)
	}

	result := &game.CompleteResult{
		IsCompleted:          completedThisAttempt,
		IsFirstCompletion:    completedThisAttempt,
		IsNewHighScore:       true,
		CompletionPercentage: completionPct,
	}

	if tag.RowsAffected() == 0 {
		var prior struct {
			score       int
			isCompleted bool
		}
		selectQuery := `
		SELECT score, is_completed
		FROM game_progress
		WHERE user_id = $1 AND game_id = $2
		FOR UPDATE
		`
		err = tx.QueryRow(ctx, selectQuery, userID, gameID).Scan(&prior.score, &prior.isCompleted)
		if err != nil {
			return nil, fmt.Errorf("failed to get game progress: %w", err)
		}

		updateQuery := `
		UPDATE game_progress
		SET score = GREATEST(score, $3),
		    max_score = GREATEST(max_score, $4),
		    completion_percentage = GREATEST(completion_percentage, $5),
		    is_completed = is_completed OR $6,
		    completed_at = COALESCE(completed_at, CASE WHEN $6 THEN NOW() END),
		    time_spent_seconds = time_spent_seconds + $7,
		    attempts = attempts + 1,
		    last_played_at = NOW(),
		    game_state = COALESCE($8, game_state)
		WHERE user_id = $1 AND game_id = $2
		`
		_, err = tx.Exec(ctx, updateQuery,
			userID,
			gameID,
			req.Score,
			req.MaxScore,
			completionPct,
			completedThisAttempt,
			req.TimeSpentSeconds,
			gameState,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update game progress: %w", err)
		}

		result.IsFirstCompletion = completedThisAttempt && !prior.isCompleted
		result.IsNewHighScore = req.Score > prior.score
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit game progress: %w", err)
	}

	return result, nil
}

func (s *GameService) GetProgress(ctx context.Context, userID uuid.UUID) ([]*game.Progress, error) {
	query := `
	SELECT id, user_id, game_id, score, max_score, completion_percentage,
	       is_completed, completed_at, time_spent_seconds, attempts, last_played_at
	FROM game_progress
	WHERE user_id = $1
	ORDER BY last_played_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game progress: %w", err)
	}
	defer rows.Close()

	var progress []*game.Progress
	for rows.Next() {
		p := &game.Progress{}
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.GameID,
			&p.Score,
			&p.MaxScore,
			&p.CompletionPercentage,
			&p.IsCompleted,
			&p.CompletedAt,
			&p.TimeSpentSeconds,
			&p.Attempts,
			&p.LastPlayedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game progress: %w", err)
		}
		progress = append(progress, p)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return progress, nil
}
