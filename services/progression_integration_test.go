package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playquestAPI/internal/achievement"
	"playquestAPI/internal/challenge"
	"playquestAPI/internal/experience"
	"playquestAPI/internal/game"
	"playquestAPI/internal/user"
	"playquestAPI/internal/wallet"
)

// setupTestDB connects to the database named by TEST_DATABASE_URL. Tests
// that need a live schema are skipped when it is not set.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	t.Cleanup(pool.Close)
	return pool
}

func createTestUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	svc := NewUserService(pool)

	clerkID := "user_test_" + time.Now().Format("20060102150405.000000")
	u, err := svc.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     "test-" + clerkID + "@example.com",
		Username:  "test-" + clerkID,
		FirstName: "Test",
		LastName:  "Student",
	})
	require.NoError(t, err)

	userID, err := uuid.Parse(u.ID)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Exec(context.Background(), "DELETE FROM users WHERE id = $1", userID)
	})
	return userID
}

func TestWalletService_CreditThenDebit(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	svc := NewWalletService(pool)
	ctx := context.Background()

	credit, err := svc.Credit(ctx, userID, &wallet.CreditRequest{
		Amount:      200,
		SourceType:  wallet.SourceBonus,
		Description: "signup bonus",
	})
	require.NoError(t, err)
	assert.Equal(t, 200, credit.Balance)
	assert.Equal(t, 200, credit.TotalEarned)

	debit, err := svc.Debit(ctx, userID, 80, nil, "avatar hat")
	require.NoError(t, err)
	assert.Equal(t, 120, debit.Balance)

	w, err := svc.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 120, w.Balance)
	assert.Equal(t, 200, w.TotalEarned)
	assert.Equal(t, 80, w.TotalSpent)
}

func TestWalletService_DebitInsufficientBalance(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	svc := NewWalletService(pool)
	ctx := context.Background()

	_, err := svc.Credit(ctx, userID, &wallet.CreditRequest{
		Amount:      50,
		SourceType:  wallet.SourceBonus,
		Description: "small grant",
	})
	require.NoError(t, err)

	_, err = svc.Debit(ctx, userID, 999, nil, "too expensive")
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	// The failed debit must not have touched the balance.
	w, err := svc.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 50, w.Balance)
}

func TestWalletService_DebitWithoutWallet(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	svc := NewWalletService(pool)

	_, err := svc.Debit(context.Background(), userID, 10, nil, "no wallet yet")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestWalletService_TransactionsRecordBalanceAfter(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	svc := NewWalletService(pool)
	ctx := context.Background()

	for _, amount := range []int{100, 40} {
		_, err := svc.Credit(ctx, userID, &wallet.CreditRequest{
			Amount:      amount,
			SourceType:  wallet.SourceGame,
			Description: "game reward",
		})
		require.NoError(t, err)
	}

	txs, err := svc.GetTransactions(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// Newest first.
	assert.Equal(t, 40, txs[0].Amount)
	assert.Equal(t, 140, txs[0].BalanceAfter)
	assert.Equal(t, 100, txs[1].Amount)
	assert.Equal(t, 100, txs[1].BalanceAfter)
}

func TestExperienceService_AddXPCascade(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	svc := NewExperienceService(pool)
	ctx := context.Background()

	res, err := svc.AddXP(ctx, userID, &experience.AddXPRequest{Amount: 400, Source: "game"})
	require.NoError(t, err)

	assert.True(t, res.LevelUp)
	assert.Equal(t, 2, res.LevelsGained)
	assert.Equal(t, 3, res.CurrentLevel)
	assert.Equal(t, 150, res.CurrentXP)
	assert.Equal(t, 225, res.XPToNextLevel)
	assert.Equal(t, 400, res.TotalXP)
}

func TestExperienceService_LevelStateDefaultsForNewUser(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	svc := NewExperienceService(pool)

	state, err := svc.GetLevelState(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 1, state.CurrentLevel)
	assert.Equal(t, 0, state.TotalXP)
	assert.Equal(t, 100, state.XPToNextLevel)
}

func TestStreakService_TouchTwiceSameDay(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	svc := NewStreakService(pool)
	ctx := context.Background()

	first, err := svc.Touch(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentStreak)
	assert.False(t, first.StreakMaintained)

	second, err := svc.Touch(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, second.CurrentStreak)
	assert.True(t, second.StreakMaintained)
}

func createTestGame(t *testing.T, pool *pgxpool.Pool, playcoinsReward, xpReward int) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	id := uuid.New()
	name := "test-game-" + id.String()[:8]
	_, err := pool.Exec(ctx, `
		INSERT INTO games (id, name, description, subject, playcoins_reward, xp_reward, is_active, created_at)
		VALUES ($1, $2, 'integration test game', 'math', $3, $4, TRUE, NOW())`,
		id, name, playcoinsReward, xpReward)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Exec(context.Background(), "DELETE FROM game_progress WHERE game_id = $1", id)
		pool.Exec(context.Background(), "DELETE FROM games WHERE id = $1", id)
	})
	return id
}

func createTestChallenge(t *testing.T, pool *pgxpool.Pool, cadence challenge.Cadence, challengeType challenge.ChallengeType, requirement, playcoinsReward, xpReward int) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	id := uuid.New()
	name := "test-challenge-" + id.String()[:8]
	_, err := pool.Exec(ctx, `
		INSERT INTO challenges (id, name, description, cadence, challenge_type, requirement_value,
		                        playcoins_reward, xp_reward, is_active, created_at)
		VALUES ($1, $2, 'integration test challenge', $3, $4, $5, $6, $7, TRUE, NOW())`,
		id, name, cadence, challengeType, requirement, playcoinsReward, xpReward)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Exec(context.Background(), "DELETE FROM user_challenges WHERE challenge_id = $1", id)
		pool.Exec(context.Background(), "DELETE FROM challenges WHERE id = $1", id)
	})
	return id
}

func createTestAchievement(t *testing.T, pool *pgxpool.Pool, kind achievement.RequirementType, requirement, xpReward, playcoinsReward int) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	id := uuid.New()
	name := "test-achievement-" + id.String()[:8]
	_, err := pool.Exec(ctx, `
		INSERT INTO achievements (id, name, description, icon, requirement_type, requirement_value,
		                          xp_reward, playcoins_reward, is_active, created_at)
		VALUES ($1, $2, 'integration test achievement', 'star', $3, $4, $5, $6, TRUE, NOW())`,
		id, name, kind, requirement, xpReward, playcoinsReward)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Exec(context.Background(), "DELETE FROM achievement_unlocks WHERE achievement_id = $1", id)
		pool.Exec(context.Background(), "DELETE FROM achievements WHERE id = $1", id)
	})
	return id
}

func findUserChallenge(t *testing.T, pool *pgxpool.Pool, userID, challengeID uuid.UUID) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		"SELECT id FROM user_challenges WHERE user_id = $1 AND challenge_id = $2", userID, challengeID).Scan(&id)
	require.NoError(t, err)
	return id
}

func newTestGameService(pool *pgxpool.Pool) *GameService {
	walletSvc := NewWalletService(pool)
	experienceSvc := NewExperienceService(pool)
	streakSvc := NewStreakService(pool)
	achievementSvc := NewAchievementService(pool, walletSvc, experienceSvc, nil)
	challengeSvc := NewChallengeService(pool)
	walletSvc.SetChallengeService(challengeSvc)
	return NewGameService(pool, walletSvc, experienceSvc, streakSvc, achievementSvc, challengeSvc)
}

func TestAchievementService_EvaluateIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	achievementID := createTestAchievement(t, pool, achievement.RequirementPlaycoinsEarned, 100, 0, 0)
	walletSvc := NewWalletService(pool)
	svc := NewAchievementService(pool, walletSvc, NewExperienceService(pool), nil)
	ctx := context.Background()

	_, err := walletSvc.Credit(ctx, userID, &wallet.CreditRequest{
		Amount:      100,
		SourceType:  wallet.SourceBonus,
		Description: "threshold grant",
	})
	require.NoError(t, err)

	first, err := svc.Evaluate(ctx, userID)
	require.NoError(t, err)
	unlocked := false
	for _, a := range first.NewlyUnlocked {
		if a.ID == achievementID {
			unlocked = true
		}
	}
	assert.True(t, unlocked, "threshold achievement should unlock on first evaluation")

	// Reward cascades from unlocks can themselves satisfy further
	// achievements, so drain until the evaluation settles.
	total := first.TotalUnlocked
	for i := 0; i < 5; i++ {
		res, err := svc.Evaluate(ctx, userID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, res.TotalUnlocked, total)
		total = res.TotalUnlocked
		if len(res.NewlyUnlocked) == 0 {
			break
		}
	}

	// A further call with unchanged stats unlocks nothing.
	final, err := svc.Evaluate(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, final.NewlyUnlocked)
	assert.Equal(t, total, final.TotalUnlocked)
}

func TestChallengeService_ClaimOneWay(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	challengeID := createTestChallenge(t, pool, challenge.CadenceDaily, challenge.TypePlayMinutes, 30, 20, 10)
	svc := NewChallengeService(pool)
	ctx := context.Background()

	require.NoError(t, svc.InitializeForPeriod(ctx, userID))
	rowID := findUserChallenge(t, pool, userID, challengeID)

	// An incomplete row cannot be claimed.
	err := svc.Claim(ctx, userID, rowID)
	assert.ErrorIs(t, err, challenge.ErrNotCompleted)

	require.NoError(t, svc.BumpProgress(ctx, userID, challenge.TypePlayMinutes, 30))
	require.NoError(t, svc.Claim(ctx, userID, rowID))

	// The payout committed with the claim.
	w, err := NewWalletService(pool).GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 20, w.Balance)

	// Once claimed, claimed forever.
	err = svc.Claim(ctx, userID, rowID)
	assert.ErrorIs(t, err, challenge.ErrAlreadyClaimed)

	var isClaimed bool
	require.NoError(t, pool.QueryRow(ctx, "SELECT is_claimed FROM user_challenges WHERE id = $1", rowID).Scan(&isClaimed))
	assert.True(t, isClaimed)

	w, err = NewWalletService(pool).GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 20, w.Balance, "rejected claim must not pay again")
}

func TestWalletService_CreditBumpsEarnCoinsChallenge(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	challengeID := createTestChallenge(t, pool, challenge.CadenceDaily, challenge.TypeEarnCoins, 50, 0, 0)
	challengeSvc := NewChallengeService(pool)
	walletSvc := NewWalletService(pool)
	walletSvc.SetChallengeService(challengeSvc)
	ctx := context.Background()

	require.NoError(t, challengeSvc.InitializeForPeriod(ctx, userID))
	rowID := findUserChallenge(t, pool, userID, challengeID)

	_, err := walletSvc.Credit(ctx, userID, &wallet.CreditRequest{
		Amount:      30,
		SourceType:  wallet.SourceGame,
		Description: "game reward",
	})
	require.NoError(t, err)

	var progress int
	var completed bool
	require.NoError(t, pool.QueryRow(ctx, "SELECT progress, is_completed FROM user_challenges WHERE id = $1", rowID).Scan(&progress, &completed))
	assert.Equal(t, 30, progress)
	assert.False(t, completed)

	_, err = walletSvc.Credit(ctx, userID, &wallet.CreditRequest{
		Amount:      40,
		SourceType:  wallet.SourceGame,
		Description: "game reward",
	})
	require.NoError(t, err)

	// Progress clamps at the requirement and the row completes.
	require.NoError(t, pool.QueryRow(ctx, "SELECT progress, is_completed FROM user_challenges WHERE id = $1", rowID).Scan(&progress, &completed))
	assert.Equal(t, 50, progress)
	assert.True(t, completed)
}

func TestGameService_FirstCompletionRewardsOnce(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	gameID := createTestGame(t, pool, 100, 50)
	svc := newTestGameService(pool)
	ctx := context.Background()

	first, err := svc.CompleteGame(ctx, userID, &game.CompleteRequest{
		GameID:           gameID,
		Score:            80,
		MaxScore:         100,
		TimeSpentSeconds: 60,
	})
	require.NoError(t, err)
	assert.True(t, first.IsCompleted)
	assert.True(t, first.IsFirstCompletion)
	assert.True(t, first.IsNewHighScore)
	assert.Equal(t, 80, first.CompletionPercentage)
	assert.Equal(t, 100, first.PlaycoinsAwarded)
	assert.Equal(t, 50, first.XPAwarded)

	st, err := NewStreakService(pool).GetStreak(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)

	wAfterFirst, err := NewWalletService(pool).GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, wAfterFirst.Balance, 100)

	again, err := svc.CompleteGame(ctx, userID, &game.CompleteRequest{
		GameID:           gameID,
		Score:            60,
		MaxScore:         100,
		TimeSpentSeconds: 45,
	})
	require.NoError(t, err)
	assert.False(t, again.IsFirstCompletion)
	assert.False(t, again.IsNewHighScore)
	assert.Zero(t, again.PlaycoinsAwarded)
	assert.Zero(t, again.XPAwarded)

	// No re-grant on the repeat run.
	wAfterSecond, err := NewWalletService(pool).GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, wAfterFirst.Balance, wAfterSecond.Balance)

	// The stored row keeps the high score and counts both attempts.
	var score, attempts int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT score, attempts FROM game_progress WHERE user_id = $1 AND game_id = $2", userID, gameID).Scan(&score, &attempts))
	assert.Equal(t, 80, score)
	assert.Equal(t, 2, attempts)
}

func TestGameService_ConcurrentFirstCompletion(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool)
	gameID := createTestGame(t, pool, 100, 0)
	svc := newTestGameService(pool)

	results := make([]*game.CompleteResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CompleteGame(context.Background(), userID, &game.CompleteRequest{
				GameID:           gameID,
				Score:            80,
				MaxScore:         100,
				TimeSpentSeconds: 30,
			})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	firsts := 0
	for _, r := range results {
		if r.IsFirstCompletion {
			firsts++
		}
	}
	assert.Equal(t, 1, firsts, "exactly one racing attempt may win first completion")

	var attempts int
	require.NoError(t, pool.QueryRow(context.Background(),
		"SELECT attempts FROM game_progress WHERE user_id = $1 AND game_id = $2", userID, gameID).Scan(&attempts))
	assert.Equal(t, 2, attempts)
}
