package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"playquestAPI/internal/reward"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RewardService struct {
	db *pgxpool.Pool
}

func NewRewardService(db *pgxpool.Pool) *RewardService {
	return &RewardService{db: db}
}

func (s *RewardService) GetCatalog(ctx context.Context) ([]*reward.Reward, error) {
	query := `
	SELECT id, name, description, image_url, playcoins_cost, stock, is_active, created_at
	FROM rewards
	WHERE is_active
	ORDER BY playcoins_cost
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward catalog: %w", err)
	}
	defer rows.Close()

	var rewards []*reward.Reward
	for rows.Next() {
		r := &reward.Reward{}
		err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Description,
			&r.ImageURL,
			&r.PlaycoinsCost,
			&r.Stock,
			&r.IsActive,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, r)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return rewards, nil
}

// Redeem spends PlayCoins on a catalog reward. Stock decrement, wallet
// debit and the redemption record commit as one transaction; a failure
// at any step leaves everything untouched.
func (s *RewardService) Redeem(ctx context.Context, userID uuid.UUID, req *reward.RedeemRequest) (*reward.RedeemResult, error) {
	rewardID, err := uuid.Parse(req.RewardID)
	if err != nil {
		return nil, reward.ErrRewardNotFound
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	r := &reward.Reward{}
	rewardQuery := `
	SELECT id, name, playcoins_cost, stock, is_active
	FROM rewards
	WHERE id = $1
	FOR UPDATE
	`
	err = tx.QueryRow(ctx, rewardQuery, rewardID).Scan(
		&r.ID,
		&r.Name,
		&r.PlaycoinsCost,
		&r.Stock,
		&r.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reward.ErrRewardNotFound
		}
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}

	if !r.IsActive {
		return nil, reward.ErrRewardNotFound
	}
	if r.Stock == 0 {
		return nil, reward.ErrOutOfStock
	}
	if r.Stock > 0 {
		if _, err := tx.Exec(ctx, `UPDATE rewards SET stock = stock - 1 WHERE id = $1`, rewardID); err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
	}

	sourceID := rewardID.String()
	debit, err := debitWalletTx(ctx, tx, userID, r.PlaycoinsCost, &sourceID, fmt.Sprintf("Redeemed reward: %s", r.Name))
	if err != nil {
		return nil, err
	}

	redemption := &reward.Redemption{
		ID:              uuid.New(),
		UserID:          userID,
		RewardID:        rewardID,
		PlaycoinsSpent:  r.PlaycoinsCost,
		DeliveryAddress: req.DeliveryAddress,
		Status:          "pending",
		RedeemedAt:      time.Now(),
	}

	insertQuery := `
	INSERT INTO redemptions (id, user_id, reward_id, playcoins_spent, delivery_address, status, redeemed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, insertQuery,
		redemption.ID,
		redemption.UserID,
		redemption.RewardID,
		redemption.PlaycoinsSpent,
		redemption.DeliveryAddress,
		redemption.Status,
		redemption.RedeemedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redemption: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	log.Printf("Reward: user %s redeemed %q for %d coins", userID, r.Name, r.PlaycoinsCost)

	return &reward.RedeemResult{
		Balance:      debit.Balance,
		RedemptionID: redemption.ID,
		RewardName:   r.Name,
	}, nil
}

func (s *RewardService) GetRedemptions(ctx context.Context, userID uuid.UUID) ([]*reward.Redemption, error) {
	query := `
	SELECT id, user_id, reward_id, playcoins_spent, delivery_address, status, redeemed_at
	FROM redemptions
	WHERE user_id = $1
	ORDER BY redeemed_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []*reward.Redemption
	for rows.Next() {
		rd := &reward.Redemption{}
		err := rows.Scan(
			&rd.ID,
			&rd.UserID,
			&rd.RewardID,
			&rd.PlaycoinsSpent,
			&rd.DeliveryAddress,
			&rd.Status,
			&rd.RedeemedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, rd)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return redemptions, nil
}
