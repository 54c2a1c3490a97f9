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

type WalletService struct {
	db               *pgxpool.Pool
	challengeService *ChallengeService
}

func NewWalletService(db *pgxpool.Pool) *WalletService {
	return &WalletService{db: db}
}

// SetChallengeService is called after construction; the challenge
// service is built later in the dependency order.
func (s *WalletService) SetChallengeService(challengeService *ChallengeService) {
	s.challengeService = challengeService
}

// Credit adds PlayCoins to a user's wallet, creating the wallet on first
// credit. The balance update and the transaction row commit together.
func (s *WalletService) Credit(ctx context.Context, userID uuid.UUID, req *wallet.CreditRequest) (*wallet.CreditResult, error) {
	if req.Amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := creditWalletTx(ctx, tx, userID, req)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit credit: %w", err)
	}

	// Earned coins advance earn-coins challenges. The credit is already
	// committed; a failed bump is logged and not rolled back.
	if s.challengeService != nil {
		if err := s.challengeService.BumpProgress(ctx, userID, challenge.TypeEarnCoins, req.Amount); err != nil {
			log.Printf("Wallet: failed to bump earn-coins challenges for user %s: %v", userID, err)
		}
	}

	return result, nil
}

// creditWalletTx runs the credit inside an existing transaction so callers
// that pay out atomically with their own state change (challenge claim,
// reward approval) can reuse it.
func creditWalletTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, req *wallet.CreditRequest) (*wallet.CreditResult, error) {
	var balance, totalEarned int

	// The upsert serializes concurrent credits on the wallet row itself.
	query := `
	INSERT INTO wallets (id, user_id, balance, total_earned, total_spent, created_at, updated_at)
	VALUES ($1, $2, $3, $3, 0, NOW(), NOW())
	ON CONFLICT (user_id) DO UPDATE
	SET balance = wallets.balance + $3,
	    total_earned = wallets.total_earned + $3,
	    updated_at = NOW()
	RETURNING balance, total_earned
	`

	err := tx.QueryRow(ctx, query, uuid.New(), userID, req.Amount).Scan(&balance, &totalEarned)
	if err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}

	if err := insertTransactionTx(ctx, tx, userID, req.Amount, wallet.KindEarn, req.SourceType, req.SourceID, req.Description, balance); err != nil {
		return nil, err
	}

	return &wallet.CreditResult{
		Balance:       balance,
		TotalEarned:   totalEarned,
		AmountAwarded: req.Amount,
	}, nil
}

// Debit spends PlayCoins. It never clamps: a debit larger than the
// balance is rejected and leaves the wallet untouched.
func (s *WalletService) Debit(ctx context.Context, userID uuid.UUID, amount int, sourceID *string, description string) (*wallet.DebitResult, error) {
	if amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := debitWalletTx(ctx, tx, userID, amount, sourceID, description)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit debit: %w", err)
	}

	return result, nil
}

func debitWalletTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, sourceID *string, description string) (*wallet.DebitResult, error) {
	var balance int

	// Conditional update keeps the balance non-negative even under
	// concurrent debits for the same wallet.
	query := `
	UPDATE wallets
	SET balance = balance - $1,
	    total_spent = total_spent + $1,
	    updated_at = NOW()
	WHERE user_id = $2 AND balance >= $1
	RETURNING balance
	`

	err := tx.QueryRow(ctx, query, amount, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either no wallet or not enough coins. Tell them apart.
			var exists bool
			if checkErr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1)`, userID).Scan(&exists); checkErr != nil {
				return nil, fmt.Errorf("failed to check wallet: %w", checkErr)
			}
			if !exists {
				return nil, wallet.ErrWalletNotFound
			}
			return nil, wallet.ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to debit wallet: %w", err)
	}

	if err := insertTransactionTx(ctx, tx, userID, -amount, wallet.KindSpend, wallet.SourceReward, sourceID, description, balance); err != nil {
		return nil, err
	}

	return &wallet.DebitResult{Balance: balance}, nil
}

func insertTransactionTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, kind wallet.TransactionKind, sourceType wallet.SourceType, sourceID *string, description string, balanceAfter int) error {
	query := `
	INSERT INTO wallet_transactions (id, user_id, amount, kind, source_type, source_id, description, balance_after, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		uuid.New(),
		userID,
		amount,
		kind,
		sourceType,
		sourceID,
		description,
		balanceAfter,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record wallet transaction: %w", err)
	}
	return nil
}

func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	query := `
	SELECT id, user_id, balance, total_earned, total_spent, created_at, updated_at
	FROM wallets
	WHERE user_id = $1
	`

	w := &wallet.Wallet{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&w.ID,
		&w.UserID,
		&w.Balance,
		&w.TotalEarned,
		&w.TotalSpent,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// A user who never earned anything still has a wallet view.
			return &wallet.Wallet{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return w, nil
}

func (s *WalletService) GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*wallet.Transaction, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	query := `
	SELECT id, user_id, amount, kind, source_type, source_id, description, balance_after, created_at
	FROM wallet_transactions
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*wallet.Transaction
	for rows.Next() {
		t := &wallet.Transaction{}
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Amount,
			&t.Kind,
			&t.SourceType,
			&t.SourceID,
			&t.Description,
			&t.BalanceAfter,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}
