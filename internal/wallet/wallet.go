package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type SourceType string

const (
	SourceGame        SourceType = "game"
	SourceTask        SourceType = "task"
	SourceAchievement SourceType = "achievement"
	SourceBonus       SourceType = "bonus"
	SourceStreak      SourceType = "streak"
	SourceReward      SourceType = "reward"
)

type TransactionKind string

const (
	KindEarn  TransactionKind = "earn"
	KindSpend TransactionKind = "spend"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type Wallet struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Balance     int       `json:"balance" db:"balance"`
	TotalEarned int       `json:"total_earned" db:"total_earned"`
	TotalSpent  int       `json:"total_spent" db:"total_spent"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction is an append-only audit record. Amount is signed:
// positive for earn, negative for spend.
type Transaction struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	Amount       int             `json:"amount" db:"amount"`
	Kind         TransactionKind `json:"kind" db:"kind"`
	SourceType   SourceType      `json:"source_type" db:"source_type"`
	SourceID     *string         `json:"source_id,omitempty" db:"source_id"`
	Description  string          `json:"description" db:"description"`
	BalanceAfter int             `json:"balance_after" db:"balance_after"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

type CreditRequest struct {
	Amount      int        `json:"amount"`
	SourceType  SourceType `json:"source_type"`
	SourceID    *string    `json:"source_id,omitempty"`
	Description string     `json:"description"`
}

type CreditResult struct {
	Balance       int `json:"balance"`
	TotalEarned   int `json:"total_earned"`
	AmountAwarded int `json:"amount_awarded"`
}

type DebitResult struct {
	Balance int `json:"balance"`
}
