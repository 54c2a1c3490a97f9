package reward

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRewardNotFound = errors.New("reward not found")
	ErrOutOfStock     = errors.New("reward is out of stock")
)

type Reward struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	ImageURL      string    `json:"image_url" db:"image_url"`
	PlaycoinsCost int       `json:"playcoins_cost" db:"playcoins_cost"`
	// Stock < 0 means unlimited.
	Stock     int       `json:"stock" db:"stock"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Redemption struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	RewardID        uuid.UUID `json:"reward_id" db:"reward_id"`
	PlaycoinsSpent  int       `json:"playcoins_spent" db:"playcoins_spent"`
	DeliveryAddress *string   `json:"delivery_address,omitempty" db:"delivery_address"`
	Status          string    `json:"status" db:"status"`
	RedeemedAt      time.Time `json:"redeemed_at" db:"redeemed_at"`
}

type RedeemRequest struct {
	RewardID        string  `json:"reward_id"`
	DeliveryAddress *string `json:"delivery_address,omitempty"`
}

type RedeemResult struct {
	Balance      int       `json:"balance"`
	RedemptionID uuid.UUID `json:"redemption_id"`
	RewardName   string    `json:"reward_name"`
}
