package game

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// CompletionThreshold is the completion_percentage a run must reach
// before the game counts as completed.
const CompletionThreshold = 70

var ErrGameNotFound = errors.New("game not found")

type Game struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Description     string    `json:"description" db:"description"`
	Subject         string    `json:"subject" db:"subject"`
	PlaycoinsReward int       `json:"playcoins_reward" db:"playcoins_reward"`
	XPReward        int       `json:"xp_reward" db:"xp_reward"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Progress keeps one user's lifetime record for one game. Score is the
// historical high score, not the most recent attempt.
type Progress struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	UserID               uuid.UUID  `json:"user_id" db:"user_id"`
	GameID               uuid.UUID  `json:"game_id" db:"game_id"`
	Score                int        `json:"score" db:"score"`
	MaxScore             int        `json:"max_score" db:"max_score"`
	CompletionPercentage int        `json:"completion_percentage" db:"completion_percentage"`
	IsCompleted          bool       `json:"is_completed" db:"is_completed"`
	CompletedAt          *time.Time `json:"completed_at" db:"completed_at"`
	TimeSpentSeconds     int        `json:"time_spent_seconds" db:"time_spent_seconds"`
	Attempts             int        `json:"attempts" db:"attempts"`
	LastPlayedAt         time.Time  `json:"last_played_at" db:"last_played_at"`
	GameState            []byte     `json:"game_state,omitempty" db:"game_state"`
}

type CompleteRequest struct {
	GameID           uuid.UUID      `json:"game_id"`
	Score            int            `json:"score"`
	MaxScore         int            `json:"max_score"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	GameState        map[string]any `json:"game_state,omitempty"`
}

type CompleteResult struct {
	IsCompleted          bool `json:"is_completed"`
	IsFirstCompletion    bool `json:"is_first_completion"`
	IsNewHighScore       bool `json:"is_new_high_score"`
	CompletionPercentage int  `json:"completion_percentage"`
	PlaycoinsAwarded     int  `json:"playcoins_awarded"`
	XPAwarded            int  `json:"xp_awarded"`
}

// CompletionPercent rounds 100*score/maxScore to the nearest integer.
// A zero max score counts as a full run.
func CompletionPercent(score, maxScore int) int {
	if maxScore == 0 {
		return 100
	}
	return int(math.Round(100 * float64(score) / float64(maxScore)))
}
