package experience

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidAmount = errors.New("xp amount must be positive")

// The curve overflows int64 past 3^36, far beyond any reachable level.
const maxCurveLevel = 36

// XPForLevel returns the XP needed to clear the given level:
// floor(100 * 1.5^(level-1)). Computed as 100*3^(n-1)/2^(n-1) in integer
// arithmetic so every platform lands on identical thresholds.
func XPForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	if level > maxCurveLevel {
		level = maxCurveLevel
	}
	num, den := int64(100), int64(1)
	for i := 1; i < level; i++ {
		num *= 3
		den *= 2
	}
	return int(num / den)
}

type LevelState struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	CurrentLevel  int       `json:"current_level" db:"current_level"`
	CurrentXP     int       `json:"current_xp" db:"current_xp"`
	TotalXP       int       `json:"total_xp" db:"total_xp"`
	XPToNextLevel int       `json:"xp_to_next_level" db:"xp_to_next_level"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type AddXPRequest struct {
	Amount int    `json:"xp_amount"`
	Source string `json:"source"`
}

type AddXPResult struct {
	CurrentLevel  int  `json:"current_level"`
	CurrentXP     int  `json:"current_xp"`
	TotalXP       int  `json:"total_xp"`
	XPToNextLevel int  `json:"xp_to_next_level"`
	LevelsGained  int  `json:"levels_gained"`
	LevelUp       bool `json:"level_up"`
}

// Apply adds xp to the state, cascading level-ups until the remainder
// sits below the threshold for the current level. Returns how many
// levels were gained.
func Apply(state *LevelState, xp int) int {
	state.CurrentXP += xp
	state.TotalXP += xp

	gained := 0
	for state.CurrentXP >= state.XPToNextLevel {
		state.CurrentXP -= state.XPToNextLevel
		state.CurrentLevel++
		state.XPToNextLevel = XPForLevel(state.CurrentLevel)
		gained++
	}
	return gained
}

type LeaderboardEntry struct {
	Username     string `json:"username"`
	ImageURL     string `json:"image_url,omitempty"`
	CurrentLevel int    `json:"current_level"`
	TotalXP      int    `json:"total_xp"`
	Rank         int    `json:"rank"`
}
