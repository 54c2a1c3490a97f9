package streak

import (
	"time"

	"github.com/google/uuid"
)

type Streak struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	UserID           uuid.UUID  `json:"user_id" db:"user_id"`
	CurrentStreak    int        `json:"current_streak" db:"current_streak"`
	LongestStreak    int        `json:"longest_streak" db:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date" db:"last_activity_date"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

type TouchResult struct {
	CurrentStreak    int  `json:"current_streak"`
	LongestStreak    int  `json:"longest_streak"`
	StreakIncreased  bool `json:"streak_increased"`
	StreakMaintained bool `json:"streak_maintained"`
}

// DayKey collapses a timestamp to its UTC calendar date. All streak
// comparisons happen on these keys so the day boundary is fixed.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Advance applies one qualifying activity at time now. The break is
// detected lazily here; nothing zeroes a stale streak in the background.
func Advance(s *Streak, now time.Time) TouchResult {
	today := DayKey(now)
	yesterday := DayKey(now.AddDate(0, 0, -1))

	if s.LastActivityDate != nil && DayKey(*s.LastActivityDate) == today {
		return TouchResult{
			CurrentStreak:    s.CurrentStreak,
			LongestStreak:    s.LongestStreak,
			StreakMaintained: true,
		}
	}

	increased := false
	if s.LastActivityDate != nil && DayKey(*s.LastActivityDate) == yesterday {
		s.CurrentStreak++
		increased = true
	} else {
		s.CurrentStreak = 1
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	day := now.UTC()
	s.LastActivityDate = &day

	return TouchResult{
		CurrentStreak:   s.CurrentStreak,
		LongestStreak:   s.LongestStreak,
		StreakIncreased: increased,
	}
}
