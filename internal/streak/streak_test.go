package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestAdvance_FirstActivity(t *testing.T) {
	s := &Streak{}

	res := Advance(s, date(2026, time.March, 10))

	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 1, res.LongestStreak)
	assert.False(t, res.StreakIncreased)
	assert.False(t, res.StreakMaintained)
}

func TestAdvance_SameDayMaintains(t *testing.T) {
	last := date(2026, time.March, 10)
	s := &Streak{CurrentStreak: 4, LongestStreak: 7, LastActivityDate: &last}

	res := Advance(s, date(2026, time.March, 10).Add(8*time.Hour))

	assert.True(t, res.StreakMaintained)
	assert.False(t, res.StreakIncreased)
	assert.Equal(t, 4, res.CurrentStreak)
	assert.Equal(t, 4, s.CurrentStreak)
}

func TestAdvance_ConsecutiveDayIncrements(t *testing.T) {
	last := date(2026, time.March, 10)
	s := &Streak{CurrentStreak: 4, LongestStreak: 7, LastActivityDate: &last}

	res := Advance(s, date(2026, time.March, 11))

	assert.True(t, res.StreakIncreased)
	assert.Equal(t, 5, res.CurrentStreak)
	assert.Equal(t, 7, res.LongestStreak)
}

func TestAdvance_GapResetsToOne(t *testing.T) {
	last := date(2026, time.March, 10)
	s := &Streak{CurrentStreak: 9, LongestStreak: 9, LastActivityDate: &last}

	res := Advance(s, date(2026, time.March, 13))

	assert.False(t, res.StreakIncreased)
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 9, res.LongestStreak)
}

func TestAdvance_LongestFollowsCurrent(t *testing.T) {
	last := date(2026, time.March, 10)
	s := &Streak{CurrentStreak: 7, LongestStreak: 7, LastActivityDate: &last}

	res := Advance(s, date(2026, time.March, 11))

	assert.Equal(t, 8, res.CurrentStreak)
	assert.Equal(t, 8, res.LongestStreak)
}

func TestAdvance_MidnightBoundaryIsUTC(t *testing.T) {
	// 23:30 UTC and 00:30 UTC the next day are different streak days even
	// though only an hour apart.
	last := time.Date(2026, time.March, 10, 23, 30, 0, 0, time.UTC)
	s := &Streak{CurrentStreak: 2, LongestStreak: 2, LastActivityDate: &last}

	res := Advance(s, time.Date(2026, time.March, 11, 0, 30, 0, 0, time.UTC))

	assert.True(t, res.StreakIncreased)
	assert.Equal(t, 3, res.CurrentStreak)
}

func TestDayKey_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:00 on March 11 in UTC+5 is still March 10 in UTC.
	assert.Equal(t, "2026-03-10", DayKey(time.Date(2026, time.March, 11, 2, 0, 0, 0, loc)))
}
