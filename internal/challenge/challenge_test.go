package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodKey_Daily(t *testing.T) {
	now := time.Date(2026, time.February, 18, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-18", PeriodKey(CadenceDaily, now))
}

func TestPeriodKey_DailyUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	// 20:00 on Feb 17 in UTC-8 is already Feb 18 in UTC.
	now := time.Date(2026, time.February, 17, 20, 0, 0, 0, loc)
	assert.Equal(t, "2026-02-18", PeriodKey(CadenceDaily, now))
}

func TestPeriodKey_WeeklyAnchorsToMonday(t *testing.T) {
	// 2026-02-16 is a Monday.
	cases := map[string]time.Time{
		"monday itself": time.Date(2026, time.February, 16, 0, 0, 1, 0, time.UTC),
		"wednesday":     time.Date(2026, time.February, 18, 12, 0, 0, 0, time.UTC),
		"saturday":      time.Date(2026, time.February, 21, 23, 59, 0, 0, time.UTC),
		"sunday":        time.Date(2026, time.February, 22, 10, 0, 0, 0, time.UTC),
	}

	for name, now := range cases {
		assert.Equal(t, "2026-02-16", PeriodKey(CadenceWeekly, now), name)
	}
}

func TestPeriodKey_WeeklyRollsOverOnMonday(t *testing.T) {
	sunday := time.Date(2026, time.February, 22, 23, 0, 0, 0, time.UTC)
	monday := time.Date(2026, time.February, 23, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-02-16", PeriodKey(CadenceWeekly, sunday))
	assert.Equal(t, "2026-02-23", PeriodKey(CadenceWeekly, monday))
}
