package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsSnapshot_Progress(t *testing.T) {
	snap := &StatsSnapshot{
		CurrentLevel:    5,
		TotalXP:         1200,
		CurrentStreak:   3,
		LongestStreak:   11,
		PlaycoinsEarned: 750,
		GamesCompleted:  20,
		TasksCompleted:  8,
	}

	cases := map[RequirementType]int{
		RequirementLevelReached:    5,
		RequirementXPEarned:        1200,
		RequirementStreakDays:      3,
		RequirementLongestStreak:   11,
		RequirementPlaycoinsEarned: 750,
		RequirementGamesCompleted:  20,
		RequirementTasksCompleted:  8,
	}

	for kind, want := range cases {
		got, ok := snap.Progress(kind)
		assert.True(t, ok, string(kind))
		assert.Equal(t, want, got, string(kind))
	}
}

func TestStatsSnapshot_Progress_UnknownKindSkipped(t *testing.T) {
	snap := &StatsSnapshot{CurrentLevel: 99}

	got, ok := snap.Progress(RequirementType("friends_invited"))

	assert.False(t, ok)
	assert.Equal(t, 0, got)
}
