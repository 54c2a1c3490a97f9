package experience

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXPForLevel_Curve(t *testing.T) {
	// floor(100 * 1.5^(level-1))
	expected := map[int]int{
		1:  100,
		2:  150,
		3:  225,
		4:  337,
		5:  506,
		10: 3844,
	}

	for level, want := range expected {
		assert.Equal(t, want, XPForLevel(level), "level %d", level)
	}
}

func TestXPForLevel_ClampsBelowOne(t *testing.T) {
	assert.Equal(t, 100, XPForLevel(0))
	assert.Equal(t, 100, XPForLevel(-3))
}

func TestXPForLevel_Monotonic(t *testing.T) {
	prev := 0
	for level := 1; level <= 36; level++ {
		cur := XPForLevel(level)
		assert.Greater(t, cur, prev, "level %d", level)
		prev = cur
	}
}

func TestApply_NoLevelUp(t *testing.T) {
	state := &LevelState{CurrentLevel: 1, XPToNextLevel: XPForLevel(1)}

	gained := Apply(state, 50)

	assert.Equal(t, 0, gained)
	assert.Equal(t, 1, state.CurrentLevel)
	assert.Equal(t, 50, state.CurrentXP)
	assert.Equal(t, 50, state.TotalXP)
}

func TestApply_ExactThresholdLevelsUp(t *testing.T) {
	state := &LevelState{CurrentLevel: 1, XPToNextLevel: XPForLevel(1)}

	gained := Apply(state, 100)

	assert.Equal(t, 1, gained)
	assert.Equal(t, 2, state.CurrentLevel)
	assert.Equal(t, 0, state.CurrentXP)
	assert.Equal(t, 150, state.XPToNextLevel)
}

func TestApply_MultiLevelCascade(t *testing.T) {
	state := &LevelState{CurrentLevel: 1, XPToNextLevel: XPForLevel(1)}

	// 400 XP clears level 1 (100) and level 2 (150), leaving 150 toward
	// the 225 needed for level 3.
	gained := Apply(state, 400)

	assert.Equal(t, 2, gained)
	assert.Equal(t, 3, state.CurrentLevel)
	assert.Equal(t, 150, state.CurrentXP)
	assert.Equal(t, 225, state.XPToNextLevel)
	assert.Equal(t, 400, state.TotalXP)
}

func TestApply_AccumulatesTotalXP(t *testing.T) {
	state := &LevelState{CurrentLevel: 1, XPToNextLevel: XPForLevel(1)}

	Apply(state, 80)
	Apply(state, 80)

	assert.Equal(t, 160, state.TotalXP)
	assert.Equal(t, 2, state.CurrentLevel)
	assert.Equal(t, 60, state.CurrentXP)
}
