package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionPercent(t *testing.T) {
	assert.Equal(t, 70, CompletionPercent(70, 100))
	assert.Equal(t, 0, CompletionPercent(0, 100))
	assert.Equal(t, 100, CompletionPercent(50, 50))
}

func TestCompletionPercent_Rounds(t *testing.T) {
	assert.Equal(t, 33, CompletionPercent(1, 3))
	assert.Equal(t, 67, CompletionPercent(2, 3))
	assert.Equal(t, 50, CompletionPercent(1, 2))
}

func TestCompletionPercent_ZeroMaxScoreIsFullRun(t *testing.T) {
	// Games without a scoring scale report max_score 0; finishing them
	// counts as a complete run.
	assert.Equal(t, 100, CompletionPercent(0, 0))
	assert.Equal(t, 100, CompletionPercent(42, 0))
}

func TestCompletionThreshold(t *testing.T) {
	assert.GreaterOrEqual(t, CompletionPercent(7, 10), CompletionThreshold)
	assert.Less(t, CompletionPercent(69, 100), CompletionThreshold)
}
