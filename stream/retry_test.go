package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryBudget_StopsAfterConsecutiveEmptyAttempts(t *testing.T) {
	b := NewRetryBudget()

	assert.True(t, b.Spend(true))
	assert.True(t, b.Spend(false))
	assert.False(t, b.Spend(false), "two consecutive empty attempts end the loop")
	assert.True(t, b.Exhausted())
}

func TestRetryBudget_SuccessResetsEmptyCounter(t *testing.T) {
	b := NewRetryBudget()

	assert.True(t, b.Spend(false))
	assert.True(t, b.Spend(true))
	assert.True(t, b.Spend(false), "counter restarts after a productive attempt")
}

func TestRetryBudget_AttemptBudgetIsHardCap(t *testing.T) {
	b := NewRetryBudget()

	// Every attempt productive: only the total budget can stop the loop.
	for i := 0; i < defaultAttempts-1; i++ {
		assert.True(t, b.Spend(true), "attempt %d", i)
	}
	assert.False(t, b.Spend(true))
	assert.True(t, b.Exhausted())
}
