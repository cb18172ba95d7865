package stream

// RetryBudget bounds a generation-driven discovery loop with two
// independent counters: a total attempt budget and a shorter budget of
// consecutive attempts that produced nothing new. The second counter
// stops the loop early once the generator has run dry.
type RetryBudget struct {
	attemptsLeft         int
	consecutiveEmpty     int
	consecutiveEmptyStop int
}

const (
	defaultAttempts         = 10
	defaultConsecutiveEmpty = 2
)

func NewRetryBudget() *RetryBudget {
	return &RetryBudget{
		attemptsLeft:         defaultAttempts,
		consecutiveEmptyStop: defaultConsecutiveEmpty,
	}
}

// Spend records the outcome of one attempt and reports whether another
// attempt is allowed.
func (b *RetryBudget) Spend(foundAny bool) bool {
	if b.attemptsLeft > 0 {
		b.attemptsLeft--
	}
	if foundAny {
		b.consecutiveEmpty = 0
	} else {
		b.consecutiveEmpty++
	}
	return b.attemptsLeft > 0 && b.consecutiveEmpty < b.consecutiveEmptyStop
}

// Exhausted reports whether the loop must stop before the next attempt.
func (b *RetryBudget) Exhausted() bool {
	return b.attemptsLeft <= 0 || b.consecutiveEmpty >= b.consecutiveEmptyStop
}
