package core

import (
	"fmt"
	"sync"
)

// TurnLimiter caps the number of model round trips an agent session may take
// before it has to produce a final answer.
type TurnLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewTurnLimiter creates a limiter allowing max turns. A max of 0 disables the cap.
func NewTurnLimiter(max int) *TurnLimiter {
	return &TurnLimiter{max: max}
}

// Next consumes one turn and fails once the cap is exceeded.
func (tl *TurnLimiter) Next() error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.count++
	if tl.max > 0 && tl.count > tl.max {
		return fmt.Errorf("exceeded max model turns: %d", tl.max)
	}

	return nil
}

// Used returns the number of turns consumed so far.
func (tl *TurnLimiter) Used() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	return tl.count
}

// Remaining returns how many turns are left, or -1 when unlimited.
func (tl *TurnLimiter) Remaining() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.max == 0 {
		return -1
	}
	if tl.count >= tl.max {
		return 0
	}

	return tl.max - tl.count
}
