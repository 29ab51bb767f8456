package installer

import (
	"fmt"
	"sync"
)

// stateTable tracks one ItemState per batch position.
type stateTable struct {
	mu     sync.Mutex
	states []ItemState
}

func newStateTable(n int) *stateTable {
	states := make([]ItemState, n)
	for i := range states {
		states[i] = StatePending
	}
	return &stateTable{states: states}
}

// transition moves item i from one state to another, rejecting moves the
// lifecycle does not allow.
func (s *stateTable) transition(i int, from, to ItemState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.states) {
		return fmt.Errorf("unknown item %d", i)
	}
	if cur := s.states[i]; cur != from {
		return fmt.Errorf("invalid transition for item %d: expected %s, got %s", i, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for item %d: %s -> %s", i, from, to)
	}
	s.states[i] = to
	return nil
}

func (s *stateTable) get(i int) ItemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[i]
}

func isAllowedTransition(from, to ItemState) bool {
	switch from {
	case StatePending:
		// Failed straight from pending covers items the batch never started.
		return to == StateDownloading || to == StateSkipped || to == StateFailed
	case StateDownloading:
		return to == StateSucceeded || to == StateFailed
	default:
		return false
	}
}

func isTerminal(s ItemState) bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}
