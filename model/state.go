package model

import "fmt"

// QueryState is the lifecycle state of one query
type QueryState string

const (
	StateReceived       QueryState = "received"
	StatePolicyResolved QueryState = "policy_resolved"
	StateRetrieving     QueryState = "retrieving"
	StateFusing         QueryState = "fusing"
	StateSynthesizing   QueryState = "synthesizing"
	StateAnswered       QueryState = "answered"
	StateInsufficient   QueryState = "insufficient"
	StateFailed         QueryState = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s QueryState) IsTerminal() bool {
	return s == StateAnswered || s == StateInsufficient || s == StateFailed
}

var forward = map[QueryState][]QueryState{
	StateReceived:       {StatePolicyResolved},
	StatePolicyResolved: {StateRetrieving},
	StateRetrieving:     {StateFusing},
	StateFusing:         {StateSynthesizing, StateInsufficient},
	StateSynthesizing:   {StateSynthesizing, StateAnswered, StateInsufficient},
}

// StateTrail tracks the strictly forward state sequence of a query.
// Synthesizing may repeat once for the grounding retry.
// Failed is reachable from every non terminal state.
type StateTrail struct {
	states  []QueryState
	retried bool
}

// NewStateTrail starts a trail in StateReceived.
func NewStateTrail() *StateTrail {
	return &StateTrail{states: []QueryState{StateReceived}}
}

// Current returns the latest state.
func (t *StateTrail) Current() QueryState {
	return t.states[len(t.states)-1]
}

// States returns a copy of the visited states.
func (t *StateTrail) States() []QueryState {
	out := make([]QueryState, len(t.states))
	copy(out, t.states)
	return out
}

// Advance moves to the next state or fails with ErrInvalidState.
func (t *StateTrail) Advance(to QueryState) error {
	from := t.Current()
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidState, from)
	}
	if to == StateFailed {
		t.states = append(t.states, to)
		return nil
	}
	if from == StateSynthesizing && to == StateSynthesizing {
		if t.retried {
			return fmt.Errorf("%w: synthesis retried more than once", ErrInvalidState)
		}
		t.retried = true
		t.states = append(t.states, to)
		return nil
	}
	for _, next := range forward[from] {
		if next == to {
			t.states = append(t.states, to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
}
