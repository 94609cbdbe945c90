package core

import "errors"

// ErrQueryInFlight rejects a question while another one is still pending.
// The orchestrator snapshots its target session per question, so exchanges
// must not interleave.
var ErrQueryInFlight = errors.New("another question is already pending")

// ValidationError rejects bad input before any state is mutated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
