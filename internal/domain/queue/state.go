// Package queue models the lifecycle of a queued job as an explicit
// state machine:
//
//	pending -> active -> completed
//	                  -> retrying -> active -> ...
//	                  -> failed
//
// The delivery transport (JetStream) redelivers and terminates messages;
// this package decides which of those to ask for and when.
package queue

import "time"

type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StateRetrying  State = "retrying"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

var transitions = map[State][]State{
	StatePending:  {StateActive},
	StateActive:   {StateCompleted, StateRetrying, StateFailed},
	StateRetrying: {StateActive},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
// Completed and failed are terminal.
func CanTransition(from State, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Policy is the retry policy for a job lane.
type Policy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// Outcome is the decision after one execution attempt.
type Outcome struct {
	State   State
	RetryIn time.Duration
}

// Backoff returns the delay before redelivering attempt+1:
// base * 2^(attempt-1) for the 1-based attempt that just failed.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BackoffBase << (attempt - 1)
}

// OnSuccess resolves a finished attempt.
func (p Policy) OnSuccess() Outcome {
	return Outcome{State: StateCompleted}
}

// OnFailure resolves a failed 1-based attempt: retry with exponential
// backoff until MaxAttempts is exhausted, then fail permanently.
func (p Policy) OnFailure(attempt int) Outcome {
	if attempt >= p.MaxAttempts {
		return Outcome{State: StateFailed}
	}
	return Outcome{State: StateRetrying, RetryIn: p.Backoff(attempt)}
}
