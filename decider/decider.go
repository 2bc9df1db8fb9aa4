package decider

import (
	"errors"
)

// Decider is the pure (decide, evolve, initial state) triple describing how
// one aggregate type turns commands into events and events into state.
//
// All three members must be free of side effects: Decide may only look at the
// command and the state it is given, Evolve must be total over the events the
// decider can produce (unknown events are the identity transform), and
// Initial returns the "aggregate does not exist yet" value.
type Decider[C any, S any, E any] struct {
	// Decide produces the events caused by the command in the given state,
	// or a DomainError when the command violates a business rule.
	Decide func(command C, state S) ([]E, error)

	// Evolve returns the state after the event has happened.
	Evolve func(state S, event E) S

	// Initial returns the state of an aggregate with an empty history.
	Initial func() S
}

// Fold replays an ordered event history into the resulting state, starting
// from the initial state. An empty history yields the initial state.
func (d Decider[C, S, E]) Fold(history []E) S {
	state := d.Initial()

	for _, event := range history {
		state = d.Evolve(state, event)
	}

	return state
}

// ComputeNewEvents folds the history into the current state and decides on
// the command against it.
func (d Decider[C, S, E]) ComputeNewEvents(history []E, command C) ([]E, error) {
	return d.Decide(command, d.Fold(history))
}

// DomainError reports a business-rule violation: the command cannot be
// applied to the current state. It is a request-scoped outcome, nothing is
// persisted for it, and retrying without changing intent will fail again.
type DomainError struct {
	Reason string
}

// NewDomainError creates a DomainError with the given reason.
func NewDomainError(reason string) DomainError {
	return DomainError{Reason: reason}
}

// Error implements the error interface.
func (e DomainError) Error() string {
	return e.Reason
}

// IsDomainError reports whether err is, or wraps, a DomainError.
func IsDomainError(err error) bool {
	var domainErr DomainError
	return errors.As(err, &domainErr)
}
