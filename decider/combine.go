package decider

import (
	"errors"
	"fmt"
)

var (
	// ErrAmbiguousCommandRoute is returned by Combine when both deciders
	// declare the same command discriminant. This is a configuration error
	// detected at composition time, never at request time.
	ErrAmbiguousCommandRoute = errors.New("command discriminant is claimed by more than one decider")

	// ErrIncompleteRoutes is returned by Combine when one of the mapping
	// functions in Routes is nil.
	ErrIncompleteRoutes = errors.New("routes must supply all mapping functions")
)

const reasonCommandNotRecognized = "command not recognized by any decider"

// Pair is the product state of two combined deciders.
type Pair[L any, R any] struct {
	Left  L
	Right R
}

// Routes describes how a union command/event type maps onto the two sides of
// a combination.
//
// The As... functions attempt to claim a union value for one side, returning
// false when the value belongs elsewhere; with interface-based unions they
// are plain type assertions. The From...Event functions lift component events
// back into the union.
//
// The command tag lists declare which discriminants each side owns so that
// Combine can reject overlapping claims when the combination is built.
type Routes[C any, E any, CL any, EL any, CR any, ER any] struct {
	AsLeftCommand  func(C) (CL, bool)
	AsRightCommand func(C) (CR, bool)
	AsLeftEvent    func(E) (EL, bool)
	AsRightEvent   func(E) (ER, bool)
	FromLeftEvent  func(EL) E
	FromRightEvent func(ER) E

	LeftCommandTags  []string
	RightCommandTags []string
}

func (r Routes[C, E, CL, EL, CR, ER]) validate() error {
	if r.AsLeftCommand == nil || r.AsRightCommand == nil ||
		r.AsLeftEvent == nil || r.AsRightEvent == nil ||
		r.FromLeftEvent == nil || r.FromRightEvent == nil {

		return ErrIncompleteRoutes
	}

	claimed := make(map[string]struct{}, len(r.LeftCommandTags))
	for _, tag := range r.LeftCommandTags {
		claimed[tag] = struct{}{}
	}

	for _, tag := range r.RightCommandTags {
		if _, alreadyClaimed := claimed[tag]; alreadyClaimed {
			return fmt.Errorf("%w: %s", ErrAmbiguousCommandRoute, tag)
		}
	}

	return nil
}

// Combine merges two deciders into a single decider over the union command
// and event types, so one command-handling pipeline can serve both.
//
// The combined state is the product of both component states, each starting
// from its own initial state. Commands are routed to the side that claims
// them; events evolve only the claiming side's slice of the state, and events
// claimed by neither side leave the state unchanged (forward compatibility).
// A command claimed by neither side yields a DomainError.
//
// Routing is by discriminant, not by position, so nesting combinations is
// associative.
func Combine[C any, E any, CL any, SL any, EL any, CR any, SR any, ER any](
	left Decider[CL, SL, EL],
	right Decider[CR, SR, ER],
	routes Routes[C, E, CL, EL, CR, ER],
) (Decider[C, Pair[SL, SR], E], error) {

	var empty Decider[C, Pair[SL, SR], E]

	if validateErr := routes.validate(); validateErr != nil {
		return empty, validateErr
	}

	combined := Decider[C, Pair[SL, SR], E]{
		Initial: func() Pair[SL, SR] {
			return Pair[SL, SR]{
				Left:  left.Initial(),
				Right: right.Initial(),
			}
		},

		Decide: func(command C, state Pair[SL, SR]) ([]E, error) {
			if leftCommand, isLeft := routes.AsLeftCommand(command); isLeft {
				leftEvents, decideErr := left.Decide(leftCommand, state.Left)
				if decideErr != nil {
					return nil, decideErr
				}

				return liftEvents(leftEvents, routes.FromLeftEvent), nil
			}

			if rightCommand, isRight := routes.AsRightCommand(command); isRight {
				rightEvents, decideErr := right.Decide(rightCommand, state.Right)
				if decideErr != nil {
					return nil, decideErr
				}

				return liftEvents(rightEvents, routes.FromRightEvent), nil
			}

			return nil, NewDomainError(reasonCommandNotRecognized)
		},

		Evolve: func(state Pair[SL, SR], event E) Pair[SL, SR] {
			if leftEvent, isLeft := routes.AsLeftEvent(event); isLeft {
				state.Left = left.Evolve(state.Left, leftEvent)
				return state
			}

			if rightEvent, isRight := routes.AsRightEvent(event); isRight {
				state.Right = right.Evolve(state.Right, rightEvent)
				return state
			}

			return state
		},
	}

	return combined, nil
}

// MustCombine is like Combine but panics on a configuration error.
// Combination happens once at wiring time, so an invalid route set is a
// programming error, not a runtime condition.
func MustCombine[C any, E any, CL any, SL any, EL any, CR any, SR any, ER any](
	left Decider[CL, SL, EL],
	right Decider[CR, SR, ER],
	routes Routes[C, E, CL, EL, CR, ER],
) Decider[C, Pair[SL, SR], E] {

	combined, combineErr := Combine(left, right, routes)
	if combineErr != nil {
		panic(combineErr)
	}

	return combined
}

func liftEvents[E any, EC any](componentEvents []EC, lift func(EC) E) []E {
	unionEvents := make([]E, len(componentEvents))

	for i, componentEvent := range componentEvents {
		unionEvents[i] = lift(componentEvent)
	}

	return unionEvents
}
