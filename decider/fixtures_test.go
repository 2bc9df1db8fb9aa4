package decider_test

import (
	"github.com/deciderkit/decider-eventstore-go/decider"
)

// The test domain is deliberately tiny: a counter aggregate and a label
// aggregate, combined over interface-based unions.

type command interface{ commandTag() string }

type event interface{ eventTag() string }

// counter side

type counterCommand interface {
	command
	isCounterCommand()
}

type incrementCounter struct{ By int }

func (incrementCounter) commandTag() string { return "IncrementCounter" }
func (incrementCounter) isCounterCommand()  {}

type counterEvent interface {
	event
	isCounterEvent()
}

type counterIncremented struct{ By int }

func (counterIncremented) eventTag() string { return "CounterIncremented" }
func (counterIncremented) isCounterEvent()  {}

func counterDecider() decider.Decider[counterCommand, int, counterEvent] {
	return decider.Decider[counterCommand, int, counterEvent]{
		Initial: func() int { return 0 },
		Decide: func(cmd counterCommand, state int) ([]counterEvent, error) {
			switch c := cmd.(type) {
			case incrementCounter:
				if c.By <= 0 {
					return nil, decider.NewDomainError("increment must be positive")
				}
				return []counterEvent{counterIncremented{By: c.By}}, nil
			}
			return nil, decider.NewDomainError("unexpected counter command")
		},
		Evolve: func(state int, evt counterEvent) int {
			switch e := evt.(type) {
			case counterIncremented:
				return state + e.By
			}
			return state
		},
	}
}

// label side

type labelCommand interface {
	command
	isLabelCommand()
}

type renameLabel struct{ To string }

func (renameLabel) commandTag() string { return "RenameLabel" }
func (renameLabel) isLabelCommand()    {}

type labelEvent interface {
	event
	isLabelEvent()
}

type labelRenamed struct{ To string }

func (labelRenamed) eventTag() string { return "LabelRenamed" }
func (labelRenamed) isLabelEvent()    {}

func labelDecider() decider.Decider[labelCommand, string, labelEvent] {
	return decider.Decider[labelCommand, string, labelEvent]{
		Initial: func() string { return "" },
		Decide: func(cmd labelCommand, state string) ([]labelEvent, error) {
			switch c := cmd.(type) {
			case renameLabel:
				if c.To == state {
					return nil, decider.NewDomainError("label already has that name")
				}
				return []labelEvent{labelRenamed{To: c.To}}, nil
			}
			return nil, decider.NewDomainError("unexpected label command")
		},
		Evolve: func(state string, evt labelEvent) string {
			switch e := evt.(type) {
			case labelRenamed:
				return e.To
			}
			return state
		},
	}
}

// an event belonging to neither side, for forward-compatibility tests

type unrelatedHappened struct{}

func (unrelatedHappened) eventTag() string { return "UnrelatedHappened" }

// a command belonging to neither side

type unroutedCommand struct{}

func (unroutedCommand) commandTag() string { return "Unrouted" }

func combinedRoutes() decider.Routes[command, event, counterCommand, counterEvent, labelCommand, labelEvent] {
	return decider.Routes[command, event, counterCommand, counterEvent, labelCommand, labelEvent]{
		AsLeftCommand: func(c command) (counterCommand, bool) {
			cc, ok := c.(counterCommand)
			return cc, ok
		},
		AsRightCommand: func(c command) (labelCommand, bool) {
			lc, ok := c.(labelCommand)
			return lc, ok
		},
		AsLeftEvent: func(e event) (counterEvent, bool) {
			ce, ok := e.(counterEvent)
			return ce, ok
		},
		AsRightEvent: func(e event) (labelEvent, bool) {
			le, ok := e.(labelEvent)
			return le, ok
		},
		FromLeftEvent:    func(e counterEvent) event { return e },
		FromRightEvent:   func(e labelEvent) event { return e },
		LeftCommandTags:  []string{"IncrementCounter"},
		RightCommandTags: []string{"RenameLabel"},
	}
}
