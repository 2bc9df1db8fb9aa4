package shell

import (
	"github.com/deciderkit/decider-eventstore-go/aggregate"
	"github.com/deciderkit/decider-eventstore-go/eventstore"
	"github.com/deciderkit/decider-eventstore-go/example/core"
)

// DomainRepository is the event-sourced repository for the combined domain
// decider.
type DomainRepository = aggregate.Repository[core.Command, core.DomainState, core.Event]

// DomainHandler handles JSON command payloads against the combined domain.
type DomainHandler = aggregate.Handler[core.Command, core.DomainState, core.Event]

// NewDomainRepository wires the domain decider, the saga and the event
// codecs onto the given event store. Each command runs against the stream of
// its aggregate id; the saga creates orders from placed orders within the
// same invocation.
func NewDomainRepository(store aggregate.EventStore) *DomainRepository {
	return aggregate.NewRepository(
		core.DomainDecider(),
		store,
		streamOfCommand,
		StorableEventFrom,
		DomainEventFrom,
		aggregate.WithSaga[core.Command, core.DomainState, core.Event](core.DomainSaga()),
	)
}

// NewCommandHandler wires a complete command handler onto the given event
// store.
func NewCommandHandler(store aggregate.EventStore) *DomainHandler {
	return aggregate.NewHandler(
		NewDomainRepository(store),
		CommandFromJSON,
		func(event core.Event) string { return event.EventType() },
	)
}

func streamOfCommand(command core.Command) eventstore.StreamID {
	return command.AggregateID()
}
