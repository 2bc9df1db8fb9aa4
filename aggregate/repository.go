package aggregate

import (
	"context"
	"errors"

	"github.com/deciderkit/decider-eventstore-go/decider"
	"github.com/deciderkit/decider-eventstore-go/eventstore"
)

// EventStore is the storage contract the Repository depends on. It is
// implemented by the postgresengine, sqliteengine and memoryengine packages.
type EventStore interface {
	Load(ctx context.Context, streamID eventstore.StreamID) (eventstore.StorableEvents, eventstore.SequenceNumberUint, error)

	Append(
		ctx context.Context,
		streamID eventstore.StreamID,
		expectedVersion eventstore.SequenceNumberUint,
		event eventstore.StorableEvent,
		additionalEvents ...eventstore.StorableEvent,
	) error
}

var (
	// ErrEventEncoding indicates a domain event could not be converted into its storable form.
	ErrEventEncoding = errors.New("failed to encode domain event for storage")

	// ErrEventDecoding indicates a stored event could not be converted back into a domain event.
	ErrEventDecoding = errors.New("failed to decode stored event")

	// ErrEmptyStreamForCommand indicates a command did not resolve to a stream identifier.
	ErrEmptyStreamForCommand = errors.New("command resolves to an empty stream id")

	// ErrSagaDepthExceeded indicates a chain of saga reactions did not terminate.
	ErrSagaDepthExceeded = errors.New("saga reaction chain exceeded the maximum depth")
)

// maxSagaDepth bounds recursive reaction handling so a saga that reacts to
// its own output cannot loop forever.
const maxSagaDepth = 8

// Result describes a successfully handled command: the stream it was applied
// to, the stream's version after the append, the events that were appended
// (empty when the decider emitted none) and the state after folding them in.
// FollowUps holds the results of commands a saga derived from the appended
// events, in reaction order.
type Result[S any, E any] struct {
	StreamID       eventstore.StreamID
	NewVersion     eventstore.SequenceNumberUint
	AppendedEvents []E
	State          S
	FollowUps      []Result[S, E]
}

// Repository executes commands against a decider with event-sourced
// persistence. The type parameters are the decider's command, state and
// event types.
type Repository[C any, S any, E any] struct {
	decider      decider.Decider[C, S, E]
	store        EventStore
	streamOf     func(command C) eventstore.StreamID
	toStorable   func(event E) (eventstore.StorableEvent, error)
	fromStorable func(storable eventstore.StorableEvent) (E, error)
	reactions    decider.Saga[E, C]
}

// RepositoryOption configures a Repository.
type RepositoryOption[C any, S any, E any] func(*Repository[C, S, E])

// WithSaga lets the repository derive follow-up commands from appended
// events and handle them recursively within the same Handle invocation.
func WithSaga[C any, S any, E any](saga decider.Saga[E, C]) RepositoryOption[C, S, E] {
	return func(r *Repository[C, S, E]) {
		r.reactions = saga
	}
}

// NewRepository creates a Repository from a decider, an event store, a
// function resolving each command to its stream, and the codec pair that
// converts between domain events and their storable form.
func NewRepository[C any, S any, E any](
	dec decider.Decider[C, S, E],
	store EventStore,
	streamOf func(command C) eventstore.StreamID,
	toStorable func(event E) (eventstore.StorableEvent, error),
	fromStorable func(storable eventstore.StorableEvent) (E, error),
	options ...RepositoryOption[C, S, E],
) *Repository[C, S, E] {

	repo := &Repository[C, S, E]{
		decider:      dec,
		store:        store,
		streamOf:     streamOf,
		toStorable:   toStorable,
		fromStorable: fromStorable,
	}

	for _, option := range options {
		option(repo)
	}

	return repo
}

// Handle runs the full event-sourced cycle for one command.
//
// A decider.DomainError from the decide step aborts the cycle before
// anything is appended, so rejected commands leave the stream untouched.
// A concurrent writer surfaces as eventstore.ErrConcurrencyConflict; callers
// that want to retry reload implicitly by calling Handle again.
func (r *Repository[C, S, E]) Handle(ctx context.Context, command C) (Result[S, E], error) {
	return r.handle(ctx, command, 0)
}

// HandleAll runs the commands in order, each through the full cycle, so
// every command sees the events appended by the ones before it. The first
// failure stops the batch; the results of the commands handled so far are
// returned alongside the error.
func (r *Repository[C, S, E]) HandleAll(ctx context.Context, commands []C) ([]Result[S, E], error) {
	results := make([]Result[S, E], 0, len(commands))

	for _, command := range commands {
		result, err := r.handle(ctx, command, 0)
		if err != nil {
			return results, err
		}

		results = append(results, result)
	}

	return results, nil
}

func (r *Repository[C, S, E]) handle(ctx context.Context, command C, depth int) (Result[S, E], error) {
	var empty Result[S, E]

	if depth > maxSagaDepth {
		return empty, ErrSagaDepthExceeded
	}

	streamID := r.streamOf(command)
	if streamID == "" {
		return empty, ErrEmptyStreamForCommand
	}

	storables, currentVersion, loadErr := r.store.Load(ctx, streamID)
	if loadErr != nil {
		return empty, loadErr
	}

	history, decodeErr := r.decodeHistory(storables)
	if decodeErr != nil {
		return empty, decodeErr
	}

	state := r.decider.Fold(history)

	newEvents, decideErr := r.decider.Decide(command, state)
	if decideErr != nil {
		return empty, decideErr
	}

	result := Result[S, E]{
		StreamID:       streamID,
		NewVersion:     currentVersion,
		AppendedEvents: newEvents,
		State:          state,
	}

	if len(newEvents) == 0 {
		return result, nil
	}

	if appendErr := r.appendEvents(ctx, streamID, currentVersion, newEvents); appendErr != nil {
		return empty, appendErr
	}

	for _, event := range newEvents {
		result.State = r.decider.Evolve(result.State, event)
	}
	result.NewVersion = currentVersion + eventstore.SequenceNumberUint(len(newEvents))

	if r.reactions.React != nil {
		followUps, sagaErr := r.handleReactions(ctx, newEvents, depth)
		if sagaErr != nil {
			return empty, sagaErr
		}
		result.FollowUps = followUps
	}

	return result, nil
}

func (r *Repository[C, S, E]) decodeHistory(storables eventstore.StorableEvents) ([]E, error) {
	history := make([]E, 0, len(storables))

	for _, storable := range storables {
		event, err := r.fromStorable(storable)
		if err != nil {
			return nil, errors.Join(ErrEventDecoding, err)
		}

		history = append(history, event)
	}

	return history, nil
}

func (r *Repository[C, S, E]) appendEvents(
	ctx context.Context,
	streamID eventstore.StreamID,
	currentVersion eventstore.SequenceNumberUint,
	newEvents []E,
) error {

	storables := make(eventstore.StorableEvents, 0, len(newEvents))
	for _, event := range newEvents {
		storable, err := r.toStorable(event)
		if err != nil {
			return errors.Join(ErrEventEncoding, err)
		}

		storables = append(storables, storable)
	}

	return r.store.Append(ctx, streamID, currentVersion, storables[0], storables[1:]...)
}

func (r *Repository[C, S, E]) handleReactions(ctx context.Context, newEvents []E, depth int) ([]Result[S, E], error) {
	var followUps []Result[S, E]

	for _, event := range newEvents {
		for _, followUpCommand := range r.reactions.React(event) {
			followUpResult, err := r.handle(ctx, followUpCommand, depth+1)
			if err != nil {
				return nil, err
			}

			followUps = append(followUps, followUpResult)
		}
	}

	return followUps, nil
}
