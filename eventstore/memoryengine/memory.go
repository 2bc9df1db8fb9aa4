package memoryengine

import (
	"context"
	"sync"

	"github.com/deciderkit/decider-eventstore-go/eventstore"
)

// EventStore is an in-memory engine for per-stream, append-only event
// persistence with optimistic concurrency. It is safe for concurrent use.
type EventStore struct {
	mu      sync.Mutex
	streams map[eventstore.StreamID]eventstore.StorableEvents
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		streams: make(map[eventstore.StreamID]eventstore.StorableEvents),
	}
}

// Load retrieves the event stream for the given streamID in ascending
// sequence order, together with the stream's current version (0 for a
// stream with no events).
func (es *EventStore) Load(_ context.Context, streamID eventstore.StreamID) (
	eventstore.StorableEvents,
	eventstore.SequenceNumberUint,
	error,
) {

	if streamID == "" {
		return nil, 0, eventstore.ErrEmptyStreamIDSupplied
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	stored := es.streams[streamID]

	// copy so callers cannot mutate the store through the returned slice,
	// including the payload and metadata backing arrays
	events := make(eventstore.StorableEvents, len(stored))
	for i, event := range stored {
		events[i] = cloneStorableEvent(event)
	}

	return events, eventstore.SequenceNumberUint(len(stored)), nil
}

// Append atomically appends one or multiple eventstore.StorableEvent(s) onto
// the stream identified by streamID. If the stream's current version does
// not equal expectedVersion the append fails with
// eventstore.ErrConcurrencyConflict and nothing is stored.
func (es *EventStore) Append(
	_ context.Context,
	streamID eventstore.StreamID,
	expectedVersion eventstore.SequenceNumberUint,
	event eventstore.StorableEvent,
	additionalEvents ...eventstore.StorableEvent,
) error {

	if streamID == "" {
		return eventstore.ErrEmptyStreamIDSupplied
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	currentVersion := eventstore.SequenceNumberUint(len(es.streams[streamID]))
	if currentVersion != expectedVersion {
		return eventstore.ErrConcurrencyConflict
	}

	es.streams[streamID] = append(es.streams[streamID], cloneStorableEvent(event))
	for _, additionalEvent := range additionalEvents {
		es.streams[streamID] = append(es.streams[streamID], cloneStorableEvent(additionalEvent))
	}

	return nil
}

// cloneStorableEvent copies an event including its byte slices, so neither
// side can mutate the other's history through shared backing arrays.
func cloneStorableEvent(event eventstore.StorableEvent) eventstore.StorableEvent {
	clone := event
	clone.PayloadJSON = append([]byte(nil), event.PayloadJSON...)
	clone.MetadataJSON = append([]byte(nil), event.MetadataJSON...)

	return clone
}
