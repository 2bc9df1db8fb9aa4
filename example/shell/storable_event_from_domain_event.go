package shell

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/deciderkit/decider-eventstore-go/eventstore"
	"github.com/deciderkit/decider-eventstore-go/example/core"
)

// EventMetadata travels alongside every stored event.
type EventMetadata struct {
	MessageID     string `json:"messageId"`
	CorrelationID string `json:"correlationId"`
}

// StorableEventFrom converts a domain event into its storable form with
// fresh metadata. The event type string doubles as the discriminant used by
// DomainEventFrom when reading the event back.
func StorableEventFrom(event core.Event) (eventstore.StorableEvent, error) {
	return StorableEventWithMetadataFrom(event, EventMetadata{
		MessageID:     uuid.NewString(),
		CorrelationID: uuid.NewString(),
	})
}

// StorableEventWithMetadataFrom converts a domain event into its storable
// form with the supplied metadata.
func StorableEventWithMetadataFrom(event core.Event, metadata EventMetadata) (eventstore.StorableEvent, error) {
	payloadJSON, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		return eventstore.StorableEvent{}, marshalErr
	}

	metadataJSON, marshalErr := json.Marshal(metadata)
	if marshalErr != nil {
		return eventstore.StorableEvent{}, marshalErr
	}

	return eventstore.BuildStorableEvent(event.EventType(), time.Now(), payloadJSON, metadataJSON)
}
