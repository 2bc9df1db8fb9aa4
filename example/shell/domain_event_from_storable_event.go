package shell

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/deciderkit/decider-eventstore-go/eventstore"
	"github.com/deciderkit/decider-eventstore-go/example/core"
)

// ErrUnknownEventType indicates a stored event carries an event type this
// domain does not know.
var ErrUnknownEventType = errors.New("unknown event type")

// DomainEventFrom converts a storable event back into its concrete domain
// event, dispatching on the stored event type.
func DomainEventFrom(storable eventstore.StorableEvent) (core.Event, error) {
	switch storable.EventType {
	case core.EventTypeRestaurantCreated:
		var event core.RestaurantCreated
		if err := jsoniter.ConfigFastest.Unmarshal(storable.PayloadJSON, &event); err != nil {
			return nil, err
		}
		return event, nil

	case core.EventTypeRestaurantMenuChanged:
		var event core.RestaurantMenuChanged
		if err := jsoniter.ConfigFastest.Unmarshal(storable.PayloadJSON, &event); err != nil {
			return nil, err
		}
		return event, nil

	case core.EventTypeOrderPlaced:
		var event core.OrderPlaced
		if err := jsoniter.ConfigFastest.Unmarshal(storable.PayloadJSON, &event); err != nil {
			return nil, err
		}
		return event, nil

	case core.EventTypeOrderCreated:
		var event core.OrderCreated
		if err := jsoniter.ConfigFastest.Unmarshal(storable.PayloadJSON, &event); err != nil {
			return nil, err
		}
		return event, nil

	case core.EventTypeOrderPrepared:
		var event core.OrderPrepared
		if err := jsoniter.ConfigFastest.Unmarshal(storable.PayloadJSON, &event); err != nil {
			return nil, err
		}
		return event, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, storable.EventType)
	}
}
