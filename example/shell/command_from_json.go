package shell

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/deciderkit/decider-eventstore-go/example/core"
)

// ErrUnknownCommandType indicates a command payload carried a type this
// domain does not know.
var ErrUnknownCommandType = errors.New("unknown command type")

// commandEnvelope carries the routing discriminant of an internally tagged
// command payload.
type commandEnvelope struct {
	Type string `json:"type"`
}

// CommandFromJSON decodes an internally tagged command payload into its
// concrete domain command. The payload carries its discriminant in the
// "type" field next to the command's own fields.
func CommandFromJSON(payload []byte) (core.Command, error) {
	var envelope commandEnvelope
	if err := jsoniter.ConfigFastest.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}

	switch envelope.Type {
	case core.CommandTypeCreateRestaurant:
		var command core.CreateRestaurant
		if err := jsoniter.ConfigFastest.Unmarshal(payload, &command); err != nil {
			return nil, err
		}
		return command, nil

	case core.CommandTypeChangeRestaurantMenu:
		var command core.ChangeRestaurantMenu
		if err := jsoniter.ConfigFastest.Unmarshal(payload, &command); err != nil {
			return nil, err
		}
		return command, nil

	case core.CommandTypePlaceOrder:
		var command core.PlaceOrder
		if err := jsoniter.ConfigFastest.Unmarshal(payload, &command); err != nil {
			return nil, err
		}
		return command, nil

	case core.CommandTypeCreateOrder:
		var command core.CreateOrder
		if err := jsoniter.ConfigFastest.Unmarshal(payload, &command); err != nil {
			return nil, err
		}
		return command, nil

	case core.CommandTypeMarkOrderAsPrepared:
		var command core.MarkOrderAsPrepared
		if err := jsoniter.ConfigFastest.Unmarshal(payload, &command); err != nil {
			return nil, err
		}
		return command, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommandType, envelope.Type)
	}
}
