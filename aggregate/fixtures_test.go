package aggregate_test

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/deciderkit/decider-eventstore-go/aggregate"
	"github.com/deciderkit/decider-eventstore-go/decider"
	"github.com/deciderkit/decider-eventstore-go/eventstore"
)

// The fixture domain is a wallet with a balance cap. It is intentionally
// small but state-sensitive, so the tests can verify that history is folded
// before deciding.

const (
	walletBalanceCap = 100

	commandDeposit  = "Deposit"
	commandWithdraw = "Withdraw"

	eventDeposited = "AmountDeposited"
	eventWithdrawn = "AmountWithdrawn"
)

type walletCommand struct {
	Kind     string `json:"kind"`
	WalletID string `json:"walletId"`
	Amount   int    `json:"amount"`
}

type walletEvent struct {
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

func walletDecider() decider.Decider[walletCommand, int, walletEvent] {
	return decider.Decider[walletCommand, int, walletEvent]{
		Decide: func(command walletCommand, balance int) ([]walletEvent, error) {
			switch command.Kind {
			case commandDeposit:
				if balance+command.Amount > walletBalanceCap {
					return nil, decider.NewDomainError("deposit exceeds the balance cap")
				}

				return []walletEvent{{Type: eventDeposited, Amount: command.Amount}}, nil

			case commandWithdraw:
				if command.Amount > balance {
					return nil, decider.NewDomainError("withdrawal exceeds the balance")
				}

				return []walletEvent{{Type: eventWithdrawn, Amount: command.Amount}}, nil

			default:
				return nil, decider.NewDomainError("unknown wallet command")
			}
		},
		Evolve: func(balance int, event walletEvent) int {
			switch event.Type {
			case eventDeposited:
				return balance + event.Amount
			case eventWithdrawn:
				return balance - event.Amount
			default:
				return balance
			}
		},
		Initial: func() int {
			return 0
		},
	}
}

func walletStreamOf(command walletCommand) eventstore.StreamID {
	if command.WalletID == "" {
		return ""
	}

	return "wallet-" + command.WalletID
}

func walletEventToStorable(event walletEvent) (eventstore.StorableEvent, error) {
	payload, err := jsoniter.ConfigFastest.Marshal(event)
	if err != nil {
		return eventstore.StorableEvent{}, err
	}

	return eventstore.BuildStorableEventWithEmptyMetadata(event.Type, time.Now(), payload)
}

func walletEventFromStorable(storable eventstore.StorableEvent) (walletEvent, error) {
	var event walletEvent
	if err := jsoniter.ConfigFastest.Unmarshal(storable.PayloadJSON, &event); err != nil {
		return walletEvent{}, err
	}

	if event.Type != eventDeposited && event.Type != eventWithdrawn {
		return walletEvent{}, fmt.Errorf("unknown wallet event type: %s", storable.EventType)
	}

	return event, nil
}

func walletCommandFromJSON(payload []byte) (walletCommand, error) {
	var command walletCommand
	if err := jsoniter.ConfigFastest.Unmarshal(payload, &command); err != nil {
		return walletCommand{}, err
	}

	if command.Kind == "" {
		return walletCommand{}, fmt.Errorf("command payload is missing the kind field")
	}

	return command, nil
}

func walletEventType(event walletEvent) string {
	return event.Type
}

func newWalletRepository(
	store aggregate.EventStore,
	options ...aggregate.RepositoryOption[walletCommand, int, walletEvent],
) *aggregate.Repository[walletCommand, int, walletEvent] {

	return aggregate.NewRepository(
		walletDecider(),
		store,
		walletStreamOf,
		walletEventToStorable,
		walletEventFromStorable,
		options...,
	)
}

// conflictingStore wraps an EventStore and simulates a concurrent writer: it
// appends a competing event to the loaded stream right after the first Load,
// so the caller's expected version is stale by the time it appends.
type conflictingStore struct {
	inner     aggregate.EventStore
	triggered bool
}

func (cs *conflictingStore) Load(
	ctx context.Context,
	streamID eventstore.StreamID,
) (eventstore.StorableEvents, eventstore.SequenceNumberUint, error) {

	events, version, err := cs.inner.Load(ctx, streamID)
	if err != nil {
		return nil, 0, err
	}

	if !cs.triggered {
		cs.triggered = true

		competing, buildErr := walletEventToStorable(walletEvent{Type: eventDeposited, Amount: 1})
		if buildErr != nil {
			return nil, 0, buildErr
		}

		if appendErr := cs.inner.Append(ctx, streamID, version, competing); appendErr != nil {
			return nil, 0, appendErr
		}
	}

	return events, version, nil
}

func (cs *conflictingStore) Append(
	ctx context.Context,
	streamID eventstore.StreamID,
	expectedVersion eventstore.SequenceNumberUint,
	event eventstore.StorableEvent,
	additionalEvents ...eventstore.StorableEvent,
) error {

	return cs.inner.Append(ctx, streamID, expectedVersion, event, additionalEvents...)
}
