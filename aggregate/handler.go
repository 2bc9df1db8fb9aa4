package aggregate

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/deciderkit/decider-eventstore-go/decider"
	"github.com/deciderkit/decider-eventstore-go/eventstore"
)

// ErrCommandDecoding indicates a command payload could not be decoded.
var ErrCommandDecoding = errors.New("failed to decode command payload")

// OutcomeCode classifies the result of handling a command.
type OutcomeCode = string

const (
	// OutcomeOK means the command was accepted and its events, if any, were appended.
	OutcomeOK OutcomeCode = "ok"

	// OutcomeDomainError means the decider rejected the command; the stream is unchanged.
	OutcomeDomainError OutcomeCode = "domain_error"

	// OutcomeConcurrencyConflict means another writer advanced the stream first.
	OutcomeConcurrencyConflict OutcomeCode = "concurrency_conflict"

	// OutcomeDecodingError means the command payload or a stored event could not be decoded.
	OutcomeDecodingError OutcomeCode = "decoding_error"

	// OutcomeStorageError means the event store failed for a reason other than a conflict.
	OutcomeStorageError OutcomeCode = "storage_error"
)

// Outcome is the uniform result of handling one command, regardless of which
// layer failed. On success, NewVersion is the stream's version after the
// append and AppendedEvents names the appended event types in order; on
// failure, Reason carries the error message.
type Outcome struct {
	Code           OutcomeCode                   `json:"code"`
	StreamID       eventstore.StreamID           `json:"streamId,omitempty"`
	NewVersion     eventstore.SequenceNumberUint `json:"newVersion,omitempty"`
	AppendedEvents []string                      `json:"appendedEvents,omitempty"`
	Reason         string                        `json:"reason,omitempty"`
}

// Handler turns raw command payloads into classified outcomes. It pairs a
// Repository with a command decoder and a function naming each event's type
// for reporting.
type Handler[C any, S any, E any] struct {
	repository    *Repository[C, S, E]
	decodeCommand func(payload []byte) (C, error)
	eventTypeOf   func(event E) string
}

// NewHandler creates a Handler for the given repository.
func NewHandler[C any, S any, E any](
	repository *Repository[C, S, E],
	decodeCommand func(payload []byte) (C, error),
	eventTypeOf func(event E) string,
) *Handler[C, S, E] {

	return &Handler[C, S, E]{
		repository:    repository,
		decodeCommand: decodeCommand,
		eventTypeOf:   eventTypeOf,
	}
}

// HandleJSON decodes a command payload and handles the command. A payload
// that cannot be decoded yields an OutcomeDecodingError without touching the
// store.
func (h *Handler[C, S, E]) HandleJSON(ctx context.Context, payload []byte) Outcome {
	command, decodeErr := h.decodeCommand(payload)
	if decodeErr != nil {
		return Outcome{
			Code:   OutcomeDecodingError,
			Reason: errors.Join(ErrCommandDecoding, decodeErr).Error(),
		}
	}

	return h.HandleCommand(ctx, command)
}

// HandleAllJSON decodes a JSON array of command payloads and handles them in
// order, so every command sees the events appended by the ones before it.
// The first non-ok outcome stops the batch and is returned as its last
// element. A payload that is not a JSON array yields a single
// OutcomeDecodingError without touching the store.
func (h *Handler[C, S, E]) HandleAllJSON(ctx context.Context, payload []byte) []Outcome {
	var rawCommands []jsoniter.RawMessage
	if decodeErr := jsoniter.ConfigFastest.Unmarshal(payload, &rawCommands); decodeErr != nil {
		return []Outcome{{
			Code:   OutcomeDecodingError,
			Reason: errors.Join(ErrCommandDecoding, decodeErr).Error(),
		}}
	}

	outcomes := make([]Outcome, 0, len(rawCommands))

	for _, rawCommand := range rawCommands {
		outcome := h.HandleJSON(ctx, rawCommand)
		outcomes = append(outcomes, outcome)

		if outcome.Code != OutcomeOK {
			break
		}
	}

	return outcomes
}

// HandleCommand handles an already decoded command and classifies the result.
func (h *Handler[C, S, E]) HandleCommand(ctx context.Context, command C) Outcome {
	result, err := h.repository.Handle(ctx, command)
	if err != nil {
		return h.classify(err)
	}

	eventTypes := make([]string, 0, len(result.AppendedEvents))
	for _, event := range result.AppendedEvents {
		eventTypes = append(eventTypes, h.eventTypeOf(event))
	}

	return Outcome{
		Code:           OutcomeOK,
		StreamID:       result.StreamID,
		NewVersion:     result.NewVersion,
		AppendedEvents: eventTypes,
	}
}

func (h *Handler[C, S, E]) classify(err error) Outcome {
	switch {
	case decider.IsDomainError(err):
		return Outcome{Code: OutcomeDomainError, Reason: err.Error()}

	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		return Outcome{Code: OutcomeConcurrencyConflict, Reason: err.Error()}

	case errors.Is(err, ErrEventDecoding), errors.Is(err, ErrCommandDecoding):
		return Outcome{Code: OutcomeDecodingError, Reason: err.Error()}

	default:
		return Outcome{Code: OutcomeStorageError, Reason: err.Error()}
	}
}
