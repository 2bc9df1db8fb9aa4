package sqliteengine

import "github.com/deciderkit/decider-eventstore-go/eventstore"

// Logger defines the interface for logging within the event store.
// This interface is satisfied by *slog.Logger from the standard library,
// as well as any other logger that implements structured logging
// with variadic key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option defines a functional option for configuring the EventStore.
type Option func(*EventStore) error

// WithTableName sets a custom table name for the event store.
func WithTableName(tableName string) Option {
	return func(es *EventStore) error {
		if tableName == "" {
			return eventstore.ErrEmptyEventsTableName
		}

		es.eventTableName = tableName

		return nil
	}
}

// WithLogger sets a logger for the event store.
func WithLogger(logger Logger) Option {
	return func(es *EventStore) error {
		es.logger = logger

		return nil
	}
}
