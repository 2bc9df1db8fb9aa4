package eventstore

import (
	"errors"
)

// StreamID identifies one event stream, i.e. one aggregate's history.
type StreamID = string

// SequenceNumberUint is a type alias for uint, representing the position of
// an event within its stream. The version of a stream is the sequence number
// of its last event (0 for an empty stream).
type SequenceNumberUint = uint

var (
	// ErrConcurrencyConflict is returned by Append when the stream has been
	// advanced past the expected version by another writer. The conflict is
	// retryable: reload the stream and decide again.
	ErrConcurrencyConflict = errors.New("concurrency conflict, stream was advanced past the expected version")

	// ErrEmptyStreamIDSupplied is returned when an operation is invoked with
	// an empty stream identifier.
	ErrEmptyStreamIDSupplied = errors.New("empty streamID supplied")

	// ErrEmptyEventsTableName is returned when an engine is configured with
	// an empty events table name.
	ErrEmptyEventsTableName = errors.New("empty events table name supplied")

	// ErrNilDatabaseConnection is returned when an engine is constructed
	// from a nil database handle.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrBuildingQueryFailed is returned when SQL generation fails.
	ErrBuildingQueryFailed = errors.New("building the sql query failed")

	// ErrLoadingEventsFailed is returned when the select for a stream fails.
	ErrLoadingEventsFailed = errors.New("loading events failed")

	// ErrScanningDBRowFailed is returned when a result row cannot be scanned.
	ErrScanningDBRowFailed = errors.New("scanning database row failed")

	// ErrBuildingStorableEventFailed is returned when a database row does not
	// form a valid StorableEvent.
	ErrBuildingStorableEventFailed = errors.New("building storable event from database row failed")

	// ErrAppendingEventFailed is returned when the insert for a batch fails
	// for reasons other than a concurrency conflict.
	ErrAppendingEventFailed = errors.New("appending events failed")

	// ErrGettingRowsAffectedFailed is returned when the driver cannot report
	// the number of rows affected by the append.
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected count failed")
)
