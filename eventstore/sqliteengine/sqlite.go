package sqliteengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect import
	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/deciderkit/decider-eventstore-go/eventstore"
)

const (
	defaultEventTableName          = "events"
	logMsgBuildSelectQueryFailed   = "failed to build select query"
	logMsgDBQueryFailed            = "database query execution failed"
	logMsgCloseRowsFailed          = "failed to close database rows"
	logMsgScanRowFailed            = "failed to scan database row"
	logMsgBuildStorableEventFailed = "failed to build storable event from database row"
	logMsgBuildInsertQueryFailed   = "failed to build insert query"
	logMsgDBExecFailed             = "database execution failed during event append"
	logMsgRollbackFailed           = "failed to roll back append transaction"
	logMsgStreamLoaded             = "stream loaded"
	logMsgEventsAppended           = "events appended"
	logMsgConcurrencyConflict      = "concurrency conflict detected"
	logMsgSQLExecuted              = "executed sql for: "
	logMsgOperation                = "eventstore operation: "
	logAttrError                   = "error"
	logAttrQuery                   = "query"
	logAttrStreamID                = "stream_id"
	logAttrEventCount              = "event_count"
	logAttrDurationMS              = "duration_ms"
	logAttrExpectedVersion         = "expected_version"
	logAttrActualVersion           = "actual_version"
	logActionLoad                  = "load"
	logActionAppend                = "append"
	colStreamID                    = "stream_id"
	colSequenceNumber              = "sequence_number"
	colEventType                   = "event_type"
	colOccurredAt                  = "occurred_at"
	colPayload                     = "payload"
	colMetadata                    = "metadata"
	dialectSQLite                  = "sqlite3"
	occurredAtFormat               = time.RFC3339Nano
)

// EventStore is the SQLite engine for per-stream, append-only event
// persistence with optimistic concurrency.
type EventStore struct {
	db             *sql.DB
	eventTableName string
	logger         Logger
}

// NewEventStore creates a new EventStore using the given sql.DB, which must
// be opened with a SQLite driver, with optional configuration.
func NewEventStore(db *sql.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	es := EventStore{
		db:             db,
		eventTableName: defaultEventTableName,
	}

	for _, option := range options {
		if err := option(&es); err != nil {
			return EventStore{}, err
		}
	}

	return es, nil
}

// DDL returns the schema statement for an events table with the given name.
// The composite primary key on (stream_id, sequence_number) backs the
// optimistic concurrency check.
func DDL(tableName string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	stream_id       TEXT    NOT NULL,
	sequence_number INTEGER NOT NULL,
	event_type      TEXT    NOT NULL,
	occurred_at     TEXT    NOT NULL,
	payload         TEXT    NOT NULL,
	metadata        TEXT    NOT NULL,
	PRIMARY KEY (stream_id, sequence_number)
);`, tableName)
}

// Load retrieves the event stream for the given streamID in ascending
// sequence order, together with the stream's current version (0 for a
// stream with no events - an empty result is not an error).
func (es EventStore) Load(ctx context.Context, streamID eventstore.StreamID) (
	eventstore.StorableEvents,
	eventstore.SequenceNumberUint,
	error,
) {

	var empty eventstore.StorableEvents

	if streamID == "" {
		return empty, 0, eventstore.ErrEmptyStreamIDSupplied
	}

	sqlQuery, buildQueryErr := es.buildSelectQuery(streamID)
	if buildQueryErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgBuildSelectQueryFailed, logAttrError, buildQueryErr.Error())
		}
		return empty, 0, buildQueryErr
	}

	start := time.Now()
	rows, queryErr := es.db.QueryContext(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, logActionLoad, duration)

	if queryErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		}

		return empty, 0, errors.Join(eventstore.ErrLoadingEventsFailed, queryErr)
	}
	defer es.closeRows(rows)

	eventStream, currentVersion, scanErr := es.processQueryResults(rows)
	if scanErr != nil {
		return empty, 0, scanErr
	}

	es.logOperation(
		logMsgStreamLoaded,
		logAttrStreamID, streamID,
		logAttrEventCount, len(eventStream),
		logAttrDurationMS, es.durationToMilliseconds(duration))

	return eventStream, currentVersion, nil
}

func (es EventStore) closeRows(rows *sql.Rows) {
	if closeErr := rows.Close(); closeErr != nil {
		if es.logger != nil {
			es.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

func (es EventStore) processQueryResults(rows *sql.Rows) (
	eventstore.StorableEvents,
	eventstore.SequenceNumberUint,
	error,
) {

	var empty eventstore.StorableEvents
	eventStream := make(eventstore.StorableEvents, 0)
	currentVersion := eventstore.SequenceNumberUint(0)

	for rows.Next() {
		var (
			sequenceNumber uint
			eventType      string
			occurredAtText string
			payload        []byte
			metadata       []byte
		)

		rowScanErr := rows.Scan(&sequenceNumber, &eventType, &occurredAtText, &payload, &metadata)
		if rowScanErr != nil {
			if es.logger != nil {
				es.logger.Error(logMsgScanRowFailed, logAttrError, rowScanErr.Error())
			}

			return empty, 0, errors.Join(eventstore.ErrScanningDBRowFailed, rowScanErr)
		}

		occurredAt, parseErr := time.Parse(occurredAtFormat, occurredAtText)
		if parseErr != nil {
			if es.logger != nil {
				es.logger.Error(logMsgScanRowFailed, logAttrError, parseErr.Error())
			}

			return empty, 0, errors.Join(eventstore.ErrScanningDBRowFailed, parseErr)
		}

		event, buildStorableErr := eventstore.BuildStorableEvent(eventType, occurredAt, payload, metadata)
		if buildStorableErr != nil {
			if es.logger != nil {
				es.logger.Error(logMsgBuildStorableEventFailed, logAttrError, buildStorableErr.Error())
			}

			return empty, 0, errors.Join(eventstore.ErrBuildingStorableEventFailed, buildStorableErr)
		}

		eventStream = append(eventStream, event)
		currentVersion = eventstore.SequenceNumberUint(sequenceNumber)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return empty, 0, errors.Join(eventstore.ErrLoadingEventsFailed, rowsErr)
	}

	return eventStream, currentVersion, nil
}

// Append atomically appends one or multiple eventstore.StorableEvent(s) onto
// the stream identified by streamID, assigning the sequence numbers
// expectedVersion+1 .. expectedVersion+n.
//
// The append runs in a transaction that re-reads the stream's current
// version. If it no longer equals expectedVersion the transaction is rolled
// back and eventstore.ErrConcurrencyConflict is returned, persisting
// nothing.
func (es EventStore) Append(
	ctx context.Context,
	streamID eventstore.StreamID,
	expectedVersion eventstore.SequenceNumberUint,
	event eventstore.StorableEvent,
	additionalEvents ...eventstore.StorableEvent,
) error {

	if streamID == "" {
		return eventstore.ErrEmptyStreamIDSupplied
	}

	allEvents := eventstore.StorableEvents{event}
	allEvents = append(allEvents, additionalEvents...)

	start := time.Now()

	tx, beginErr := es.db.BeginTx(ctx, nil)
	if beginErr != nil {
		if isWriteConflict(beginErr) {
			return eventstore.ErrConcurrencyConflict
		}

		return errors.Join(eventstore.ErrAppendingEventFailed, beginErr)
	}

	appendErr := es.appendInTx(ctx, tx, streamID, expectedVersion, allEvents)
	if appendErr != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			if es.logger != nil {
				es.logger.Warn(logMsgRollbackFailed, logAttrError, rollbackErr.Error())
			}
		}

		return appendErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		// A writer that slipped in between our version check and the commit
		// surfaces as a unique violation on the primary key.
		if isWriteConflict(commitErr) {
			return eventstore.ErrConcurrencyConflict
		}

		return errors.Join(eventstore.ErrAppendingEventFailed, commitErr)
	}

	es.logOperation(
		logMsgEventsAppended,
		logAttrStreamID, streamID,
		logAttrEventCount, len(allEvents),
		logAttrDurationMS, es.durationToMilliseconds(time.Since(start)),
	)

	return nil
}

func (es EventStore) appendInTx(
	ctx context.Context,
	tx *sql.Tx,
	streamID eventstore.StreamID,
	expectedVersion eventstore.SequenceNumberUint,
	allEvents eventstore.StorableEvents,
) error {

	versionQuery, buildVersionErr := es.buildVersionQuery(streamID)
	if buildVersionErr != nil {
		return buildVersionErr
	}

	var currentVersion uint
	if scanErr := tx.QueryRowContext(ctx, versionQuery).Scan(&currentVersion); scanErr != nil {
		if isWriteConflict(scanErr) {
			return eventstore.ErrConcurrencyConflict
		}

		return errors.Join(eventstore.ErrAppendingEventFailed, scanErr)
	}

	if eventstore.SequenceNumberUint(currentVersion) != expectedVersion {
		es.logOperation(
			logMsgConcurrencyConflict,
			logAttrStreamID, streamID,
			logAttrExpectedVersion, expectedVersion,
			logAttrActualVersion, currentVersion,
		)

		return eventstore.ErrConcurrencyConflict
	}

	insertQuery, buildInsertErr := es.buildInsertQuery(streamID, expectedVersion, allEvents)
	if buildInsertErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgBuildInsertQueryFailed, logAttrError, buildInsertErr.Error(), logAttrEventCount, len(allEvents))
		}

		return buildInsertErr
	}

	start := time.Now()
	_, execErr := tx.ExecContext(ctx, insertQuery)
	es.logQueryWithDuration(insertQuery, logActionAppend, time.Since(start))

	if execErr != nil {
		if isWriteConflict(execErr) {
			es.logOperation(
				logMsgConcurrencyConflict,
				logAttrStreamID, streamID,
				logAttrExpectedVersion, expectedVersion,
			)

			return eventstore.ErrConcurrencyConflict
		}

		if es.logger != nil {
			es.logger.Error(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, insertQuery)
		}

		return errors.Join(eventstore.ErrAppendingEventFailed, execErr)
	}

	return nil
}

func (es EventStore) buildSelectQuery(streamID eventstore.StreamID) (string, error) {
	selectStmt := goqu.Dialect(dialectSQLite).
		From(es.eventTableName).
		Select(colSequenceNumber, colEventType, colOccurredAt, colPayload, colMetadata).
		Where(goqu.Ex{colStreamID: streamID}).
		Order(goqu.I(colSequenceNumber).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es EventStore) buildVersionQuery(streamID eventstore.StreamID) (string, error) {
	versionStmt := goqu.Dialect(dialectSQLite).
		From(es.eventTableName).
		Select(goqu.COALESCE(goqu.MAX(colSequenceNumber), 0)).
		Where(goqu.Ex{colStreamID: streamID})

	sqlQuery, _, toSQLErr := versionStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es EventStore) buildInsertQuery(
	streamID eventstore.StreamID,
	expectedVersion eventstore.SequenceNumberUint,
	allEvents eventstore.StorableEvents,
) (string, error) {

	records := make([]goqu.Record, len(allEvents))
	for i, evt := range allEvents {
		records[i] = goqu.Record{
			colStreamID:       streamID,
			colSequenceNumber: uint(expectedVersion) + uint(i) + 1,
			colEventType:      evt.EventType,
			colOccurredAt:     evt.OccurredAt.Format(occurredAtFormat),
			colPayload:        string(evt.PayloadJSON),
			colMetadata:       string(evt.MetadataJSON),
		}
	}

	insertStmt := goqu.Dialect(dialectSQLite).
		Insert(es.eventTableName).
		Rows(records)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// isWriteConflict detects the driver errors that mean a concurrent writer
// won the race. A duplicate sequence number trips the primary key, and a
// writer whose deferred transaction cannot upgrade its read snapshot to a
// write lock gets SQLITE_BUSY / SQLITE_BUSY_SNAPSHOT rather than a
// constraint violation. Both are retryable conflicts, not storage failures.
func isWriteConflict(err error) bool {
	var sqliteErr *sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE,
		sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY,
		sqlite3lib.SQLITE_BUSY,
		sqlite3lib.SQLITE_BUSY_SNAPSHOT,
		sqlite3lib.SQLITE_LOCKED:
		return true
	}

	return false
}

func (es EventStore) logQueryWithDuration(sqlQuery string, action string, duration time.Duration) {
	if es.logger != nil {
		es.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, es.durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

func (es EventStore) logOperation(action string, args ...any) {
	if es.logger != nil {
		es.logger.Info(logMsgOperation+action, args...)
	}
}

func (es EventStore) durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
