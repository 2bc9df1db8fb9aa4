package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/deciderkit/decider-eventstore-go/eventstore"
	"github.com/deciderkit/decider-eventstore-go/eventstore/postgresengine/internal/adapters"
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
	logMsgRowsAffectedFailed       = "failed to get rows affected count"
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
	logAttrExpectedEvents          = "expected_events"
	logAttrRowsAffected            = "rows_affected"
	logAttrExpectedVersion         = "expected_version"
	logActionLoad                  = "load"
	logActionAppend                = "append"
	colStreamID                    = "stream_id"
	colSequenceNumber              = "sequence_number"
	colEventType                   = "event_type"
	colOccurredAt                  = "occurred_at"
	colPayload                     = "payload"
	colMetadata                    = "metadata"
	cteContext                     = "context"
	cteVals                        = "vals"
	colSeqOffset                   = "seq_offset"
	dialectPostgres                = "postgres"
	aliasMaxSeq                    = "max_seq"
	castText                       = "?::text"
	castBigint                     = "?::bigint"
	castTimestamp                  = "?::timestamp with time zone"
	castJsonb                      = "?::jsonb"
	exprNextSequenceNumber         = "COALESCE(max_seq, 0) + 1"
	exprOffsetSequenceNumber       = "COALESCE(max_seq, 0) + vals.seq_offset"
	pgCodeUniqueViolation          = "23505"
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
	queryDuration     = time.Duration
)

// EventStore is the PostgreSQL engine for per-stream, append-only event
// persistence with optimistic concurrency. It leverages a database adapter
// and supports customizable logging and event table configuration.
type EventStore struct {
	db             adapters.DBAdapter
	eventTableName string
	logger         Logger
}

type queryResultRow struct {
	sequenceNumber eventstore.SequenceNumberUint
	eventType      string
	occurredAt     time.Time
	payload        []byte
	metadata       []byte
}

// NewEventStoreFromPGXPool creates a new EventStore using a pgx Pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return applyOptions(EventStore{
		db:             adapters.NewPGXAdapter(db),
		eventTableName: defaultEventTableName,
	}, options)
}

// NewEventStoreFromSQLDB creates a new EventStore using a sql.DB with optional configuration.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return applyOptions(EventStore{
		db:             adapters.NewSQLAdapter(db),
		eventTableName: defaultEventTableName,
	}, options)
}

// NewEventStoreFromSQLX creates a new EventStore using a sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return applyOptions(EventStore{
		db:             adapters.NewSQLXAdapter(db),
		eventTableName: defaultEventTableName,
	}, options)
}

func applyOptions(es EventStore, options []Option) (EventStore, error) {
	for _, option := range options {
		if err := option(&es); err != nil {
			return EventStore{}, err
		}
	}

	return es, nil
}

// DDL returns the schema statements for an events table with the given name:
// the table itself with a composite primary key on (stream_id,
// sequence_number), which doubles as the uniqueness constraint backing the
// optimistic concurrency check.
func DDL(tableName string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	stream_id       TEXT                     NOT NULL,
	sequence_number BIGINT                   NOT NULL,
	event_type      TEXT                     NOT NULL,
	occurred_at     TIMESTAMP WITH TIME ZONE NOT NULL,
	payload         JSONB                    NOT NULL,
	metadata        JSONB                    NOT NULL,
	PRIMARY KEY (stream_id, sequence_number)
);`, tableName)
}

// Load retrieves the event stream for the given streamID in ascending
// sequence order, together with the stream's current version, i.e. the
// highest sequence number (0 for a stream with no events - an empty result
// is not an error).
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

	rows, duration, queryErr := es.executeQuery(ctx, sqlQuery)
	if queryErr != nil {
		return empty, 0, queryErr
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

// executeQuery executes the SQL query and returns rows with timing information.
func (es EventStore) executeQuery(ctx context.Context, sqlQuery string) (
	adapters.DBRows,
	time.Duration,
	error,
) {

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, logActionLoad, duration)

	if queryErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		}

		return nil, duration, errors.Join(eventstore.ErrLoadingEventsFailed, queryErr)
	}

	return rows, duration, nil
}

// closeRows safely closes database rows and logs any errors.
func (es EventStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if es.logger != nil {
			es.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// processQueryResults converts database rows to storable events and tracks
// the highest sequence number seen, which is the stream's current version
// because rows are ordered ascending.
func (es EventStore) processQueryResults(rows adapters.DBRows) (
	eventstore.StorableEvents,
	eventstore.SequenceNumberUint,
	error,
) {

	var empty eventstore.StorableEvents
	result := queryResultRow{}
	eventStream := make(eventstore.StorableEvents, 0)
	currentVersion := eventstore.SequenceNumberUint(0)

	for rows.Next() {
		rowScanErr := rows.Scan(&result.sequenceNumber, &result.eventType, &result.occurredAt, &result.payload, &result.metadata)
		if rowScanErr != nil {
			if es.logger != nil {
				es.logger.Error(logMsgScanRowFailed, logAttrError, rowScanErr.Error())
			}

			return empty, 0, errors.Join(eventstore.ErrScanningDBRowFailed, rowScanErr)
		}

		event, buildStorableErr := eventstore.BuildStorableEvent(result.eventType, result.occurredAt, result.payload, result.metadata)
		if buildStorableErr != nil {
			if es.logger != nil {
				es.logger.Error(logMsgBuildStorableEventFailed, logAttrError, buildStorableErr.Error(), logAttrQuery, result.eventType)
			}

			return empty, 0, errors.Join(eventstore.ErrBuildingStorableEventFailed, buildStorableErr)
		}

		eventStream = append(eventStream, event)
		currentVersion = result.sequenceNumber
	}

	return eventStream, currentVersion, nil
}

// Append atomically appends one or multiple eventstore.StorableEvent(s) onto
// the stream identified by streamID, assigning the sequence numbers
// expectedVersion+1 .. expectedVersion+n.
//
// expectedVersion must be the version observed when the stream was loaded.
// If another writer has advanced the stream in the meantime, the append
// fails with eventstore.ErrConcurrencyConflict and persists nothing - the
// whole batch is all-or-nothing.
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

	sqlQuery, buildQueryErr := es.buildAppendQuery(streamID, allEvents, expectedVersion)
	if buildQueryErr != nil {
		return buildQueryErr
	}

	rowsAffected, duration, execErr := es.executeAppendQuery(ctx, sqlQuery, streamID, expectedVersion)
	if execErr != nil {
		return execErr
	}

	if err := es.validateAppendResult(rowsAffected, len(allEvents), streamID, expectedVersion); err != nil {
		return err
	}

	es.logOperation(
		logMsgEventsAppended,
		logAttrStreamID, streamID,
		logAttrEventCount, len(allEvents),
		logAttrDurationMS, es.durationToMilliseconds(duration),
	)

	return nil
}

// buildAppendQuery builds the appropriate SQL query for single or multiple events.
func (es EventStore) buildAppendQuery(
	streamID eventstore.StreamID,
	allEvents eventstore.StorableEvents,
	expectedVersion eventstore.SequenceNumberUint,
) (sqlQueryString, error) {

	var sqlQuery sqlQueryString
	var buildQueryErr error

	switch len(allEvents) {
	case 1:
		sqlQuery, buildQueryErr = es.buildInsertQueryForSingleEvent(streamID, allEvents[0], expectedVersion)

	default:
		sqlQuery, buildQueryErr = es.buildInsertQueryForMultipleEvents(streamID, allEvents, expectedVersion)
	}

	if buildQueryErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgBuildInsertQueryFailed, logAttrError, buildQueryErr.Error(), logAttrEventCount, len(allEvents))
		}

		return "", buildQueryErr
	}

	return sqlQuery, nil
}

// executeAppendQuery executes the SQL append query and returns rows affected and duration.
func (es EventStore) executeAppendQuery(
	ctx context.Context,
	sqlQuery string,
	streamID eventstore.StreamID,
	expectedVersion eventstore.SequenceNumberUint,
) (
	rowsAffectedInt64,
	queryDuration,
	error,
) {

	start := time.Now()
	result, execErr := es.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, logActionAppend, duration)

	if execErr != nil {
		// Two writers may both pass the version guard inside their own
		// snapshots; the primary key on (stream_id, sequence_number) then
		// rejects the loser.
		if isUniqueViolation(execErr) {
			es.logOperation(
				logMsgConcurrencyConflict,
				logAttrStreamID, streamID,
				logAttrExpectedVersion, expectedVersion,
			)

			return 0, duration, eventstore.ErrConcurrencyConflict
		}

		if es.logger != nil {
			es.logger.Error(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		}

		return 0, duration, errors.Join(eventstore.ErrAppendingEventFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgRowsAffectedFailed, logAttrError, rowsAffectedErr.Error())
		}

		return 0, duration, errors.Join(eventstore.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, duration, nil
}

// validateAppendResult checks if the append operation was successful and detects concurrency conflicts.
func (es EventStore) validateAppendResult(
	rowsAffected int64,
	expectedEventCount int,
	streamID eventstore.StreamID,
	expectedVersion eventstore.SequenceNumberUint,
) error {

	if rowsAffected < int64(expectedEventCount) {
		es.logOperation(
			logMsgConcurrencyConflict,
			logAttrStreamID, streamID,
			logAttrExpectedEvents, expectedEventCount,
			logAttrRowsAffected, rowsAffected,
			logAttrExpectedVersion, expectedVersion,
		)

		return eventstore.ErrConcurrencyConflict
	}

	return nil
}

func (es EventStore) buildSelectQuery(streamID eventstore.StreamID) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
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

// buildInsertQueryForSingleEvent builds a guarded insert: the new event gets
// the next sequence number, and the insert only happens while the stream's
// highest sequence number still equals the expected version.
func (es EventStore) buildInsertQueryForSingleEvent(
	streamID eventstore.StreamID,
	event eventstore.StorableEvent,
	expectedVersion eventstore.SequenceNumberUint,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectPostgres)

	// Define the subquery for the CTE
	cteStmt := builder.
		From(es.eventTableName).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq)).
		Where(goqu.Ex{colStreamID: streamID})

	// Define the SELECT for the INSERT
	selectStmt := builder.
		From(cteContext).
		Select(
			goqu.V(streamID),
			goqu.L(exprNextSequenceNumber),
			goqu.V(event.EventType),
			goqu.V(event.OccurredAt),
			goqu.V(event.PayloadJSON),
			goqu.V(event.MetadataJSON),
		).
		Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedVersion)))

	// Finalize the full INSERT query
	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(colStreamID, colSequenceNumber, colEventType, colOccurredAt, colPayload, colMetadata).
		FromQuery(selectStmt).
		With(cteContext, cteStmt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgBuildInsertQueryFailed, logAttrError, toSQLErr.Error(), logAttrStreamID, streamID)
		}
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// buildInsertQueryForMultipleEvents builds the guarded insert for a whole
// batch: each event carries its 1-based offset so the batch receives
// contiguous sequence numbers, all under the same version guard.
func (es EventStore) buildInsertQueryForMultipleEvents(
	streamID eventstore.StreamID,
	events eventstore.StorableEvents,
	expectedVersion eventstore.SequenceNumberUint,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectPostgres)

	// Define the subquery for the CTE
	cteStmt := builder.
		From(es.eventTableName).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq)).
		Where(goqu.Ex{colStreamID: streamID})

	// Create individual SELECT statements for each event
	unionStatements := make([]*goqu.SelectDataset, len(events))
	for i, event := range events {
		unionStatements[i] = builder.
			Select(
				goqu.L(castBigint, i+1).As(colSeqOffset),
				goqu.L(castText, event.EventType).As(colEventType),
				goqu.L(castTimestamp, event.OccurredAt).As(colOccurredAt),
				goqu.L(castJsonb, event.PayloadJSON).As(colPayload),
				goqu.L(castJsonb, event.MetadataJSON).As(colMetadata),
			)
	}

	// Combine all SELECT statements with UNION ALL
	valuesStmt := unionStatements[0]
	for i := 1; i < len(unionStatements); i++ {
		valuesStmt = valuesStmt.UnionAll(unionStatements[i])
	}

	// Finalize the full INSERT query
	valsEventType := fmt.Sprintf("%s.%s", cteVals, colEventType)
	valsOccurredAt := fmt.Sprintf("%s.%s", cteVals, colOccurredAt)
	valsPayload := fmt.Sprintf("%s.%s", cteVals, colPayload)
	valsMetadata := fmt.Sprintf("%s.%s", cteVals, colMetadata)

	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(colStreamID, colSequenceNumber, colEventType, colOccurredAt, colPayload, colMetadata).
		With(cteContext, cteStmt).
		With(cteVals, valuesStmt.Order(goqu.I(colSeqOffset).Asc())).
		FromQuery(
			builder.From(cteContext, cteVals).
				Select(
					goqu.V(streamID),
					goqu.L(exprOffsetSequenceNumber),
					valsEventType,
					valsOccurredAt,
					valsPayload,
					valsMetadata,
				).
				Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedVersion))),
		)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgBuildInsertQueryFailed, logAttrError, toSQLErr.Error(), logAttrEventCount, len(events))
		}
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// isUniqueViolation detects a unique constraint violation for both supported
// driver families (pgx and lib/pq).
func isUniqueViolation(err error) bool {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgCodeUniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgCodeUniqueViolation
	}

	return false
}

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (es EventStore) logQueryWithDuration(
	sqlQuery string,
	action string,
	duration time.Duration,
) {

	if es.logger != nil {
		es.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, es.durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (es EventStore) logOperation(action string, args ...any) {
	if es.logger != nil {
		es.logger.Info(logMsgOperation+action, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (es EventStore) durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
