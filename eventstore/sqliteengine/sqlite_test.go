package sqliteengine_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // driver import

	"github.com/deciderkit/decider-eventstore-go/eventstore"
	"github.com/deciderkit/decider-eventstore-go/eventstore/sqliteengine"
)

// openTestStore creates a fresh file-based database per test. A file
// database instead of :memory: keeps all pooled connections on the same
// data. Transactions take the write lock up front so concurrent writers
// serialize and losers observe a stale version.
func openTestStore(t *testing.T) sqliteengine.EventStore {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "events.db") + "?_txlock=immediate&_pragma=busy_timeout(10000)"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(context.Background(), sqliteengine.DDL("events"))
	require.NoError(t, err)

	es, err := sqliteengine.NewEventStore(db)
	require.NoError(t, err)

	return es
}

func storableFixture(t *testing.T, eventType string, payload string) eventstore.StorableEvent {
	t.Helper()

	event, err := eventstore.BuildStorableEventWithEmptyMetadata(eventType, time.Now(), []byte(payload))
	require.NoError(t, err)

	return event
}

func Test_NewEventStore_With_Nil_Connection_Returns_Error(t *testing.T) {
	// act
	_, err := sqliteengine.NewEventStore(nil)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrNilDatabaseConnection)
}

func Test_NewEventStore_With_Empty_TableName_Returns_Error(t *testing.T) {
	// setup
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// act
	_, err = sqliteengine.NewEventStore(db, sqliteengine.WithTableName(""))

	// assert
	assert.ErrorIs(t, err, eventstore.ErrEmptyEventsTableName)
}

func Test_Load_With_Empty_StreamID_Returns_Error(t *testing.T) {
	// setup
	es := openTestStore(t)

	// act
	_, _, err := es.Load(context.Background(), "")

	// assert
	assert.ErrorIs(t, err, eventstore.ErrEmptyStreamIDSupplied)
}

func Test_Load_Of_Unknown_Stream_Returns_Empty_Stream_At_Version_Zero(t *testing.T) {
	// setup
	es := openTestStore(t)

	// act
	events, version, err := es.Load(context.Background(), uuid.NewString())

	// assert
	assert.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, eventstore.SequenceNumberUint(0), version)
}

func Test_Append_And_Load_Roundtrip_Preserves_Order_And_Version(t *testing.T) {
	// setup
	es := openTestStore(t)
	ctx := context.Background()
	streamID := uuid.NewString()

	// act
	err := es.Append(ctx, streamID, 0, storableFixture(t, "FirstHappened", `{"n": 1}`))
	require.NoError(t, err)

	err = es.Append(ctx, streamID, 1,
		storableFixture(t, "SecondHappened", `{"n": 2}`),
		storableFixture(t, "ThirdHappened", `{"n": 3}`),
	)
	require.NoError(t, err)

	events, version, err := es.Load(ctx, streamID)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, eventstore.SequenceNumberUint(3), version)
	require.Len(t, events, 3)
	assert.Equal(t, "FirstHappened", events[0].EventType)
	assert.Equal(t, "SecondHappened", events[1].EventType)
	assert.Equal(t, "ThirdHappened", events[2].EventType)
	assert.JSONEq(t, `{"n": 2}`, string(events[1].PayloadJSON))
}

func Test_Append_With_Stale_Expected_Version_Returns_Concurrency_Conflict(t *testing.T) {
	// setup
	es := openTestStore(t)
	ctx := context.Background()
	streamID := uuid.NewString()

	err := es.Append(ctx, streamID, 0, storableFixture(t, "FirstHappened", `{"n": 1}`))
	require.NoError(t, err)

	// act
	err = es.Append(ctx, streamID, 0, storableFixture(t, "RacingHappened", `{"n": 2}`))

	// assert
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)

	// assert the stream is unchanged
	events, version, loadErr := es.Load(ctx, streamID)
	assert.NoError(t, loadErr)
	assert.Equal(t, eventstore.SequenceNumberUint(1), version)
	assert.Len(t, events, 1)
}

func Test_Append_Of_Batch_With_Stale_Expected_Version_Persists_Nothing(t *testing.T) {
	// setup
	es := openTestStore(t)
	ctx := context.Background()
	streamID := uuid.NewString()

	err := es.Append(ctx, streamID, 0, storableFixture(t, "FirstHappened", `{"n": 1}`))
	require.NoError(t, err)

	// act
	err = es.Append(ctx, streamID, 0,
		storableFixture(t, "RacingHappened", `{"n": 2}`),
		storableFixture(t, "RacingAgainHappened", `{"n": 3}`),
	)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)

	events, version, loadErr := es.Load(ctx, streamID)
	assert.NoError(t, loadErr)
	assert.Equal(t, eventstore.SequenceNumberUint(1), version)
	assert.Len(t, events, 1)
}

func Test_Append_With_Expected_Version_Ahead_Of_Stream_Returns_Concurrency_Conflict(t *testing.T) {
	// setup
	es := openTestStore(t)

	// act
	err := es.Append(context.Background(), uuid.NewString(), 5, storableFixture(t, "SomethingHappened", `{}`))

	// assert
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
}

func Test_Concurrent_Appends_With_Same_Expected_Version_Have_Exactly_One_Winner(t *testing.T) {
	// setup
	es := openTestStore(t)
	ctx := context.Background()
	streamID := uuid.NewString()
	workers := 8
	event := storableFixture(t, "RaceHappened", `{}`)

	// act
	var wg sync.WaitGroup
	results := make([]error, workers)

	for i := range workers {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = es.Append(ctx, streamID, 0, event)
		}(i)
	}

	wg.Wait()

	// assert
	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
		}
	}
	assert.Equal(t, 1, winners)

	events, version, err := es.Load(ctx, streamID)
	assert.NoError(t, err)
	assert.Equal(t, eventstore.SequenceNumberUint(1), version)
	assert.Len(t, events, 1)
}

func Test_Streams_Are_Isolated_From_Each_Other(t *testing.T) {
	// setup
	es := openTestStore(t)
	ctx := context.Background()
	firstStream := uuid.NewString()
	secondStream := uuid.NewString()

	// act
	require.NoError(t, es.Append(ctx, firstStream, 0, storableFixture(t, "FirstHappened", `{"n": 1}`)))
	require.NoError(t, es.Append(ctx, secondStream, 0, storableFixture(t, "OtherHappened", `{"n": 9}`)))
	require.NoError(t, es.Append(ctx, firstStream, 1, storableFixture(t, "SecondHappened", `{"n": 2}`)))

	firstEvents, firstVersion, err := es.Load(ctx, firstStream)
	require.NoError(t, err)
	secondEvents, secondVersion, err := es.Load(ctx, secondStream)
	require.NoError(t, err)

	// assert
	assert.Equal(t, eventstore.SequenceNumberUint(2), firstVersion)
	assert.Len(t, firstEvents, 2)
	assert.Equal(t, eventstore.SequenceNumberUint(1), secondVersion)
	require.Len(t, secondEvents, 1)
	assert.Equal(t, "OtherHappened", secondEvents[0].EventType)
}
