// Package postgresengine provides a PostgreSQL implementation of the
// per-stream event store.
//
// The EventStore persists events in a single append-only table keyed by
// (stream_id, sequence_number). Appends are guarded by the caller's expected
// stream version using a CTE that checks the stream's current highest
// sequence number in the same statement, so optimistic concurrency costs no
// extra round trip. The composite primary key acts as a backstop: if two
// writers race past the guard, the unique violation of the loser is mapped
// to eventstore.ErrConcurrencyConflict.
//
// Multiple database adapters are supported through constructors for
// pgxpool.Pool, sql.DB and sqlx.DB. Table name and logging are configured
// via functional options.
package postgresengine
