// Package sqliteengine provides a SQLite implementation of the per-stream
// event store, suitable for embedded use, local tooling and tests.
//
// Events live in a single append-only table keyed by (stream_id,
// sequence_number). Appends run inside a transaction that re-reads the
// stream's current version and compares it against the caller's expected
// version, with the composite primary key as a backstop against writers
// racing between the check and the insert. Timestamps are stored as RFC3339
// text since SQLite has no native timestamp type.
//
// The engine uses the CGO-free modernc.org/sqlite driver through
// database/sql. A writer whose deferred transaction loses the write-lock
// race gets SQLITE_BUSY instead of a constraint violation; the engine maps
// both to eventstore.ErrConcurrencyConflict. For deterministic serialization
// under concurrent writers, open the database with
// "?_txlock=immediate&_pragma=busy_timeout(10000)" so transactions take the
// write lock up front and losers observe a stale version instead of a lock
// failure.
package sqliteengine
