// Package adapters provides database adapter implementations for the
// PostgreSQL event store engine.
//
// The engine generates its SQL up front and only needs to run a finished
// query string, so the adapter surface is deliberately small: Query for
// selects, Exec for the guarded append. Adapters exist for pgxpool.Pool,
// sql.DB and sqlx.DB so the engine works with whichever connection type the
// host application already manages.
package adapters
