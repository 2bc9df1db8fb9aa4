// Package memoryengine provides an in-memory implementation of the
// per-stream event store, intended for unit tests and examples.
//
// It honors the same contract as the database-backed engines, including
// optimistic concurrency via expected stream versions, but keeps all events
// in process memory guarded by a mutex. Nothing is persisted.
package memoryengine
