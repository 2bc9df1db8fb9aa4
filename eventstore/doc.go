// Package eventstore provides the core abstractions and types for
// per-stream, append-only event persistence with optimistic concurrency.
//
// An event stream is the ordered event history of one aggregate, identified
// by a StreamID. Sequence numbers within a stream are contiguous, strictly
// increasing, and start at 1; the uniqueness of (stream id, sequence number)
// is the store's only synchronization point.
//
// This package defines the storage-agnostic pieces: the scalar StorableEvent
// DTO, the stream identifier and sequence number types, and the common error
// definitions. The concrete engines live in the subpackages postgresengine,
// sqliteengine and memoryengine; all of them implement the same contract:
//
//	Load(ctx, streamID) (StorableEvents, SequenceNumberUint, error)
//	Append(ctx, streamID, expectedVersion, event, ...additionalEvents) error
//
// Load returns the stream in ascending sequence order together with the
// current version (0 for a stream that does not exist yet - an empty result
// is not an error). Append persists the whole batch atomically with sequence
// numbers expectedVersion+1..expectedVersion+n, or fails with
// ErrConcurrencyConflict without persisting anything when another writer has
// advanced the stream in the meantime.
package eventstore
