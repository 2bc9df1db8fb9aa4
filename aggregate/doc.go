// Package aggregate connects pure deciders to an event store.
//
// The Repository implements the event-sourced cycle for a single command:
// load the command's stream, fold the history into state, let the decider
// decide, and append the resulting events with the loaded version as the
// optimistic concurrency guard. An optional saga turns appended events into
// follow-up commands which are handled recursively against their own
// streams.
//
// The Handler wraps a Repository with a command codec and classifies every
// failure into a small set of outcome codes, so callers get one uniform
// result shape regardless of which layer failed.
package aggregate
