// Package shell is the imperative shell around the restaurant example's
// functional core: JSON codecs for commands and events, the wiring of the
// domain decider and saga into a repository and command handler, retry on
// concurrency conflicts, and environment-based configuration.
package shell
