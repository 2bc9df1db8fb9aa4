// Package core holds the pure functional core of the restaurant example:
// value types, the restaurant and order deciders, their combination into a
// single domain decider, and the saga that derives order creation from
// placed orders.
//
// Nothing in this package performs IO. All functions are deterministic, so
// the package is fully testable without a database.
package core
