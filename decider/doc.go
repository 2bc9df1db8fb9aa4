// Package decider provides the pure building blocks for event-sourced
// decision making: the Decider triple (decide, evolve, initial state), a
// combinator that merges independently defined deciders into one decider over
// the union of their command and event types, and a Saga type for mapping
// facts back to follow-up intents.
//
// Nothing in this package performs I/O. A Decider is safe to invoke
// repeatedly and concurrently; persistence and transaction boundaries are the
// concern of the aggregate and eventstore packages.
//
// Typical usage:
//
//	restaurants := RestaurantDecider() // Decider[RestaurantCommand, *Restaurant, RestaurantEvent]
//	orders := OrderDecider()           // Decider[OrderCommand, *Order, OrderEvent]
//
//	combined := decider.MustCombine(restaurants, orders, routes)
//	state := combined.Fold(history)
//	newEvents, err := combined.Decide(command, state)
package decider
