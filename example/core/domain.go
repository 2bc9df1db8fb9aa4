package core

import "github.com/deciderkit/decider-eventstore-go/decider"

// Command is the union of all commands the domain handles. The command type
// is the routing discriminant, the aggregate id determines the stream the
// command is executed against.
type Command interface {
	CommandType() string
	AggregateID() string
}

// Event is the union of all events the domain emits.
type Event interface {
	EventType() string
	AggregateID() string
}

// DomainState is the product state of the combined domain decider.
type DomainState = decider.Pair[*Restaurant, *Order]

// DomainDecider combines the restaurant and order deciders into one decider
// over the union command and event types, so a single pipeline can serve
// the whole domain.
func DomainDecider() decider.Decider[Command, DomainState, Event] {
	return decider.MustCombine(
		RestaurantDecider(),
		OrderDecider(),
		domainRoutes(),
	)
}

func domainRoutes() decider.Routes[Command, Event, RestaurantCommand, RestaurantEvent, OrderCommand, OrderEvent] {
	return decider.Routes[Command, Event, RestaurantCommand, RestaurantEvent, OrderCommand, OrderEvent]{
		AsLeftCommand: func(command Command) (RestaurantCommand, bool) {
			restaurantCommand, ok := command.(RestaurantCommand)
			return restaurantCommand, ok
		},
		AsRightCommand: func(command Command) (OrderCommand, bool) {
			orderCommand, ok := command.(OrderCommand)
			return orderCommand, ok
		},
		AsLeftEvent: func(event Event) (RestaurantEvent, bool) {
			restaurantEvent, ok := event.(RestaurantEvent)
			return restaurantEvent, ok
		},
		AsRightEvent: func(event Event) (OrderEvent, bool) {
			orderEvent, ok := event.(OrderEvent)
			return orderEvent, ok
		},
		FromLeftEvent: func(event RestaurantEvent) Event {
			return event
		},
		FromRightEvent: func(event OrderEvent) Event {
			return event
		},

		LeftCommandTags: []string{
			CommandTypeCreateRestaurant,
			CommandTypeChangeRestaurantMenu,
			CommandTypePlaceOrder,
		},
		RightCommandTags: []string{
			CommandTypeCreateOrder,
			CommandTypeMarkOrderAsPrepared,
		},
	}
}

// DomainSaga reacts to placed orders by creating the corresponding order
// aggregate. All other events produce no follow-up commands.
func DomainSaga() decider.Saga[Event, Command] {
	return decider.Saga[Event, Command]{
		React: func(event Event) []Command {
			placed, isOrderPlaced := event.(OrderPlaced)
			if !isOrderPlaced {
				return nil
			}

			return []Command{CreateOrder{
				Identifier:           placed.OrderIdentifier,
				RestaurantIdentifier: placed.Identifier,
				LineItems:            placed.LineItems,
			}}
		},
	}
}
