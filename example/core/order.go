package core

import "github.com/deciderkit/decider-eventstore-go/decider"

// Command type discriminants for the order decider.
const (
	CommandTypeCreateOrder         = "CreateOrder"
	CommandTypeMarkOrderAsPrepared = "MarkOrderAsPrepared"
)

// Event type discriminants for the order decider.
const (
	EventTypeOrderCreated  = "OrderCreated"
	EventTypeOrderPrepared = "OrderPrepared"
)

// OrderCommand is the sealed union of commands the order decider handles.
type OrderCommand interface {
	Command
	isOrderCommand()
}

// CreateOrder creates a new order for a restaurant.
type CreateOrder struct {
	Identifier           string          `json:"identifier"`
	RestaurantIdentifier string          `json:"restaurant_identifier"`
	LineItems            []OrderLineItem `json:"line_items"`
}

// MarkOrderAsPrepared marks an existing order as prepared.
type MarkOrderAsPrepared struct {
	Identifier string `json:"identifier"`
}

func (c CreateOrder) CommandType() string         { return CommandTypeCreateOrder }
func (c MarkOrderAsPrepared) CommandType() string { return CommandTypeMarkOrderAsPrepared }

func (c CreateOrder) AggregateID() string         { return c.Identifier }
func (c MarkOrderAsPrepared) AggregateID() string { return c.Identifier }

func (c CreateOrder) isOrderCommand()         {}
func (c MarkOrderAsPrepared) isOrderCommand() {}

// OrderEvent is the sealed union of events the order decider emits.
type OrderEvent interface {
	Event
	isOrderEvent()
}

// OrderCreated records that an order was created.
type OrderCreated struct {
	Identifier           string          `json:"identifier"`
	RestaurantIdentifier string          `json:"restaurant_identifier"`
	Status               OrderStatus     `json:"status"`
	LineItems            []OrderLineItem `json:"line_items"`
}

// OrderPrepared records that an order was prepared.
type OrderPrepared struct {
	Identifier string      `json:"identifier"`
	Status     OrderStatus `json:"status"`
}

func (e OrderCreated) EventType() string  { return EventTypeOrderCreated }
func (e OrderPrepared) EventType() string { return EventTypeOrderPrepared }

func (e OrderCreated) AggregateID() string  { return e.Identifier }
func (e OrderPrepared) AggregateID() string { return e.Identifier }

func (e OrderCreated) isOrderEvent()  {}
func (e OrderPrepared) isOrderEvent() {}

// Rejection reasons of the order decider.
const (
	ReasonOrderAlreadyCreated  = "order already created"
	ReasonOrderDoesNotExist    = "order does not exist"
	ReasonOrderAlreadyPrepared = "order already prepared"
)

// OrderDecider builds the decider for the order aggregate.
func OrderDecider() decider.Decider[OrderCommand, *Order, OrderEvent] {
	return decider.Decider[OrderCommand, *Order, OrderEvent]{
		Decide:  decideOrder,
		Evolve:  evolveOrder,
		Initial: func() *Order { return nil },
	}
}

func decideOrder(command OrderCommand, state *Order) ([]OrderEvent, error) {
	switch c := command.(type) {
	case CreateOrder:
		if state != nil {
			return nil, decider.NewDomainError(ReasonOrderAlreadyCreated)
		}

		return []OrderEvent{OrderCreated{
			Identifier:           c.Identifier,
			RestaurantIdentifier: c.RestaurantIdentifier,
			Status:               OrderStatusCreated,
			LineItems:            c.LineItems,
		}}, nil

	case MarkOrderAsPrepared:
		if state == nil {
			return nil, decider.NewDomainError(ReasonOrderDoesNotExist)
		}

		if state.Status == OrderStatusPrepared {
			return nil, decider.NewDomainError(ReasonOrderAlreadyPrepared)
		}

		return []OrderEvent{OrderPrepared{
			Identifier: c.Identifier,
			Status:     OrderStatusPrepared,
		}}, nil

	default:
		return nil, decider.NewDomainError("unknown order command")
	}
}

func evolveOrder(state *Order, event OrderEvent) *Order {
	switch e := event.(type) {
	case OrderCreated:
		return &Order{
			Identifier:           e.Identifier,
			RestaurantIdentifier: e.RestaurantIdentifier,
			Status:               e.Status,
			LineItems:            e.LineItems,
		}

	case OrderPrepared:
		if state == nil {
			return nil
		}

		evolved := *state
		evolved.Status = e.Status

		return &evolved

	default:
		return state
	}
}
