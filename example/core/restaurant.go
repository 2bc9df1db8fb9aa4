package core

import "github.com/deciderkit/decider-eventstore-go/decider"

// Command type discriminants for the restaurant decider.
const (
	CommandTypeCreateRestaurant     = "CreateRestaurant"
	CommandTypeChangeRestaurantMenu = "ChangeRestaurantMenu"
	CommandTypePlaceOrder           = "PlaceOrder"
)

// Event type discriminants for the restaurant decider.
const (
	EventTypeRestaurantCreated     = "RestaurantCreated"
	EventTypeRestaurantMenuChanged = "RestaurantMenuChanged"
	EventTypeOrderPlaced           = "OrderPlaced"
)

// RestaurantCommand is the sealed union of commands the restaurant decider
// handles.
type RestaurantCommand interface {
	Command
	isRestaurantCommand()
}

// CreateRestaurant creates a new restaurant with its initial menu.
type CreateRestaurant struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Menu       Menu   `json:"menu"`
}

// ChangeRestaurantMenu replaces an existing restaurant's menu.
type ChangeRestaurantMenu struct {
	Identifier string `json:"identifier"`
	Menu       Menu   `json:"menu"`
}

// PlaceOrder places an order at a restaurant. The line items must reference
// items on the restaurant's current menu.
type PlaceOrder struct {
	Identifier      string          `json:"identifier"`
	OrderIdentifier string          `json:"order_identifier"`
	LineItems       []OrderLineItem `json:"line_items"`
}

func (c CreateRestaurant) CommandType() string     { return CommandTypeCreateRestaurant }
func (c ChangeRestaurantMenu) CommandType() string { return CommandTypeChangeRestaurantMenu }
func (c PlaceOrder) CommandType() string           { return CommandTypePlaceOrder }

func (c CreateRestaurant) AggregateID() string     { return c.Identifier }
func (c ChangeRestaurantMenu) AggregateID() string { return c.Identifier }
func (c PlaceOrder) AggregateID() string           { return c.Identifier }

func (c CreateRestaurant) isRestaurantCommand()     {}
func (c ChangeRestaurantMenu) isRestaurantCommand() {}
func (c PlaceOrder) isRestaurantCommand()           {}

// RestaurantEvent is the sealed union of events the restaurant decider
// emits.
type RestaurantEvent interface {
	Event
	isRestaurantEvent()
}

// RestaurantCreated records that a restaurant was created.
type RestaurantCreated struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Menu       Menu   `json:"menu"`
}

// RestaurantMenuChanged records that a restaurant's menu was replaced.
type RestaurantMenuChanged struct {
	Identifier string `json:"identifier"`
	Menu       Menu   `json:"menu"`
}

// OrderPlaced records that an order was placed at a restaurant.
type OrderPlaced struct {
	Identifier      string          `json:"identifier"`
	OrderIdentifier string          `json:"order_identifier"`
	LineItems       []OrderLineItem `json:"line_items"`
}

func (e RestaurantCreated) EventType() string     { return EventTypeRestaurantCreated }
func (e RestaurantMenuChanged) EventType() string { return EventTypeRestaurantMenuChanged }
func (e OrderPlaced) EventType() string           { return EventTypeOrderPlaced }

func (e RestaurantCreated) AggregateID() string     { return e.Identifier }
func (e RestaurantMenuChanged) AggregateID() string { return e.Identifier }
func (e OrderPlaced) AggregateID() string           { return e.Identifier }

func (e RestaurantCreated) isRestaurantEvent()     {}
func (e RestaurantMenuChanged) isRestaurantEvent() {}
func (e OrderPlaced) isRestaurantEvent()           {}

// Rejection reasons of the restaurant decider.
const (
	ReasonRestaurantAlreadyCreated = "restaurant already created"
	ReasonRestaurantDoesNotExist   = "restaurant does not exist"
	ReasonLineItemNotOnMenu        = "order line item does not reference a menu item"
	ReasonNoLineItems              = "an order needs at least one line item"
)

// RestaurantDecider builds the decider for the restaurant aggregate.
func RestaurantDecider() decider.Decider[RestaurantCommand, *Restaurant, RestaurantEvent] {
	return decider.Decider[RestaurantCommand, *Restaurant, RestaurantEvent]{
		Decide:  decideRestaurant,
		Evolve:  evolveRestaurant,
		Initial: func() *Restaurant { return nil },
	}
}

func decideRestaurant(command RestaurantCommand, state *Restaurant) ([]RestaurantEvent, error) {
	switch c := command.(type) {
	case CreateRestaurant:
		if state != nil {
			return nil, decider.NewDomainError(ReasonRestaurantAlreadyCreated)
		}

		return []RestaurantEvent{RestaurantCreated{
			Identifier: c.Identifier,
			Name:       c.Name,
			Menu:       c.Menu,
		}}, nil

	case ChangeRestaurantMenu:
		if state == nil {
			return nil, decider.NewDomainError(ReasonRestaurantDoesNotExist)
		}

		return []RestaurantEvent{RestaurantMenuChanged{
			Identifier: c.Identifier,
			Menu:       c.Menu,
		}}, nil

	case PlaceOrder:
		if state == nil {
			return nil, decider.NewDomainError(ReasonRestaurantDoesNotExist)
		}

		if len(c.LineItems) == 0 {
			return nil, decider.NewDomainError(ReasonNoLineItems)
		}

		for _, lineItem := range c.LineItems {
			if !state.Menu.hasItem(lineItem.MenuItemID) {
				return nil, decider.NewDomainError(ReasonLineItemNotOnMenu)
			}
		}

		return []RestaurantEvent{OrderPlaced{
			Identifier:      c.Identifier,
			OrderIdentifier: c.OrderIdentifier,
			LineItems:       c.LineItems,
		}}, nil

	default:
		return nil, decider.NewDomainError("unknown restaurant command")
	}
}

func evolveRestaurant(state *Restaurant, event RestaurantEvent) *Restaurant {
	switch e := event.(type) {
	case RestaurantCreated:
		return &Restaurant{
			Identifier: e.Identifier,
			Name:       e.Name,
			Menu:       e.Menu,
		}

	case RestaurantMenuChanged:
		if state == nil {
			return nil
		}

		evolved := *state
		evolved.Menu = e.Menu

		return &evolved

	default:
		// placing an order does not change the restaurant itself
		return state
	}
}
