package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deciderkit/decider-eventstore-go/decider"
	"github.com/deciderkit/decider-eventstore-go/example/core"
)

func Test_DomainDecider_Routes_Restaurant_Commands_To_The_Restaurant_Side(t *testing.T) {
	// setup
	dec := core.DomainDecider()

	// act
	events, err := dec.Decide(
		core.CreateRestaurant{Identifier: "r1", Name: "Saigon Kitchen", Menu: sampleMenu()},
		dec.Initial(),
	)

	// assert
	assert.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventTypeRestaurantCreated, events[0].EventType())
}

func Test_DomainDecider_Routes_Order_Commands_To_The_Order_Side(t *testing.T) {
	// setup
	dec := core.DomainDecider()

	// act
	events, err := dec.Decide(
		core.CreateOrder{Identifier: "o1", RestaurantIdentifier: "r1", LineItems: sampleLineItems()},
		dec.Initial(),
	)

	// assert
	assert.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventTypeOrderCreated, events[0].EventType())
}

func Test_DomainDecider_Matches_The_Component_Deciders(t *testing.T) {
	// setup
	domainDecider := core.DomainDecider()
	restaurantDecider := core.RestaurantDecider()
	command := core.CreateRestaurant{Identifier: "r1", Name: "Saigon Kitchen", Menu: sampleMenu()}

	// act
	combinedEvents, combinedErr := domainDecider.Decide(command, domainDecider.Initial())
	directEvents, directErr := restaurantDecider.Decide(command, restaurantDecider.Initial())

	// assert
	assert.Equal(t, directErr, combinedErr)
	require.Len(t, combinedEvents, len(directEvents))
	for i, event := range directEvents {
		assert.Equal(t, core.Event(event), combinedEvents[i])
	}
}

func Test_DomainDecider_Evolves_Only_The_Claiming_Side(t *testing.T) {
	// setup
	dec := core.DomainDecider()
	state := dec.Fold([]core.Event{
		core.RestaurantCreated{Identifier: "r1", Name: "Saigon Kitchen", Menu: sampleMenu()},
	})
	require.NotNil(t, state.Left)
	require.Nil(t, state.Right)

	// act
	state = dec.Evolve(state, core.OrderCreated{Identifier: "o1", RestaurantIdentifier: "r1", Status: core.OrderStatusCreated})

	// assert
	assert.Equal(t, "Saigon Kitchen", state.Left.Name)
	require.NotNil(t, state.Right)
	assert.Equal(t, core.OrderStatusCreated, state.Right.Status)
}

func Test_DomainDecider_Rejects_Domain_Command_When_Restaurant_Is_Missing(t *testing.T) {
	// setup
	dec := core.DomainDecider()

	// act
	_, err := dec.Decide(
		core.PlaceOrder{Identifier: "r1", OrderIdentifier: "o1", LineItems: sampleLineItems()},
		dec.Initial(),
	)

	// assert
	assert.True(t, decider.IsDomainError(err))
}

func Test_DomainSaga_Reacts_To_OrderPlaced_With_CreateOrder(t *testing.T) {
	// setup
	saga := core.DomainSaga()

	// act
	commands := saga.React(core.OrderPlaced{
		Identifier:      "r1",
		OrderIdentifier: "o1",
		LineItems:       sampleLineItems(),
	})

	// assert
	require.Len(t, commands, 1)
	createOrder, isCreateOrder := commands[0].(core.CreateOrder)
	require.True(t, isCreateOrder)
	assert.Equal(t, "o1", createOrder.Identifier)
	assert.Equal(t, "r1", createOrder.RestaurantIdentifier)
	assert.Equal(t, sampleLineItems(), createOrder.LineItems)
}

func Test_DomainSaga_Ignores_Other_Events(t *testing.T) {
	// setup
	saga := core.DomainSaga()

	// act
	commands := saga.React(core.RestaurantCreated{Identifier: "r1", Name: "Saigon Kitchen"})

	// assert
	assert.Empty(t, commands)
}
