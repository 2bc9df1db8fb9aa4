package shell_test

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deciderkit/decider-eventstore-go/example/core"
	"github.com/deciderkit/decider-eventstore-go/example/shell"
)

func Test_CommandFromJSON_Decodes_CreateRestaurant(t *testing.T) {
	// setup
	payload := []byte(`{
		"type": "CreateRestaurant",
		"identifier": "r1",
		"name": "Saigon Kitchen",
		"menu": {
			"menu_id": "menu-1",
			"cuisine": "Vietnamese",
			"items": [{"id": "item-1", "name": "Pho", "price": "9.90"}]
		}
	}`)

	// act
	command, err := shell.CommandFromJSON(payload)

	// assert
	require.NoError(t, err)
	createRestaurant, isCreateRestaurant := command.(core.CreateRestaurant)
	require.True(t, isCreateRestaurant)
	assert.Equal(t, "r1", createRestaurant.Identifier)
	assert.Equal(t, "Saigon Kitchen", createRestaurant.Name)
	require.Len(t, createRestaurant.Menu.Items, 1)
	assert.Equal(t, "Pho", createRestaurant.Menu.Items[0].Name)
}

func Test_CommandFromJSON_Decodes_PlaceOrder(t *testing.T) {
	// setup
	payload := []byte(`{
		"type": "PlaceOrder",
		"identifier": "r1",
		"order_identifier": "o1",
		"line_items": [{"id": "line-1", "quantity": 2, "menu_item_id": "item-1", "name": "Pho"}]
	}`)

	// act
	command, err := shell.CommandFromJSON(payload)

	// assert
	require.NoError(t, err)
	placeOrder, isPlaceOrder := command.(core.PlaceOrder)
	require.True(t, isPlaceOrder)
	assert.Equal(t, "o1", placeOrder.OrderIdentifier)
	require.Len(t, placeOrder.LineItems, 1)
	assert.Equal(t, uint32(2), placeOrder.LineItems[0].Quantity)
}

func Test_CommandFromJSON_Decodes_MarkOrderAsPrepared(t *testing.T) {
	// act
	command, err := shell.CommandFromJSON([]byte(`{"type": "MarkOrderAsPrepared", "identifier": "o1"}`))

	// assert
	require.NoError(t, err)
	prepared, isPrepared := command.(core.MarkOrderAsPrepared)
	require.True(t, isPrepared)
	assert.Equal(t, "o1", prepared.Identifier)
}

func Test_CommandFromJSON_With_Unknown_Type_Returns_Error(t *testing.T) {
	// act
	_, err := shell.CommandFromJSON([]byte(`{"type": "BurnRestaurant", "identifier": "r1"}`))

	// assert
	assert.ErrorIs(t, err, shell.ErrUnknownCommandType)
}

func Test_CommandFromJSON_With_Malformed_Payload_Returns_Error(t *testing.T) {
	// act
	_, err := shell.CommandFromJSON([]byte(`{"type": `))

	// assert
	assert.Error(t, err)
}

func Test_DomainEvent_Roundtrip_Through_Storable_Form(t *testing.T) {
	// setup
	placed := core.OrderPlaced{
		Identifier:      "r1",
		OrderIdentifier: "o1",
		LineItems: []core.OrderLineItem{
			{ID: "line-1", Quantity: 2, MenuItemID: "item-1", Name: "Pho"},
		},
	}

	// act
	storable, err := shell.StorableEventFrom(placed)
	require.NoError(t, err)
	decoded, err := shell.DomainEventFrom(storable)

	// assert
	require.NoError(t, err)
	assert.Equal(t, core.EventTypeOrderPlaced, storable.EventType)
	assert.Equal(t, core.Event(placed), decoded)
}

func Test_StorableEventFrom_Attaches_Metadata(t *testing.T) {
	// setup
	created := core.RestaurantCreated{Identifier: "r1", Name: "Saigon Kitchen"}

	// act
	storable, err := shell.StorableEventFrom(created)

	// assert
	require.NoError(t, err)
	var metadata shell.EventMetadata
	require.NoError(t, jsoniter.ConfigFastest.Unmarshal(storable.MetadataJSON, &metadata))
	assert.NotEmpty(t, metadata.MessageID)
	assert.NotEmpty(t, metadata.CorrelationID)
}

func Test_DomainEventFrom_With_Unknown_Event_Type_Returns_Error(t *testing.T) {
	// setup
	created := core.RestaurantCreated{Identifier: "r1", Name: "Saigon Kitchen"}
	storable, err := shell.StorableEventFrom(created)
	require.NoError(t, err)
	storable.EventType = "RestaurantVanished"

	// act
	_, err = shell.DomainEventFrom(storable)

	// assert
	assert.ErrorIs(t, err, shell.ErrUnknownEventType)
}
