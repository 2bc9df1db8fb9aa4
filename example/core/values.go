package core

// Cuisine classifies a restaurant menu.
type Cuisine string

const (
	CuisineVietnamese Cuisine = "Vietnamese"
	CuisineItalian    Cuisine = "Italian"
	CuisineJapanese   Cuisine = "Japanese"
	CuisineFusion     Cuisine = "Fusion"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "Created"
	OrderStatusPrepared OrderStatus = "Prepared"
)

// MenuItem is a single item on a restaurant menu. Price is a decimal string
// to avoid float rounding in money values.
type MenuItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// Menu is a restaurant's menu.
type Menu struct {
	MenuID  string     `json:"menu_id"`
	Items   []MenuItem `json:"items"`
	Cuisine Cuisine    `json:"cuisine"`
}

// hasItem reports whether the menu contains an item with the given id.
func (m Menu) hasItem(menuItemID string) bool {
	for _, item := range m.Items {
		if item.ID == menuItemID {
			return true
		}
	}

	return false
}

// OrderLineItem is one position of an order, referencing a menu item.
type OrderLineItem struct {
	ID         string `json:"id"`
	Quantity   uint32 `json:"quantity"`
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
}

// Restaurant is the state of the restaurant decider. A nil *Restaurant means
// the restaurant does not exist yet.
type Restaurant struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Menu       Menu   `json:"menu"`
}

// Order is the state of the order decider. A nil *Order means the order does
// not exist yet.
type Order struct {
	Identifier           string          `json:"identifier"`
	RestaurantIdentifier string          `json:"restaurant_identifier"`
	Status               OrderStatus     `json:"status"`
	LineItems            []OrderLineItem `json:"line_items"`
}
