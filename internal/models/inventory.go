package models

// InventoryItem is one unit of single-use credential stock. It exists until
// the purchase that copies its credentials into an order deletes it.
type InventoryItem struct {
	ID       int64    `json:"id"`
	Product  string   `json:"product"`
	Login    string   `json:"login"`
	Password string   `json:"password"`
	Images   []string `json:"images,omitempty"`
}

// StockEntry is one credential pair submitted through an admin bulk load.
type StockEntry struct {
	Login    string   `json:"login"`
	Password string   `json:"password"`
	Images   []string `json:"images,omitempty"`
}

// ProductStock is a catalog row: product name, price and remaining units.
type ProductStock struct {
	Product   string `json:"product"`
	Price     int64  `json:"price"`
	Available int64  `json:"available"`
}
