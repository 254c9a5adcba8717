package models

import "time"

// Order is an immutable record of a completed purchase. Price and the
// credentials are snapshots taken when the inventory item was consumed.
type Order struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Product   string    `json:"product"`
	Price     int64     `json:"price"`
	Login     string    `json:"login"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
}
