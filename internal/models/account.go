package models

import "time"

// Account is a buyer identity with a balance held in cents.
type Account struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle"`
	Balance     int64     `json:"balance"`
	Banned      bool      `json:"banned"`
	CreatedAt   time.Time `json:"created_at"`
}
