package repository

import (
	"context"

	"github.com/andrewseusebio/Rc-Store/internal/models"
)

type OrderRepository interface {
	// CreateFromItem runs the purchase as one transaction: consume the item,
	// debit the buyer, insert the order snapshot. It fails with
	// ErrItemConsumed when a racing purchase took the item first, and with
	// ErrInsufficientFunds or ErrAccountBanned without consuming anything.
	CreateFromItem(ctx context.Context, accountID int64, item *models.InventoryItem, price int64) (*models.Order, error)
	ListByAccount(ctx context.Context, accountID int64) ([]models.Order, error)
}
