package repository

import (
	"context"

	"github.com/andrewseusebio/Rc-Store/internal/models"
)

type InventoryRepository interface {
	// ListProducts reports every product that still has unconsumed items,
	// with its price and remaining count.
	ListProducts(ctx context.Context) ([]models.ProductStock, error)
	// PeekOldest returns the lowest-id item for the product without consuming
	// it. Items are issued strictly in insertion order.
	PeekOldest(ctx context.Context, product string) (*models.InventoryItem, error)
	BulkLoad(ctx context.Context, product string, entries []models.StockEntry) (int64, error)
	ListItems(ctx context.Context, product string) ([]models.InventoryItem, error)
	Remove(ctx context.Context, itemID int64) error
}
