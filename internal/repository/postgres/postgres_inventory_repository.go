package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andrewseusebio/Rc-Store/internal/models"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
	"github.com/lib/pq"
)

type PostgresInventoryRepository struct {
	db *sql.DB
}

func NewPostgresInventoryRepository(db *sql.DB) *PostgresInventoryRepository {
	return &PostgresInventoryRepository{db: db}
}

func (r *PostgresInventoryRepository) ListProducts(ctx context.Context) ([]models.ProductStock, error) {
	query := `
		SELECT i.product, COALESCE(p.price, 0), COUNT(*)
		FROM inventory i
		LEFT JOIN products p ON p.name = i.product
		GROUP BY i.product, p.price
		ORDER BY i.product
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.ProductStock
	for rows.Next() {
		var p models.ProductStock
		if err := rows.Scan(&p.Product, &p.Price, &p.Available); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product rows: %w", err)
	}
	return products, nil
}

func (r *PostgresInventoryRepository) PeekOldest(ctx context.Context, product string) (*models.InventoryItem, error) {
	if product == "" {
		return nil, fmt.Errorf("%w: product cannot be empty", pkgerrors.ErrInvalidInput)
	}
	query := `
		SELECT id, product, login, password, images
		FROM inventory
		WHERE product = $1
		ORDER BY id ASC
		LIMIT 1
	`
	var item models.InventoryItem
	err := r.db.QueryRowContext(ctx, query, product).Scan(
		&item.ID,
		&item.Product,
		&item.Login,
		&item.Password,
		pq.Array(&item.Images),
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrOutOfStock
	case err != nil:
		return nil, fmt.Errorf("failed to peek oldest item: %w", err)
	}
	return &item, nil
}

func (r *PostgresInventoryRepository) BulkLoad(ctx context.Context, product string, entries []models.StockEntry) (int64, error) {
	if product == "" {
		return 0, fmt.Errorf("%w: product cannot be empty", pkgerrors.ErrInvalidInput)
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: no entries to load", pkgerrors.ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	const query = `INSERT INTO inventory (product, login, password, images) VALUES ($1, $2, $3, $4)`
	var loaded int64
	for _, e := range entries {
		if e.Login == "" || e.Password == "" {
			if rbErr := tx.Rollback(); rbErr != nil {
				return 0, fmt.Errorf("rollback failed: %v; original error: %w", rbErr, pkgerrors.ErrInvalidInput)
			}
			return 0, fmt.Errorf("%w: entry login and password are required", pkgerrors.ErrInvalidInput)
		}
		if _, err := tx.ExecContext(ctx, query, product, e.Login, e.Password, pq.Array(e.Images)); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return 0, fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
			}
			return 0, fmt.Errorf("failed to insert inventory item: %w", err)
		}
		loaded++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return loaded, nil
}

func (r *PostgresInventoryRepository) ListItems(ctx context.Context, product string) ([]models.InventoryItem, error) {
	query := `SELECT id, product, login, password, images FROM inventory`
	args := []any{}
	if product != "" {
		query += ` WHERE product = $1`
		args = append(args, product)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var items []models.InventoryItem
	for rows.Next() {
		var item models.InventoryItem
		if err := rows.Scan(&item.ID, &item.Product, &item.Login, &item.Password, pq.Array(&item.Images)); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inventory rows: %w", err)
	}
	return items, nil
}

func (r *PostgresInventoryRepository) Remove(ctx context.Context, itemID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inventory WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove inventory item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return pkgerrors.ErrItemConsumed
	}
	return nil
}
