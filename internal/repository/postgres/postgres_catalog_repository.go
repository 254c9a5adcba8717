package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andrewseusebio/Rc-Store/internal/models"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
)

type PostgresCatalogRepository struct {
	db *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

func (r *PostgresCatalogRepository) GetPrice(ctx context.Context, product string) (int64, error) {
	var price int64
	query := `SELECT price FROM products WHERE name = $1`
	err := r.db.QueryRowContext(ctx, query, product).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, pkgerrors.ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get product price: %w", err)
	}
	return price, nil
}

func (r *PostgresCatalogRepository) SetPrice(ctx context.Context, product string, price int64) error {
	if product == "" {
		return fmt.Errorf("%w: product cannot be empty", pkgerrors.ErrInvalidInput)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", pkgerrors.ErrInvalidInput)
	}
	query := `
	INSERT INTO products (name, price)
	VALUES ($1, $2)
	ON CONFLICT (name) DO UPDATE SET price = $2
	`
	if _, err := r.db.ExecContext(ctx, query, product, price); err != nil {
		return fmt.Errorf("failed to set product price: %w", err)
	}
	return nil
}

// The bonus policy is a single row; disabling keeps the row with active=false.
func (r *PostgresCatalogRepository) GetBonusPolicy(ctx context.Context) (models.BonusPolicy, error) {
	var policy models.BonusPolicy
	query := `SELECT active, percentage, minimum_amount FROM bonus_policy WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&policy.Active, &policy.Percentage, &policy.MinimumAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BonusPolicy{}, nil
	}
	if err != nil {
		return models.BonusPolicy{}, fmt.Errorf("failed to get bonus policy: %w", err)
	}
	return policy, nil
}

func (r *PostgresCatalogRepository) SetBonusPolicy(ctx context.Context, policy models.BonusPolicy) error {
	if policy.Percentage < 0 || policy.MinimumAmount < 0 {
		return fmt.Errorf("%w: percentage and minimum amount cannot be negative", pkgerrors.ErrInvalidInput)
	}
	query := `
	INSERT INTO bonus_policy (id, active, percentage, minimum_amount)
	VALUES (1, $1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET active = $1, percentage = $2, minimum_amount = $3
	`
	if _, err := r.db.ExecContext(ctx, query, policy.Active, policy.Percentage, policy.MinimumAmount); err != nil {
		return fmt.Errorf("failed to set bonus policy: %w", err)
	}
	return nil
}
