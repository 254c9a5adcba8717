package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andrewseusebio/Rc-Store/internal/models"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
)

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) GetOrCreate(ctx context.Context, id int64, displayName, handle string) (*models.Account, error) {
	query := `
	INSERT INTO accounts (id, display_name, handle, balance, created_at)
	VALUES ($1, $2, $3, 0, NOW())
	ON CONFLICT (id) DO UPDATE SET display_name = $2, handle = $3
	RETURNING id, display_name, handle, balance, banned, created_at
	`
	var acc models.Account
	err := r.db.QueryRowContext(ctx, query, id, displayName, handle).Scan(
		&acc.ID,
		&acc.DisplayName,
		&acc.Handle,
		&acc.Balance,
		&acc.Banned,
		&acc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create account: %w", err)
	}
	return &acc, nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT id, display_name, handle, balance, banned, created_at FROM accounts WHERE id = $1`
	var acc models.Account
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&acc.ID,
		&acc.DisplayName,
		&acc.Handle,
		&acc.Balance,
		&acc.Banned,
		&acc.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrAccountNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}
	return &acc, nil
}

func (r *PostgresAccountRepository) ChangeBalance(ctx context.Context, id, delta int64) (newBalance int64, err error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1
		WHERE id = $2
		AND (balance + $1) >= 0
		RETURNING balance
		`
	err = r.db.QueryRowContext(ctx, query, delta, id).Scan(&newBalance)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the account is unknown or the debit would go negative.
		if _, lookupErr := r.GetByID(ctx, id); lookupErr != nil {
			return 0, lookupErr
		}
		return 0, pkgerrors.ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("failed to change balance: %w", err)
	}
	return newBalance, nil
}

func (r *PostgresAccountRepository) GetBalance(ctx context.Context, id int64) (int64, error) {
	var balance int64
	query := `SELECT balance FROM accounts WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, pkgerrors.ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (r *PostgresAccountRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET banned = $1 WHERE id = $2`, banned, id)
	if err != nil {
		return fmt.Errorf("failed to set banned flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return pkgerrors.ErrAccountNotFound
	}
	return nil
}
