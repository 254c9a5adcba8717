package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/observability"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresDepositRepository struct {
	db *sql.DB
}

func NewPostgresDepositRepository(db *sql.DB) *PostgresDepositRepository {
	return &PostgresDepositRepository{db: db}
}

// CreditOnce makes the confirmed-payment credit exactly-once: the charge id is
// the primary key of the deposits table, and the balance credit only happens
// in the transaction that manages to insert the row.
func (r *PostgresDepositRepository) CreditOnce(ctx context.Context, chargeID string, accountID, amount, bonus int64) (applied bool, err error) {
	tracer := otel.Tracer("deposit-repository")
	ctx, span := tracer.Start(ctx, "CreditOnce")
	span.SetAttributes(
		attribute.String("charge_id", chargeID),
		attribute.Int64("account_id", accountID),
		attribute.Int64("amount", amount),
		attribute.Int64("bonus", bonus),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreditOnce", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreditOnce").Observe(time.Since(start).Seconds())
	}()

	if chargeID == "" {
		err = fmt.Errorf("%w: charge id cannot be empty", pkgerrors.ErrInvalidInput)
		return false, err
	}
	if amount <= 0 {
		err = fmt.Errorf("%w: amount must be positive", pkgerrors.ErrInvalidAmount)
		return false, err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "CreditOnce", "error", err)
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	insertQuery := `
		INSERT INTO deposits (charge_id, account_id, amount, bonus, credited_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (charge_id) DO NOTHING
	`
	res, err := dbTx.ExecContext(ctx, insertQuery, chargeID, accountID, amount, bonus)
	if err != nil {
		return false, rollback(dbTx, fmt.Errorf("failed to record deposit: %w", err))
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, rollback(dbTx, fmt.Errorf("failed to read rows affected: %w", err))
	}
	if inserted == 0 {
		// Retried webhook delivery; the credit already happened.
		if rbErr := dbTx.Rollback(); rbErr != nil {
			err = fmt.Errorf("rollback failed: %w", rbErr)
			return false, err
		}
		slog.Info("deposit already credited", "method", "CreditOnce", "charge_id", chargeID, "account_id", accountID)
		return false, nil
	}

	var newBalance int64
	creditQuery := `UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`
	err = dbTx.QueryRowContext(ctx, creditQuery, amount+bonus, accountID).Scan(&newBalance)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrAccountNotFound
		return false, rollback(dbTx, err)
	}
	if err != nil {
		return false, rollback(dbTx, fmt.Errorf("failed to credit account: %w", err))
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "CreditOnce", "error", err)
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("deposit credited",
		"method", "CreditOnce",
		"charge_id", chargeID,
		"account_id", accountID,
		"amount", amount,
		"bonus", bonus,
		"new_balance", newBalance)
	return true, nil
}
