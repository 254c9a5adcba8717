package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/observability"
	"github.com/andrewseusebio/Rc-Store/internal/models"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// CreateFromItem is the only write path that produces an order. The delete,
// the debit and the insert commit together or not at all; a racing purchase
// surfaces as zero rows deleted and rolls the whole unit back.
func (r *PostgresOrderRepository) CreateFromItem(ctx context.Context, accountID int64, item *models.InventoryItem, price int64) (*models.Order, error) {
	var err error
	tracer := otel.Tracer("order-repository")
	ctx, span := tracer.Start(ctx, "CreateOrderFromItem")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateOrderFromItem", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateOrderFromItem").Observe(time.Since(start).Seconds())
	}()

	if item == nil {
		err = pkgerrors.ErrNilItem
		slog.Error("failed to create order", "method", "CreateFromItem", "error", err)
		return nil, err
	}
	if price <= 0 {
		err = fmt.Errorf("%w: price must be positive", pkgerrors.ErrInvalidInput)
		slog.Error("invalid price", "method", "CreateFromItem", "price", price, "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("account_id", accountID),
		attribute.Int64("item_id", item.ID),
		attribute.String("product", item.Product),
		attribute.Int64("price", price),
	)

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "CreateFromItem", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM inventory WHERE id = $1`, item.ID)
	if err != nil {
		return nil, rollback(dbTx, fmt.Errorf("failed to consume inventory item: %w", err))
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, rollback(dbTx, fmt.Errorf("failed to read rows affected: %w", err))
	}
	if deleted == 0 {
		err = pkgerrors.ErrItemConsumed
		slog.Warn("inventory item lost to a racing purchase", "method", "CreateFromItem", "item_id", item.ID, "product", item.Product)
		return nil, rollback(dbTx, err)
	}

	debitQuery := `
		UPDATE accounts
		SET balance = balance - $1
		WHERE id = $2
		AND NOT banned
		AND (balance - $1) >= 0
		RETURNING balance
	`
	var newBalance int64
	err = dbTx.QueryRowContext(ctx, debitQuery, price, accountID).Scan(&newBalance)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrInsufficientFunds
		slog.Warn("debit refused", "method", "CreateFromItem", "account_id", accountID, "price", price)
		return nil, rollback(dbTx, err)
	}
	if err != nil {
		return nil, rollback(dbTx, fmt.Errorf("failed to debit account: %w", err))
	}

	order := &models.Order{
		AccountID: accountID,
		Product:   item.Product,
		Price:     price,
		Login:     item.Login,
		Password:  item.Password,
	}
	insertQuery := `
		INSERT INTO orders (account_id, product, price, login, password, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	err = dbTx.QueryRowContext(ctx, insertQuery, order.AccountID, order.Product, order.Price, order.Login, order.Password).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, rollback(dbTx, fmt.Errorf("failed to insert order: %w", err))
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "CreateFromItem", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("order created",
		"method", "CreateFromItem",
		"order_id", order.ID,
		"account_id", accountID,
		"product", order.Product,
		"price", price,
		"new_balance", newBalance)
	return order, nil
}

func (r *PostgresOrderRepository) ListByAccount(ctx context.Context, accountID int64) ([]models.Order, error) {
	var err error
	tracer := otel.Tracer("order-repository")
	ctx, span := tracer.Start(ctx, "ListOrdersByAccount")
	span.SetAttributes(attribute.Int64("account_id", accountID))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ListOrdersByAccount", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ListOrdersByAccount").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT id, account_id, product, price, login, password, created_at
		FROM orders
		WHERE account_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err = rows.Scan(&o.ID, &o.AccountID, &o.Product, &o.Price, &o.Login, &o.Password, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order rows: %w", err)
	}
	return orders, nil
}

func rollback(tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil {
		return fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
	}
	return err
}
