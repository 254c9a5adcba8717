package service

import (
	"context"
	"log/slog"

	"github.com/andrewseusebio/Rc-Store/internal/models"
	"github.com/andrewseusebio/Rc-Store/internal/repository"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AdminService is the privileged mutation surface. Every operation names the
// requesting administrator and is refused for identities outside the
// allow-list; balance changes reuse the ledger's non-negativity rule.
type AdminService interface {
	Grant(ctx context.Context, requesterID, accountID, amount int64) (int64, error)
	Revoke(ctx context.Context, requesterID, accountID, amount int64) (int64, error)
	BulkLoad(ctx context.Context, requesterID int64, product string, entries []models.StockEntry) (int64, error)
	RemoveItem(ctx context.Context, requesterID, itemID int64) error
	ListInventory(ctx context.Context, requesterID int64, product string) ([]models.InventoryItem, error)
	ListAccountOrders(ctx context.Context, requesterID, accountID int64) ([]models.Order, error)
	SetBanned(ctx context.Context, requesterID, accountID int64, banned bool) error
	SetBonusPolicy(ctx context.Context, requesterID int64, policy models.BonusPolicy) error
	DisableBonusPolicy(ctx context.Context, requesterID int64) error
	SetPrice(ctx context.Context, requesterID int64, product string, price int64) error
}

type adminService struct {
	accountRepo   repository.AccountRepository
	inventoryRepo repository.InventoryRepository
	orderRepo     repository.OrderRepository
	catalogRepo   repository.CatalogRepository
	admins        map[int64]struct{}
}

func NewAdminService(
	accountRepo repository.AccountRepository,
	inventoryRepo repository.InventoryRepository,
	orderRepo repository.OrderRepository,
	catalogRepo repository.CatalogRepository,
	adminIDs []int64,
) *adminService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &adminService{
		accountRepo:   accountRepo,
		inventoryRepo: inventoryRepo,
		orderRepo:     orderRepo,
		catalogRepo:   catalogRepo,
		admins:        admins,
	}
}

func (s *adminService) authorize(requesterID int64, op string) error {
	if _, ok := s.admins[requesterID]; !ok {
		slog.Warn("admin operation refused", "op", op, "requester_id", requesterID)
		return pkgerrors.ErrNotAuthorized
	}
	return nil
}

func (s *adminService) Grant(ctx context.Context, requesterID, accountID, amount int64) (int64, error) {
	tracer := otel.Tracer("admin-service")
	ctx, span := tracer.Start(ctx, "AdminGrant")
	span.SetAttributes(attribute.Int64("account_id", accountID), attribute.Int64("amount", amount))
	defer span.End()

	if err := s.authorize(requesterID, "grant"); err != nil {
		span.SetStatus(codes.Error, "not authorized")
		return 0, err
	}
	if amount <= 0 {
		return 0, pkgerrors.ErrInvalidAmount
	}
	newBalance, err := s.accountRepo.ChangeBalance(ctx, accountID, amount)
	if err != nil {
		span.RecordError(err)
		slog.Error("grant failed", "requester_id", requesterID, "account_id", accountID, "amount", amount, "error", err)
		return 0, err
	}
	slog.Info("balance granted", "requester_id", requesterID, "account_id", accountID, "amount", amount, "new_balance", newBalance)
	return newBalance, nil
}

func (s *adminService) Revoke(ctx context.Context, requesterID, accountID, amount int64) (int64, error) {
	tracer := otel.Tracer("admin-service")
	ctx, span := tracer.Start(ctx, "AdminRevoke")
	span.SetAttributes(attribute.Int64("account_id", accountID), attribute.Int64("amount", amount))
	defer span.End()

	if err := s.authorize(requesterID, "revoke"); err != nil {
		span.SetStatus(codes.Error, "not authorized")
		return 0, err
	}
	if amount <= 0 {
		return 0, pkgerrors.ErrInvalidAmount
	}
	newBalance, err := s.accountRepo.ChangeBalance(ctx, accountID, -amount)
	if err != nil {
		span.RecordError(err)
		slog.Error("revoke failed", "requester_id", requesterID, "account_id", accountID, "amount", amount, "error", err)
		return 0, err
	}
	slog.Info("balance revoked", "requester_id", requesterID, "account_id", accountID, "amount", amount, "new_balance", newBalance)
	return newBalance, nil
}

func (s *adminService) BulkLoad(ctx context.Context, requesterID int64, product string, entries []models.StockEntry) (int64, error) {
	tracer := otel.Tracer("admin-service")
	ctx, span := tracer.Start(ctx, "AdminBulkLoad")
	span.SetAttributes(attribute.String("product", product), attribute.Int("entries", len(entries)))
	defer span.End()

	if err := s.authorize(requesterID, "bulk_load"); err != nil {
		span.SetStatus(codes.Error, "not authorized")
		return 0, err
	}
	loaded, err := s.inventoryRepo.BulkLoad(ctx, product, entries)
	if err != nil {
		span.RecordError(err)
		slog.Error("bulk load failed", "requester_id", requesterID, "product", product, "error", err)
		return 0, err
	}
	slog.Info("inventory loaded", "requester_id", requesterID, "product", product, "count", loaded)
	return loaded, nil
}

func (s *adminService) RemoveItem(ctx context.Context, requesterID, itemID int64) error {
	if err := s.authorize(requesterID, "remove_item"); err != nil {
		return err
	}
	if err := s.inventoryRepo.Remove(ctx, itemID); err != nil {
		slog.Error("item removal failed", "requester_id", requesterID, "item_id", itemID, "error", err)
		return err
	}
	slog.Info("inventory item removed", "requester_id", requesterID, "item_id", itemID)
	return nil
}

func (s *adminService) ListInventory(ctx context.Context, requesterID int64, product string) ([]models.InventoryItem, error) {
	if err := s.authorize(requesterID, "list_inventory"); err != nil {
		return nil, err
	}
	return s.inventoryRepo.ListItems(ctx, product)
}

func (s *adminService) ListAccountOrders(ctx context.Context, requesterID, accountID int64) ([]models.Order, error) {
	if err := s.authorize(requesterID, "list_account_orders"); err != nil {
		return nil, err
	}
	return s.orderRepo.ListByAccount(ctx, accountID)
}

func (s *adminService) SetBanned(ctx context.Context, requesterID, accountID int64, banned bool) error {
	if err := s.authorize(requesterID, "set_banned"); err != nil {
		return err
	}
	if err := s.accountRepo.SetBanned(ctx, accountID, banned); err != nil {
		slog.Error("ban update failed", "requester_id", requesterID, "account_id", accountID, "error", err)
		return err
	}
	slog.Info("ban flag updated", "requester_id", requesterID, "account_id", accountID, "banned", banned)
	return nil
}

func (s *adminService) SetBonusPolicy(ctx context.Context, requesterID int64, policy models.BonusPolicy) error {
	if err := s.authorize(requesterID, "set_bonus_policy"); err != nil {
		return err
	}
	if err := s.catalogRepo.SetBonusPolicy(ctx, policy); err != nil {
		slog.Error("bonus policy update failed", "requester_id", requesterID, "error", err)
		return err
	}
	slog.Info("bonus policy updated", "requester_id", requesterID, "active", policy.Active, "percentage", policy.Percentage, "minimum_amount", policy.MinimumAmount)
	return nil
}

func (s *adminService) DisableBonusPolicy(ctx context.Context, requesterID int64) error {
	if err := s.authorize(requesterID, "disable_bonus_policy"); err != nil {
		return err
	}
	policy, err := s.catalogRepo.GetBonusPolicy(ctx)
	if err != nil {
		return err
	}
	policy.Active = false
	if err := s.catalogRepo.SetBonusPolicy(ctx, policy); err != nil {
		slog.Error("bonus policy disable failed", "requester_id", requesterID, "error", err)
		return err
	}
	slog.Info("bonus policy disabled", "requester_id", requesterID)
	return nil
}

func (s *adminService) SetPrice(ctx context.Context, requesterID int64, product string, price int64) error {
	if err := s.authorize(requesterID, "set_price"); err != nil {
		return err
	}
	if err := s.catalogRepo.SetPrice(ctx, product, price); err != nil {
		slog.Error("price update failed", "requester_id", requesterID, "product", product, "error", err)
		return err
	}
	slog.Info("price updated", "requester_id", requesterID, "product", product, "price", price)
	return nil
}
