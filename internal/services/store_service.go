package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/auth"
	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/kafka"
	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/observability"
	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/redis"
	"github.com/andrewseusebio/Rc-Store/internal/models"
	"github.com/andrewseusebio/Rc-Store/internal/repository"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// purchaseAttempts bounds the peek-and-consume retry loop when racing buyers
// keep taking the selected item.
const purchaseAttempts = 3

const productCacheKey = "store:products"
const productCacheTTL = 30 * time.Second

type StoreService interface {
	StartSession(ctx context.Context, accountID int64, displayName, handle string) (string, *models.Account, error)
	ListProducts(ctx context.Context) ([]models.ProductStock, error)
	GetBalance(ctx context.Context, accountID int64) (int64, error)
	Purchase(ctx context.Context, accountID int64, product string) (*models.Order, error)
	ListOrders(ctx context.Context, accountID int64) ([]models.Order, error)
}

type storeService struct {
	accountRepo   repository.AccountRepository
	inventoryRepo repository.InventoryRepository
	orderRepo     repository.OrderRepository
	catalogRepo   repository.CatalogRepository
	redisClient   redis.RedisClient
	kafkaProducer kafka.KafkaProducer
	jwtSecret     string
}

func NewStoreService(
	accountRepo repository.AccountRepository,
	inventoryRepo repository.InventoryRepository,
	orderRepo repository.OrderRepository,
	catalogRepo repository.CatalogRepository,
	redisClient redis.RedisClient,
	kafkaProducer kafka.KafkaProducer,
	jwtSecret string,
) *storeService {
	return &storeService{
		accountRepo:   accountRepo,
		inventoryRepo: inventoryRepo,
		orderRepo:     orderRepo,
		catalogRepo:   catalogRepo,
		redisClient:   redisClient,
		kafkaProducer: kafkaProducer,
		jwtSecret:     jwtSecret,
	}
}

func (s *storeService) StartSession(ctx context.Context, accountID int64, displayName, handle string) (string, *models.Account, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "StartSession")
	defer span.End()

	if accountID == 0 {
		span.SetStatus(codes.Error, "missing account id")
		return "", nil, pkgerrors.ErrInvalidInput
	}

	account, err := s.accountRepo.GetOrCreate(ctx, accountID, displayName, handle)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "account upsert failed")
		slog.Error("failed to get or create account", "account_id", accountID, "error", err)
		return "", nil, err
	}

	token, err := auth.GenerateToken(accountID, s.jwtSecret)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to generate token", "account_id", accountID, "error", err)
		return "", nil, err
	}

	if err := s.redisClient.Set(ctx, fmt.Sprintf("account:%d:token", accountID), token, auth.TokenTTL); err != nil {
		span.RecordError(err)
		slog.Error("failed to store session token", "account_id", accountID, "error", err)
		return "", nil, err
	}

	slog.Info("session started", "account_id", accountID, "handle", handle)
	return token, account, nil
}

func (s *storeService) ListProducts(ctx context.Context) ([]models.ProductStock, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "ListProducts")
	defer span.End()

	if cached, err := s.redisClient.Get(ctx, productCacheKey); err == nil {
		var products []models.ProductStock
		if err := json.Unmarshal([]byte(cached), &products); err != nil {
			slog.Error("failed to unmarshal cached products", "error", err)
		} else {
			return products, nil
		}
	}

	products, err := s.inventoryRepo.ListProducts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "product listing failed")
		slog.Error("failed to list products", "error", err)
		return nil, err
	}

	if data, err := json.Marshal(products); err == nil {
		if err := s.redisClient.Set(ctx, productCacheKey, string(data), productCacheTTL); err != nil {
			slog.Error("failed to cache products", "error", err)
		}
	}
	return products, nil
}

func (s *storeService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "GetBalance")
	defer span.End()

	balance, err := s.accountRepo.GetBalance(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to get balance", "account_id", accountID, "error", err)
		return 0, err
	}
	return balance, nil
}

// Purchase resolves price and balance, then tries to consume the oldest item
// for the product. The atomic unit in the order repository guarantees the
// debit, the consumption and the order insert land together; a conflict there
// means somebody else won the item and the next-oldest is tried, up to
// purchaseAttempts.
func (s *storeService) Purchase(ctx context.Context, accountID int64, product string) (*models.Order, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "Purchase")
	span.SetAttributes(
		attribute.Int64("account_id", accountID),
		attribute.String("product", product),
	)
	defer span.End()

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "account lookup failed")
		slog.Error("failed to get account", "account_id", accountID, "error", err)
		return nil, err
	}
	if account.Banned {
		span.SetStatus(codes.Error, "account banned")
		slog.Warn("purchase rejected, account banned", "account_id", accountID)
		observability.Purchases.WithLabelValues(product, "banned").Inc()
		return nil, pkgerrors.ErrAccountBanned
	}

	price, err := s.catalogRepo.GetPrice(ctx, product)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "price lookup failed")
		slog.Error("failed to get price", "product", product, "error", err)
		return nil, err
	}

	if account.Balance < price {
		span.SetStatus(codes.Error, "insufficient funds")
		slog.Warn("insufficient funds", "account_id", accountID, "balance", account.Balance, "price", price)
		observability.Purchases.WithLabelValues(product, "insufficient_funds").Inc()
		return nil, pkgerrors.ErrInsufficientFunds
	}

	var order *models.Order
	for attempt := 1; attempt <= purchaseAttempts; attempt++ {
		item, err := s.inventoryRepo.PeekOldest(ctx, product)
		if err != nil {
			if stderrors.Is(err, pkgerrors.ErrOutOfStock) {
				span.SetStatus(codes.Error, "out of stock")
				slog.Warn("out of stock", "product", product, "account_id", accountID)
				observability.Purchases.WithLabelValues(product, "out_of_stock").Inc()
				return nil, pkgerrors.ErrOutOfStock
			}
			span.RecordError(err)
			slog.Error("failed to peek inventory", "product", product, "error", err)
			return nil, err
		}

		order, err = s.orderRepo.CreateFromItem(ctx, accountID, item, price)
		if err == nil {
			break
		}
		if stderrors.Is(err, pkgerrors.ErrItemConsumed) {
			slog.Info("purchase retry after item conflict", "product", product, "item_id", item.ID, "attempt", attempt)
			order = nil
			continue
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "purchase transaction failed")
		slog.Error("purchase transaction failed", "account_id", accountID, "product", product, "error", err)
		observability.Purchases.WithLabelValues(product, "error").Inc()
		return nil, err
	}
	if order == nil {
		span.SetStatus(codes.Error, "out of stock after retries")
		slog.Warn("out of stock after retries", "product", product, "account_id", accountID)
		observability.Purchases.WithLabelValues(product, "out_of_stock").Inc()
		return nil, pkgerrors.ErrOutOfStock
	}

	observability.Purchases.WithLabelValues(product, "success").Inc()
	if err := s.redisClient.Del(ctx, productCacheKey); err != nil {
		slog.Error("failed to invalidate product cache", "error", err)
	}

	event := map[string]interface{}{
		"event_type": "order_created",
		"order_id":   order.ID,
		"account_id": order.AccountID,
		"product":    order.Product,
		"price":      order.Price,
		"created_at": order.CreatedAt.UTC().Format(time.RFC3339),
	}
	if eventBytes, err := json.Marshal(event); err != nil {
		slog.Error("failed to marshal order event", "order_id", order.ID, "error", err)
	} else {
		go func() {
			retries := 3
			for i := 0; i < retries; i++ {
				if err := s.kafkaProducer.Send(context.Background(), "orders", order.ID, eventBytes); err == nil {
					return
				}
				time.Sleep(time.Second * time.Duration(i+1))
			}
			slog.Error("failed to send order event after retries", "order_id", order.ID)
		}()
	}

	slog.Info("purchase completed", "account_id", accountID, "product", product, "order_id", order.ID, "price", price)
	return order, nil
}

func (s *storeService) ListOrders(ctx context.Context, accountID int64) ([]models.Order, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "ListOrders")
	defer span.End()

	orders, err := s.orderRepo.ListByAccount(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to list orders", "account_id", accountID, "error", err)
		return nil, err
	}
	return orders, nil
}
