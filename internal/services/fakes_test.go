package service

import (
	"context"
	"sync"

	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/gateway"
	"github.com/andrewseusebio/Rc-Store/internal/models"
)

// Hand-rolled fakes for the repository and gateway interfaces. Function
// fields default to zero-value responses; tests override what they need.

type fakeAccountRepo struct {
	getOrCreateFn   func(ctx context.Context, id int64, displayName, handle string) (*models.Account, error)
	getByIDFn       func(ctx context.Context, id int64) (*models.Account, error)
	changeBalanceFn func(ctx context.Context, id, delta int64) (int64, error)
	getBalanceFn    func(ctx context.Context, id int64) (int64, error)
	setBannedFn     func(ctx context.Context, id int64, banned bool) error
}

func (f *fakeAccountRepo) GetOrCreate(ctx context.Context, id int64, displayName, handle string) (*models.Account, error) {
	return f.getOrCreateFn(ctx, id, displayName, handle)
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeAccountRepo) ChangeBalance(ctx context.Context, id, delta int64) (int64, error) {
	return f.changeBalanceFn(ctx, id, delta)
}

func (f *fakeAccountRepo) GetBalance(ctx context.Context, id int64) (int64, error) {
	return f.getBalanceFn(ctx, id)
}

func (f *fakeAccountRepo) SetBanned(ctx context.Context, id int64, banned bool) error {
	return f.setBannedFn(ctx, id, banned)
}

type fakeInventoryRepo struct {
	listProductsFn func(ctx context.Context) ([]models.ProductStock, error)
	peekOldestFn   func(ctx context.Context, product string) (*models.InventoryItem, error)
	bulkLoadFn     func(ctx context.Context, product string, entries []models.StockEntry) (int64, error)
	listItemsFn    func(ctx context.Context, product string) ([]models.InventoryItem, error)
	removeFn       func(ctx context.Context, itemID int64) error
}

func (f *fakeInventoryRepo) ListProducts(ctx context.Context) ([]models.ProductStock, error) {
	return f.listProductsFn(ctx)
}

func (f *fakeInventoryRepo) PeekOldest(ctx context.Context, product string) (*models.InventoryItem, error) {
	return f.peekOldestFn(ctx, product)
}

func (f *fakeInventoryRepo) BulkLoad(ctx context.Context, product string, entries []models.StockEntry) (int64, error) {
	return f.bulkLoadFn(ctx, product, entries)
}

func (f *fakeInventoryRepo) ListItems(ctx context.Context, product string) ([]models.InventoryItem, error) {
	return f.listItemsFn(ctx, product)
}

func (f *fakeInventoryRepo) Remove(ctx context.Context, itemID int64) error {
	return f.removeFn(ctx, itemID)
}

type fakeOrderRepo struct {
	createFromItemFn func(ctx context.Context, accountID int64, item *models.InventoryItem, price int64) (*models.Order, error)
	listByAccountFn  func(ctx context.Context, accountID int64) ([]models.Order, error)
}

func (f *fakeOrderRepo) CreateFromItem(ctx context.Context, accountID int64, item *models.InventoryItem, price int64) (*models.Order, error) {
	return f.createFromItemFn(ctx, accountID, item, price)
}

func (f *fakeOrderRepo) ListByAccount(ctx context.Context, accountID int64) ([]models.Order, error) {
	return f.listByAccountFn(ctx, accountID)
}

type fakeCatalogRepo struct {
	getPriceFn       func(ctx context.Context, product string) (int64, error)
	setPriceFn       func(ctx context.Context, product string, price int64) error
	getBonusPolicyFn func(ctx context.Context) (models.BonusPolicy, error)
	setBonusPolicyFn func(ctx context.Context, policy models.BonusPolicy) error
}

func (f *fakeCatalogRepo) GetPrice(ctx context.Context, product string) (int64, error) {
	return f.getPriceFn(ctx, product)
}

func (f *fakeCatalogRepo) SetPrice(ctx context.Context, product string, price int64) error {
	return f.setPriceFn(ctx, product, price)
}

func (f *fakeCatalogRepo) GetBonusPolicy(ctx context.Context) (models.BonusPolicy, error) {
	return f.getBonusPolicyFn(ctx)
}

func (f *fakeCatalogRepo) SetBonusPolicy(ctx context.Context, policy models.BonusPolicy) error {
	return f.setBonusPolicyFn(ctx, policy)
}

type fakeDepositRepo struct {
	mu       sync.Mutex
	credited map[string]int64 // charge_id -> amount+bonus
	err      error
}

func newFakeDepositRepo() *fakeDepositRepo {
	return &fakeDepositRepo{credited: make(map[string]int64)}
}

func (f *fakeDepositRepo) CreditOnce(ctx context.Context, chargeID string, accountID, amount, bonus int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.credited[chargeID]; ok {
		return false, nil
	}
	f.credited[chargeID] = amount + bonus
	return true, nil
}

type fakeGateway struct {
	charge    *gateway.Charge
	err       error
	lastRef   string
	lastCents int64
}

func (f *fakeGateway) CreateCharge(ctx context.Context, amount int64, description, externalReference string) (*gateway.Charge, error) {
	f.lastRef = externalReference
	f.lastCents = amount
	if f.err != nil {
		return nil, f.err
	}
	return f.charge, nil
}

type fakeProducer struct {
	mu       sync.Mutex
	messages [][]byte
	err      error
}

func (f *fakeProducer) Send(ctx context.Context, topic string, key int64, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, value)
	return nil
}

func (f *fakeProducer) Close() error { return nil }
