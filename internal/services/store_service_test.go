package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	stderrors "errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/redis"
	"github.com/andrewseusebio/Rc-Store/internal/models"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) redis.RedisClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(mr.Addr())
}

func TestStoreService_Purchase(t *testing.T) {
	ctx := context.Background()

	account := func(balance int64, banned bool) *fakeAccountRepo {
		return &fakeAccountRepo{
			getByIDFn: func(ctx context.Context, id int64) (*models.Account, error) {
				return &models.Account{ID: id, Balance: balance, Banned: banned}, nil
			},
		}
	}
	catalog := &fakeCatalogRepo{
		getPriceFn: func(ctx context.Context, product string) (int64, error) {
			return 10000, nil
		},
	}

	t.Run("Success", func(t *testing.T) {
		item := &models.InventoryItem{ID: 7, Product: "netflix", Login: "l", Password: "p"}
		inventory := &fakeInventoryRepo{
			peekOldestFn: func(ctx context.Context, product string) (*models.InventoryItem, error) {
				return item, nil
			},
		}
		orders := &fakeOrderRepo{
			createFromItemFn: func(ctx context.Context, accountID int64, it *models.InventoryItem, price int64) (*models.Order, error) {
				assert.Equal(t, item, it)
				assert.Equal(t, int64(10000), price)
				return &models.Order{ID: 1, AccountID: accountID, Product: it.Product, Price: price, Login: it.Login, Password: it.Password}, nil
			},
		}
		svc := NewStoreService(account(10000, false), inventory, orders, catalog, newTestRedis(t), &fakeProducer{}, "secret")

		order, err := svc.Purchase(ctx, 1, "netflix")
		require.NoError(t, err)
		assert.Equal(t, "l", order.Login)
		assert.Equal(t, "p", order.Password)
		assert.Equal(t, int64(10000), order.Price)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		inventory := &fakeInventoryRepo{
			peekOldestFn: func(ctx context.Context, product string) (*models.InventoryItem, error) {
				t.Fatal("inventory must not be touched when the balance is short")
				return nil, nil
			},
		}
		svc := NewStoreService(account(9999, false), inventory, &fakeOrderRepo{}, catalog, newTestRedis(t), &fakeProducer{}, "secret")

		order, err := svc.Purchase(ctx, 1, "netflix")
		assert.Nil(t, order)
		assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)
	})

	t.Run("BannedAccount", func(t *testing.T) {
		svc := NewStoreService(account(10000, true), &fakeInventoryRepo{}, &fakeOrderRepo{}, catalog, newTestRedis(t), &fakeProducer{}, "secret")

		order, err := svc.Purchase(ctx, 1, "netflix")
		assert.Nil(t, order)
		assert.ErrorIs(t, err, pkgerrors.ErrAccountBanned)
	})

	t.Run("OutOfStock", func(t *testing.T) {
		inventory := &fakeInventoryRepo{
			peekOldestFn: func(ctx context.Context, product string) (*models.InventoryItem, error) {
				return nil, pkgerrors.ErrOutOfStock
			},
		}
		svc := NewStoreService(account(10000, false), inventory, &fakeOrderRepo{}, catalog, newTestRedis(t), &fakeProducer{}, "secret")

		order, err := svc.Purchase(ctx, 1, "netflix")
		assert.Nil(t, order)
		assert.ErrorIs(t, err, pkgerrors.ErrOutOfStock)
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		badCatalog := &fakeCatalogRepo{
			getPriceFn: func(ctx context.Context, product string) (int64, error) {
				return 0, pkgerrors.ErrProductNotFound
			},
		}
		svc := NewStoreService(account(10000, false), &fakeInventoryRepo{}, &fakeOrderRepo{}, badCatalog, newTestRedis(t), &fakeProducer{}, "secret")

		order, err := svc.Purchase(ctx, 1, "nope")
		assert.Nil(t, order)
		assert.ErrorIs(t, err, pkgerrors.ErrProductNotFound)
	})

	t.Run("RetriesAfterRacingConsumer", func(t *testing.T) {
		items := []*models.InventoryItem{
			{ID: 7, Product: "netflix", Login: "first", Password: "p1"},
			{ID: 8, Product: "netflix", Login: "second", Password: "p2"},
		}
		peeks := 0
		inventory := &fakeInventoryRepo{
			peekOldestFn: func(ctx context.Context, product string) (*models.InventoryItem, error) {
				item := items[peeks]
				peeks++
				return item, nil
			},
		}
		orders := &fakeOrderRepo{
			createFromItemFn: func(ctx context.Context, accountID int64, it *models.InventoryItem, price int64) (*models.Order, error) {
				if it.ID == 7 {
					// A concurrent purchase got item 7 first.
					return nil, pkgerrors.ErrItemConsumed
				}
				return &models.Order{ID: 2, AccountID: accountID, Product: it.Product, Price: price, Login: it.Login, Password: it.Password}, nil
			},
		}
		svc := NewStoreService(account(10000, false), inventory, orders, catalog, newTestRedis(t), &fakeProducer{}, "secret")

		order, err := svc.Purchase(ctx, 1, "netflix")
		require.NoError(t, err)
		assert.Equal(t, "second", order.Login)
		assert.Equal(t, 2, peeks)
	})

	t.Run("GivesUpAfterBoundedRetries", func(t *testing.T) {
		peeks := 0
		inventory := &fakeInventoryRepo{
			peekOldestFn: func(ctx context.Context, product string) (*models.InventoryItem, error) {
				peeks++
				return &models.InventoryItem{ID: int64(peeks), Product: product}, nil
			},
		}
		orders := &fakeOrderRepo{
			createFromItemFn: func(ctx context.Context, accountID int64, it *models.InventoryItem, price int64) (*models.Order, error) {
				return nil, pkgerrors.ErrItemConsumed
			},
		}
		svc := NewStoreService(account(10000, false), inventory, orders, catalog, newTestRedis(t), &fakeProducer{}, "secret")

		order, err := svc.Purchase(ctx, 1, "netflix")
		assert.Nil(t, order)
		assert.ErrorIs(t, err, pkgerrors.ErrOutOfStock)
		assert.Equal(t, purchaseAttempts, peeks)
	})

	t.Run("TransactionErrorPropagates", func(t *testing.T) {
		dbErr := stderrors.New("database error")
		inventory := &fakeInventoryRepo{
			peekOldestFn: func(ctx context.Context, product string) (*models.InventoryItem, error) {
				return &models.InventoryItem{ID: 7, Product: product}, nil
			},
		}
		orders := &fakeOrderRepo{
			createFromItemFn: func(ctx context.Context, accountID int64, it *models.InventoryItem, price int64) (*models.Order, error) {
				return nil, dbErr
			},
		}
		svc := NewStoreService(account(10000, false), inventory, orders, catalog, newTestRedis(t), &fakeProducer{}, "secret")

		order, err := svc.Purchase(ctx, 1, "netflix")
		assert.Nil(t, order)
		assert.ErrorIs(t, err, dbErr)
	})
}

// Five buyers race for three items, each holding exactly one item's worth of
// balance. Exactly three purchases may win, every item goes out once, and the
// total debit equals three prices.
func TestStoreService_ConcurrentPurchases(t *testing.T) {
	const price = int64(10000)
	const buyers = 5
	const stock = 3

	type storeState struct {
		mu       sync.Mutex
		items    []*models.InventoryItem
		balances map[int64]int64
		issued   map[int64]int64 // item id -> winning account
	}
	st := &storeState{balances: make(map[int64]int64), issued: make(map[int64]int64)}
	for i := 1; i <= stock; i++ {
		st.items = append(st.items, &models.InventoryItem{ID: int64(i), Product: "netflix", Login: fmt.Sprintf("login-%d", i), Password: "p"})
	}
	for b := 1; b <= buyers; b++ {
		st.balances[int64(b)] = price
	}

	accounts := &fakeAccountRepo{
		getByIDFn: func(ctx context.Context, id int64) (*models.Account, error) {
			st.mu.Lock()
			defer st.mu.Unlock()
			return &models.Account{ID: id, Balance: st.balances[id]}, nil
		},
	}
	inventory := &fakeInventoryRepo{
		peekOldestFn: func(ctx context.Context, product string) (*models.InventoryItem, error) {
			st.mu.Lock()
			defer st.mu.Unlock()
			if len(st.items) == 0 {
				return nil, pkgerrors.ErrOutOfStock
			}
			return st.items[0], nil
		},
	}
	orders := &fakeOrderRepo{
		// Mirrors the transactional unit: consumption, debit and order
		// recording land together under one lock or not at all.
		createFromItemFn: func(ctx context.Context, accountID int64, it *models.InventoryItem, price int64) (*models.Order, error) {
			st.mu.Lock()
			defer st.mu.Unlock()
			idx := -1
			for i, candidate := range st.items {
				if candidate.ID == it.ID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, pkgerrors.ErrItemConsumed
			}
			if st.balances[accountID] < price {
				return nil, pkgerrors.ErrInsufficientFunds
			}
			st.items = append(st.items[:idx], st.items[idx+1:]...)
			st.balances[accountID] -= price
			st.issued[it.ID] = accountID
			return &models.Order{ID: it.ID, AccountID: accountID, Product: it.Product, Price: price, Login: it.Login, Password: it.Password}, nil
		},
	}
	catalog := &fakeCatalogRepo{
		getPriceFn: func(ctx context.Context, product string) (int64, error) {
			return price, nil
		},
	}
	svc := NewStoreService(accounts, inventory, orders, catalog, newTestRedis(t), &fakeProducer{}, "secret")

	var wg sync.WaitGroup
	results := make([]error, buyers)
	for b := 0; b < buyers; b++ {
		wg.Add(1)
		go func(b int) {
			defer wg.Done()
			_, err := svc.Purchase(context.Background(), int64(b+1), "netflix")
			results[b] = err
		}(b)
	}
	wg.Wait()

	successes, outOfStock := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case stderrors.Is(err, pkgerrors.ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected purchase error: %v", err)
		}
	}
	assert.Equal(t, stock, successes)
	assert.Equal(t, buyers-stock, outOfStock)

	assert.Empty(t, st.items)
	assert.Len(t, st.issued, stock)
	winners := make(map[int64]struct{})
	for _, accountID := range st.issued {
		_, dup := winners[accountID]
		assert.False(t, dup, "account %d was issued more than one item", accountID)
		winners[accountID] = struct{}{}
	}

	var totalDebit int64
	for b := 1; b <= buyers; b++ {
		totalDebit += price - st.balances[int64(b)]
	}
	assert.Equal(t, int64(stock)*price, totalDebit)
}

func TestStoreService_ListProducts(t *testing.T) {
	ctx := context.Background()
	stock := []models.ProductStock{{Product: "netflix", Price: 10000, Available: 3}}

	calls := 0
	inventory := &fakeInventoryRepo{
		listProductsFn: func(ctx context.Context) ([]models.ProductStock, error) {
			calls++
			return stock, nil
		},
	}
	svc := NewStoreService(&fakeAccountRepo{}, inventory, &fakeOrderRepo{}, &fakeCatalogRepo{}, newTestRedis(t), &fakeProducer{}, "secret")

	first, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, stock, first)

	// Second call is served from the cache.
	second, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, stock, second)
	assert.Equal(t, 1, calls)
}

func TestStoreService_StartSession(t *testing.T) {
	ctx := context.Background()

	accounts := &fakeAccountRepo{
		getOrCreateFn: func(ctx context.Context, id int64, displayName, handle string) (*models.Account, error) {
			return &models.Account{ID: id, DisplayName: displayName, Handle: handle}, nil
		},
	}
	rc := newTestRedis(t)
	svc := NewStoreService(accounts, &fakeInventoryRepo{}, &fakeOrderRepo{}, &fakeCatalogRepo{}, rc, &fakeProducer{}, "secret")

	token, account, err := svc.StartSession(ctx, 42, "Alice", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int64(42), account.ID)

	stored, err := rc.Get(ctx, "account:42:token")
	require.NoError(t, err)
	assert.Equal(t, token, stored)

	t.Run("MissingAccountID", func(t *testing.T) {
		_, _, err := svc.StartSession(ctx, 0, "", "")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}
