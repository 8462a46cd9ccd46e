package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/lock"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/source"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	defaultIcon  = "icons/category-default.png"
	defaultImage = "images/product-placeholder.png"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func promo(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func ptr[T any](v T) *T { return &v }

func baseSource() *fakeSource {
	return &fakeSource{
		stores: []source.StoreRow{
			{ID: 1, Address: "Jl. Merdeka 1"},
			{ID: 2, Address: "  "},
		},
		categories: []source.CategoryRow{
			{ID: 10, Name: "Beverages"},
			{ID: 11, Name: "Snacks"},
		},
		products: []source.ProductRow{
			{ID: 42, Name: "Kopi Susu", Price: dec("15000"), Unit: "cup", CategoryID: ptr(int64(10))},
			{ID: 43, Name: "Keripik", Price: dec("12000"), PromoPrice: promo("10000"), Unit: "pack", CategoryID: ptr(int64(99))},
		},
		stock: []source.StockRow{
			{ProductID: 42, StoreID: 1, Quantity: dec("7.55")},
			{ProductID: 42, StoreID: 2, Quantity: dec("3")},
			{ProductID: 43, StoreID: 1, Quantity: dec("10")},
		},
	}
}

type harness struct {
	c      *catalog
	src    *fakeSource
	locker *fakeLocker
	cache  *fakeCache
	reader *sdkmetric.ManualReader
	uc     *syncUseCase
}

func newHarness(src *fakeSource, opts Options) *harness {
	h := &harness{
		c:      newCatalog(),
		src:    src,
		locker: &fakeLocker{},
		cache:  &fakeCache{},
		reader: sdkmetric.NewManualReader(),
	}
	if opts.DefaultCategoryIcon == "" {
		opts.DefaultCategoryIcon = defaultIcon
	}
	if opts.DefaultProductImage == "" {
		opts.DefaultProductImage = defaultImage
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(h.reader))
	uc := NewSyncUseCase(Deps{
		Source:     src,
		Tx:         h.c,
		Stores:     storeRepo{c: h.c},
		Categories: categoryRepo{c: h.c},
		Products:   productRepo{c: h.c},
		Stock:      stockRepo{c: h.c},
		Locker:     h.locker,
		Cache:      h.cache,
		Meter:      provider.Meter("test"),
	}, opts, logger.NewNop())
	h.uc = uc.(*syncUseCase)
	return h
}

func (h *harness) sync(t *testing.T, scope model.SyncScope, ids ...int64) *model.SyncResult {
	t.Helper()
	res, err := h.uc.Synchronize(context.Background(), &dto.SyncInput{Scope: scope, ProductIDs: ids})
	require.NoError(t, err)
	return res
}

func (h *harness) counter(t *testing.T, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))

	want := attribute.NewSet(attrs...)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if dp.Attributes.Equals(&want) {
					return dp.Value
				}
			}
		}
	}
	return 0
}

func TestSynchronize_AllFromEmptyCatalog(t *testing.T) {
	h := newHarness(baseSource(), Options{})

	res := h.sync(t, model.SyncScopeAll)

	assert.Equal(t, model.SyncStatusSuccess, res.Status)
	assert.Empty(t, res.Errors)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"stores", "categories", "products", "stock"}, h.src.calls)

	assert.Equal(t, 2, res.Steps[model.SyncScopeStores].Created)
	assert.Equal(t, 2, res.Steps[model.SyncScopeCategories].Created)
	products := res.Steps[model.SyncScopeProducts]
	assert.Equal(t, 2, products.Created)
	assert.Equal(t, int64(3), products.StockWritten)

	s, err := storeRepo{c: h.c}.FindByExternalID(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "Store #2", s.Address)
	assert.True(t, s.IsActive)

	cat, err := categoryRepo{c: h.c}.FindByExternalID(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, cat)
	require.NotNil(t, cat.IconPath)
	assert.Equal(t, defaultIcon, *cat.IconPath)

	kopi, ok := h.c.productByExternalID(42)
	require.True(t, ok)
	require.NotNil(t, kopi.CategoryID)
	assert.Equal(t, cat.ID, *kopi.CategoryID)
	require.NotNil(t, kopi.ImagePath)
	assert.Equal(t, defaultImage, *kopi.ImagePath)
	assert.False(t, kopi.IsPromo)

	keripik, ok := h.c.productByExternalID(43)
	require.True(t, ok)
	assert.Nil(t, keripik.CategoryID, "unknown ERP category leaves the product uncategorized")
	assert.True(t, keripik.IsPromo)
	assert.True(t, keripik.EffectivePrice().Equal(dec("10000")))

	row, ok := h.c.stockOf(42, 1)
	require.True(t, ok)
	assert.True(t, row.Quantity.Equal(dec("7.55")))
	assert.True(t, row.Reserved.IsZero())

	assert.Equal(t, []string{LockKey}, h.locker.acquired)
	assert.Equal(t, 1, h.locker.released)
	assert.Equal(t, 1, h.cache.invalidations)
}

func TestSynchronize_SecondRunWritesNothing(t *testing.T) {
	h := newHarness(baseSource(), Options{})
	h.sync(t, model.SyncScopeAll)
	writes := h.c.productWrites
	before := cloneMap(h.c.products)

	res := h.sync(t, model.SyncScopeAll)

	assert.Equal(t, model.SyncStatusSuccess, res.Status)
	assert.Equal(t, model.StepStats{Unchanged: 2}, *res.Steps[model.SyncScopeStores])
	assert.Equal(t, model.StepStats{Unchanged: 2}, *res.Steps[model.SyncScopeCategories])
	assert.Equal(t, model.StepStats{Unchanged: 2, StockUnchanged: 3}, *res.Steps[model.SyncScopeProducts])

	assert.Equal(t, writes, h.c.productWrites)
	assert.Equal(t, before, h.c.products)
	assert.Equal(t, 1, h.cache.invalidations, "an unchanged run keeps the list cache")

	assert.Equal(t, int64(2), h.counter(t, "catalog_sync_runs_total",
		attribute.String("scope", "ALL"), attribute.String("status", "success")))
	assert.Equal(t, int64(2), h.counter(t, "catalog_sync_rows_written_total", attribute.String("entity", "product")))
	assert.Equal(t, int64(3), h.counter(t, "catalog_sync_rows_written_total", attribute.String("entity", "stock")))
}

func TestSynchronize_PreservesAdminOwnedFields(t *testing.T) {
	h := newHarness(baseSource(), Options{})
	h.c.categories[77] = model.Category{
		BaseModel:  model.BaseModel{ID: 77},
		ExternalID: 10,
		Name:       "Drinks",
		IconPath:   ptr("admin/drinks.png"),
	}
	h.c.products[500] = model.Product{
		BaseModel:  model.BaseModel{ID: 500},
		ExternalID: 42,
		CategoryID: ptr(int64(77)),
		Name:       "Kopi Susu",
		Price:      dec("14000"),
		Unit:       "cup",
		ImagePath:  ptr("custom/kopi.png"),
		IsActive:   true,
	}
	h.c.products[501] = model.Product{
		BaseModel:  model.BaseModel{ID: 501},
		ExternalID: 43,
		CategoryID: ptr(int64(78)),
		Name:       "Keripik",
		Price:      dec("12000"),
		PromoPrice: promo("10000"),
		IsPromo:    true,
		Unit:       "pack",
		IsActive:   true,
	}

	res := h.sync(t, model.SyncScopeAll)
	assert.Equal(t, model.SyncStatusSuccess, res.Status)

	categories := res.Steps[model.SyncScopeCategories]
	assert.Equal(t, 1, categories.Updated)
	assert.Equal(t, 1, categories.Created)
	drinks := h.c.categories[77]
	assert.Equal(t, "Beverages", drinks.Name)
	assert.Equal(t, "admin/drinks.png", *drinks.IconPath)

	products := res.Steps[model.SyncScopeProducts]
	assert.Equal(t, 1, products.Updated)
	assert.Equal(t, 1, products.Unchanged)
	assert.Zero(t, products.Created)

	kopi := h.c.products[500]
	assert.True(t, kopi.Price.Equal(dec("15000")))
	assert.Equal(t, "custom/kopi.png", *kopi.ImagePath)

	keripik := h.c.products[501]
	require.NotNil(t, keripik.CategoryID)
	assert.Equal(t, int64(78), *keripik.CategoryID, "an unresolved category keeps the stored one")
}

func TestSynchronize_StoresReactivatedAndLabelled(t *testing.T) {
	h := newHarness(baseSource(), Options{})
	h.c.stores[300] = model.Store{
		BaseModel:  model.BaseModel{ID: 300},
		ExternalID: ptr(int64(1)),
		Address:    "Jl. Merdeka 1",
		IsActive:   false,
	}

	res := h.sync(t, model.SyncScopeStores)

	stats := res.Steps[model.SyncScopeStores]
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Created)
	assert.True(t, h.c.stores[300].IsActive)
	assert.Equal(t, []string{"stores"}, h.src.calls)
	assert.Zero(t, h.cache.invalidations)
}

func TestSynchronize_UnknownStoresAreSkippedAndReported(t *testing.T) {
	src := baseSource()
	src.stock = append(src.stock,
		source.StockRow{ProductID: 43, StoreID: 7, Quantity: dec("4")},
		source.StockRow{ProductID: 42, StoreID: 7, Quantity: dec("1")},
		source.StockRow{ProductID: 43, StoreID: 8, Quantity: dec("2")},
	)
	h := newHarness(src, Options{})

	res := h.sync(t, model.SyncScopeAll)

	assert.Equal(t, model.SyncStatusPartial, res.Status)
	assert.Equal(t, []string{
		"stock: store 7 is unknown locally, 2 row(s) skipped",
		"stock: store 8 is unknown locally, 1 row(s) skipped",
	}, res.Errors)

	products := res.Steps[model.SyncScopeProducts]
	assert.Equal(t, 3, products.Skipped)
	assert.Equal(t, int64(3), products.StockWritten)
	assert.False(t, products.Failed)
}

func TestSynchronize_FailedStepDoesNotStopLaterSteps(t *testing.T) {
	src := baseSource()
	src.categoriesErr = fmt.Errorf("%w: timeout", apperr.ErrSourceUnavailable)
	h := newHarness(src, Options{})

	res := h.sync(t, model.SyncScopeAll)

	assert.Equal(t, model.SyncStatusPartial, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "categories: source inventory unavailable: timeout", res.Errors[0])
	assert.True(t, res.Steps[model.SyncScopeCategories].Failed)
	assert.Equal(t, 2, res.Steps[model.SyncScopeStores].Created)
	assert.Equal(t, 2, res.Steps[model.SyncScopeProducts].Created)

	kopi, ok := h.c.productByExternalID(42)
	require.True(t, ok)
	assert.Nil(t, kopi.CategoryID)
}

func TestSynchronize_AllStepsFailed(t *testing.T) {
	src := baseSource()
	outage := fmt.Errorf("%w: connection refused", apperr.ErrSourceUnavailable)
	src.storesErr, src.categoriesErr, src.productsErr = outage, outage, outage
	h := newHarness(src, Options{})

	res, err := h.uc.Synchronize(context.Background(), &dto.SyncInput{})

	require.NoError(t, err)
	assert.Equal(t, model.SyncScopeAll, res.Scope)
	assert.Equal(t, model.SyncStatusFailed, res.Status)
	assert.Len(t, res.Errors, 3)
	assert.Equal(t, 1, h.locker.released)
}

func TestSynchronize_FailedBatchLeavesOthersCommitted(t *testing.T) {
	src := baseSource()
	src.products = append(src.products, source.ProductRow{ID: 44, Name: "Teh Manis", Price: dec("5000"), Unit: "cup"})
	h := newHarness(src, Options{BatchSize: 1})
	h.sync(t, model.SyncScopeStores)
	h.c.failUpsertOn[2] = errors.New("deadlock detected")

	res := h.sync(t, model.SyncScopeProducts)

	assert.Equal(t, model.SyncStatusPartial, res.Status)
	assert.Equal(t, []string{"products batch 2: upsert products: deadlock detected"}, res.Errors)
	stats := res.Steps[model.SyncScopeProducts]
	assert.False(t, stats.Failed)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, int64(2), stats.StockWritten)

	_, ok := h.c.productByExternalID(42)
	assert.True(t, ok)
	_, ok = h.c.productByExternalID(43)
	assert.False(t, ok)
	_, ok = h.c.productByExternalID(44)
	assert.True(t, ok)
	_, ok = h.c.stockOf(43, 1)
	assert.False(t, ok)
}

func TestSynchronize_StockFailureRollsBackBatch(t *testing.T) {
	h := newHarness(baseSource(), Options{})
	h.sync(t, model.SyncScopeStores)
	h.c.failStock = errors.New("could not serialize access")

	res := h.sync(t, model.SyncScopeProducts)

	assert.Equal(t, model.SyncStatusFailed, res.Status)
	assert.True(t, res.Steps[model.SyncScopeProducts].Failed)
	assert.Equal(t, []string{
		"products batch 1: upsert stock: could not serialize access",
		"products: all 1 product batches failed",
	}, res.Errors)
	assert.Empty(t, h.c.products)
	assert.Zero(t, h.c.productWrites)
	assert.Zero(t, h.cache.invalidations)
}

func TestSynchronize_ProductFilter(t *testing.T) {
	h := newHarness(baseSource(), Options{})
	h.sync(t, model.SyncScopeStores)

	res := h.sync(t, model.SyncScopeProducts, 43)

	assert.Equal(t, 1, res.Steps[model.SyncScopeProducts].Created)
	_, ok := h.c.productByExternalID(42)
	assert.False(t, ok)
	_, ok = h.c.stockOf(43, 1)
	assert.True(t, ok)
}

func TestSynchronize_DuplicateSourceRows(t *testing.T) {
	src := baseSource()
	src.products = append(src.products, source.ProductRow{ID: 42, Name: "Kopi Susu Gula Aren", Price: dec("18000"), Unit: "cup"})
	src.stock = append(src.stock, source.StockRow{ProductID: 42, StoreID: 1, Quantity: dec("9")})
	h := newHarness(src, Options{})

	res := h.sync(t, model.SyncScopeAll)

	assert.Equal(t, model.SyncStatusSuccess, res.Status)
	assert.Equal(t, 2, res.Steps[model.SyncScopeProducts].Created)
	kopi, _ := h.c.productByExternalID(42)
	assert.Equal(t, "Kopi Susu Gula Aren", kopi.Name)
	row, _ := h.c.stockOf(42, 1)
	assert.True(t, row.Quantity.Equal(dec("9")))
}

func TestSynchronize_Lock(t *testing.T) {
	t.Run("held elsewhere", func(t *testing.T) {
		h := newHarness(baseSource(), Options{})
		h.locker.held = true

		res, err := h.uc.Synchronize(context.Background(), &dto.SyncInput{Scope: model.SyncScopeAll})

		assert.Nil(t, res)
		assert.ErrorIs(t, err, apperr.ErrSyncInProgress)
		assert.Empty(t, h.src.calls)
	})

	t.Run("lock backend down", func(t *testing.T) {
		h := newHarness(baseSource(), Options{})
		h.locker.err = errors.New("dial tcp 127.0.0.1:6379: connection refused")

		res := h.sync(t, model.SyncScopeStores)

		assert.Equal(t, model.SyncStatusSuccess, res.Status)
		assert.Zero(t, h.locker.released)
	})

	t.Run("lock expired during the run", func(t *testing.T) {
		h := newHarness(baseSource(), Options{})
		h.locker.unlockErr = fmt.Errorf("%w: %s", lock.ErrLockLost, LockKey)

		res := h.sync(t, model.SyncScopeStores)

		assert.Equal(t, model.SyncStatusSuccess, res.Status)
		assert.Equal(t, 1, h.locker.released)
	})
}

func TestSynchronize_CoalescesConcurrentCalls(t *testing.T) {
	src := baseSource()
	src.entered = make(chan struct{}, 2)
	src.release = make(chan struct{})
	h := newHarness(src, Options{})

	var wg sync.WaitGroup
	results := make([]*model.SyncResult, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.uc.Synchronize(context.Background(), &dto.SyncInput{Scope: model.SyncScopeStores})
			assert.NoError(t, err)
			results[i] = res
		}()
	}

	<-src.entered
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, results[0].RunID, results[1].RunID)
	assert.Equal(t, []string{"stores"}, h.src.calls)
}

func TestSynchronize_Validation(t *testing.T) {
	h := newHarness(baseSource(), Options{})

	tests := []struct {
		name  string
		input *dto.SyncInput
	}{
		{"unknown scope", &dto.SyncInput{Scope: "EVERYTHING"}},
		{"ids outside products scope", &dto.SyncInput{Scope: model.SyncScopeStores, ProductIDs: []int64{42}}},
		{"non-positive id", &dto.SyncInput{Scope: model.SyncScopeProducts, ProductIDs: []int64{0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.uc.Synchronize(context.Background(), tt.input)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
	assert.Empty(t, h.src.calls)
}

func TestNewSyncUseCase_BatchSize(t *testing.T) {
	tests := []struct {
		name       string
		configured int
		want       int
	}{
		{"default", 0, defaultBatchSize},
		{"configured", 250, 250},
		{"capped to one statement", 100000, product.MaxUpsertBatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(baseSource(), Options{BatchSize: tt.configured})
			assert.Equal(t, tt.want, h.uc.opts.BatchSize)
		})
	}
}

func TestFlightKey(t *testing.T) {
	assert.Equal(t, "ALL", flightKey(&dto.SyncInput{Scope: model.SyncScopeAll}))
	assert.Equal(t, "PRODUCTS:1,3,9", flightKey(&dto.SyncInput{Scope: model.SyncScopeProducts, ProductIDs: []int64{9, 3, 1, 3}}))
}

func TestDedupeProducts(t *testing.T) {
	rows := []source.ProductRow{
		{ID: 42, Name: "old"},
		{ID: 43, Name: "chips"},
		{ID: 42, Name: "new"},
	}

	got := dedupeProducts(rows)

	assert.Equal(t, []source.ProductRow{{ID: 42, Name: "new"}, {ID: 43, Name: "chips"}}, got)
}

func TestStageStock(t *testing.T) {
	lookups := &productLookups{
		stores: map[int64]int64{1: 101, 2: 102},
		stock: map[int64][]source.StockRow{
			42: {
				{ProductID: 42, StoreID: 1, Quantity: dec("1")},
				{ProductID: 42, StoreID: 5, Quantity: dec("2")},
				{ProductID: 42, StoreID: 1, Quantity: dec("3")},
			},
			43: {{ProductID: 43, StoreID: 2, Quantity: dec("4")}},
		},
	}
	batch := []source.ProductRow{{ID: 42}, {ID: 43}, {ID: 44}}
	ids := map[int64]int64{42: 500, 43: 501}

	staged, skipped := stageStock(batch, ids, lookups)

	require.Len(t, staged, 2)
	assert.Equal(t, model.StockKey{ProductID: 500, StoreID: 101}, staged[0].Key())
	assert.True(t, staged[0].Quantity.Equal(dec("3")))
	assert.Equal(t, model.StockKey{ProductID: 501, StoreID: 102}, staged[1].Key())
	assert.Equal(t, map[int64]int{5: 1}, skipped)
}

func TestStageStock_LockOrder(t *testing.T) {
	lookups := &productLookups{
		stores: map[int64]int64{1: 102, 2: 101},
		stock: map[int64][]source.StockRow{
			43: {{ProductID: 43, StoreID: 1, Quantity: dec("1")}},
			42: {
				{ProductID: 42, StoreID: 1, Quantity: dec("2")},
				{ProductID: 42, StoreID: 2, Quantity: dec("3")},
			},
		},
	}
	batch := []source.ProductRow{{ID: 43}, {ID: 42}}
	ids := map[int64]int64{43: 9, 42: 5}

	staged, _ := stageStock(batch, ids, lookups)

	keys := make([]model.StockKey, 0, len(staged))
	for _, u := range staged {
		keys = append(keys, u.Key())
	}
	assert.Equal(t, []model.StockKey{
		{ProductID: 5, StoreID: 101},
		{ProductID: 5, StoreID: 102},
		{ProductID: 9, StoreID: 102},
	}, keys)
}
