package usecase

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	categorydto "github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	productdto "github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/source"
	storedto "github.com/fekuna/omnipos-catalog-service/internal/store/dto"
	"github.com/shopspring/decimal"
)

// catalog is an in-memory catalog database. Its upserts follow the SQL the
// Postgres repositories run, and WithinTx restores a snapshot on error.
type catalog struct {
	mu         sync.Mutex
	nextID     int64
	stores     map[int64]model.Store
	categories map[int64]model.Category
	products   map[int64]model.Product
	stock      map[model.StockKey]model.ProductStock
	clock      time.Time

	productWrites int
	upsertCalls   int
	failUpsertOn  map[int]error
	failStock     error
}

func newCatalog() *catalog {
	return &catalog{
		nextID:       1000,
		stores:       map[int64]model.Store{},
		categories:   map[int64]model.Category{},
		products:     map[int64]model.Product{},
		stock:        map[model.StockKey]model.ProductStock{},
		clock:        time.Date(2026, time.March, 5, 8, 0, 0, 0, time.UTC),
		failUpsertOn: map[int]error{},
	}
}

func (c *catalog) id() int64 {
	c.nextID++
	return c.nextID
}

func (c *catalog) tick() time.Time {
	c.clock = c.clock.Add(time.Second)
	return c.clock
}

func (c *catalog) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	products := cloneMap(c.products)
	stock := cloneMap(c.stock)
	nextID := c.nextID
	writes := c.productWrites
	c.mu.Unlock()

	if err := fn(ctx); err != nil {
		c.mu.Lock()
		c.products, c.stock, c.nextID, c.productWrites = products, stock, nextID, writes
		c.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (c *catalog) productByExternalID(externalID int64) (model.Product, bool) {
	for _, p := range c.products {
		if p.ExternalID == externalID {
			return p, true
		}
	}
	return model.Product{}, false
}

func (c *catalog) stockOf(productExternalID, storeExternalID int64) (model.ProductStock, bool) {
	p, ok := c.productByExternalID(productExternalID)
	if !ok {
		return model.ProductStock{}, false
	}
	for _, s := range c.stores {
		if s.ExternalID != nil && *s.ExternalID == storeExternalID {
			row, ok := c.stock[model.StockKey{ProductID: p.ID, StoreID: s.ID}]
			return row, ok
		}
	}
	return model.ProductStock{}, false
}

type storeRepo struct{ c *catalog }

func (r storeRepo) Create(ctx context.Context, s *model.Store) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	s.ID = r.c.id()
	s.CreatedAt = r.c.tick()
	s.UpdatedAt = s.CreatedAt
	r.c.stores[s.ID] = *s
	return nil
}

func (r storeRepo) FindByID(ctx context.Context, id int64) (*model.Store, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	s, ok := r.c.stores[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r storeRepo) FindByExternalID(ctx context.Context, externalID int64) (*model.Store, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, s := range r.c.stores {
		if s.ExternalID != nil && *s.ExternalID == externalID {
			return &s, nil
		}
	}
	return nil, nil
}

func (r storeRepo) FindAll(ctx context.Context, filters *storedto.StoreFilters) ([]model.Store, error) {
	return nil, nil
}

func (r storeRepo) Update(ctx context.Context, s *model.Store) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	s.UpdatedAt = r.c.tick()
	r.c.stores[s.ID] = *s
	return nil
}

func (r storeRepo) Deactivate(ctx context.Context, id int64) error { return nil }

func (r storeRepo) ExternalIDMap(ctx context.Context) (map[int64]int64, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	m := map[int64]int64{}
	for _, s := range r.c.stores {
		if s.ExternalID != nil {
			m[*s.ExternalID] = s.ID
		}
	}
	return m, nil
}

type categoryRepo struct {
	c         *catalog
	createErr map[int64]error
}

func (r categoryRepo) Create(ctx context.Context, cat *model.Category) error {
	if err := r.createErr[cat.ExternalID]; err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	cat.ID = r.c.id()
	r.c.categories[cat.ID] = *cat
	return nil
}

func (r categoryRepo) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	return nil, nil
}

func (r categoryRepo) FindByExternalID(ctx context.Context, externalID int64) (*model.Category, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, cat := range r.c.categories {
		if cat.ExternalID == externalID {
			return &cat, nil
		}
	}
	return nil, nil
}

func (r categoryRepo) FindAll(ctx context.Context, filters *categorydto.CategoryFilters) ([]model.Category, error) {
	return nil, nil
}

func (r categoryRepo) UpdateName(ctx context.Context, id int64, name string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	cat := r.c.categories[id]
	cat.Name = name
	r.c.categories[id] = cat
	return nil
}

func (r categoryRepo) SetIcon(ctx context.Context, id int64, iconPath string) error { return nil }

func (r categoryRepo) ExternalIDMap(ctx context.Context) (map[int64]int64, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	m := map[int64]int64{}
	for _, cat := range r.c.categories {
		m[cat.ExternalID] = cat.ID
	}
	return m, nil
}

type productRepo struct{ c *catalog }

func (r productRepo) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	return nil, nil
}

func (r productRepo) FindAll(ctx context.Context, filters *productdto.ProductFilters) ([]model.Product, int, error) {
	return nil, 0, nil
}

func (r productRepo) RefIndex(ctx context.Context) (map[int64]int64, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	m := map[int64]int64{}
	for _, p := range r.c.products {
		m[p.ExternalID] = p.ID
	}
	return m, nil
}

func (r productRepo) UpsertBatch(ctx context.Context, rows []model.ProductUpsert) ([]model.ProductRef, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	r.c.upsertCalls++
	if err := r.c.failUpsertOn[r.c.upsertCalls]; err != nil {
		return nil, err
	}

	seen := map[int64]bool{}
	var refs []model.ProductRef
	for _, row := range rows {
		if seen[row.ExternalID] {
			return nil, errors.New("ON CONFLICT DO UPDATE command cannot affect row a second time")
		}
		seen[row.ExternalID] = true

		existing, ok := r.c.productByExternalID(row.ExternalID)
		if !ok {
			now := r.c.tick()
			p := model.Product{
				BaseModel:  model.BaseModel{ID: r.c.id(), CreatedAt: now, UpdatedAt: now},
				ExternalID: row.ExternalID,
				CategoryID: row.CategoryID,
				Name:       row.Name,
				Price:      row.Price,
				PromoPrice: row.PromoPrice,
				IsPromo:    row.IsPromo,
				Unit:       row.Unit,
				ImagePath:  row.ImagePath,
				IsActive:   true,
			}
			r.c.products[p.ID] = p
			r.c.productWrites++
			refs = append(refs, model.ProductRef{ID: p.ID, ExternalID: p.ExternalID})
			continue
		}

		categoryID := row.CategoryID
		if categoryID == nil {
			categoryID = existing.CategoryID
		}
		if existing.Name == row.Name &&
			existing.Price.Equal(row.Price) &&
			nullDecimalEqual(existing.PromoPrice, row.PromoPrice) &&
			existing.IsPromo == row.IsPromo &&
			existing.Unit == row.Unit &&
			int64PtrEqual(existing.CategoryID, categoryID) {
			continue
		}

		existing.Name = row.Name
		existing.Price = row.Price
		existing.PromoPrice = row.PromoPrice
		existing.IsPromo = row.IsPromo
		existing.Unit = row.Unit
		existing.CategoryID = categoryID
		existing.UpdatedAt = r.c.tick()
		r.c.products[existing.ID] = existing
		r.c.productWrites++
		refs = append(refs, model.ProductRef{ID: existing.ID, ExternalID: existing.ExternalID})
	}
	return refs, nil
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type stockRepo struct{ c *catalog }

func (r stockRepo) FindByProduct(ctx context.Context, productID int64, storeID *int64) ([]model.ProductStock, error) {
	return nil, nil
}

func (r stockRepo) UpsertQuantities(ctx context.Context, rows []model.StockUpsert) (int64, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	if r.c.failStock != nil {
		return 0, r.c.failStock
	}

	var written int64
	for _, row := range rows {
		existing, ok := r.c.stock[row.Key()]
		if ok && existing.Quantity.Equal(row.Quantity) {
			continue
		}
		if !ok {
			existing = model.ProductStock{ID: r.c.id(), ProductID: row.ProductID, StoreID: row.StoreID, Reserved: decimal.Zero}
		}
		existing.Quantity = row.Quantity
		existing.UpdatedAt = r.c.tick()
		r.c.stock[row.Key()] = existing
		written++
	}
	return written, nil
}

func (r stockRepo) GetForUpdate(ctx context.Context, productID, storeID int64) (*model.ProductStock, error) {
	return nil, nil
}

func (r stockRepo) SetQuantity(ctx context.Context, id int64, quantity decimal.Decimal) error {
	return apperr.ErrNotFound
}

type fakeSource struct {
	mu         sync.Mutex
	stores     []source.StoreRow
	categories []source.CategoryRow
	products   []source.ProductRow
	stock      []source.StockRow

	storesErr     error
	categoriesErr error
	productsErr   error

	calls   []string
	entered chan struct{}
	release chan struct{}
}

func (s *fakeSource) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *fakeSource) ListStores(ctx context.Context) ([]source.StoreRow, error) {
	s.record("stores")
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	if s.storesErr != nil {
		return nil, s.storesErr
	}
	return slices.Clone(s.stores), nil
}

func (s *fakeSource) ListCategories(ctx context.Context) ([]source.CategoryRow, error) {
	s.record("categories")
	if s.categoriesErr != nil {
		return nil, s.categoriesErr
	}
	return slices.Clone(s.categories), nil
}

func (s *fakeSource) ListProducts(ctx context.Context, ids []int64) ([]source.ProductRow, error) {
	s.record("products")
	if s.productsErr != nil {
		return nil, s.productsErr
	}
	var out []source.ProductRow
	for _, p := range s.products {
		if len(ids) == 0 || slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeSource) ListStock(ctx context.Context, ids []int64) ([]source.StockRow, error) {
	s.record("stock")
	var out []source.StockRow
	for _, row := range s.stock {
		if len(ids) == 0 || slices.Contains(ids, row.ProductID) {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeLocker struct {
	held      bool
	err       error
	unlockErr error
	acquired  []string
	released  int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.acquired = append(l.acquired, key)
	return func(context.Context) error {
		l.released++
		return l.unlockErr
	}, true, nil
}

type fakeCache struct{ invalidations int }

func (c *fakeCache) InvalidateListCache(ctx context.Context) { c.invalidations++ }
