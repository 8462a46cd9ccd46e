package usecase

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/source"
	"go.uber.org/zap"
)

// syncStores upserts stores one row at a time by external id. Mirrored stores
// are always active and never left without an address.
func (uc *syncUseCase) syncStores(ctx context.Context, result *model.SyncResult) error {
	rows, err := uc.source.ListStores(ctx)
	if err != nil {
		return err
	}

	stats := result.Step(model.SyncScopeStores)
	for _, row := range rows {
		err := uc.upsertStore(ctx, row, stats)
		if err == nil {
			continue
		}
		if !rowError(err) {
			return fmt.Errorf("store %d: %w", row.ID, err)
		}
		stats.Skipped++
		result.AddError("store %d: %v", row.ID, err)
	}

	uc.countWritten(ctx, "store", int64(stats.Created+stats.Updated))
	return nil
}

func (uc *syncUseCase) upsertStore(ctx context.Context, row source.StoreRow, stats *model.StepStats) error {
	address := model.StoreAddress(row.Address, row.ID)

	existing, err := uc.stores.FindByExternalID(ctx, row.ID)
	if err != nil {
		return err
	}

	if existing == nil {
		externalID := row.ID
		if err := uc.stores.Create(ctx, &model.Store{
			ExternalID: &externalID,
			Address:    address,
			IsActive:   true,
		}); err != nil {
			return err
		}
		stats.Created++
		return nil
	}

	if existing.Address == address && existing.IsActive {
		stats.Unchanged++
		return nil
	}

	existing.Address = address
	existing.IsActive = true
	if err := uc.stores.Update(ctx, existing); err != nil {
		return err
	}
	stats.Updated++
	return nil
}

// syncCategories upserts categories by external id. The default icon is only
// given to new categories; an existing icon_path is never written.
func (uc *syncUseCase) syncCategories(ctx context.Context, result *model.SyncResult) error {
	rows, err := uc.source.ListCategories(ctx)
	if err != nil {
		return err
	}

	stats := result.Step(model.SyncScopeCategories)
	for _, row := range rows {
		err := uc.upsertCategory(ctx, row, stats)
		if err == nil {
			continue
		}
		if !rowError(err) {
			return fmt.Errorf("category %d: %w", row.ID, err)
		}
		stats.Skipped++
		result.AddError("category %d: %v", row.ID, err)
	}

	uc.countWritten(ctx, "category", int64(stats.Created+stats.Updated))
	return nil
}

func (uc *syncUseCase) upsertCategory(ctx context.Context, row source.CategoryRow, stats *model.StepStats) error {
	existing, err := uc.categories.FindByExternalID(ctx, row.ID)
	if err != nil {
		return err
	}

	if existing == nil {
		c := &model.Category{ExternalID: row.ID, Name: row.Name}
		if uc.opts.DefaultCategoryIcon != "" {
			icon := uc.opts.DefaultCategoryIcon
			c.IconPath = &icon
		}
		if err := uc.categories.Create(ctx, c); err != nil {
			return err
		}
		stats.Created++
		return nil
	}

	if existing.Name == row.Name {
		stats.Unchanged++
		return nil
	}
	if err := uc.categories.UpdateName(ctx, existing.ID, row.Name); err != nil {
		return err
	}
	stats.Updated++
	return nil
}

// productLookups are the local id maps a product batch is resolved against.
type productLookups struct {
	stores     map[int64]int64
	categories map[int64]int64
	products   map[int64]int64
	stock      map[int64][]source.StockRow
}

// syncProducts reconciles products and their stock in batches. Each batch
// commits on its own; a failed batch is reported and the next one still runs.
func (uc *syncUseCase) syncProducts(ctx context.Context, productIDs []int64, result *model.SyncResult) error {
	rows, err := uc.source.ListProducts(ctx, productIDs)
	if err != nil {
		return err
	}
	stockRows, err := uc.source.ListStock(ctx, productIDs)
	if err != nil {
		return err
	}

	lookups, err := uc.loadLookups(ctx, stockRows)
	if err != nil {
		return err
	}

	stats := result.Step(model.SyncScopeProducts)
	unknownStores := map[int64]int{}

	batches, failed := 0, 0
	for batch := range slices.Chunk(rows, uc.opts.BatchSize) {
		batches++
		if err := uc.syncProductBatch(ctx, dedupeProducts(batch), lookups, stats, unknownStores); err != nil {
			failed++
			result.AddError("products batch %d: %v", batches, err)
			uc.logger.Error("Product batch failed; committed batches remain applied",
				zap.Int("batch", batches), zap.Int("size", len(batch)), zap.Error(err))
		}
	}

	for _, storeID := range slices.Sorted(maps.Keys(unknownStores)) {
		n := unknownStores[storeID]
		stats.Skipped += n
		result.AddError("stock: store %d is unknown locally, %d row(s) skipped", storeID, n)
	}

	uc.countWritten(ctx, "product", int64(stats.Created+stats.Updated))
	uc.countWritten(ctx, "stock", stats.StockWritten)

	if batches > 0 && failed == batches {
		return fmt.Errorf("all %d product batches failed", batches)
	}
	return nil
}

func (uc *syncUseCase) loadLookups(ctx context.Context, stockRows []source.StockRow) (*productLookups, error) {
	stores, err := uc.stores.ExternalIDMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store map: %w", err)
	}
	categories, err := uc.categories.ExternalIDMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category map: %w", err)
	}
	products, err := uc.products.RefIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("load product index: %w", err)
	}

	stock := make(map[int64][]source.StockRow)
	for _, row := range stockRows {
		stock[row.ProductID] = append(stock[row.ProductID], row)
	}

	return &productLookups{
		stores:     stores,
		categories: categories,
		products:   products,
		stock:      stock,
	}, nil
}

// dedupeProducts keeps one row per external id. The last occurrence wins and
// takes the position of the first.
func dedupeProducts(rows []source.ProductRow) []source.ProductRow {
	out := make([]source.ProductRow, 0, len(rows))
	pos := make(map[int64]int, len(rows))
	for _, row := range rows {
		if i, seen := pos[row.ID]; seen {
			out[i] = row
			continue
		}
		pos[row.ID] = len(out)
		out = append(out, row)
	}
	return out
}

func (uc *syncUseCase) buildUpserts(batch []source.ProductRow, lookups *productLookups) []model.ProductUpsert {
	upserts := make([]model.ProductUpsert, 0, len(batch))
	for _, row := range batch {
		u := model.ProductUpsert{
			ExternalID: row.ID,
			Name:       row.Name,
			Price:      row.Price,
			PromoPrice: row.PromoPrice,
			IsPromo:    model.IsPromoPrice(row.PromoPrice),
			Unit:       row.Unit,
		}
		if row.CategoryID != nil {
			if id, ok := lookups.categories[*row.CategoryID]; ok {
				u.CategoryID = &id
			}
		}
		if _, exists := lookups.products[row.ID]; !exists && uc.opts.DefaultProductImage != "" {
			image := uc.opts.DefaultProductImage
			u.ImagePath = &image
		}
		upserts = append(upserts, u)
	}
	return upserts
}

func (uc *syncUseCase) syncProductBatch(
	ctx context.Context,
	batch []source.ProductRow,
	lookups *productLookups,
	stats *model.StepStats,
	unknownStores map[int64]int,
) error {
	upserts := uc.buildUpserts(batch, lookups)

	var (
		refs    []model.ProductRef
		staged  []model.StockUpsert
		written int64
		skipped map[int64]int
	)
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		refs, err = uc.products.UpsertBatch(ctx, upserts)
		if err != nil {
			return fmt.Errorf("upsert products: %w", err)
		}

		ids := make(map[int64]int64, len(batch))
		for _, row := range batch {
			if id, ok := lookups.products[row.ID]; ok {
				ids[row.ID] = id
			}
		}
		for _, ref := range refs {
			ids[ref.ExternalID] = ref.ID
		}

		staged, skipped = stageStock(batch, ids, lookups)
		written, err = uc.stock.UpsertQuantities(ctx, staged)
		if err != nil {
			return fmt.Errorf("upsert stock: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if _, existed := lookups.products[ref.ExternalID]; existed {
			stats.Updated++
		} else {
			stats.Created++
		}
		lookups.products[ref.ExternalID] = ref.ID
	}
	stats.Unchanged += len(batch) - len(refs)
	stats.StockWritten += written
	stats.StockUnchanged += int64(len(staged)) - written
	for storeID, n := range skipped {
		unknownStores[storeID] += n
	}
	return nil
}

// stageStock builds the stock upserts of a batch sorted by (product, store),
// the same order checkout locks ledger rows in. Rows for a store that is not
// known locally are counted per ERP store id and left out. A repeated
// (product, store) pair keeps its last quantity.
func stageStock(batch []source.ProductRow, ids map[int64]int64, lookups *productLookups) ([]model.StockUpsert, map[int64]int) {
	var staged []model.StockUpsert
	pos := map[model.StockKey]int{}
	skipped := map[int64]int{}

	for _, row := range batch {
		productID, ok := ids[row.ID]
		if !ok {
			continue
		}
		for _, s := range lookups.stock[row.ID] {
			storeID, ok := lookups.stores[s.StoreID]
			if !ok {
				skipped[s.StoreID]++
				continue
			}

			u := model.StockUpsert{ProductID: productID, StoreID: storeID, Quantity: s.Quantity}
			if i, seen := pos[u.Key()]; seen {
				staged[i] = u
				continue
			}
			pos[u.Key()] = len(staged)
			staged = append(staged, u)
		}
	}

	slices.SortFunc(staged, func(a, b model.StockUpsert) int {
		return cmp.Or(cmp.Compare(a.ProductID, b.ProductID), cmp.Compare(a.StoreID, b.StoreID))
	})
	return staged, skipped
}
