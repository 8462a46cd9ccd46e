package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/category"
	"github.com/fekuna/omnipos-catalog-service/internal/database"
	"github.com/fekuna/omnipos-catalog-service/internal/inventory"
	"github.com/fekuna/omnipos-catalog-service/internal/lock"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/source"
	"github.com/fekuna/omnipos-catalog-service/internal/store"
	"github.com/fekuna/omnipos-catalog-service/internal/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	instrumentationName = "omnipos-catalog-service/reconcile"

	// LockKey guards every scope: two replicas never reconcile concurrently.
	LockKey = "lock:catalog-sync"

	defaultBatchSize = 100
)

type Options struct {
	BatchSize           int
	DefaultCategoryIcon string
	DefaultProductImage string
	LockTTL             time.Duration
}

// Deps are the collaborators of the engine. Locker, Cache and Meter are
// optional.
type Deps struct {
	Source     source.Client
	Tx         database.Transactor
	Stores     store.Repository
	Categories category.Repository
	Products   product.Repository
	Stock      inventory.Repository
	Locker     lock.Locker
	Cache      reconcile.CacheInvalidator
	Meter      metric.Meter
}

type syncUseCase struct {
	source     source.Client
	tx         database.Transactor
	stores     store.Repository
	categories category.Repository
	products   product.Repository
	stock      inventory.Repository
	locker     lock.Locker
	cache      reconcile.CacheInvalidator

	opts   Options
	group  singleflight.Group
	tracer trace.Tracer
	runs   metric.Int64Counter
	rows   metric.Int64Counter
	logger logger.ZapLogger
	now    func() time.Time
}

func NewSyncUseCase(deps Deps, opts Options, log logger.ZapLogger) reconcile.UseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchSize > product.MaxUpsertBatch {
		log.Warn("Sync batch size capped",
			zap.Int("configured", opts.BatchSize), zap.Int("max", product.MaxUpsertBatch))
		opts.BatchSize = product.MaxUpsertBatch
	}

	uc := &syncUseCase{
		source:     deps.Source,
		tx:         deps.Tx,
		stores:     deps.Stores,
		categories: deps.Categories,
		products:   deps.Products,
		stock:      deps.Stock,
		locker:     deps.Locker,
		cache:      deps.Cache,
		opts:       opts,
		tracer:     otel.Tracer(instrumentationName),
		logger:     log,
		now:        time.Now,
	}
	uc.initMetrics(deps.Meter)
	return uc
}

func (uc *syncUseCase) initMetrics(meter metric.Meter) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	var err error
	uc.runs, err = meter.Int64Counter("catalog_sync_runs_total",
		metric.WithDescription("Reconciliation runs by scope and outcome"))
	if err != nil {
		uc.logger.Warn("Failed to create sync runs counter", zap.Error(err))
		uc.runs, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("catalog_sync_runs_total")
	}

	uc.rows, err = meter.Int64Counter("catalog_sync_rows_written_total",
		metric.WithDescription("Rows inserted or changed by reconciliation"))
	if err != nil {
		uc.logger.Warn("Failed to create sync rows counter", zap.Error(err))
		uc.rows, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("catalog_sync_rows_written_total")
	}
}

func (uc *syncUseCase) Synchronize(ctx context.Context, input *dto.SyncInput) (*model.SyncResult, error) {
	if input.Scope == "" {
		input.Scope = model.SyncScopeAll
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if len(input.ProductIDs) > 0 && input.Scope != model.SyncScopeProducts {
		return nil, fmt.Errorf("%w: product_ids only apply to the PRODUCTS scope", apperr.ErrValidation)
	}

	v, err, shared := uc.group.Do(flightKey(input), func() (any, error) {
		return uc.run(ctx, input.Scope, input.ProductIDs)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		uc.logger.Debug("Joined in-flight sync", zap.String("scope", string(input.Scope)))
	}
	return v.(*model.SyncResult), nil
}

// flightKey identifies the operation: the scope plus the sorted id filter.
func flightKey(input *dto.SyncInput) string {
	if len(input.ProductIDs) == 0 {
		return string(input.Scope)
	}
	ids := slices.Clone(input.ProductIDs)
	slices.Sort(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range slices.Compact(ids) {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return string(input.Scope) + ":" + strings.Join(parts, ",")
}

func (uc *syncUseCase) run(ctx context.Context, scope model.SyncScope, productIDs []int64) (*model.SyncResult, error) {
	runID := uuid.NewString()
	log := uc.logger.With(zap.String("run_id", runID), zap.String("scope", string(scope)))

	ctx, span := uc.tracer.Start(ctx, "reconcile.Synchronize", trace.WithAttributes(
		attribute.String("sync.scope", string(scope)),
		attribute.String("sync.run_id", runID),
	))
	defer span.End()

	if uc.locker != nil {
		unlock, acquired, err := uc.locker.TryLock(ctx, LockKey, uc.opts.LockTTL)
		switch {
		case err != nil:
			// A lock outage does not stop reconciliation.
			log.Warn("Sync lock unavailable, running without it", zap.Error(err))
		case !acquired:
			span.SetStatus(codes.Error, "sync in progress")
			return nil, apperr.ErrSyncInProgress
		default:
			defer func() {
				err := unlock(context.WithoutCancel(ctx))
				switch {
				case errors.Is(err, lock.ErrLockLost):
					log.Warn("Sync lock was lost before the run finished", zap.Duration("lock_ttl", uc.opts.LockTTL))
				case err != nil:
					log.Warn("Failed to release sync lock", zap.Error(err))
				}
			}()
		}
	}

	result := model.NewSyncResult(runID, scope, uc.now())
	log.Info("Sync started")

	for _, step := range scope.Steps() {
		if err := uc.runStep(ctx, step, productIDs, result); err != nil {
			result.Step(step).Failed = true
			result.AddError("%s: %v", strings.ToLower(string(step)), err)
			log.Error("Sync step failed; previous steps remain committed",
				zap.String("step", string(step)), zap.Error(err))
		}
	}

	result.Finish(uc.now())

	uc.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", string(scope)),
		attribute.String("status", string(result.Status)),
	))
	span.SetAttributes(attribute.String("sync.status", string(result.Status)))
	if result.Status == model.SyncStatusFailed {
		span.SetStatus(codes.Error, "all steps failed")
	}

	if stats, ok := result.Steps[model.SyncScopeProducts]; ok && uc.cache != nil && stats.Created+stats.Updated > 0 {
		uc.cache.InvalidateListCache(ctx)
	}

	log.Info("Sync finished",
		zap.String("status", string(result.Status)),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

func (uc *syncUseCase) runStep(ctx context.Context, step model.SyncScope, productIDs []int64, result *model.SyncResult) error {
	ctx, span := uc.tracer.Start(ctx, "reconcile."+strings.ToLower(string(step)))
	defer span.End()

	var err error
	switch step {
	case model.SyncScopeStores:
		err = uc.syncStores(ctx, result)
	case model.SyncScopeCategories:
		err = uc.syncCategories(ctx, result)
	case model.SyncScopeProducts:
		err = uc.syncProducts(ctx, productIDs, result)
	default:
		err = fmt.Errorf("unknown step %s", step)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (uc *syncUseCase) countWritten(ctx context.Context, entity string, n int64) {
	if n > 0 {
		uc.rows.Add(ctx, n, metric.WithAttributes(attribute.String("entity", entity)))
	}
}

// rowError reports whether a per-row failure can be recorded and skipped.
// Anything else aborts the step.
func rowError(err error) bool {
	return errors.Is(err, apperr.ErrConflict)
}
