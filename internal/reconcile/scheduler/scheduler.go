package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile/dto"
	"go.uber.org/zap"
)

// Scheduler runs a full reconciliation every interval until its context is
// cancelled. An interval of zero disables it.
type Scheduler struct {
	uc       reconcile.UseCase
	interval time.Duration
	logger   logger.ZapLogger
}

func NewScheduler(uc reconcile.UseCase, interval time.Duration, log logger.ZapLogger) *Scheduler {
	return &Scheduler{
		uc:       uc,
		interval: interval,
		logger:   log,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Sync scheduler disabled")
		return
	}

	s.logger.Info("Starting sync scheduler", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping sync scheduler")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *Scheduler) RunOnce(ctx context.Context) {
	result, err := s.uc.Synchronize(ctx, &dto.SyncInput{Scope: model.SyncScopeAll})
	switch {
	case errors.Is(err, apperr.ErrSyncInProgress):
		s.logger.Info("Scheduled sync skipped, another run holds the lock")
	case err != nil:
		s.logger.Error("Scheduled sync failed", zap.Error(err))
	case result.Status != model.SyncStatusSuccess:
		s.logger.Warn("Scheduled sync completed with errors",
			zap.String("run_id", result.RunID),
			zap.String("status", string(result.Status)),
			zap.Strings("errors", result.Errors),
		)
	default:
		s.logger.Info("Scheduled sync completed", zap.String("run_id", result.RunID))
	}
}
