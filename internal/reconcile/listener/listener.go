package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fekuna/omnipos-catalog-service/config"
	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile/dto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafka.Reader the listener needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

func NewKafkaReader(cfg *config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.SyncTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1e6,
	})
}

// SyncListener turns ERP change notifications into targeted reconciliation
// runs, so a product edited in the ERP does not wait for the next schedule.
type SyncListener struct {
	reader MessageReader
	uc     reconcile.UseCase
	logger logger.ZapLogger
}

func NewSyncListener(reader MessageReader, uc reconcile.UseCase, log logger.ZapLogger) *SyncListener {
	return &SyncListener{
		reader: reader,
		uc:     uc,
		logger: log,
	}
}

// SyncRequestedEvent is published by the ERP integration when source rows
// change. ProductIDs is only meaningful for the PRODUCTS scope.
type SyncRequestedEvent struct {
	EventID    string    `json:"event_id"`
	Scope      string    `json:"scope"`
	ProductIDs []int64   `json:"product_ids"`
	Timestamp  time.Time `json:"timestamp"`
}

func (l *SyncListener) Start(ctx context.Context) {
	l.logger.Info("Starting sync request listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping sync request listener")
			return
		default:
			msg, err := l.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

func (l *SyncListener) processMessage(ctx context.Context, value []byte) {
	var event SyncRequestedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal sync request", zap.Error(err))
		return
	}

	scope, err := model.ParseSyncScope(event.Scope)
	if err != nil {
		l.logger.Warn("Ignoring sync request", zap.String("event_id", event.EventID), zap.Error(err))
		return
	}

	result, err := l.uc.Synchronize(ctx, &dto.SyncInput{Scope: scope, ProductIDs: event.ProductIDs})
	switch {
	case errors.Is(err, apperr.ErrSyncInProgress):
		l.logger.Info("Sync request skipped, another run holds the lock", zap.String("event_id", event.EventID))
	case err != nil:
		l.logger.Error("Sync request failed", zap.String("event_id", event.EventID), zap.Error(err))
	default:
		l.logger.Info("Sync request processed",
			zap.String("event_id", event.EventID),
			zap.String("run_id", result.RunID),
			zap.String("status", string(result.Status)),
		)
	}
}
