package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/cart"
	"github.com/fekuna/omnipos-catalog-service/internal/database"
	"github.com/fekuna/omnipos-catalog-service/internal/inventory"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/order"
	"github.com/fekuna/omnipos-catalog-service/internal/order/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/store"
	"github.com/fekuna/omnipos-catalog-service/internal/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type orderUseCase struct {
	tx        database.Transactor
	orders    order.Repository
	carts     cart.Repository
	stock     inventory.Repository
	stores    store.Repository
	publisher order.Publisher
	tracer    trace.Tracer
	logger    logger.ZapLogger
	now       func() time.Time
}

// NewOrderUseCase wires the checkout path. publisher may be nil when event
// publishing is disabled.
func NewOrderUseCase(
	tx database.Transactor,
	orders order.Repository,
	carts cart.Repository,
	stock inventory.Repository,
	stores store.Repository,
	publisher order.Publisher,
	log logger.ZapLogger,
) order.UseCase {
	return &orderUseCase{
		tx:        tx,
		orders:    orders,
		carts:     carts,
		stock:     stock,
		stores:    stores,
		publisher: publisher,
		tracer:    otel.Tracer("omnipos-catalog-service/order"),
		logger:    log,
		now:       time.Now,
	}
}

// PlaceOrder turns the user's cart into a PENDING order. Order rows, stock
// decrements, the order number and the cart clear commit together or not at
// all; on failure the cart is left as it was so the user can retry.
func (uc *orderUseCase) PlaceOrder(ctx context.Context, input *dto.PlaceOrderInput) (*model.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.Int64("store_id", input.StoreID)))
	defer span.End()

	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	s, err := uc.stores.FindByID(ctx, input.StoreID)
	if err != nil {
		return nil, err
	}
	if s == nil || !s.IsActive {
		return nil, fmt.Errorf("%w: store %d", apperr.ErrNotFound, input.StoreID)
	}

	var o *model.Order
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		snapshot, err := uc.carts.GetSnapshot(ctx, input.UserID)
		if err != nil {
			return fmt.Errorf("read cart: %w", err)
		}
		if snapshot.IsEmpty() {
			return apperr.ErrEmptyCart
		}

		o = model.NewOrder(input.UserID, input.StoreID, snapshot.Lines)
		if err := uc.orders.Create(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if err := uc.decrementStock(ctx, input.StoreID, o.Items); err != nil {
			return err
		}

		number := model.FormatOrderNumber(o.ID, o.CreatedAt)
		if err := uc.orders.SetOrderNumber(ctx, o.ID, number); err != nil {
			return fmt.Errorf("set order number: %w", err)
		}
		o.OrderNumber = &number

		if err := uc.carts.Clear(ctx, input.UserID, snapshot.ProductIDs()); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if errors.Is(err, apperr.ErrEmptyCart) {
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order creation failed")
		uc.logger.Warn("Order creation rolled back",
			zap.String("user_id", input.UserID),
			zap.Int64("store_id", input.StoreID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", apperr.ErrOrderCreationFailed, err)
	}

	uc.logger.Info("Order placed",
		zap.Int64("order_id", o.ID),
		zap.String("order_number", *o.OrderNumber),
		zap.String("total", o.TotalAmount.String()),
	)
	uc.publish(ctx, dto.EventOrderPlaced, o)

	return o, nil
}

// decrementStock locks every touched stock row in ascending product id order
// so concurrent checkouts cannot wait on each other in a cycle.
func (uc *orderUseCase) decrementStock(ctx context.Context, storeID int64, items []model.OrderItem) error {
	demand := make(map[int64]decimal.Decimal, len(items))
	for _, item := range items {
		demand[item.ProductID] = demand[item.ProductID].Add(item.Quantity)
	}

	productIDs := make([]int64, 0, len(demand))
	for id := range demand {
		productIDs = append(productIDs, id)
	}
	slices.Sort(productIDs)

	for _, productID := range productIDs {
		stock, err := uc.stock.GetForUpdate(ctx, productID, storeID)
		if err != nil {
			return fmt.Errorf("lock stock of product %d: %w", productID, err)
		}
		if stock == nil {
			return fmt.Errorf("%w: no stock for product %d in store %d", apperr.ErrNotFound, productID, storeID)
		}

		if err := stock.Decrement(demand[productID]); err != nil {
			return err
		}
		if err := uc.stock.SetQuantity(ctx, stock.ID, stock.Quantity); err != nil {
			return fmt.Errorf("update stock of product %d: %w", productID, err)
		}
	}
	return nil
}

func (uc *orderUseCase) GetOrder(ctx context.Context, userID string, id int64) (*model.Order, error) {
	o, err := uc.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Another user's order is reported as missing.
	if o == nil || (userID != "" && o.UserID != userID) {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, id)
	}
	return o, nil
}

// UpdateStatus applies a payment or admin decision. PAID and CANCELLED are
// terminal.
func (uc *orderUseCase) UpdateStatus(ctx context.Context, input *dto.UpdateStatusInput) (*model.Order, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	o, err := uc.GetOrder(ctx, "", input.ID)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if err := o.Transition(input.Status); err != nil {
		return nil, err
	}
	if err := uc.orders.UpdateStatus(ctx, o.ID, from, o.Status); err != nil {
		return nil, err
	}

	uc.logger.Info("Order status changed",
		zap.Int64("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)),
	)
	uc.publish(ctx, dto.EventOrderStatusChanged, o)

	return o, nil
}

// publish is best effort. The order is already committed, so a broker failure
// is logged and never returned.
func (uc *orderUseCase) publish(ctx context.Context, eventType string, o *model.Order) {
	if uc.publisher == nil {
		return
	}

	event := dto.NewOrderEvent(uuid.NewString(), eventType, o, uc.now())
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Error("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.Int64("order_id", o.ID),
			zap.Error(err),
		)
	}
}
