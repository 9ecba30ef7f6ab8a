package orders

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

const DefaultTxTimeout = 5 * time.Second

// Engine menjalankan placement dan perubahan status order.
// Tidak menyimpan state mutable, aman dipanggil dari banyak handler sekaligus.
type Engine struct {
	gw        Gateway
	validator *Validator
	txTimeout time.Duration
}

func NewEngine(gw Gateway, txTimeout time.Duration) *Engine {
	if txTimeout <= 0 {
		txTimeout = DefaultTxTimeout
	}
	return &Engine{gw: gw, validator: NewValidator(), txTimeout: txTimeout}
}

// PlaceOrder validates the request, checks store, payment method and products in a fixed
// order (the first failing check wins) and inserts the order with all its items atomically.
func (e *Engine) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (OrderAggregate, error) {
	if err := e.validator.ValidatePlaceOrder(req); err != nil {
		return OrderAggregate{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.txTimeout)
	defer cancel()

	var agg OrderAggregate
	err := e.gw.RunInTx(ctx, func(tx Gateway) error {
		// 1-2) toko ada & buka
		store, err := tx.FindStore(ctx, req.StoreID)
		if err != nil {
			return lookupErr(err, EntityStore)
		}
		if !store.IsOpen {
			return InvalidState(ReasonStoreClosed)
		}

		// 3) payment method
		if _, err := tx.FindPaymentMethod(ctx, req.PaymentMethodID); err != nil {
			return lookupErr(err, EntityPaymentMethod)
		}

		// 4-6) semua product ada & dijual toko ini
		ids := distinctProductIDs(req.Items)
		products, err := tx.FindProductsWithStoreAssociation(ctx, ids, req.StoreID)
		if err != nil {
			return err
		}
		if len(products) != len(ids) {
			return NotFound(EntityProduct)
		}
		for _, p := range products {
			if !p.Associated {
				return InvalidState(ReasonProductNotSold)
			}
		}

		// 7) satu-satunya write
		items := make([]NewOrderItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, NewOrderItem{ProductID: it.ProductID, Quantity: it.Amount})
		}
		order, err := tx.InsertOrder(ctx, NewOrder{
			StoreID:         req.StoreID,
			PaymentMethodID: req.PaymentMethodID,
			CustomerName:    req.CustomerName,
			Items:           items,
		})
		if err != nil {
			return err
		}

		// 8) read-back di transaksi yang sama
		agg, err = tx.FindOrder(ctx, order.ID, Scope{})
		return err
	})
	if err != nil {
		err = e.txErr(ctx, err)
		zerolog.Ctx(ctx).Warn().Err(err).Str("component", "PlaceOrder").
			Str("kind", KindOf(err).String()).Int64("toko_id", req.StoreID).Msg("order placement rejected")
		return OrderAggregate{}, err
	}

	zerolog.Ctx(ctx).Info().Str("component", "PlaceOrder").
		Int64("order_id", agg.Order.ID).Int64("toko_id", req.StoreID).Int("items", len(agg.Items)).
		Msg("order placed")
	return agg, nil
}

// UpdateStatus sets a new status on an order owned (through its store) by scope.
// Any status may follow any other status.
func (e *Engine) UpdateStatus(ctx context.Context, scope Scope, orderID int64, req UpdateStatusRequest) (OrderAggregate, error) {
	if err := e.validator.Struct(req); err != nil {
		return OrderAggregate{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.txTimeout)
	defer cancel()

	var agg OrderAggregate
	err := e.gw.RunInTx(ctx, func(tx Gateway) error {
		current, err := tx.FindOrder(ctx, orderID, scope)
		if err != nil {
			return lookupErr(err, EntityOrder)
		}
		if !CanTransition(current.Order.Status, req.Status) {
			return InvalidState("cannot move order from " + string(current.Order.Status) + " to " + string(req.Status))
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, req.Status, scope); err != nil {
			return lookupErr(err, EntityOrder)
		}
		agg, err = tx.FindOrder(ctx, orderID, scope)
		return lookupErr(err, EntityOrder)
	})
	if err != nil {
		return OrderAggregate{}, e.txErr(ctx, err)
	}

	zerolog.Ctx(ctx).Info().Str("component", "UpdateStatus").
		Int64("order_id", orderID).Str("status", string(req.Status)).Msg("order status updated")
	return agg, nil
}

func (e *Engine) GetOrder(ctx context.Context, scope Scope, orderID int64) (OrderAggregate, error) {
	agg, err := e.gw.FindOrder(ctx, orderID, scope)
	if err != nil {
		return OrderAggregate{}, asDomain(lookupErr(err, EntityOrder))
	}
	return agg, nil
}

func (e *Engine) ListOrders(ctx context.Context, scope Scope) ([]OrderAggregate, error) {
	out, err := e.gw.ListOrders(ctx, OrderFilter{Scope: scope})
	if err != nil {
		return nil, asDomain(err)
	}
	return out, nil
}

// ListStoreOrders returns the orders of one store; the store must belong to scope.
func (e *Engine) ListStoreOrders(ctx context.Context, scope Scope, storeID int64) ([]OrderAggregate, error) {
	store, err := e.gw.FindStore(ctx, storeID)
	if err != nil {
		return nil, asDomain(lookupErr(err, EntityStore))
	}
	if !scope.Unscoped() && store.OwnerID != scope.OwnerID {
		return nil, NotFound(EntityStore)
	}
	out, err := e.gw.ListOrders(ctx, OrderFilter{Scope: scope, StoreID: storeID})
	if err != nil {
		return nil, asDomain(err)
	}
	return out, nil
}

// txErr: timeout transaksi = TransactionFailure (retryable), bukan validation.
func (e *Engine) txErr(ctx context.Context, err error) error {
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return TransactionFailure(err)
	}
	return Internal(err)
}

func lookupErr(err error, entity string) error {
	if errors.Is(err, ErrRecordNotFound) {
		return NotFound(entity)
	}
	return err
}

func distinctProductIDs(items []ItemInput) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}
