package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/ariefcatur/go-toko-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderService interface {
	PlaceOrder(ctx context.Context, req orders.PlaceOrderRequest) (orders.OrderAggregate, error)
	UpdateStatus(ctx context.Context, scope orders.Scope, orderID int64, req orders.UpdateStatusRequest) (orders.OrderAggregate, error)
	GetOrder(ctx context.Context, scope orders.Scope, orderID int64) (orders.OrderAggregate, error)
	ListOrders(ctx context.Context, scope orders.Scope) ([]orders.OrderAggregate, error)
	ListStoreOrders(ctx context.Context, scope orders.Scope, storeID int64) ([]orders.OrderAggregate, error)
}

type OrderCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, orderID int64) (redisx.CachedOrder, int64, bool, error)
	Set(ctx context.Context, gen int64, co redisx.CachedOrder) (bool, error)
	Invalidate(ctx context.Context, orderID int64) error
}

type IdempotencyStore interface {
	Acquire(ctx context.Context, ownerID int64, key string) (redisx.IdemState, int64, error)
	Remember(ctx context.Context, ownerID int64, key string, orderID int64) error
	Release(ctx context.Context, ownerID int64, key string) error
}

type OrderEvents interface {
	OrderCreated(traceID string, resp orders.OrderResponse) error
	OrderStatusChanged(traceID string, resp orders.OrderResponse) error
}

type OrderMetrics interface {
	OrderPlaced()
	PlacementFailed(kind string)
	StatusUpdated(status string)
}

type OrdersHandler struct {
	Orders  OrderService
	Cache   OrderCache
	Idem    IdempotencyStore
	Events  OrderEvents
	Metrics OrderMetrics
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/toko/{tokoId}", h.listStoreOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}/status", h.updateStatus)
}

func scopeOf(ctx context.Context) orders.Scope {
	u, _ := UserFrom(ctx)
	return orders.Scope{OwnerID: u.UserID}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req orders.PlaceOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	caller := scopeOf(ctx).OwnerID
	key := r.Header.Get(HeaderIdempotencyKey)
	if key != "" {
		state, orderID, err := h.Idem.Acquire(ctx, caller, key)
		switch {
		case err != nil:
			// redis mati: lanjut tanpa idempotency
			zerolog.Ctx(ctx).Warn().Err(err).Msg("idempotency store unavailable")
			key = ""
		case state == redisx.IdemInProgress:
			writeFail(w, http.StatusConflict, "a request with this Idempotency-Key is still in progress")
			return
		case state == redisx.IdemDone:
			agg, err := h.Orders.GetOrder(ctx, orders.Scope{}, orderID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeData(w, http.StatusOK, orders.Present(agg))
			return
		}
	}

	agg, err := h.Orders.PlaceOrder(ctx, req)
	if err != nil {
		if key != "" {
			if rerr := h.Idem.Release(ctx, caller, key); rerr != nil {
				zerolog.Ctx(ctx).Warn().Err(rerr).Msg("release idempotency key")
			}
		}
		h.Metrics.PlacementFailed(orders.KindOf(err).String())
		writeError(w, r, err)
		return
	}

	resp := orders.Present(agg)
	h.Metrics.OrderPlaced()
	if key != "" {
		if err := h.Idem.Remember(ctx, caller, key, resp.ID); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("order_id", resp.ID).Msg("remember idempotency key")
			// jangan biarkan key tertahan "pending"
			if rerr := h.Idem.Release(ctx, caller, key); rerr != nil {
				zerolog.Ctx(ctx).Warn().Err(rerr).Msg("release idempotency key")
			}
		}
	}
	if err := h.Events.OrderCreated(middleware.GetReqID(ctx), resp); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("order_id", resp.ID).Msg("publish order created")
	}

	writeData(w, http.StatusCreated, resp)
}

// getOrder read-through cache. Entry cache milik owner lain = not found, sama seperti DB.
func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	scope := scopeOf(ctx)

	// generation dibaca sebelum load dari DB
	co, gen, ok, err := h.Cache.Get(ctx, id)
	cacheable := err == nil
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("order_id", id).Msg("order cache read")
	} else if ok {
		if co.OwnerID != scope.OwnerID {
			writeError(w, r, orders.NotFound(orders.EntityOrder))
			return
		}
		writeData(w, http.StatusOK, co.Order)
		return
	}

	agg, err := h.Orders.GetOrder(ctx, scope, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := orders.Present(agg)
	if cacheable {
		h.cache(ctx, gen, agg, resp)
	}
	writeData(w, http.StatusOK, resp)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	aggs, err := h.Orders.ListOrders(r.Context(), scopeOf(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, orders.PresentAll(aggs))
}

func (h *OrdersHandler) listStoreOrders(w http.ResponseWriter, r *http.Request) {
	storeID, err := idParam(r, "tokoId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	aggs, err := h.Orders.ListStoreOrders(r.Context(), scopeOf(r.Context()), storeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, orders.PresentAll(aggs))
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req orders.UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	gen, genErr := h.Cache.Generation(ctx)
	agg, err := h.Orders.UpdateStatus(ctx, scopeOf(ctx), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := orders.Present(agg)
	h.Metrics.StatusUpdated(string(resp.Status))
	if genErr == nil {
		// versi baru menimpa snapshot lama, termasuk yang ditulis pembaca yang terlambat
		h.cache(ctx, gen, agg, resp)
	} else if err := h.Cache.Invalidate(ctx, id); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("order_id", id).Msg("order cache invalidate")
	}
	if err := h.Events.OrderStatusChanged(middleware.GetReqID(ctx), resp); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("order_id", id).Msg("publish status changed")
	}
	writeData(w, http.StatusOK, resp)
}

func (h *OrdersHandler) cache(ctx context.Context, gen int64, agg orders.OrderAggregate, resp orders.OrderResponse) {
	co := redisx.CachedOrder{OwnerID: agg.Store.OwnerID, Version: agg.Order.Version, Order: resp}
	if _, err := h.Cache.Set(ctx, gen, co); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("order_id", resp.ID).Msg("order cache write")
	}
}
