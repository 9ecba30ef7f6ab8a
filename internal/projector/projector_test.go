package projector_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	kafkax "github.com/ariefcatur/go-toko-orders/internal/kafka"
	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/ariefcatur/go-toko-orders/internal/orders/ordertest"
	"github.com/ariefcatur/go-toko-orders/internal/projector"
	"github.com/ariefcatur/go-toko-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counts map[string]int

func (c counts) EventProjected(eventType, result string) { c[eventType+"/"+result]++ }

type failingReader struct{}

func (failingReader) GetOrder(context.Context, orders.Scope, int64) (orders.OrderAggregate, error) {
	return orders.OrderAggregate{}, orders.Internal(errors.New("db down"))
}

// staleReader mengembalikan snapshot order yang sudah lewat.
type staleReader struct{ agg orders.OrderAggregate }

func (r staleReader) GetOrder(context.Context, orders.Scope, int64) (orders.OrderAggregate, error) {
	return r.agg, nil
}

type fixture struct {
	svc    *projector.Service
	engine *orders.Engine
	cache  *redisx.OrderCache
	mr     *miniredis.Miniredis
	counts counts
	order  orders.OrderAggregate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := ordertest.NewMemory()
	mem.AddStore(orders.Store{ID: 1, Name: "Toko Sinar", OwnerID: 7, IsOpen: true})
	mem.AddPayment(orders.PaymentMethod{ID: 1, Name: "QRIS"})
	mem.AddProduct(orders.Product{ID: 10, Name: "Kopi", Price: decimal.NewFromInt(12000)}, 1)

	eng := orders.NewEngine(mem, time.Second)
	agg, err := eng.PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerName: "Budi", StoreID: 1, PaymentMethodID: 1,
		Items: []orders.ItemInput{{ProductID: 10, Amount: 2}},
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{engine: eng, cache: redisx.NewOrderCache(rdb, time.Minute), mr: mr, counts: counts{}, order: agg}
	f.svc = &projector.Service{
		Orders:      eng,
		Cache:       f.cache,
		Redis:       rdb,
		Metrics:     f.counts,
		ServiceName: "projector",
		DedupTTL:    time.Hour,
	}
	return f
}

func message(t *testing.T, eventType string, orderID int64, payload any) (kafkago.Message, orders.Envelope) {
	t.Helper()
	env, err := orders.NewEnvelope(eventType, "test", "", orderID, payload)
	require.NoError(t, err)
	return kafkago.Message{Topic: orders.TopicOrderCreated, Value: kafkax.MustMarshal(env)}, env
}

func TestHandle_RefreshesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.order.Order.ID

	m, env := message(t, orders.EventOrderCreated, id, orders.OrderCreatedFrom(orders.Present(f.order)))
	require.NoError(t, f.svc.Handle(ctx, m))

	co, _, ok, err := f.cache.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), co.OwnerID)
	assert.True(t, decimal.NewFromInt(24000).Equal(co.Order.TotalPrice))
	assert.True(t, f.mr.Exists(redisx.DedupKey("projector", env.EventID)))
	assert.Equal(t, 1, f.counts[orders.EventOrderCreated+"/"+projector.ResultOK])

	// redelivery event yang sama
	require.NoError(t, f.svc.Handle(ctx, m))
	assert.Equal(t, 1, f.counts[orders.EventOrderCreated+"/"+projector.ResultDuplicate])
}

func TestHandle_StatusChanged(t *testing.T) {
	f := newFixture(t)
	id := f.order.Order.ID
	_, err := f.engine.UpdateStatus(context.Background(), orders.Scope{OwnerID: 7}, id,
		orders.UpdateStatusRequest{Status: orders.StatusPaid})
	require.NoError(t, err)
	m, _ := message(t, orders.EventOrderStatusChanged, id,
		orders.OrderStatusChangedPayload{OrderID: id, StoreID: 1, Status: orders.StatusPaid})

	require.NoError(t, f.svc.Handle(context.Background(), m))
	co, _, ok, err := f.cache.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, orders.StatusPaid, co.Order.Status)
	assert.Equal(t, int64(2), co.Version)

	// event created yang terlambat tidak menimpa snapshot yang lebih baru
	late, _ := message(t, orders.EventOrderCreated, id, orders.OrderCreatedFrom(orders.Present(f.order)))
	f.svc.Orders = staleReader{agg: f.order}
	require.NoError(t, f.svc.Handle(context.Background(), late))
	co, _, _, err = f.cache.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, co.Order.Status)
}

func TestHandle_FiltersOnEventTypeHeader(t *testing.T) {
	f := newFixture(t)
	m := kafkago.Message{
		Value:   []byte("{not an envelope"),
		Headers: kafkax.EventHeaders("InventoryReserved", 1),
	}

	require.NoError(t, f.svc.Handle(context.Background(), m))
	assert.Equal(t, 1, f.counts["InventoryReserved/"+projector.ResultSkipped])
	assert.Zero(t, f.counts["unknown/"+projector.ResultSkipped])
}

func TestHandle_SkipsWhatCannotSucceed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Handle(ctx, kafkago.Message{Value: []byte("{broken")}))

	m, _ := message(t, "SomethingElse", 1, map[string]int{"order_id": 1})
	require.NoError(t, f.svc.Handle(ctx, m))

	m, _ = message(t, orders.EventOrderCreated, 9999, orders.OrderStatusChangedPayload{OrderID: 9999})
	require.NoError(t, f.svc.Handle(ctx, m))
	_, _, ok, err := f.cache.Get(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, f.counts["unknown/"+projector.ResultSkipped])
	assert.Equal(t, 1, f.counts["SomethingElse/"+projector.ResultSkipped])
	assert.Equal(t, 1, f.counts[orders.EventOrderCreated+"/"+projector.ResultSkipped])
}

func TestHandle_StorageErrorIsRetried(t *testing.T) {
	f := newFixture(t)
	f.svc.Orders = failingReader{}
	id := f.order.Order.ID

	m, env := message(t, orders.EventOrderCreated, id, orders.OrderStatusChangedPayload{OrderID: id})
	assert.Error(t, f.svc.Handle(context.Background(), m))
	// belum ditandai, redelivery akan diproses lagi
	assert.False(t, f.mr.Exists(redisx.DedupKey("projector", env.EventID)))
}
