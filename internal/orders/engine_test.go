package orders_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/ariefcatur/go-toko-orders/internal/orders/ordertest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	ownerID   = int64(7)
	storeS    = int64(1)
	storeT    = int64(2)
	cashID    = int64(2)
	productP  = int64(10)
	productP2 = int64(11)
	productQ  = int64(12)
)

func seed(t *testing.T) *ordertest.Memory {
	t.Helper()
	m := ordertest.NewMemory()
	m.AddStore(orders.Store{ID: storeS, Name: "Toko Sinar", OwnerID: ownerID, IsOpen: true})
	m.AddStore(orders.Store{ID: storeT, Name: "Toko Lain", OwnerID: 99, IsOpen: true})
	m.AddPayment(orders.PaymentMethod{ID: 1, Name: "QRIS"})
	m.AddPayment(orders.PaymentMethod{ID: cashID, Name: "Cash"})
	m.AddProduct(orders.Product{ID: productP, Name: "Kopi Susu", Price: decimal.NewFromInt(15000)}, storeS)
	m.AddProduct(orders.Product{ID: productP2, Name: "Teh Botol", Price: decimal.NewFromInt(5000)}, storeT)
	m.AddProduct(orders.Product{ID: productQ, Name: "Roti Bakar", Price: decimal.NewFromInt(10000)}, storeS)
	return m
}

func request(items ...orders.ItemInput) orders.PlaceOrderRequest {
	return orders.PlaceOrderRequest{
		CustomerName:    "Budi",
		StoreID:         storeS,
		PaymentMethodID: cashID,
		Items:           items,
	}
}

func assertKind(t *testing.T, err error, kind orders.Kind) *orders.Error {
	t.Helper()
	require.Error(t, err)
	var de *orders.Error
	require.True(t, errors.As(err, &de), "expected *orders.Error, got %T", err)
	assert.Equal(t, kind, de.Kind, "error: %v", err)
	return de
}

func TestPlaceOrder_Success(t *testing.T) {
	m := seed(t)
	eng := orders.NewEngine(m, time.Second)

	agg, err := eng.PlaceOrder(context.Background(), request(orders.ItemInput{ProductID: productP, Amount: 3}))
	require.NoError(t, err)

	assert.Equal(t, orders.StatusPending, agg.Order.Status)
	assert.Equal(t, "Budi", agg.Order.CustomerName)
	assert.Equal(t, "Toko Sinar", agg.Store.Name)
	assert.Equal(t, "Cash", agg.Payment.Name)
	require.Len(t, agg.Items, 1)
	assert.Equal(t, "Kopi Susu", agg.Items[0].Product.Name)

	resp := orders.Present(agg)
	assert.True(t, decimal.NewFromInt(45000).Equal(resp.TotalPrice), "total = %s", resp.TotalPrice)
	assert.Equal(t, 1, m.CountOrders())
	assert.Equal(t, 1, m.CountItems())
}

func TestPlaceOrder_ItemCountMatchesRequest(t *testing.T) {
	m := seed(t)
	eng := orders.NewEngine(m, time.Second)

	// product yang sama boleh muncul dua kali, tiap item tetap jadi satu baris
	agg, err := eng.PlaceOrder(context.Background(), request(
		orders.ItemInput{ProductID: productP, Amount: 1},
		orders.ItemInput{ProductID: productQ, Amount: 2},
		orders.ItemInput{ProductID: productP, Amount: 4},
	))
	require.NoError(t, err)
	assert.Len(t, agg.Items, 3)
	assert.Equal(t, 3, m.CountItems())
	assert.True(t, decimal.NewFromInt(95000).Equal(orders.Present(agg).TotalPrice))
}

func TestPlaceOrder_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *ordertest.Memory)
		req    orders.PlaceOrderRequest
		kind   orders.Kind
		reason string
		entity string
	}{
		{
			name:   "store closed",
			mutate: func(m *ordertest.Memory) { m.CloseStore(storeS) },
			req:    request(orders.ItemInput{ProductID: productP, Amount: 3}),
			kind:   orders.KindInvalidState,
			reason: orders.ReasonStoreClosed,
		},
		{
			name: "store missing",
			req: orders.PlaceOrderRequest{
				CustomerName: "Budi", StoreID: 404, PaymentMethodID: cashID,
				Items: []orders.ItemInput{{ProductID: productP, Amount: 1}},
			},
			kind:   orders.KindNotFound,
			entity: orders.EntityStore,
		},
		{
			name: "payment method missing",
			req: orders.PlaceOrderRequest{
				CustomerName: "Budi", StoreID: storeS, PaymentMethodID: 9999,
				Items: []orders.ItemInput{{ProductID: productP, Amount: 1}},
			},
			kind:   orders.KindNotFound,
			entity: orders.EntityPaymentMethod,
		},
		{
			name:   "product missing",
			req:    request(orders.ItemInput{ProductID: productP, Amount: 1}, orders.ItemInput{ProductID: 777, Amount: 1}),
			kind:   orders.KindNotFound,
			entity: orders.EntityProduct,
		},
		{
			name:   "product not sold by store",
			req:    request(orders.ItemInput{ProductID: productP2, Amount: 1}),
			kind:   orders.KindInvalidState,
			reason: orders.ReasonProductNotSold,
		},
		{
			name:   "one foreign product poisons the whole order",
			req:    request(orders.ItemInput{ProductID: productP, Amount: 1}, orders.ItemInput{ProductID: productP2, Amount: 1}),
			kind:   orders.KindInvalidState,
			reason: orders.ReasonProductNotSold,
		},
		{
			name:   "closed store is reported before missing payment",
			mutate: func(m *ordertest.Memory) { m.CloseStore(storeS) },
			req: orders.PlaceOrderRequest{
				CustomerName: "Budi", StoreID: storeS, PaymentMethodID: 9999,
				Items: []orders.ItemInput{{ProductID: 777, Amount: 1}},
			},
			kind:   orders.KindInvalidState,
			reason: orders.ReasonStoreClosed,
		},
		{
			name: "missing payment is reported before missing product",
			req: orders.PlaceOrderRequest{
				CustomerName: "Budi", StoreID: storeS, PaymentMethodID: 9999,
				Items: []orders.ItemInput{{ProductID: 777, Amount: 1}},
			},
			kind:   orders.KindNotFound,
			entity: orders.EntityPaymentMethod,
		},
		{
			name: "invalid request never reaches storage",
			req:  orders.PlaceOrderRequest{StoreID: 404},
			kind: orders.KindValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := seed(t)
			if tc.mutate != nil {
				tc.mutate(m)
			}
			eng := orders.NewEngine(m, time.Second)

			_, err := eng.PlaceOrder(context.Background(), tc.req)
			de := assertKind(t, err, tc.kind)
			if tc.reason != "" {
				assert.Equal(t, tc.reason, de.Reason)
			}
			if tc.entity != "" {
				assert.Equal(t, tc.entity, de.Entity)
			}
			assert.Zero(t, m.CountOrders())
			assert.Zero(t, m.CountItems())
		})
	}
}

func TestPlaceOrder_WriteFailureRollsBack(t *testing.T) {
	m := seed(t)
	m.FailInsert = errors.New("connection reset")
	eng := orders.NewEngine(m, time.Second)

	_, err := eng.PlaceOrder(context.Background(), request(orders.ItemInput{ProductID: productP, Amount: 1}))
	assertKind(t, err, orders.KindTransaction)
	assert.True(t, orders.IsRetryable(err))
	assert.Zero(t, m.CountOrders())
	assert.Zero(t, m.CountItems())

	// retry setelah storage pulih
	m.FailInsert = nil
	_, err = eng.PlaceOrder(context.Background(), request(orders.ItemInput{ProductID: productP, Amount: 1}))
	require.NoError(t, err)
	assert.Equal(t, 1, m.CountOrders())
}

func TestPlaceOrder_TimeoutIsTransactionFailure(t *testing.T) {
	m := seed(t)
	eng := orders.NewEngine(m, time.Nanosecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := eng.PlaceOrder(ctx, request(orders.ItemInput{ProductID: productP, Amount: 1}))
	assertKind(t, err, orders.KindTransaction)
	assert.Zero(t, m.CountOrders())
}

func TestPlaceOrder_ConcurrentDisjointProducts(t *testing.T) {
	m := seed(t)
	eng := orders.NewEngine(m, time.Second)

	var first, second orders.OrderAggregate
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		var err error
		first, err = eng.PlaceOrder(ctx, request(orders.ItemInput{ProductID: productP, Amount: 2}))
		return err
	})
	g.Go(func() error {
		var err error
		second, err = eng.PlaceOrder(ctx, request(orders.ItemInput{ProductID: productQ, Amount: 1}))
		return err
	})
	require.NoError(t, g.Wait())

	assert.NotEqual(t, first.Order.ID, second.Order.ID)
	assert.True(t, decimal.NewFromInt(30000).Equal(orders.Present(first).TotalPrice))
	assert.True(t, decimal.NewFromInt(10000).Equal(orders.Present(second).TotalPrice))
	assert.Equal(t, 2, m.CountOrdersForStore(storeS))
}

func TestUpdateStatus(t *testing.T) {
	m := seed(t)
	eng := orders.NewEngine(m, time.Second)
	ctx := context.Background()

	placed, err := eng.PlaceOrder(ctx, request(orders.ItemInput{ProductID: productP, Amount: 1}))
	require.NoError(t, err)

	scope := orders.Scope{OwnerID: ownerID}
	updated, err := eng.UpdateStatus(ctx, scope, placed.Order.ID, orders.UpdateStatusRequest{Status: orders.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCompleted, updated.Order.Status)

	got, err := eng.GetOrder(ctx, scope, placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCompleted, got.Order.Status)

	// permisif: completed -> pending tetap boleh
	back, err := eng.UpdateStatus(ctx, scope, placed.Order.ID, orders.UpdateStatusRequest{Status: orders.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, back.Order.Status)
}

func TestUpdateStatus_Errors(t *testing.T) {
	m := seed(t)
	eng := orders.NewEngine(m, time.Second)
	ctx := context.Background()

	placed, err := eng.PlaceOrder(ctx, request(orders.ItemInput{ProductID: productP, Amount: 1}))
	require.NoError(t, err)

	_, err = eng.UpdateStatus(ctx, orders.Scope{OwnerID: ownerID}, 999, orders.UpdateStatusRequest{Status: orders.StatusPaid})
	de := assertKind(t, err, orders.KindNotFound)
	assert.Equal(t, orders.EntityOrder, de.Entity)

	// order toko milik owner lain
	_, err = eng.UpdateStatus(ctx, orders.Scope{OwnerID: 99}, placed.Order.ID, orders.UpdateStatusRequest{Status: orders.StatusPaid})
	assertKind(t, err, orders.KindNotFound)

	_, err = eng.UpdateStatus(ctx, orders.Scope{OwnerID: ownerID}, placed.Order.ID, orders.UpdateStatusRequest{Status: "shipped"})
	assertKind(t, err, orders.KindValidation)

	got, err := eng.GetOrder(ctx, orders.Scope{}, placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Order.Status)
}

func TestReads_AreScopedToOwner(t *testing.T) {
	m := seed(t)
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	m.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	eng := orders.NewEngine(m, time.Second)
	ctx := context.Background()

	older, err := eng.PlaceOrder(ctx, request(orders.ItemInput{ProductID: productP, Amount: 1}))
	require.NoError(t, err)
	newer, err := eng.PlaceOrder(ctx, request(orders.ItemInput{ProductID: productQ, Amount: 1}))
	require.NoError(t, err)
	_, err = eng.PlaceOrder(ctx, orders.PlaceOrderRequest{
		CustomerName: "Sari", StoreID: storeT, PaymentMethodID: 1,
		Items: []orders.ItemInput{{ProductID: productP2, Amount: 1}},
	})
	require.NoError(t, err)

	mine, err := eng.ListOrders(ctx, orders.Scope{OwnerID: ownerID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.Order.ID, mine[0].Order.ID)
	assert.Equal(t, older.Order.ID, mine[1].Order.ID)

	byStore, err := eng.ListStoreOrders(ctx, orders.Scope{OwnerID: ownerID}, storeS)
	require.NoError(t, err)
	assert.Len(t, byStore, 2)

	_, err = eng.ListStoreOrders(ctx, orders.Scope{OwnerID: ownerID}, storeT)
	assertKind(t, err, orders.KindNotFound)

	_, err = eng.GetOrder(ctx, orders.Scope{OwnerID: 99}, older.Order.ID)
	assertKind(t, err, orders.KindNotFound)
}

func TestPresent_UsesCurrentPrice(t *testing.T) {
	m := seed(t)
	eng := orders.NewEngine(m, time.Second)
	ctx := context.Background()

	placed, err := eng.PlaceOrder(ctx, request(orders.ItemInput{ProductID: productP, Amount: 2}))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30000).Equal(orders.Present(placed).TotalPrice))

	m.SetPrice(productP, decimal.NewFromInt(20000))
	reread, err := eng.GetOrder(ctx, orders.Scope{}, placed.Order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40000).Equal(orders.Present(reread).TotalPrice))
}
