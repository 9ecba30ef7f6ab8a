package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/ariefcatur/go-toko-orders/internal/catalog"
	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/ariefcatur/go-toko-orders/internal/orders/ordertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed() *ordertest.Memory {
	m := ordertest.NewMemory()
	m.AddPayment(orders.PaymentMethod{ID: 1, Name: "QRIS"})
	m.AddPayment(orders.PaymentMethod{ID: 2, Name: "Cash"})
	m.AddStore(orders.Store{ID: 1, Name: "Toko Sinar", OwnerID: 7, IsOpen: true})
	m.AddStore(orders.Store{ID: 2, Name: "Toko Dua", OwnerID: 7, IsOpen: false})
	m.AddStore(orders.Store{ID: 3, Name: "Toko Lain", OwnerID: 99, IsOpen: true})
	return m
}

func kindOf(t *testing.T, err error) orders.Kind {
	t.Helper()
	require.Error(t, err)
	return orders.KindOf(err)
}

func TestPayments(t *testing.T) {
	svc := catalog.NewService(seed())
	ctx := context.Background()

	list, err := svc.ListPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.PaymentResponse{{ID: 2, Name: "Cash"}, {ID: 1, Name: "QRIS"}}, list)

	p, err := svc.GetPayment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "QRIS", p.Name)

	_, err = svc.GetPayment(ctx, 404)
	assert.Equal(t, orders.KindNotFound, kindOf(t, err))
}

func TestCreatePayment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind orders.Kind
	}{
		{name: "ok", in: "  Transfer Bank "},
		{name: "duplicate ignores case", in: "qris", kind: orders.KindInvalidState},
		{name: "blank", in: "   ", kind: orders.KindValidation},
		{name: "too long", in: strings.Repeat("x", 101), kind: orders.KindValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := catalog.NewService(seed())
			p, err := svc.CreatePayment(context.Background(), catalog.CreatePaymentRequest{Name: tc.in})
			if tc.kind != orders.KindUnknown {
				assert.Equal(t, tc.kind, kindOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Transfer Bank", p.Name)
			assert.NotZero(t, p.ID)
		})
	}
}

func TestDeletePayment(t *testing.T) {
	m := seed()
	svc := catalog.NewService(m)
	ctx := context.Background()

	p, err := svc.DeletePayment(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Cash", p.Name)

	_, err = svc.DeletePayment(ctx, 2)
	assert.Equal(t, orders.KindNotFound, kindOf(t, err))
}

func TestStores(t *testing.T) {
	svc := catalog.NewService(seed())
	ctx := context.Background()

	mine, err := svc.ListMyStores(ctx, 7)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, int64(2), mine[0].ID)

	none, err := svc.ListMyStores(ctx, 12345)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	st, err := svc.GetStore(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(99), st.OwnerID)
}

func TestSetStoreOpen(t *testing.T) {
	svc := catalog.NewService(seed())
	ctx := context.Background()
	open := true
	closed := false

	st, err := svc.SetStoreOpen(ctx, 7, 2, catalog.SetOpenRequest{IsOpen: &open})
	require.NoError(t, err)
	assert.True(t, st.IsOpen)

	st, err = svc.SetStoreOpen(ctx, 7, 1, catalog.SetOpenRequest{IsOpen: &closed})
	require.NoError(t, err)
	assert.False(t, st.IsOpen)

	// toko orang lain
	_, err = svc.SetStoreOpen(ctx, 7, 3, catalog.SetOpenRequest{IsOpen: &closed})
	assert.Equal(t, orders.KindNotFound, kindOf(t, err))

	_, err = svc.SetStoreOpen(ctx, 7, 1, catalog.SetOpenRequest{})
	assert.Equal(t, orders.KindValidation, kindOf(t, err))
}

func TestClosedStoreRejectsOrders(t *testing.T) {
	m := seed()
	svc := catalog.NewService(m)
	closed := false
	_, err := svc.SetStoreOpen(context.Background(), 7, 1, catalog.SetOpenRequest{IsOpen: &closed})
	require.NoError(t, err)

	_, err = orders.NewEngine(m, 0).PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerName: "Budi", StoreID: 1, PaymentMethodID: 1,
		Items: []orders.ItemInput{{ProductID: 10, Amount: 1}},
	})
	de := &orders.Error{}
	require.ErrorAs(t, err, &de)
	assert.Equal(t, orders.ReasonStoreClosed, de.Reason)
}
