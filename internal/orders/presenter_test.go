package orders_test

import (
	"testing"
	"time"

	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aggregate() orders.OrderAggregate {
	img := "https://cdn.example.com/kopi.png"
	return orders.OrderAggregate{
		Order: orders.Order{
			ID: 5, CustomerName: "Sari", Status: orders.StatusPaid,
			StoreID: 1, PaymentMethodID: 1,
			CreateDate: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		Store:   orders.Store{ID: 1, Name: "Toko Sinar", OwnerID: 7, IsOpen: true},
		Payment: orders.PaymentMethod{ID: 1, Name: "QRIS"},
		Items: []orders.OrderItem{
			{ID: 51, OrderID: 5, ProductID: 10, Quantity: 2,
				Product: orders.Product{ID: 10, Name: "Kopi", Price: decimal.NewFromInt(10000), Image: &img}},
			{ID: 52, OrderID: 5, ProductID: 11, Quantity: 1,
				Product: orders.Product{ID: 11, Name: "Teh", Price: decimal.NewFromInt(5000)}},
		},
	}
}

func TestPresent_TotalPrice(t *testing.T) {
	resp := orders.Present(aggregate())
	assert.True(t, decimal.NewFromInt(25000).Equal(resp.TotalPrice), "total = %s", resp.TotalPrice)
}

func TestPresent_Projection(t *testing.T) {
	resp := orders.Present(aggregate())

	assert.Equal(t, int64(5), resp.ID)
	assert.Equal(t, "Sari", resp.CustomerName)
	assert.Equal(t, orders.StatusPaid, resp.Status)
	assert.Equal(t, orders.Ref{ID: 1, Name: "Toko Sinar"}, resp.Store)
	assert.Equal(t, orders.Ref{ID: 1, Name: "QRIS"}, resp.Payment)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Items[0].OrderAmount)
	assert.Equal(t, int64(10), resp.Items[0].ProductID)
	require.NotNil(t, resp.Items[0].Product.Image)
	assert.Nil(t, resp.Items[1].Product.Image)
}

func TestPresent_Idempotent(t *testing.T) {
	agg := aggregate()
	assert.Equal(t, orders.Present(agg), orders.Present(agg))
	// input tidak diubah
	assert.Equal(t, aggregate(), agg)
}

func TestPresent_FractionalPrices(t *testing.T) {
	agg := aggregate()
	agg.Items[0].Product.Price = decimal.RequireFromString("0.10")
	agg.Items[0].Quantity = 3
	agg.Items[1].Product.Price = decimal.RequireFromString("0.20")

	// 0.1*3 + 0.2 = 0.5 tanpa error floating point
	assert.Equal(t, "0.5", orders.Present(agg).TotalPrice.String())
}

func TestPresent_EmptyItems(t *testing.T) {
	agg := aggregate()
	agg.Items = nil
	resp := orders.Present(agg)
	assert.True(t, resp.TotalPrice.IsZero())
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
}

func TestPresentAll(t *testing.T) {
	out := orders.PresentAll([]orders.OrderAggregate{aggregate(), aggregate()})
	assert.Len(t, out, 2)
	assert.Empty(t, orders.PresentAll(nil))
}
