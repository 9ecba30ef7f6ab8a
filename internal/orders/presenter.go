package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ProductSummary struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image *string         `json:"image"`
}

type OrderItemResponse struct {
	ID          int64          `json:"id"`
	ProductID   int64          `json:"product_id"`
	OrderAmount int            `json:"order_amount"`
	Product     ProductSummary `json:"product"`
}

type OrderResponse struct {
	ID           int64               `json:"id"`
	CustomerName string              `json:"customer_name"`
	CreateDate   time.Time           `json:"create_date"`
	Status       Status              `json:"status"`
	StoreID      int64               `json:"toko_id"`
	PaymentID    int64               `json:"payment_id"`
	Store        Ref                 `json:"toko"`
	Payment      Ref                 `json:"payment"`
	Items        []OrderItemResponse `json:"orderItems"`
	TotalPrice   decimal.Decimal     `json:"total_price"`
}

// Present shapes an aggregate for clients. total_price is computed from the product
// prices loaded with the aggregate, so it follows the current price of each product.
func Present(agg OrderAggregate) OrderResponse {
	total := decimal.Zero
	items := make([]OrderItemResponse, 0, len(agg.Items))
	for _, it := range agg.Items {
		total = total.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			OrderAmount: it.Quantity,
			Product: ProductSummary{
				ID:    it.Product.ID,
				Name:  it.Product.Name,
				Price: it.Product.Price,
				Image: it.Product.Image,
			},
		})
	}

	return OrderResponse{
		ID:           agg.Order.ID,
		CustomerName: agg.Order.CustomerName,
		CreateDate:   agg.Order.CreateDate,
		Status:       agg.Order.Status,
		StoreID:      agg.Order.StoreID,
		PaymentID:    agg.Order.PaymentMethodID,
		Store:        Ref{ID: agg.Store.ID, Name: agg.Store.Name},
		Payment:      Ref{ID: agg.Payment.ID, Name: agg.Payment.Name},
		Items:        items,
		TotalPrice:   total,
	}
}

func PresentAll(aggs []OrderAggregate) []OrderResponse {
	out := make([]OrderResponse, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, Present(a))
	}
	return out
}
