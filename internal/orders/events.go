package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "toko-order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type ItemQty struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID      int64     `json:"order_id"`
	StoreID      int64     `json:"toko_id"`
	PaymentID    int64     `json:"payment_id"`
	CustomerName string    `json:"customer_name"`
	Items        []ItemQty `json:"items"`
	TotalPrice   string    `json:"total_price"`
}

type OrderStatusChangedPayload struct {
	OrderID int64  `json:"order_id"`
	StoreID int64  `json:"toko_id"`
	Status  Status `json:"status"`
}

func NewEnvelope(eventType, producer, traceID string, orderID int64, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: FormatID(orderID),
		Payload:       b,
	}, nil
}

func OrderCreatedFrom(resp OrderResponse) OrderCreatedPayload {
	items := make([]ItemQty, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, ItemQty{ProductID: it.ProductID, Qty: it.OrderAmount})
	}
	return OrderCreatedPayload{
		OrderID:      resp.ID,
		StoreID:      resp.StoreID,
		PaymentID:    resp.PaymentID,
		CustomerName: resp.CustomerName,
		Items:        items,
		TotalPrice:   resp.TotalPrice.String(),
	}
}
