package kafka

import (
	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/segmentio/kafka-go"
)

type publisher interface {
	Publish(topic string, key, value []byte, headers ...kafka.Header) error
}

// OrderEvents membungkus payload order ke envelope v1 lalu publish dengan key = order_id.
type OrderEvents struct {
	p       publisher
	service string
}

func NewOrderEvents(p publisher, service string) *OrderEvents {
	return &OrderEvents{p: p, service: service}
}

func (e *OrderEvents) OrderCreated(traceID string, resp orders.OrderResponse) error {
	return e.publish(orders.TopicOrderCreated, orders.EventOrderCreated, traceID, resp.ID, orders.OrderCreatedFrom(resp))
}

func (e *OrderEvents) OrderStatusChanged(traceID string, resp orders.OrderResponse) error {
	return e.publish(orders.TopicOrderStatusChanged, orders.EventOrderStatusChanged, traceID, resp.ID,
		orders.OrderStatusChangedPayload{OrderID: resp.ID, StoreID: resp.StoreID, Status: resp.Status})
}

func (e *OrderEvents) publish(topic, eventType, traceID string, orderID int64, payload any) error {
	env, err := orders.NewEnvelope(eventType, e.service, traceID, orderID, payload)
	if err != nil {
		return err
	}
	return e.p.Publish(topic, orders.PartitionKey(orderID), MustMarshal(env), EventHeaders(eventType, env.EventVersion)...)
}
