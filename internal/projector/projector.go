// Package projector keeps the Redis order read-cache in sync with order events.
package projector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/go-toko-orders/internal/kafka"
	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/ariefcatur/go-toko-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultSkipped   = "skipped"
)

type OrderReader interface {
	GetOrder(ctx context.Context, scope orders.Scope, orderID int64) (orders.OrderAggregate, error)
}

type OrderCache interface {
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, gen int64, co redisx.CachedOrder) (bool, error)
}

type recorder interface {
	EventProjected(eventType, result string)
}

type Service struct {
	Orders      OrderReader
	Cache       OrderCache
	Redis       redis.Cmdable
	Metrics     recorder
	ServiceName string
	DedupTTL    time.Duration
}

// orderRef: field yang sama di semua payload order.
type orderRef struct {
	OrderID int64 `json:"order_id"`
}

func projected(eventType string) bool {
	return eventType == orders.EventOrderCreated || eventType == orders.EventOrderStatusChanged
}

// Handle dipasang sebagai handler consumer. nil = offset boleh di-commit.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	// 0) filter murah lewat header, tanpa decode body
	if t := kafkax.HeaderValue(m, kafkax.HeaderEventType); t != "" && !projected(t) {
		s.Metrics.EventProjected(t, ResultSkipped)
		return nil
	}

	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// pesan rusak tidak akan pernah berhasil, jangan diulang terus
		zerolog.Ctx(ctx).Error().Err(err).Str("topic", m.Topic).Int64("offset", m.Offset).Msg("drop undecodable event")
		s.Metrics.EventProjected("unknown", ResultSkipped)
		return nil
	}
	if !projected(env.EventType) {
		s.Metrics.EventProjected(env.EventType, ResultSkipped)
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	dkey := redisx.DedupKey(s.ServiceName, env.EventID)
	if seen, err := redisx.Exists(ctx, s.Redis, dkey); err == nil && seen {
		s.Metrics.EventProjected(env.EventType, ResultDuplicate)
		return nil
	}

	// 3) decode payload
	ref, err := kafkax.UnwrapPayload[orderRef](env.Payload)
	if err != nil || ref.OrderID <= 0 {
		zerolog.Ctx(ctx).Error().Err(err).Str("event_id", env.EventID).Msg("drop event without order id")
		s.Metrics.EventProjected(env.EventType, ResultSkipped)
		return nil
	}

	// 4) refresh cache dari DB; generation dibaca dulu, versi lama tidak menimpa yang baru
	gen, err := s.Cache.Generation(ctx)
	if err != nil {
		return fmt.Errorf("catalog generation: %w", err)
	}
	agg, err := s.Orders.GetOrder(ctx, orders.Scope{}, ref.OrderID)
	switch {
	case orders.KindOf(err) == orders.KindNotFound:
		s.Metrics.EventProjected(env.EventType, ResultSkipped)
	case err != nil:
		return fmt.Errorf("load order %d: %w", ref.OrderID, err)
	default:
		co := redisx.CachedOrder{OwnerID: agg.Store.OwnerID, Version: agg.Order.Version, Order: orders.Present(agg)}
		if _, err := s.Cache.Set(ctx, gen, co); err != nil {
			return fmt.Errorf("cache order %d: %w", ref.OrderID, err)
		}
		s.Metrics.EventProjected(env.EventType, ResultOK)
	}

	if err := redisx.MarkSeen(ctx, s.Redis, dkey, s.dedupTTL()); err != nil && !errors.Is(err, context.Canceled) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event_id", env.EventID).Msg("dedup mark")
	}
	zerolog.Ctx(ctx).Debug().Str("event_type", env.EventType).Int64("order_id", ref.OrderID).Msg("event projected")
	return nil
}

func (s *Service) dedupTTL() time.Duration {
	if s.DedupTTL > 0 {
		return s.DedupTTL
	}
	return redisx.TTLDedup
}
