package redisx

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const idemPending = "pending"

type IdemState int

const (
	// IdemAcquired: key baru, pemanggil boleh membuat order.
	IdemAcquired IdemState = iota
	// IdemInProgress: request lain dengan key yang sama belum selesai.
	IdemInProgress
	// IdemDone: order sudah dibuat; OrderID terisi.
	IdemDone
)

// Idempotency guards order creation per (owner, Idempotency-Key).
// A key is "pending" for at most TTLIdemPending, so a lost Remember/Release only blocks
// retries briefly; a recorded order id lives for the full ttl.
type Idempotency struct {
	rdb        redis.Cmdable
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewIdempotency(rdb redis.Cmdable, ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return &Idempotency{rdb: rdb, ttl: ttl, pendingTTL: min(TTLIdemPending, ttl)}
}

func (i *Idempotency) Acquire(ctx context.Context, ownerID int64, key string) (IdemState, int64, error) {
	k := IdemKey(ownerID, key)
	ok, err := i.rdb.SetNX(ctx, k, idemPending, i.pendingTTL).Result()
	if err != nil {
		return 0, 0, err
	}
	if ok {
		return IdemAcquired, 0, nil
	}

	v, err := i.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired di antara SETNX dan GET, coba sekali lagi
		return i.Acquire(ctx, ownerID, key)
	}
	if err != nil {
		return 0, 0, err
	}
	if v == idemPending {
		return IdemInProgress, 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return IdemDone, id, nil
}

// Remember records the created order for the key.
func (i *Idempotency) Remember(ctx context.Context, ownerID int64, key string, orderID int64) error {
	return i.rdb.Set(ctx, IdemKey(ownerID, key), strconv.FormatInt(orderID, 10), i.ttl).Err()
}

// Release drops a pending key so a failed request can be retried with the same key.
func (i *Idempotency) Release(ctx context.Context, ownerID int64, key string) error {
	return i.rdb.Del(ctx, IdemKey(ownerID, key)).Err()
}
