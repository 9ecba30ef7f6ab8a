package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/redis/go-redis/v9"
)

// CachedOrder menyimpan owner toko supaya pembaca cache tetap bisa cek scope.
type CachedOrder struct {
	OwnerID int64                `json:"owner_id"`
	Version int64                `json:"version"`
	Order   orders.OrderResponse `json:"order"`
}

const (
	fieldGeneration = "gen"
	fieldData       = "data"
)

// setIfNewer: tulis entry hanya jika versi order lebih baru, atau versi sama dengan
// generation katalog yang lebih baru. ARGV: version, generation, data, ttl(ms).
var setIfNewer = redis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'ver', 'gen')
if cur[1] then
  local cv, cg = tonumber(cur[1]), tonumber(cur[2])
  local v, g = tonumber(ARGV[1]), tonumber(ARGV[2])
  if cv > v or (cv == v and cg >= g) then
    return 0
  end
end
redis.call('HSET', KEYS[1], 'ver', ARGV[1], 'gen', ARGV[2], 'data', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

// OrderCache is a read-through cache of presented orders. The database stays the source of truth;
// callers treat every cache error as a miss.
//
// Entries are tagged with the order version and the catalog generation. Product or store
// changes bump the generation, which turns every older entry into a miss, so a served
// total_price always reflects the current product prices. Writers read the generation
// before loading from the database; Set never replaces a newer order version.
type OrderCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewOrderCache(rdb redis.Cmdable, ttl time.Duration) *OrderCache {
	if ttl <= 0 {
		ttl = TTLOrderCache
	}
	return &OrderCache{rdb: rdb, ttl: ttl}
}

func (c *OrderCache) Generation(ctx context.Context) (int64, error) {
	g, err := c.rdb.Get(ctx, KeyCatalogGen).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return g, err
}

// BumpGeneration dipanggil setelah data katalog yang ikut tampil di order berubah.
func (c *OrderCache) BumpGeneration(ctx context.Context) error {
	return c.rdb.Incr(ctx, KeyCatalogGen).Err()
}

// Get returns the cached order when it was written under the current generation.
// gen is that current generation and is valid for a following Set even on a miss.
func (c *OrderCache) Get(ctx context.Context, orderID int64) (co CachedOrder, gen int64, ok bool, err error) {
	var entry *redis.MapStringStringCmd
	var genCmd *redis.StringCmd
	_, err = c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		entry = p.HGetAll(ctx, OrderKey(orderID))
		genCmd = p.Get(ctx, KeyCatalogGen)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return CachedOrder{}, 0, false, err
	}

	gen, err = genCmd.Int64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	if err != nil {
		return CachedOrder{}, 0, false, err
	}

	fields := entry.Val()
	if len(fields) == 0 || fields[fieldGeneration] != strconv.FormatInt(gen, 10) {
		return CachedOrder{}, gen, false, nil
	}
	if err := json.Unmarshal([]byte(fields[fieldData]), &co); err != nil {
		return CachedOrder{}, gen, false, fmt.Errorf("decode cached order %d: %w", orderID, err)
	}
	return co, gen, true, nil
}

// Set stores co under generation gen. It returns false when the cache already holds
// a newer snapshot of the same order.
func (c *OrderCache) Set(ctx context.Context, gen int64, co CachedOrder) (bool, error) {
	b, err := json.Marshal(co)
	if err != nil {
		return false, err
	}
	n, err := setIfNewer.Run(ctx, c.rdb, []string{OrderKey(co.Order.ID)},
		co.Version, gen, b, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *OrderCache) Invalidate(ctx context.Context, orderID int64) error {
	return c.rdb.Del(ctx, OrderKey(orderID)).Err()
}
