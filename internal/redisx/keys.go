package redisx

import (
	"fmt"
	"time"
)

const (
	// Idempotency create order: idem:order:create:{owner_id}:{Idempotency-Key} -> "pending" | order_id
	KeyIdemOrderCreate = "idem:order:create:%d:%s"

	// Read-cache order: order:{order_id} -> hash {ver, gen, data: CachedOrder}
	KeyOrder = "order:%d"

	// Generation katalog (product/toko): INCR setiap kali berubah.
	KeyCatalogGen = "catalog:gen"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	// marker "pending" cukup hidup selama satu request (http timeout 15s)
	TTLIdemPending = time.Minute
	TTLOrderCache  = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func IdemKey(ownerID int64, key string) string { return fmt.Sprintf(KeyIdemOrderCreate, ownerID, key) }

func OrderKey(orderID int64) string { return fmt.Sprintf(KeyOrder, orderID) }

func DedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
