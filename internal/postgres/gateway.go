package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-toko-orders/internal/catalog"
	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
)

var (
	_ orders.Gateway  = (*Gateway)(nil)
	_ catalog.Gateway = (*Gateway)(nil)
)

// Gateway implements orders.Gateway and the catalog gateway on top of Postgres.
type Gateway struct {
	db   DB
	q    querier
	iso  pgx.TxIsoLevel
	inTx bool
}

func NewGateway(db DB, iso pgx.TxIsoLevel) *Gateway {
	if iso == "" {
		iso = pgx.Serializable
	}
	return &Gateway{db: db, q: db, iso: iso}
}

// RunInTx: BEGIN -> fn -> COMMIT. Error dari fn (atau panic) = ROLLBACK, tidak ada yang tersisa.
func (g *Gateway) RunInTx(ctx context.Context, fn func(tx orders.Gateway) error) error {
	if g.inTx {
		return fn(g)
	}

	tx, err := g.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: g.iso})
	if err != nil {
		if transient(ctx, err) {
			return orders.TransactionFailure(fmt.Errorf("begin tx: %w", err))
		}
		return orders.Internal(fmt.Errorf("begin tx: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(&Gateway{db: g.db, q: tx, iso: g.iso, inTx: true}); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			zerolog.Ctx(ctx).Error().Err(rbErr).Str("component", "RunInTx").Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("component", "RunInTx").Msg("commit failed")
		return orders.TransactionFailure(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (g *Gateway) FindStore(ctx context.Context, id int64) (orders.Store, error) {
	var s orders.Store
	err := g.q.QueryRow(ctx, `
		SELECT id, name, owner_id, is_open, description, location, image
		FROM tokos WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.OwnerID, &s.IsOpen, &s.Description, &s.Location, &s.Image)
	if err != nil {
		return orders.Store{}, g.readErr(ctx, "FindStore", err)
	}
	return s, nil
}

func (g *Gateway) FindPaymentMethod(ctx context.Context, id int64) (orders.PaymentMethod, error) {
	var p orders.PaymentMethod
	err := g.q.QueryRow(ctx, `SELECT id, name FROM payments WHERE id = $1`, id).Scan(&p.ID, &p.Name)
	if err != nil {
		return orders.PaymentMethod{}, g.readErr(ctx, "FindPaymentMethod", err)
	}
	return p, nil
}

// FindProductsWithStoreAssociation returns one row per existing product in ids; ids that do not
// exist are simply absent from the result.
func (g *Gateway) FindProductsWithStoreAssociation(ctx context.Context, ids []int64, storeID int64) ([]orders.ProductAvailability, error) {
	rows, err := g.q.Query(ctx, `
		SELECT p.id, p.name, p.price, p.description, p.image, COALESCE(p.category_id, 0),
		       EXISTS (SELECT 1 FROM toko_products tp WHERE tp.product_id = p.id AND tp.toko_id = $2)
		FROM products p
		WHERE p.id = ANY($1)`, ids, storeID)
	if err != nil {
		return nil, g.readErr(ctx, "FindProductsWithStoreAssociation", err)
	}
	defer rows.Close()

	out := make([]orders.ProductAvailability, 0, len(ids))
	for rows.Next() {
		var pa orders.ProductAvailability
		p := &pa.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Image, &p.CategoryID, &pa.Associated); err != nil {
			return nil, g.readErr(ctx, "FindProductsWithStoreAssociation", err)
		}
		out = append(out, pa)
	}
	if err := rows.Err(); err != nil {
		return nil, g.readErr(ctx, "FindProductsWithStoreAssociation", err)
	}
	return out, nil
}

// InsertOrder menulis header order lalu semua item-nya. Harus dipanggil di dalam RunInTx.
func (g *Gateway) InsertOrder(ctx context.Context, o orders.NewOrder) (orders.Order, error) {
	out := orders.Order{
		CustomerName:    o.CustomerName,
		Status:          orders.StatusPending,
		StoreID:         o.StoreID,
		PaymentMethodID: o.PaymentMethodID,
	}
	err := g.q.QueryRow(ctx, `
		INSERT INTO orders (customer_name, status, toko_id, payment_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, create_date, version`,
		o.CustomerName, string(orders.StatusPending), o.StoreID, o.PaymentMethodID,
	).Scan(&out.ID, &out.CreateDate, &out.Version)
	if err != nil {
		return orders.Order{}, g.writeErr(ctx, "InsertOrder", err)
	}

	for _, it := range o.Items {
		if _, err := g.q.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, order_amount)
			VALUES ($1, $2, $3)`,
			out.ID, it.ProductID, it.Quantity,
		); err != nil {
			return orders.Order{}, g.writeErr(ctx, "InsertOrder", err)
		}
	}
	return out, nil
}

const selectOrder = `
	SELECT o.id, o.customer_name, o.create_date, o.status, o.toko_id, o.payment_id, o.version,
	       t.id, t.name, t.owner_id, t.is_open, t.description, t.location, t.image,
	       pm.id, pm.name
	FROM orders o
	JOIN tokos t ON t.id = o.toko_id
	JOIN payments pm ON pm.id = o.payment_id`

func scanOrder(row pgx.Row) (orders.OrderAggregate, error) {
	var a orders.OrderAggregate
	var status string
	err := row.Scan(
		&a.Order.ID, &a.Order.CustomerName, &a.Order.CreateDate, &status, &a.Order.StoreID, &a.Order.PaymentMethodID, &a.Order.Version,
		&a.Store.ID, &a.Store.Name, &a.Store.OwnerID, &a.Store.IsOpen, &a.Store.Description, &a.Store.Location, &a.Store.Image,
		&a.Payment.ID, &a.Payment.Name,
	)
	a.Order.Status = orders.Status(status)
	return a, err
}

func (g *Gateway) FindOrder(ctx context.Context, id int64, scope orders.Scope) (orders.OrderAggregate, error) {
	agg, err := scanOrder(g.q.QueryRow(ctx, selectOrder+`
	WHERE o.id = $1 AND ($2::bigint = 0 OR t.owner_id = $2)`, id, scope.OwnerID))
	if err != nil {
		return orders.OrderAggregate{}, g.readErr(ctx, "FindOrder", err)
	}

	items, err := g.loadItems(ctx, []int64{id})
	if err != nil {
		return orders.OrderAggregate{}, err
	}
	agg.Items = items[id]
	return agg, nil
}

// ListOrders: terbaru dulu (create_date desc).
func (g *Gateway) ListOrders(ctx context.Context, f orders.OrderFilter) ([]orders.OrderAggregate, error) {
	rows, err := g.q.Query(ctx, selectOrder+`
	WHERE ($1::bigint = 0 OR t.owner_id = $1) AND ($2::bigint = 0 OR o.toko_id = $2)
	ORDER BY o.create_date DESC, o.id DESC`, f.Scope.OwnerID, f.StoreID)
	if err != nil {
		return nil, g.readErr(ctx, "ListOrders", err)
	}
	defer rows.Close()

	var out []orders.OrderAggregate
	var ids []int64
	for rows.Next() {
		agg, err := scanOrder(rows)
		if err != nil {
			return nil, g.readErr(ctx, "ListOrders", err)
		}
		out = append(out, agg)
		ids = append(ids, agg.Order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, g.readErr(ctx, "ListOrders", err)
	}
	if len(out) == 0 {
		return []orders.OrderAggregate{}, nil
	}

	items, err := g.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].Order.ID]
	}
	return out, nil
}

func (g *Gateway) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]orders.OrderItem, error) {
	rows, err := g.q.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.order_amount,
		       p.id, p.name, p.price, p.description, p.image, COALESCE(p.category_id, 0)
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`, orderIDs)
	if err != nil {
		return nil, g.readErr(ctx, "loadItems", err)
	}
	defer rows.Close()

	out := make(map[int64][]orders.OrderItem, len(orderIDs))
	for rows.Next() {
		var it orders.OrderItem
		p := &it.Product
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity,
			&p.ID, &p.Name, &p.Price, &p.Description, &p.Image, &p.CategoryID); err != nil {
			return nil, g.readErr(ctx, "loadItems", err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, g.readErr(ctx, "loadItems", err)
	}
	return out, nil
}

func (g *Gateway) UpdateOrderStatus(ctx context.Context, id int64, status orders.Status, scope orders.Scope) error {
	ct, err := g.q.Exec(ctx, `
		UPDATE orders o SET status = $2, version = o.version + 1
		FROM tokos t
		WHERE o.id = $1 AND t.id = o.toko_id AND ($3::bigint = 0 OR t.owner_id = $3)`,
		id, string(status), scope.OwnerID)
	if err != nil {
		return g.writeErr(ctx, "UpdateOrderStatus", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrRecordNotFound
	}
	return nil
}

// ---- catalog ----

func (g *Gateway) ListPaymentMethods(ctx context.Context) ([]orders.PaymentMethod, error) {
	rows, err := g.q.Query(ctx, `SELECT id, name FROM payments ORDER BY name ASC`)
	if err != nil {
		return nil, g.readErr(ctx, "ListPaymentMethods", err)
	}
	defer rows.Close()

	out := []orders.PaymentMethod{}
	for rows.Next() {
		var p orders.PaymentMethod
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, g.readErr(ctx, "ListPaymentMethods", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, g.readErr(ctx, "ListPaymentMethods", err)
	}
	return out, nil
}

func (g *Gateway) FindPaymentMethodByName(ctx context.Context, name string) (orders.PaymentMethod, error) {
	var p orders.PaymentMethod
	err := g.q.QueryRow(ctx, `SELECT id, name FROM payments WHERE lower(name) = lower($1)`, name).Scan(&p.ID, &p.Name)
	if err != nil {
		return orders.PaymentMethod{}, g.readErr(ctx, "FindPaymentMethodByName", err)
	}
	return p, nil
}

func (g *Gateway) CreatePaymentMethod(ctx context.Context, name string) (orders.PaymentMethod, error) {
	p := orders.PaymentMethod{Name: name}
	err := g.q.QueryRow(ctx, `INSERT INTO payments (name) VALUES ($1) RETURNING id`, name).Scan(&p.ID)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return orders.PaymentMethod{}, orders.ErrDuplicateKey
		}
		return orders.PaymentMethod{}, g.writeErr(ctx, "CreatePaymentMethod", err)
	}
	return p, nil
}

func (g *Gateway) DeletePaymentMethod(ctx context.Context, id int64) error {
	ct, err := g.q.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return orders.ErrReferenced
		}
		return g.writeErr(ctx, "DeletePaymentMethod", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrRecordNotFound
	}
	return nil
}

func (g *Gateway) ListStoresByOwner(ctx context.Context, ownerID int64) ([]orders.Store, error) {
	rows, err := g.q.Query(ctx, `
		SELECT id, name, owner_id, is_open, description, location, image
		FROM tokos WHERE owner_id = $1
		ORDER BY id DESC`, ownerID)
	if err != nil {
		return nil, g.readErr(ctx, "ListStoresByOwner", err)
	}
	out, err := scanStores(rows)
	if err != nil {
		return nil, g.readErr(ctx, "ListStoresByOwner", err)
	}
	return out, nil
}

func (g *Gateway) SetStoreOpen(ctx context.Context, id, ownerID int64, open bool) error {
	ct, err := g.q.Exec(ctx, `UPDATE tokos SET is_open = $3 WHERE id = $1 AND owner_id = $2`, id, ownerID, open)
	if err != nil {
		return g.writeErr(ctx, "SetStoreOpen", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrRecordNotFound
	}
	return nil
}

// ---- error classification ----

// readErr: no rows -> ErrRecordNotFound, konflik/timeout -> TransactionFailure, sisanya Internal.
func (g *Gateway) readErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.ErrRecordNotFound
	}
	zerolog.Ctx(ctx).Error().Err(err).Str("component", op).Msg("query failed")
	if transient(ctx, err) {
		return orders.TransactionFailure(fmt.Errorf("%s: %w", op, err))
	}
	return orders.Internal(fmt.Errorf("%s: %w", op, err))
}

// writeErr: write yang gagal retryable, kecuali datanya sendiri ditolak (class 22 / 23);
// request yang sama tidak akan pernah lolos jadi tidak boleh disuruh retry.
func (g *Gateway) writeErr(ctx context.Context, op string, err error) error {
	zerolog.Ctx(ctx).Error().Err(err).Str("component", op).Msg("write failed")
	if rejectedData(err) {
		return orders.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return orders.TransactionFailure(fmt.Errorf("%s: %w", op, err))
}

// rejectedData: SQLSTATE class 22 (data exception) dan 23 (integrity constraint violation).
func rejectedData(err error) bool {
	code := pgCode(err)
	return strings.HasPrefix(code, "22") || strings.HasPrefix(code, "23")
}

func transient(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return true
	}
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeQueryCanceled:
		return true
	}
	return false
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
