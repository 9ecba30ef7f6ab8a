// Package ordertest provides an in-memory gateway for tests.
package ordertest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-toko-orders/internal/catalog"
	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/shopspring/decimal"
)

type assocKey struct{ storeID, productID int64 }

type state struct {
	stores     map[int64]orders.Store
	payments   map[int64]orders.PaymentMethod
	categories map[int64]orders.Category
	products   map[int64]orders.Product
	assoc      map[assocKey]bool
	orders     map[int64]orders.Order
	items      map[int64][]orders.OrderItem

	nextOrderID    int64
	nextItemID     int64
	nextPaymentID  int64
	nextStoreID    int64
	nextCategoryID int64
	nextProductID  int64
}

func newState() *state {
	return &state{
		stores:         map[int64]orders.Store{},
		payments:       map[int64]orders.PaymentMethod{},
		categories:     map[int64]orders.Category{},
		products:       map[int64]orders.Product{},
		assoc:          map[assocKey]bool{},
		orders:         map[int64]orders.Order{},
		items:          map[int64][]orders.OrderItem{},
		nextOrderID:    1,
		nextItemID:     1,
		nextPaymentID:  1,
		nextStoreID:    1,
		nextCategoryID: 1,
		nextProductID:  1,
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.stores {
		c.stores[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.assoc {
		c.assoc[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]orders.OrderItem(nil), v...)
	}
	c.nextOrderID, c.nextItemID, c.nextPaymentID = s.nextOrderID, s.nextItemID, s.nextPaymentID
	c.nextStoreID, c.nextCategoryID, c.nextProductID = s.nextStoreID, s.nextCategoryID, s.nextProductID
	return c
}

// Memory is a thread-safe orders.Gateway. Transactions run one at a time against a copy
// of the committed state which replaces it only when fn succeeds.
type Memory struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state *state

	// FailInsert, bila di-set, dikembalikan InsertOrder setelah baris order ditulis.
	FailInsert error
	Now        func() time.Time
}

var (
	_ orders.Gateway  = (*Memory)(nil)
	_ catalog.Gateway = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{state: newState(), Now: time.Now}
}

// ---- seeding ----

func (m *Memory) AddStore(s orders.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.stores[s.ID] = s
	if s.ID >= m.state.nextStoreID {
		m.state.nextStoreID = s.ID + 1
	}
}

func (m *Memory) AddCategory(c orders.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.categories[c.ID] = c
	if c.ID >= m.state.nextCategoryID {
		m.state.nextCategoryID = c.ID + 1
	}
}

func (m *Memory) AddPayment(p orders.PaymentMethod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.payments[p.ID] = p
	if p.ID >= m.state.nextPaymentID {
		m.state.nextPaymentID = p.ID + 1
	}
}

// AddProduct menyimpan product dan mengasosiasikannya ke storeIDs.
func (m *Memory) AddProduct(p orders.Product, storeIDs ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.products[p.ID] = p
	if p.ID >= m.state.nextProductID {
		m.state.nextProductID = p.ID + 1
	}
	for _, sid := range storeIDs {
		m.state.assoc[assocKey{sid, p.ID}] = true
	}
}

func (m *Memory) SetPrice(productID int64, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.state.products[productID]
	p.Price = price
	m.state.products[productID] = p
}

func (m *Memory) CloseStore(storeID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state.stores[storeID]
	s.IsOpen = false
	m.state.stores[storeID] = s
}

func (m *Memory) CountOrders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (m *Memory) CountItems() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, its := range m.state.items {
		n += len(its)
	}
	return n
}

func (m *Memory) CountOrdersForStore(storeID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.state.orders {
		if o.StoreID == storeID {
			n++
		}
	}
	return n
}

// ---- orders.Gateway ----

func (m *Memory) RunInTx(ctx context.Context, fn func(tx orders.Gateway) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snap := m.state.clone()
	m.mu.Unlock()

	if err := fn(&view{m: m, st: snap, inTx: true}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return orders.TransactionFailure(err)
	}

	m.mu.Lock()
	m.state = snap
	m.mu.Unlock()
	return nil
}

func (m *Memory) read(fn func(v *view) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&view{m: m, st: m.state})
}

// write menunggu transaksi yang sedang jalan supaya commit-nya tidak menimpa perubahan ini.
func (m *Memory) write(fn func(st *state) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func (m *Memory) FindStore(ctx context.Context, id int64) (s orders.Store, err error) {
	err = m.read(func(v *view) error {
		s, err = v.FindStore(ctx, id)
		return err
	})
	return
}

func (m *Memory) FindPaymentMethod(ctx context.Context, id int64) (p orders.PaymentMethod, err error) {
	err = m.read(func(v *view) error {
		p, err = v.FindPaymentMethod(ctx, id)
		return err
	})
	return
}

func (m *Memory) FindProductsWithStoreAssociation(ctx context.Context, ids []int64, storeID int64) (out []orders.ProductAvailability, err error) {
	err = m.read(func(v *view) error {
		out, err = v.FindProductsWithStoreAssociation(ctx, ids, storeID)
		return err
	})
	return
}

func (m *Memory) InsertOrder(ctx context.Context, o orders.NewOrder) (out orders.Order, err error) {
	err = m.RunInTx(ctx, func(tx orders.Gateway) error {
		out, err = tx.InsertOrder(ctx, o)
		return err
	})
	return
}

func (m *Memory) FindOrder(ctx context.Context, id int64, scope orders.Scope) (agg orders.OrderAggregate, err error) {
	err = m.read(func(v *view) error {
		agg, err = v.FindOrder(ctx, id, scope)
		return err
	})
	return
}

func (m *Memory) ListOrders(ctx context.Context, f orders.OrderFilter) (out []orders.OrderAggregate, err error) {
	err = m.read(func(v *view) error {
		out, err = v.ListOrders(ctx, f)
		return err
	})
	return
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, id int64, status orders.Status, scope orders.Scope) error {
	return m.RunInTx(ctx, func(tx orders.Gateway) error { return tx.UpdateOrderStatus(ctx, id, status, scope) })
}

// ---- catalog ----

func (m *Memory) ListPaymentMethods(ctx context.Context) (out []orders.PaymentMethod, err error) {
	err = m.read(func(v *view) error {
		for _, p := range v.st.payments {
			out = append(out, p)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return
}

func (m *Memory) FindPaymentMethodByName(ctx context.Context, name string) (out orders.PaymentMethod, err error) {
	err = m.read(func(v *view) error {
		for _, p := range v.st.payments {
			if strings.EqualFold(p.Name, name) {
				out = p
				return nil
			}
		}
		return orders.ErrRecordNotFound
	})
	return
}

func (m *Memory) CreatePaymentMethod(ctx context.Context, name string) (out orders.PaymentMethod, err error) {
	err = m.write(func(st *state) error {
		for _, p := range st.payments {
			if strings.EqualFold(p.Name, name) {
				return orders.ErrDuplicateKey
			}
		}
		out = orders.PaymentMethod{ID: st.nextPaymentID, Name: name}
		st.nextPaymentID++
		st.payments[out.ID] = out
		return nil
	})
	return
}

func (m *Memory) DeletePaymentMethod(ctx context.Context, id int64) error {
	return m.write(func(st *state) error {
		if _, ok := st.payments[id]; !ok {
			return orders.ErrRecordNotFound
		}
		for _, o := range st.orders {
			if o.PaymentMethodID == id {
				return orders.ErrReferenced
			}
		}
		delete(st.payments, id)
		return nil
	})
}

func (m *Memory) ListStoresByOwner(ctx context.Context, ownerID int64) (out []orders.Store, err error) {
	err = m.read(func(v *view) error {
		for _, s := range v.st.stores {
			if s.OwnerID == ownerID {
				out = append(out, s)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		return nil
	})
	return
}

func (m *Memory) ListStores(ctx context.Context) (out []orders.Store, err error) {
	err = m.read(func(v *view) error {
		for _, s := range v.st.stores {
			out = append(out, s)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		return nil
	})
	return
}

func (m *Memory) CreateStore(ctx context.Context, s orders.Store) (out orders.Store, err error) {
	err = m.write(func(st *state) error {
		s.ID = st.nextStoreID
		st.nextStoreID++
		st.stores[s.ID] = s
		out = s
		return nil
	})
	return
}

func (m *Memory) UpdateStore(ctx context.Context, s orders.Store) error {
	return m.write(func(st *state) error {
		cur, ok := st.stores[s.ID]
		if !ok || cur.OwnerID != s.OwnerID {
			return orders.ErrRecordNotFound
		}
		cur.Name, cur.Description, cur.Location, cur.Image = s.Name, s.Description, s.Location, s.Image
		st.stores[s.ID] = cur
		return nil
	})
}

func (m *Memory) DeleteStore(ctx context.Context, id, ownerID int64) error {
	return m.write(func(st *state) error {
		s, ok := st.stores[id]
		if !ok || s.OwnerID != ownerID {
			return orders.ErrRecordNotFound
		}
		for _, o := range st.orders {
			if o.StoreID == id {
				return orders.ErrReferenced
			}
		}
		for k := range st.assoc {
			if k.storeID == id {
				delete(st.assoc, k)
			}
		}
		delete(st.stores, id)
		return nil
	})
}

func (m *Memory) SetStoreOpen(ctx context.Context, id, ownerID int64, open bool) error {
	return m.write(func(st *state) error {
		s, ok := st.stores[id]
		if !ok || s.OwnerID != ownerID {
			return orders.ErrRecordNotFound
		}
		s.IsOpen = open
		st.stores[id] = s
		return nil
	})
}

func (m *Memory) FindCategory(ctx context.Context, id int64) (out orders.Category, err error) {
	err = m.read(func(v *view) error {
		c, ok := v.st.categories[id]
		if !ok {
			return orders.ErrRecordNotFound
		}
		out = c
		return nil
	})
	return
}

func (m *Memory) ListCategories(ctx context.Context, ownerID int64) (out []orders.Category, err error) {
	err = m.read(func(v *view) error {
		for _, c := range v.st.categories {
			if c.OwnerID == ownerID {
				out = append(out, c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return
}

func categoryTaken(st *state, c orders.Category) bool {
	for _, o := range st.categories {
		if o.ID != c.ID && o.OwnerID == c.OwnerID && o.Name == c.Name {
			return true
		}
	}
	return false
}

func (m *Memory) CreateCategory(ctx context.Context, c orders.Category) (out orders.Category, err error) {
	err = m.write(func(st *state) error {
		if categoryTaken(st, c) {
			return orders.ErrDuplicateKey
		}
		c.ID = st.nextCategoryID
		st.nextCategoryID++
		st.categories[c.ID] = c
		out = c
		return nil
	})
	return
}

func (m *Memory) UpdateCategory(ctx context.Context, c orders.Category) error {
	return m.write(func(st *state) error {
		cur, ok := st.categories[c.ID]
		if !ok || cur.OwnerID != c.OwnerID {
			return orders.ErrRecordNotFound
		}
		if categoryTaken(st, c) {
			return orders.ErrDuplicateKey
		}
		st.categories[c.ID] = c
		return nil
	})
}

func (m *Memory) DeleteCategory(ctx context.Context, id, ownerID int64) error {
	return m.write(func(st *state) error {
		c, ok := st.categories[id]
		if !ok || c.OwnerID != ownerID {
			return orders.ErrRecordNotFound
		}
		// ON DELETE SET NULL
		for pid, p := range st.products {
			if p.CategoryID == id {
				p.CategoryID = 0
				st.products[pid] = p
			}
		}
		delete(st.categories, id)
		return nil
	})
}

func (m *Memory) FindProduct(ctx context.Context, id int64) (out orders.Product, err error) {
	err = m.read(func(v *view) error {
		p, ok := v.st.products[id]
		if !ok {
			return orders.ErrRecordNotFound
		}
		out = p
		return nil
	})
	return
}

func (m *Memory) ListProducts(ctx context.Context, f catalog.ProductFilter) (out []orders.Product, err error) {
	err = m.read(func(v *view) error {
		for _, p := range v.st.products {
			if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
				continue
			}
			if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
				continue
			}
			out = append(out, p)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return
}

func (m *Memory) ProductStores(ctx context.Context, productID int64) (out []int64, err error) {
	err = m.read(func(v *view) error {
		for k := range v.st.assoc {
			if k.productID == productID {
				out = append(out, k.storeID)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return nil
	})
	return
}

func (m *Memory) ProductOwnedBy(ctx context.Context, productID, ownerID int64) (owned bool, err error) {
	err = m.read(func(v *view) error {
		for k := range v.st.assoc {
			if k.productID == productID && v.st.stores[k.storeID].OwnerID == ownerID {
				owned = true
				return nil
			}
		}
		return nil
	})
	return
}

func (m *Memory) CreateProduct(ctx context.Context, p orders.Product, storeID int64) (out orders.Product, err error) {
	err = m.write(func(st *state) error {
		if _, ok := st.stores[storeID]; !ok {
			return orders.ErrRecordNotFound
		}
		p.ID = st.nextProductID
		st.nextProductID++
		st.products[p.ID] = p
		st.assoc[assocKey{storeID, p.ID}] = true
		out = p
		return nil
	})
	return
}

func (m *Memory) UpdateProduct(ctx context.Context, p orders.Product) error {
	return m.write(func(st *state) error {
		if _, ok := st.products[p.ID]; !ok {
			return orders.ErrRecordNotFound
		}
		st.products[p.ID] = p
		return nil
	})
}

func (m *Memory) DeleteProduct(ctx context.Context, id int64) error {
	return m.write(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return orders.ErrRecordNotFound
		}
		for _, its := range st.items {
			for _, it := range its {
				if it.ProductID == id {
					return orders.ErrReferenced
				}
			}
		}
		for k := range st.assoc {
			if k.productID == id {
				delete(st.assoc, k)
			}
		}
		delete(st.products, id)
		return nil
	})
}

func (m *Memory) AssignProduct(ctx context.Context, storeID, productID int64) error {
	return m.write(func(st *state) error {
		_, okS := st.stores[storeID]
		_, okP := st.products[productID]
		if !okS || !okP {
			return orders.ErrRecordNotFound
		}
		k := assocKey{storeID, productID}
		if st.assoc[k] {
			return orders.ErrDuplicateKey
		}
		st.assoc[k] = true
		return nil
	})
}

func (m *Memory) UnassignProduct(ctx context.Context, storeID, productID int64) error {
	return m.write(func(st *state) error {
		k := assocKey{storeID, productID}
		if !st.assoc[k] {
			return orders.ErrRecordNotFound
		}
		delete(st.assoc, k)
		return nil
	})
}

// view adalah gateway di atas satu state (committed atau snapshot transaksi).
type view struct {
	m    *Memory
	st   *state
	inTx bool
}

func (v *view) RunInTx(ctx context.Context, fn func(tx orders.Gateway) error) error {
	if v.inTx {
		return fn(v)
	}
	return v.m.RunInTx(ctx, fn)
}

func (v *view) FindStore(_ context.Context, id int64) (orders.Store, error) {
	s, ok := v.st.stores[id]
	if !ok {
		return orders.Store{}, orders.ErrRecordNotFound
	}
	return s, nil
}

func (v *view) FindPaymentMethod(_ context.Context, id int64) (orders.PaymentMethod, error) {
	p, ok := v.st.payments[id]
	if !ok {
		return orders.PaymentMethod{}, orders.ErrRecordNotFound
	}
	return p, nil
}

func (v *view) FindProductsWithStoreAssociation(_ context.Context, ids []int64, storeID int64) ([]orders.ProductAvailability, error) {
	out := make([]orders.ProductAvailability, 0, len(ids))
	for _, id := range ids {
		p, ok := v.st.products[id]
		if !ok {
			continue
		}
		out = append(out, orders.ProductAvailability{Product: p, Associated: v.st.assoc[assocKey{storeID, id}]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product.ID < out[j].Product.ID })
	return out, nil
}

func (v *view) InsertOrder(_ context.Context, o orders.NewOrder) (orders.Order, error) {
	order := orders.Order{
		ID:              v.st.nextOrderID,
		CustomerName:    o.CustomerName,
		CreateDate:      v.m.Now().UTC(),
		Status:          orders.StatusPending,
		StoreID:         o.StoreID,
		PaymentMethodID: o.PaymentMethodID,
		Version:         1,
	}
	v.st.nextOrderID++
	v.st.orders[order.ID] = order

	if v.m.FailInsert != nil {
		return orders.Order{}, orders.TransactionFailure(v.m.FailInsert)
	}

	items := make([]orders.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.OrderItem{
			ID:        v.st.nextItemID,
			OrderID:   order.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
		v.st.nextItemID++
	}
	v.st.items[order.ID] = items
	return order, nil
}

func (v *view) inScope(o orders.Order, scope orders.Scope) bool {
	if scope.Unscoped() {
		return true
	}
	return v.st.stores[o.StoreID].OwnerID == scope.OwnerID
}

func (v *view) aggregate(o orders.Order) orders.OrderAggregate {
	agg := orders.OrderAggregate{
		Order:   o,
		Store:   v.st.stores[o.StoreID],
		Payment: v.st.payments[o.PaymentMethodID],
	}
	for _, it := range v.st.items[o.ID] {
		it.Product = v.st.products[it.ProductID]
		agg.Items = append(agg.Items, it)
	}
	return agg
}

func (v *view) FindOrder(_ context.Context, id int64, scope orders.Scope) (orders.OrderAggregate, error) {
	o, ok := v.st.orders[id]
	if !ok || !v.inScope(o, scope) {
		return orders.OrderAggregate{}, orders.ErrRecordNotFound
	}
	return v.aggregate(o), nil
}

func (v *view) ListOrders(_ context.Context, f orders.OrderFilter) ([]orders.OrderAggregate, error) {
	var list []orders.Order
	for _, o := range v.st.orders {
		if !v.inScope(o, f.Scope) || (f.StoreID != 0 && o.StoreID != f.StoreID) {
			continue
		}
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreateDate.Equal(list[j].CreateDate) {
			return list[i].CreateDate.After(list[j].CreateDate)
		}
		return list[i].ID > list[j].ID
	})
	out := make([]orders.OrderAggregate, 0, len(list))
	for _, o := range list {
		out = append(out, v.aggregate(o))
	}
	return out, nil
}

func (v *view) UpdateOrderStatus(_ context.Context, id int64, status orders.Status, scope orders.Scope) error {
	o, ok := v.st.orders[id]
	if !ok || !v.inScope(o, scope) {
		return orders.ErrRecordNotFound
	}
	o.Status = status
	o.Version++
	v.st.orders[id] = o
	return nil
}
