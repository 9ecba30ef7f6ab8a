package postgres

import (
	"context"

	"github.com/ariefcatur/go-toko-orders/internal/catalog"
	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/jackc/pgx/v5"
)

const productCols = `p.id, p.name, p.price, p.description, p.image, COALESCE(p.category_id, 0)`

func scanStores(rows pgx.Rows) ([]orders.Store, error) {
	defer rows.Close()
	out := []orders.Store{}
	for rows.Next() {
		var s orders.Store
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerID, &s.IsOpen, &s.Description, &s.Location, &s.Image); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (g *Gateway) ListStores(ctx context.Context) ([]orders.Store, error) {
	rows, err := g.q.Query(ctx, `
		SELECT id, name, owner_id, is_open, description, location, image
		FROM tokos ORDER BY id DESC`)
	if err != nil {
		return nil, g.readErr(ctx, "ListStores", err)
	}
	out, err := scanStores(rows)
	if err != nil {
		return nil, g.readErr(ctx, "ListStores", err)
	}
	return out, nil
}

func (g *Gateway) CreateStore(ctx context.Context, s orders.Store) (orders.Store, error) {
	err := g.q.QueryRow(ctx, `
		INSERT INTO tokos (name, owner_id, is_open, description, location, image)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		s.Name, s.OwnerID, s.IsOpen, s.Description, s.Location, s.Image,
	).Scan(&s.ID)
	if err != nil {
		return orders.Store{}, g.writeErr(ctx, "CreateStore", err)
	}
	return s, nil
}

func (g *Gateway) UpdateStore(ctx context.Context, s orders.Store) error {
	ct, err := g.q.Exec(ctx, `
		UPDATE tokos SET name = $3, description = $4, location = $5, image = $6
		WHERE id = $1 AND owner_id = $2`,
		s.ID, s.OwnerID, s.Name, s.Description, s.Location, s.Image)
	if err != nil {
		return g.writeErr(ctx, "UpdateStore", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrRecordNotFound
	}
	return nil
}

// DeleteStore: toko_products ikut terhapus (CASCADE), orders menahan delete.
func (g *Gateway) DeleteStore(ctx context.Context, id, ownerID int64) error {
	ct, err := g.q.Exec(ctx, `DELETE FROM tokos WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return orders.ErrReferenced
		}
		return g.writeErr(ctx, "DeleteStore", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrRecordNotFound
	}
	return nil
}

func (g *Gateway) FindCategory(ctx context.Context, id int64) (orders.Category, error) {
	var c orders.Category
	err := g.q.QueryRow(ctx, `SELECT id, name, owner_id FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.OwnerID)
	if err != nil {
		return orders.Category{}, g.readErr(ctx, "FindCategory", err)
	}
	return c, nil
}

func (g *Gateway) ListCategories(ctx context.Context, ownerID int64) ([]orders.Category, error) {
	rows, err := g.q.Query(ctx, `
		SELECT id, name, owner_id FROM categories
		WHERE owner_id = $1 ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, g.readErr(ctx, "ListCategories", err)
	}
	defer rows.Close()

	out := []orders.Category{}
	for rows.Next() {
		var c orders.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID); err != nil {
			return nil, g.readErr(ctx, "ListCategories", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, g.readErr(ctx, "ListCategories", err)
	}
	return out, nil
}

func (g *Gateway) CreateCategory(ctx context.Context, c orders.Category) (orders.Category, error) {
	err := g.q.QueryRow(ctx, `INSERT INTO categories (name, owner_id) VALUES ($1, $2) RETURNING id`, c.Name, c.OwnerID).Scan(&c.ID)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return orders.Category{}, orders.ErrDuplicateKey
		}
		return orders.Category{}, g.writeErr(ctx, "CreateCategory", err)
	}
	return c, nil
}

func (g *Gateway) UpdateCategory(ctx context.Context, c orders.Category) error {
	ct, err := g.q.Exec(ctx, `UPDATE categories SET name = $3 WHERE id = $1 AND owner_id = $2`, c.ID, c.OwnerID, c.Name)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return orders.ErrDuplicateKey
		}
		return g.writeErr(ctx, "UpdateCategory", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrRecordNotFound
	}
	return nil
}

func (g *Gateway) DeleteCategory(ctx context.Context, id, ownerID int64) error {
	ct, err := g.q.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return g.writeErr(ctx, "DeleteCategory", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrRecordNotFound
	}
	return nil
}

func (g *Gateway) FindProduct(ctx context.Context, id int64) (orders.Product, error) {
	var p orders.Product
	err := g.q.QueryRow(ctx, `SELECT `+productCols+` FROM products p WHERE p.id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Image, &p.CategoryID)
	if err != nil {
		return orders.Product{}, g.readErr(ctx, "FindProduct", err)
	}
	return p, nil
}

func (g *Gateway) ListProducts(ctx context.Context, f catalog.ProductFilter) ([]orders.Product, error) {
	rows, err := g.q.Query(ctx, `
		SELECT `+productCols+`
		FROM products p
		WHERE ($1 = '' OR p.name ILIKE '%' || $1 || '%')
		  AND ($2 = 0 OR p.category_id = $2)
		ORDER BY p.id ASC`, f.Name, f.CategoryID)
	if err != nil {
		return nil, g.readErr(ctx, "ListProducts", err)
	}
	defer rows.Close()

	out := []orders.Product{}
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Image, &p.CategoryID); err != nil {
			return nil, g.readErr(ctx, "ListProducts", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, g.readErr(ctx, "ListProducts", err)
	}
	return out, nil
}

func (g *Gateway) ProductStores(ctx context.Context, productID int64) ([]int64, error) {
	rows, err := g.q.Query(ctx, `SELECT toko_id FROM toko_products WHERE product_id = $1 ORDER BY toko_id`, productID)
	if err != nil {
		return nil, g.readErr(ctx, "ProductStores", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, g.readErr(ctx, "ProductStores", err)
	}
	return ids, nil
}

func (g *Gateway) ProductOwnedBy(ctx context.Context, productID, ownerID int64) (bool, error) {
	var owned bool
	err := g.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM toko_products tp JOIN tokos t ON t.id = tp.toko_id
			WHERE tp.product_id = $1 AND t.owner_id = $2
		)`, productID, ownerID).Scan(&owned)
	if err != nil {
		return false, g.readErr(ctx, "ProductOwnedBy", err)
	}
	return owned, nil
}

// CreateProduct: INSERT product + toko_products dalam satu transaksi.
func (g *Gateway) CreateProduct(ctx context.Context, p orders.Product, storeID int64) (orders.Product, error) {
	err := g.RunInTx(ctx, func(tx orders.Gateway) error {
		q := tx.(*Gateway).q
		var categoryID *int64
		if p.CategoryID != 0 {
			categoryID = &p.CategoryID
		}
		err := q.QueryRow(ctx, `
			INSERT INTO products (name, price, description, image, category_id)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			p.Name, p.Price, p.Description, p.Image, categoryID,
		).Scan(&p.ID)
		if err != nil {
			return g.writeErr(ctx, "CreateProduct", err)
		}
		if _, err := q.Exec(ctx, `INSERT INTO toko_products (toko_id, product_id) VALUES ($1, $2)`, storeID, p.ID); err != nil {
			if pgCode(err) == codeForeignKeyViolation {
				return orders.ErrRecordNotFound
			}
			return g.writeErr(ctx, "CreateProduct", err)
		}
		return nil
	})
	if err != nil {
		return orders.Product{}, err
	}
	return p, nil
}

func (g *Gateway) UpdateProduct(ctx context.Context, p orders.Product) error {
	var categoryID *int64
	if p.CategoryID != 0 {
		categoryID = &p.CategoryID
	}
	ct, err := g.q.Exec(ctx, `
		UPDATE products SET name = $2, price = $3, description = $4, image = $5, category_id = $6
		WHERE id = $1`,
		p.ID, p.Name, p.Price, p.Description, p.Image, categoryID)
	if err != nil {
		return g.writeErr(ctx, "UpdateProduct", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrRecordNotFound
	}
	return nil
}

func (g *Gateway) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := g.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return orders.ErrReferenced
		}
		return g.writeErr(ctx, "DeleteProduct", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrRecordNotFound
	}
	return nil
}

func (g *Gateway) AssignProduct(ctx context.Context, storeID, productID int64) error {
	_, err := g.q.Exec(ctx, `INSERT INTO toko_products (toko_id, product_id) VALUES ($1, $2)`, storeID, productID)
	switch {
	case err == nil:
		return nil
	case pgCode(err) == codeUniqueViolation:
		return orders.ErrDuplicateKey
	case pgCode(err) == codeForeignKeyViolation:
		return orders.ErrRecordNotFound
	}
	return g.writeErr(ctx, "AssignProduct", err)
}

func (g *Gateway) UnassignProduct(ctx context.Context, storeID, productID int64) error {
	ct, err := g.q.Exec(ctx, `DELETE FROM toko_products WHERE toko_id = $1 AND product_id = $2`, storeID, productID)
	if err != nil {
		return g.writeErr(ctx, "UnassignProduct", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrRecordNotFound
	}
	return nil
}

