package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-toko-orders/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type CatalogService interface {
	ListPayments(ctx context.Context) ([]catalog.PaymentResponse, error)
	GetPayment(ctx context.Context, id int64) (catalog.PaymentResponse, error)
	CreatePayment(ctx context.Context, req catalog.CreatePaymentRequest) (catalog.PaymentResponse, error)
	DeletePayment(ctx context.Context, id int64) (catalog.PaymentResponse, error)
	GetStore(ctx context.Context, id int64) (catalog.StoreResponse, error)
	ListMyStores(ctx context.Context, ownerID int64) ([]catalog.StoreResponse, error)
	SetStoreOpen(ctx context.Context, ownerID, storeID int64, req catalog.SetOpenRequest) (catalog.StoreResponse, error)
	ListStores(ctx context.Context) ([]catalog.StoreResponse, error)
	CreateStore(ctx context.Context, ownerID int64, req catalog.StoreRequest) (catalog.StoreResponse, error)
	UpdateStore(ctx context.Context, ownerID, storeID int64, req catalog.StoreRequest) (catalog.StoreResponse, error)
	DeleteStore(ctx context.Context, ownerID, storeID int64) (catalog.StoreResponse, error)

	ListCategories(ctx context.Context, ownerID int64) ([]catalog.CategoryResponse, error)
	GetCategory(ctx context.Context, ownerID, id int64) (catalog.CategoryResponse, error)
	CreateCategory(ctx context.Context, ownerID int64, req catalog.CategoryRequest) (catalog.CategoryResponse, error)
	UpdateCategory(ctx context.Context, ownerID, id int64, req catalog.CategoryRequest) (catalog.CategoryResponse, error)
	DeleteCategory(ctx context.Context, ownerID, id int64) (catalog.CategoryResponse, error)

	ListProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.ProductResponse, error)
	GetProduct(ctx context.Context, id int64) (catalog.ProductResponse, error)
	CreateProduct(ctx context.Context, ownerID int64, req catalog.CreateProductRequest) (catalog.ProductResponse, error)
	UpdateProduct(ctx context.Context, ownerID, id int64, req catalog.UpdateProductRequest) (catalog.ProductResponse, error)
	DeleteProduct(ctx context.Context, ownerID, id int64) (catalog.ProductResponse, error)
	AssignProduct(ctx context.Context, ownerID, storeID, productID int64) (catalog.ProductResponse, error)
	UnassignProduct(ctx context.Context, ownerID, storeID, productID int64) (catalog.ProductResponse, error)
}

// CatalogCache is told when data shown inside cached orders changes (product price, store name).
type CatalogCache interface {
	BumpGeneration(ctx context.Context) error
}

type CatalogHandler struct {
	Catalog CatalogService
	Cache   CatalogCache
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/payments", h.listPayments)
	r.Post("/payments", h.createPayment)
	r.Get("/payments/{id}", h.getPayment)
	r.Delete("/payments/{id}", h.deletePayment)

	r.Get("/tokos", h.listStores)
	r.Post("/tokos", h.createStore)
	r.Get("/tokos/mine", h.listMyStores)
	r.Get("/tokos/{id}", h.getStore)
	r.Put("/tokos/{id}", h.updateStore)
	r.Delete("/tokos/{id}", h.deleteStore)
	r.Put("/tokos/{id}/open", h.setStoreOpen)
	r.Put("/tokos/{id}/products/{productId}", h.assignProduct)
	r.Delete("/tokos/{id}/products/{productId}", h.unassignProduct)

	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.createCategory)
	r.Get("/categories/{id}", h.getCategory)
	r.Put("/categories/{id}", h.updateCategory)
	r.Delete("/categories/{id}", h.deleteCategory)

	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)
}

// catalogChanged: order yang sudah di-cache harus dihitung ulang dengan harga/nama baru.
func (h *CatalogHandler) catalogChanged(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.BumpGeneration(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("component", "catalogChanged").Msg("cache generation bump failed")
	}
}

func (h *CatalogHandler) listPayments(w http.ResponseWriter, r *http.Request) {
	out, err := h.Catalog.ListPayments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreatePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.CreatePayment(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (h *CatalogHandler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.DeletePayment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) listMyStores(w http.ResponseWriter, r *http.Request) {
	out, err := h.Catalog.ListMyStores(r.Context(), scopeOf(r.Context()).OwnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) getStore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.GetStore(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) setStoreOpen(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req catalog.SetOpenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.SetStoreOpen(r.Context(), scopeOf(r.Context()).OwnerID, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) listStores(w http.ResponseWriter, r *http.Request) {
	out, err := h.Catalog.ListStores(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) createStore(w http.ResponseWriter, r *http.Request) {
	var req catalog.StoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.CreateStore(r.Context(), scopeOf(r.Context()).OwnerID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (h *CatalogHandler) updateStore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req catalog.StoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.UpdateStore(r.Context(), scopeOf(r.Context()).OwnerID, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.catalogChanged(r.Context())
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) deleteStore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.DeleteStore(r.Context(), scopeOf(r.Context()).OwnerID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) assignProduct(w http.ResponseWriter, r *http.Request) {
	h.storeProduct(w, r, h.Catalog.AssignProduct)
}

func (h *CatalogHandler) unassignProduct(w http.ResponseWriter, r *http.Request) {
	h.storeProduct(w, r, h.Catalog.UnassignProduct)
}

func (h *CatalogHandler) storeProduct(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, ownerID, storeID, productID int64) (catalog.ProductResponse, error),
) {
	storeID, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	productID, err := idParam(r, "productId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := fn(r.Context(), scopeOf(r.Context()).OwnerID, storeID, productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.Catalog.ListCategories(r.Context(), scopeOf(r.Context()).OwnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.GetCategory(r.Context(), scopeOf(r.Context()).OwnerID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req catalog.CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.CreateCategory(r.Context(), scopeOf(r.Context()).OwnerID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req catalog.CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.UpdateCategory(r.Context(), scopeOf(r.Context()).OwnerID, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.DeleteCategory(r.Context(), scopeOf(r.Context()).OwnerID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

// listProducts: GET /products?name=kopi&category_id=3
func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryID(r, "category_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.ListProducts(r.Context(), catalog.ProductFilter{
		Name:       r.URL.Query().Get("name"),
		CategoryID: categoryID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.CreateProduct(r.Context(), scopeOf(r.Context()).OwnerID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req catalog.UpdateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.UpdateProduct(r.Context(), scopeOf(r.Context()).OwnerID, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.catalogChanged(r.Context())
	writeData(w, http.StatusOK, out)
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Catalog.DeleteProduct(r.Context(), scopeOf(r.Context()).OwnerID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}
