package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxPrice = batas kolom products.price NUMERIC(14,2).
var maxPrice = decimal.RequireFromString("999999999999.99")

type ProductFilter struct {
	Name       string // substring, case-insensitive
	CategoryID int64
}

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,max=150"`
	Price       decimal.Decimal `json:"price"`
	Description *string         `json:"description" validate:"omitnil,max=1000"`
	Image       *string         `json:"image" validate:"omitnil,max=255"`
	CategoryID  int64           `json:"category_id" validate:"gt=0"`
	StoreID     int64           `json:"toko_id" validate:"gt=0"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitnil,min=1,max=150"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description" validate:"omitnil,max=1000"`
	Image       *string          `json:"image" validate:"omitnil,max=255"`
	CategoryID  *int64           `json:"category_id" validate:"omitnil,gt=0"`
}

type ProductResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description *string         `json:"description"`
	Image       *string         `json:"image"`
	CategoryID  int64           `json:"category_id"`
	StoreIDs    []int64         `json:"toko_ids,omitempty"`
}

func toProduct(p orders.Product) ProductResponse {
	return ProductResponse{
		ID: p.ID, Name: p.Name, Price: p.Price, Description: p.Description,
		Image: p.Image, CategoryID: p.CategoryID,
	}
}

func checkPrice(p decimal.Decimal) []orders.FieldError {
	switch {
	case !p.IsPositive():
		return []orders.FieldError{{Field: "price", Rule: "gt", Message: "price must be greater than 0"}}
	case p.GreaterThan(maxPrice):
		return []orders.FieldError{{Field: "price", Rule: "lte", Message: "price must be at most " + maxPrice.String()}}
	case !p.Equal(p.Round(2)):
		return []orders.FieldError{{Field: "price", Rule: "decimals", Message: "price must have at most 2 decimals"}}
	}
	return nil
}

// ListProducts: seluruh katalog, bisa difilter nama atau kategori.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter) ([]ProductResponse, error) {
	f.Name = strings.TrimSpace(f.Name)
	ps, err := s.gw.ListProducts(ctx, f)
	if err != nil {
		return nil, domainErr(err, orders.EntityProduct)
	}
	out := make([]ProductResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProduct(p))
	}
	return out, nil
}

// GetProduct includes the ids of the stores selling the product.
func (s *Service) GetProduct(ctx context.Context, id int64) (ProductResponse, error) {
	p, err := s.gw.FindProduct(ctx, id)
	if err != nil {
		return ProductResponse{}, domainErr(err, orders.EntityProduct)
	}
	ids, err := s.gw.ProductStores(ctx, id)
	if err != nil {
		return ProductResponse{}, domainErr(err, orders.EntityProduct)
	}
	out := toProduct(p)
	out.StoreIDs = ids
	return out, nil
}

// CreateProduct adds a product and lists it in one of the caller's stores.
// The category has to belong to the caller as well.
func (s *Service) CreateProduct(ctx context.Context, ownerID int64, req CreateProductRequest) (ProductResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = trimPtr(req.Description)
	req.Image = trimPtr(req.Image)
	if err := s.validate(req, checkPrice(req.Price)...); err != nil {
		return ProductResponse{}, err
	}
	if _, err := s.ownedStore(ctx, ownerID, req.StoreID); err != nil {
		return ProductResponse{}, err
	}
	if _, err := s.ownedCategory(ctx, ownerID, req.CategoryID); err != nil {
		return ProductResponse{}, err
	}

	p, err := s.gw.CreateProduct(ctx, orders.Product{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Image:       req.Image,
		CategoryID:  req.CategoryID,
	}, req.StoreID)
	if err != nil {
		return ProductResponse{}, domainErr(err, orders.EntityProduct)
	}

	zerolog.Ctx(ctx).Info().Str("component", "CreateProduct").Int64("product_id", p.ID).Int64("toko_id", req.StoreID).Msg("product created")
	out := toProduct(p)
	out.StoreIDs = []int64{req.StoreID}
	return out, nil
}

// UpdateProduct: hanya owner dari salah satu toko yang menjual product.
func (s *Service) UpdateProduct(ctx context.Context, ownerID, id int64, req UpdateProductRequest) (ProductResponse, error) {
	req.Name = trimPtr(req.Name)
	req.Description = trimPtr(req.Description)
	req.Image = trimPtr(req.Image)
	var extra []orders.FieldError
	if req.Price != nil {
		extra = checkPrice(*req.Price)
	}
	if err := s.validate(req, extra...); err != nil {
		return ProductResponse{}, err
	}

	p, err := s.ownedProduct(ctx, ownerID, id)
	if err != nil {
		return ProductResponse{}, err
	}
	if req.CategoryID != nil {
		if _, err := s.ownedCategory(ctx, ownerID, *req.CategoryID); err != nil {
			return ProductResponse{}, err
		}
		p.CategoryID = *req.CategoryID
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Image != nil {
		p.Image = req.Image
	}

	if err := s.gw.UpdateProduct(ctx, p); err != nil {
		return ProductResponse{}, domainErr(err, orders.EntityProduct)
	}

	zerolog.Ctx(ctx).Info().Str("component", "UpdateProduct").Int64("product_id", id).Str("price", p.Price.String()).Msg("product updated")
	return toProduct(p), nil
}

func (s *Service) DeleteProduct(ctx context.Context, ownerID, id int64) (ProductResponse, error) {
	p, err := s.ownedProduct(ctx, ownerID, id)
	if err != nil {
		return ProductResponse{}, err
	}
	if err := s.gw.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, orders.ErrReferenced) {
			return ProductResponse{}, orders.InvalidState(ReasonProductInUse)
		}
		return ProductResponse{}, domainErr(err, orders.EntityProduct)
	}
	return toProduct(p), nil
}

// AssignProduct lists an existing product in one more of the caller's stores.
func (s *Service) AssignProduct(ctx context.Context, ownerID, storeID, productID int64) (ProductResponse, error) {
	if _, err := s.ownedStore(ctx, ownerID, storeID); err != nil {
		return ProductResponse{}, err
	}
	p, err := s.gw.FindProduct(ctx, productID)
	if err != nil {
		return ProductResponse{}, domainErr(err, orders.EntityProduct)
	}
	err = s.gw.AssignProduct(ctx, storeID, productID)
	if errors.Is(err, orders.ErrDuplicateKey) {
		return ProductResponse{}, orders.InvalidState(ReasonProductAlreadySold)
	}
	if err != nil {
		return ProductResponse{}, domainErr(err, orders.EntityProduct)
	}
	return s.withStores(ctx, p)
}

// UnassignProduct: order lama tetap menyimpan product_id, jadi tidak ikut terhapus.
func (s *Service) UnassignProduct(ctx context.Context, ownerID, storeID, productID int64) (ProductResponse, error) {
	if _, err := s.ownedStore(ctx, ownerID, storeID); err != nil {
		return ProductResponse{}, err
	}
	p, err := s.gw.FindProduct(ctx, productID)
	if err != nil {
		return ProductResponse{}, domainErr(err, orders.EntityProduct)
	}
	if err := s.gw.UnassignProduct(ctx, storeID, productID); err != nil {
		return ProductResponse{}, domainErr(err, orders.EntityProduct)
	}
	return s.withStores(ctx, p)
}

func (s *Service) withStores(ctx context.Context, p orders.Product) (ProductResponse, error) {
	ids, err := s.gw.ProductStores(ctx, p.ID)
	if err != nil {
		return ProductResponse{}, domainErr(err, orders.EntityProduct)
	}
	out := toProduct(p)
	out.StoreIDs = ids
	return out, nil
}

func (s *Service) ownedProduct(ctx context.Context, ownerID, id int64) (orders.Product, error) {
	p, err := s.gw.FindProduct(ctx, id)
	if err != nil {
		return orders.Product{}, domainErr(err, orders.EntityProduct)
	}
	ok, err := s.gw.ProductOwnedBy(ctx, id, ownerID)
	if err != nil {
		return orders.Product{}, domainErr(err, orders.EntityProduct)
	}
	if !ok {
		return orders.Product{}, orders.NotFound(orders.EntityProduct)
	}
	return p, nil
}
