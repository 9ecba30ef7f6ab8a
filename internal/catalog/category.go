package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-toko-orders/internal/orders"
)

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CategoryResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"owner_id"`
}

func toCategory(c orders.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, OwnerID: c.OwnerID}
}

// ListCategories: kategori milik owner, urut nama A-Z.
func (s *Service) ListCategories(ctx context.Context, ownerID int64) ([]CategoryResponse, error) {
	cs, err := s.gw.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, domainErr(err, orders.EntityCategory)
	}
	out := make([]CategoryResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCategory(c))
	}
	return out, nil
}

func (s *Service) GetCategory(ctx context.Context, ownerID, id int64) (CategoryResponse, error) {
	c, err := s.ownedCategory(ctx, ownerID, id)
	if err != nil {
		return CategoryResponse{}, err
	}
	return toCategory(c), nil
}

// CreateCategory adds a category for ownerID. Names are unique per owner.
func (s *Service) CreateCategory(ctx context.Context, ownerID int64, req CategoryRequest) (CategoryResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return CategoryResponse{}, err
	}
	c, err := s.gw.CreateCategory(ctx, orders.Category{Name: req.Name, OwnerID: ownerID})
	if errors.Is(err, orders.ErrDuplicateKey) {
		return CategoryResponse{}, orders.InvalidState(ReasonDuplicateCategory)
	}
	if err != nil {
		return CategoryResponse{}, domainErr(err, orders.EntityCategory)
	}
	return toCategory(c), nil
}

func (s *Service) UpdateCategory(ctx context.Context, ownerID, id int64, req CategoryRequest) (CategoryResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return CategoryResponse{}, err
	}
	c, err := s.ownedCategory(ctx, ownerID, id)
	if err != nil {
		return CategoryResponse{}, err
	}

	c.Name = req.Name
	err = s.gw.UpdateCategory(ctx, c)
	if errors.Is(err, orders.ErrDuplicateKey) {
		return CategoryResponse{}, orders.InvalidState(ReasonDuplicateCategory)
	}
	if err != nil {
		return CategoryResponse{}, domainErr(err, orders.EntityCategory)
	}
	return toCategory(c), nil
}

// DeleteCategory menghapus kategori; product di dalamnya tetap ada tanpa kategori.
func (s *Service) DeleteCategory(ctx context.Context, ownerID, id int64) (CategoryResponse, error) {
	c, err := s.ownedCategory(ctx, ownerID, id)
	if err != nil {
		return CategoryResponse{}, err
	}
	if err := s.gw.DeleteCategory(ctx, id, ownerID); err != nil {
		return CategoryResponse{}, domainErr(err, orders.EntityCategory)
	}
	return toCategory(c), nil
}

func (s *Service) ownedCategory(ctx context.Context, ownerID, id int64) (orders.Category, error) {
	c, err := s.gw.FindCategory(ctx, id)
	if err != nil {
		return orders.Category{}, domainErr(err, orders.EntityCategory)
	}
	if c.OwnerID != ownerID {
		return orders.Category{}, orders.NotFound(orders.EntityCategory)
	}
	return c, nil
}
