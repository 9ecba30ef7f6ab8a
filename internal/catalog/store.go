package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/rs/zerolog"
)

type StoreRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitnil,max=500"`
	Location    *string `json:"location" validate:"omitnil,max=200"`
	Image       *string `json:"image" validate:"omitnil,max=255"`
}

func (r StoreRequest) normalized() StoreRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = trimPtr(r.Description)
	r.Location = trimPtr(r.Location)
	r.Image = trimPtr(r.Image)
	return r
}

// ListStores: semua toko, terbaru dulu.
func (s *Service) ListStores(ctx context.Context) ([]StoreResponse, error) {
	ss, err := s.gw.ListStores(ctx)
	if err != nil {
		return nil, domainErr(err, orders.EntityStore)
	}
	out := make([]StoreResponse, 0, len(ss))
	for _, st := range ss {
		out = append(out, toStore(st))
	}
	return out, nil
}

// CreateStore opens a new store owned by ownerID. New stores accept orders right away.
func (s *Service) CreateStore(ctx context.Context, ownerID int64, req StoreRequest) (StoreResponse, error) {
	req = req.normalized()
	if err := s.validator.Struct(req); err != nil {
		return StoreResponse{}, err
	}

	st, err := s.gw.CreateStore(ctx, orders.Store{
		Name:        req.Name,
		OwnerID:     ownerID,
		IsOpen:      true,
		Description: req.Description,
		Location:    req.Location,
		Image:       req.Image,
	})
	if err != nil {
		return StoreResponse{}, domainErr(err, orders.EntityStore)
	}

	zerolog.Ctx(ctx).Info().Str("component", "CreateStore").Int64("toko_id", st.ID).Int64("owner_id", ownerID).Msg("store created")
	return toStore(st), nil
}

// UpdateStore mengganti profil toko; status buka/tutup tidak ikut berubah.
func (s *Service) UpdateStore(ctx context.Context, ownerID, storeID int64, req StoreRequest) (StoreResponse, error) {
	req = req.normalized()
	if err := s.validator.Struct(req); err != nil {
		return StoreResponse{}, err
	}
	st, err := s.ownedStore(ctx, ownerID, storeID)
	if err != nil {
		return StoreResponse{}, err
	}

	st.Name, st.Description, st.Location, st.Image = req.Name, req.Description, req.Location, req.Image
	if err := s.gw.UpdateStore(ctx, st); err != nil {
		return StoreResponse{}, domainErr(err, orders.EntityStore)
	}
	return toStore(st), nil
}

func (s *Service) DeleteStore(ctx context.Context, ownerID, storeID int64) (StoreResponse, error) {
	st, err := s.ownedStore(ctx, ownerID, storeID)
	if err != nil {
		return StoreResponse{}, err
	}
	if err := s.gw.DeleteStore(ctx, storeID, ownerID); err != nil {
		if errors.Is(err, orders.ErrReferenced) {
			return StoreResponse{}, orders.InvalidState(ReasonStoreHasOrders)
		}
		return StoreResponse{}, domainErr(err, orders.EntityStore)
	}

	zerolog.Ctx(ctx).Info().Str("component", "DeleteStore").Int64("toko_id", storeID).Msg("store deleted")
	return toStore(st), nil
}
