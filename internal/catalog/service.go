// Package catalog manages what orders are placed against: payment methods, stores,
// categories and products together with their store associations.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/rs/zerolog"
)

const (
	ReasonPaymentInUse       = "payment method in use"
	ReasonStoreHasOrders     = "store has orders"
	ReasonProductInUse       = "product is used by orders"
	ReasonDuplicateCategory  = "category already exists"
	ReasonProductAlreadySold = "product already sold by store"
)

// Gateway is the persistence contract of the catalog. Owner-scoped writes return
// orders.ErrRecordNotFound when no row owned by the caller matched.
type Gateway interface {
	FindStore(ctx context.Context, id int64) (orders.Store, error)
	ListStores(ctx context.Context) ([]orders.Store, error)
	ListStoresByOwner(ctx context.Context, ownerID int64) ([]orders.Store, error)
	CreateStore(ctx context.Context, s orders.Store) (orders.Store, error)
	UpdateStore(ctx context.Context, s orders.Store) error
	// DeleteStore returns orders.ErrReferenced while orders point at the store.
	DeleteStore(ctx context.Context, id, ownerID int64) error
	SetStoreOpen(ctx context.Context, id, ownerID int64, open bool) error

	FindCategory(ctx context.Context, id int64) (orders.Category, error)
	ListCategories(ctx context.Context, ownerID int64) ([]orders.Category, error)
	CreateCategory(ctx context.Context, c orders.Category) (orders.Category, error)
	UpdateCategory(ctx context.Context, c orders.Category) error
	DeleteCategory(ctx context.Context, id, ownerID int64) error

	FindProduct(ctx context.Context, id int64) (orders.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]orders.Product, error)
	// ProductStores: id toko yang menjual product, urut naik.
	ProductStores(ctx context.Context, productID int64) ([]int64, error)
	// ProductOwnedBy reports whether a store of ownerID sells the product.
	ProductOwnedBy(ctx context.Context, productID, ownerID int64) (bool, error)
	// CreateProduct inserts the product and its association to storeID atomically.
	CreateProduct(ctx context.Context, p orders.Product, storeID int64) (orders.Product, error)
	UpdateProduct(ctx context.Context, p orders.Product) error
	// DeleteProduct returns orders.ErrReferenced while order items point at the product.
	DeleteProduct(ctx context.Context, id int64) error
	// AssignProduct returns orders.ErrDuplicateKey when the association exists.
	AssignProduct(ctx context.Context, storeID, productID int64) error
	UnassignProduct(ctx context.Context, storeID, productID int64) error

	FindPaymentMethod(ctx context.Context, id int64) (orders.PaymentMethod, error)
	FindPaymentMethodByName(ctx context.Context, name string) (orders.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context) ([]orders.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, name string) (orders.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id int64) error
}

type CreatePaymentRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type SetOpenRequest struct {
	IsOpen *bool `json:"is_open" validate:"required"`
}

type PaymentResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type StoreResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	Image       *string `json:"image"`
	IsOpen      bool    `json:"is_open"`
	OwnerID     int64   `json:"owner_id"`
}

type Service struct {
	gw        Gateway
	validator *orders.Validator
}

func NewService(gw Gateway) *Service {
	return &Service{gw: gw, validator: orders.NewValidator()}
}

func toPayment(p orders.PaymentMethod) PaymentResponse { return PaymentResponse{ID: p.ID, Name: p.Name} }

func toStore(s orders.Store) StoreResponse {
	return StoreResponse{
		ID: s.ID, Name: s.Name, Description: s.Description, Location: s.Location,
		Image: s.Image, IsOpen: s.IsOpen, OwnerID: s.OwnerID,
	}
}

// ListPayments: urut nama A-Z.
func (s *Service) ListPayments(ctx context.Context) ([]PaymentResponse, error) {
	ps, err := s.gw.ListPaymentMethods(ctx)
	if err != nil {
		return nil, domainErr(err, orders.EntityPaymentMethod)
	}
	out := make([]PaymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPayment(p))
	}
	return out, nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (PaymentResponse, error) {
	p, err := s.gw.FindPaymentMethod(ctx, id)
	if err != nil {
		return PaymentResponse{}, domainErr(err, orders.EntityPaymentMethod)
	}
	return toPayment(p), nil
}

// CreatePayment adds a payment method. Names are unique, compared case-insensitively.
func (s *Service) CreatePayment(ctx context.Context, req CreatePaymentRequest) (PaymentResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return PaymentResponse{}, err
	}

	if _, err := s.gw.FindPaymentMethodByName(ctx, req.Name); err == nil {
		return PaymentResponse{}, orders.InvalidState(orders.ReasonDuplicatePayment)
	} else if !errors.Is(err, orders.ErrRecordNotFound) {
		return PaymentResponse{}, domainErr(err, orders.EntityPaymentMethod)
	}

	p, err := s.gw.CreatePaymentMethod(ctx, req.Name)
	if errors.Is(err, orders.ErrDuplicateKey) {
		// kalah balapan dengan insert lain
		return PaymentResponse{}, orders.InvalidState(orders.ReasonDuplicatePayment)
	}
	if err != nil {
		return PaymentResponse{}, domainErr(err, orders.EntityPaymentMethod)
	}

	zerolog.Ctx(ctx).Info().Str("component", "CreatePayment").Int64("payment_id", p.ID).Msg("payment method created")
	return toPayment(p), nil
}

func (s *Service) DeletePayment(ctx context.Context, id int64) (PaymentResponse, error) {
	p, err := s.gw.FindPaymentMethod(ctx, id)
	if err != nil {
		return PaymentResponse{}, domainErr(err, orders.EntityPaymentMethod)
	}
	if err := s.gw.DeletePaymentMethod(ctx, id); err != nil {
		if errors.Is(err, orders.ErrReferenced) {
			return PaymentResponse{}, orders.InvalidState(ReasonPaymentInUse)
		}
		return PaymentResponse{}, domainErr(err, orders.EntityPaymentMethod)
	}
	return toPayment(p), nil
}

func (s *Service) GetStore(ctx context.Context, id int64) (StoreResponse, error) {
	st, err := s.gw.FindStore(ctx, id)
	if err != nil {
		return StoreResponse{}, domainErr(err, orders.EntityStore)
	}
	return toStore(st), nil
}

func (s *Service) ListMyStores(ctx context.Context, ownerID int64) ([]StoreResponse, error) {
	ss, err := s.gw.ListStoresByOwner(ctx, ownerID)
	if err != nil {
		return nil, domainErr(err, orders.EntityStore)
	}
	out := make([]StoreResponse, 0, len(ss))
	for _, st := range ss {
		out = append(out, toStore(st))
	}
	return out, nil
}

// SetStoreOpen buka/tutup toko. Toko milik owner lain diperlakukan seperti tidak ada.
func (s *Service) SetStoreOpen(ctx context.Context, ownerID, storeID int64, req SetOpenRequest) (StoreResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return StoreResponse{}, err
	}
	if err := s.gw.SetStoreOpen(ctx, storeID, ownerID, *req.IsOpen); err != nil {
		return StoreResponse{}, domainErr(err, orders.EntityStore)
	}
	st, err := s.gw.FindStore(ctx, storeID)
	if err != nil {
		return StoreResponse{}, domainErr(err, orders.EntityStore)
	}

	zerolog.Ctx(ctx).Info().Str("component", "SetStoreOpen").Int64("toko_id", storeID).Bool("is_open", st.IsOpen).Msg("store toggled")
	return toStore(st), nil
}

// ownedStore: toko milik owner lain diperlakukan seperti tidak ada.
func (s *Service) ownedStore(ctx context.Context, ownerID, storeID int64) (orders.Store, error) {
	st, err := s.gw.FindStore(ctx, storeID)
	if err != nil {
		return orders.Store{}, domainErr(err, orders.EntityStore)
	}
	if st.OwnerID != ownerID {
		return orders.Store{}, orders.NotFound(orders.EntityStore)
	}
	return st, nil
}

// validate menggabungkan hasil struct tag dengan pengecekan manual (mis. harga).
func (s *Service) validate(req any, extra ...orders.FieldError) error {
	err := s.validator.Struct(req)
	if len(extra) == 0 {
		return err
	}
	var fields []orders.FieldError
	if err != nil {
		var de *orders.Error
		if !errors.As(err, &de) || de.Kind != orders.KindValidation {
			return err
		}
		fields = de.Fields
	}
	return orders.ValidationError(append(fields, extra...)...)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func domainErr(err error, entity string) error {
	if errors.Is(err, orders.ErrRecordNotFound) {
		return orders.NotFound(entity)
	}
	var de *orders.Error
	if errors.As(err, &de) {
		return err
	}
	return orders.Internal(err)
}
