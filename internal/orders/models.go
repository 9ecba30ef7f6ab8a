package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Store adalah toko milik satu owner. Order hanya diterima saat IsOpen.
type Store struct {
	ID          int64
	Name        string
	OwnerID     int64
	IsOpen      bool
	Description *string
	Location    *string
	Image       *string
}

// Category dimiliki satu owner; nama unik per owner.
type Category struct {
	ID      int64
	Name    string
	OwnerID int64
}

type PaymentMethod struct {
	ID   int64
	Name string
}

type Product struct {
	ID          int64
	Name        string
	Price       decimal.Decimal
	Description *string
	Image       *string
	CategoryID  int64
}

// ProductAvailability = product + apakah ada baris toko_products untuk toko yang diminta.
type ProductAvailability struct {
	Product    Product
	Associated bool
}

type Order struct {
	ID              int64
	CustomerName    string
	CreateDate      time.Time
	Status          Status // lihat status.go
	StoreID         int64
	PaymentMethodID int64
	// Version naik setiap kali order berubah; dipakai cache untuk menolak snapshot lama.
	Version int64
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	Product   Product
}

// OrderAggregate: order + relasi yang dibutuhkan presenter.
type OrderAggregate struct {
	Order   Order
	Store   Store
	Payment PaymentMethod
	Items   []OrderItem
}

type NewOrderItem struct {
	ProductID int64
	Quantity  int
}

type NewOrder struct {
	StoreID         int64
	PaymentMethodID int64
	CustomerName    string
	Items           []NewOrderItem
}

// Scope membatasi akses ke order milik toko-toko owner tertentu.
// OwnerID == 0 berarti tanpa batasan (dipakai proses internal seperti projector).
type Scope struct {
	OwnerID int64
}

func (s Scope) Unscoped() bool { return s.OwnerID == 0 }

type OrderFilter struct {
	Scope   Scope
	StoreID int64 // 0 = semua toko dalam scope
}
