package orders

import "context"

// Gateway is the persistence contract consumed by the Engine.
//
// Lookups return ErrRecordNotFound when the row is absent. RunInTx executes fn with a
// gateway bound to a single transaction; any error returned by fn rolls the whole
// transaction back, and commit failures are reported as TransactionFailure.
type Gateway interface {
	RunInTx(ctx context.Context, fn func(tx Gateway) error) error

	FindStore(ctx context.Context, id int64) (Store, error)
	FindPaymentMethod(ctx context.Context, id int64) (PaymentMethod, error)
	FindProductsWithStoreAssociation(ctx context.Context, ids []int64, storeID int64) ([]ProductAvailability, error)

	InsertOrder(ctx context.Context, o NewOrder) (Order, error)
	FindOrder(ctx context.Context, id int64, scope Scope) (OrderAggregate, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]OrderAggregate, error)
	// UpdateOrderStatus returns ErrRecordNotFound if no order in scope matched.
	UpdateOrderStatus(ctx context.Context, id int64, status Status, scope Scope) error
}
