package order

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Domain-state violations. These are distinct from validation failures:
// the request was well-formed, but the order (or its table) is in the
// wrong state for the operation.
var (
	ErrNotOpen         = errors.New("order is not open")
	ErrNotClosed       = errors.New("order is not closed")
	ErrEmptyOrder      = errors.New("order has no items")
	ErrPaymentMismatch = errors.New("payments do not match order total")
	ErrTableNotFree    = errors.New("table is not free")
)

// ErrNotFound is returned when the order does not exist for the tenant.
var ErrNotFound = errors.New("order not found")

// InvalidQuantityError reports a non-positive (or negative, for quantity
// updates) requested quantity.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0, got %d", e.Quantity)
}

// ItemNotFoundError reports an item id that is not part of the order.
type ItemNotFoundError struct {
	ItemID uuid.UUID
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found in order", e.ItemID)
}

// TenantMismatchError reports a product reference owned by a different
// tenant than the order. It is raised before any price computation.
type TenantMismatchError struct {
	OrderTenant   uuid.UUID
	ProductTenant uuid.UUID
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("product belongs to tenant %s, order to tenant %s", e.ProductTenant, e.OrderTenant)
}

// NotExtraError reports a product used as an extra that is not flagged as
// one in the catalog.
type NotExtraError struct {
	ProductID uuid.UUID
}

func (e *NotExtraError) Error() string {
	return fmt.Sprintf("product %s is not an extra", e.ProductID)
}
