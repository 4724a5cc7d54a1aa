// Package order holds the order aggregate: items with immutable price
// snapshots, the promotion re-evaluation hook, the manual discount overlay
// and the close/reopen lifecycle.
package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodflow/comandas/internal/domain/promo"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// PaymentMethod enumerates how an order was paid.
type PaymentMethod string

const (
	PayCash     PaymentMethod = "CASH"
	PayCard     PaymentMethod = "CARD"
	PayTransfer PaymentMethod = "TRANSFER"
)

// Payment is one payment registered at close time. Orders support split
// payments; the sum must match the total exactly.
type Payment struct {
	Method PaymentMethod
	Amount decimal.Decimal
	PaidAt time.Time
}

// Snapshot is the frozen accounting record captured when an order closes.
// While the order is OPEN all totals are derived by recomputation; the
// snapshot exists only between close and a possible reopen.
type Snapshot struct {
	Subtotal  decimal.Decimal
	Discounts decimal.Decimal
	Total     decimal.Decimal
}

// Totals is the dynamic pricing view of an open order.
type Totals struct {
	Subtotal          decimal.Decimal
	PromotionDiscount decimal.Decimal
	ManualDiscount    decimal.Decimal
	Total             decimal.Decimal
}

// Order is the aggregate root for one table's tab. Items keep insertion
// order. Mutations on a single order are not safe for concurrent use; the
// storage layer serializes access per order id.
type Order struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	TableID  uuid.UUID
	Number   int
	Status   Status
	OpenedAt time.Time
	ClosedAt *time.Time

	Items    []Item
	Manual   *ManualDiscount
	Payments []Payment
	Frozen   *Snapshot
}

// Open creates a fresh OPEN order.
func Open(tenantID, tableID uuid.UUID, number int, openedAt time.Time) *Order {
	return &Order{
		ID:       uuid.New(),
		TenantID: tenantID,
		TableID:  tableID,
		Number:   number,
		Status:   StatusOpen,
		OpenedAt: openedAt,
	}
}

func (o *Order) ensureOpen() error {
	if o.Status != StatusOpen {
		return ErrNotOpen
	}
	return nil
}

// AddItem appends an item to the order. The item must have been built for
// this order; callers re-run promotion evaluation afterwards.
func (o *Order) AddItem(it Item) error {
	if err := o.ensureOpen(); err != nil {
		return err
	}
	if it.OrderID != o.ID {
		return errors.Errorf("item belongs to order %s, not %s", it.OrderID, o.ID)
	}
	o.Items = append(o.Items, it)
	return nil
}

// RemoveItem deletes the item with the given id.
func (o *Order) RemoveItem(itemID uuid.UUID) error {
	if err := o.ensureOpen(); err != nil {
		return err
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			return nil
		}
	}
	return &ItemNotFoundError{ItemID: itemID}
}

// SetItemQuantity changes an item's quantity. Zero is a removal, the
// current value is a no-op, negatives are invalid. The promotion snapshot
// is cleared so a stale discount can never survive until re-evaluation.
func (o *Order) SetItemQuantity(itemID uuid.UUID, quantity int) error {
	if err := o.ensureOpen(); err != nil {
		return err
	}
	if quantity < 0 {
		return &InvalidQuantityError{Quantity: quantity}
	}
	it := o.findItem(itemID)
	if it == nil {
		return &ItemNotFoundError{ItemID: itemID}
	}
	if it.Quantity == quantity {
		return nil
	}
	if quantity == 0 {
		return o.RemoveItem(itemID)
	}
	it.Quantity = quantity
	it.clearPromotion()
	return nil
}

func (o *Order) findItem(itemID uuid.UUID) *Item {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// ApplyManualDiscount sets the order-wide discount overlay, replacing any
// previous one. The amount is never stored; see ManualDiscountAmount.
func (o *Order) ApplyManualDiscount(d ManualDiscount) error {
	if err := o.ensureOpen(); err != nil {
		return err
	}
	o.Manual = &d
	return nil
}

// RemoveManualDiscount clears the overlay.
func (o *Order) RemoveManualDiscount() error {
	if err := o.ensureOpen(); err != nil {
		return err
	}
	o.Manual = nil
	return nil
}

// Lines projects the items into the rule engine's input, index-aligned
// with Items.
func (o *Order) Lines() []promo.Line {
	lines := make([]promo.Line, len(o.Items))
	for i := range o.Items {
		lines[i] = o.Items[i].line()
	}
	return lines
}

// ApplyPromotions overwrites every item's promotion snapshot with the
// engine's output. Assignments must be index-aligned with Items.
func (o *Order) ApplyPromotions(assignments []promo.Assignment) error {
	if len(assignments) != len(o.Items) {
		return errors.Errorf("got %d assignments for %d items", len(assignments), len(o.Items))
	}
	for i := range o.Items {
		o.Items[i].applyAssignment(assignments[i])
	}
	return nil
}

// Subtotal is the pre-discount sum over all lines, extras included.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range o.Items {
		sum = sum.Add(o.Items[i].LineSubtotal())
	}
	return sum
}

// PromotionDiscountTotal sums the per-item discount snapshots.
func (o *Order) PromotionDiscountTotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range o.Items {
		sum = sum.Add(o.Items[i].DiscountAmount)
	}
	return sum
}

// postPromotionBase is the manual overlay's base: item subtotals with
// promotion discounts already taken off.
func (o *Order) postPromotionBase() decimal.Decimal {
	sum := decimal.Zero
	for i := range o.Items {
		sum = sum.Add(o.Items[i].FinalPrice())
	}
	return sum
}

// ManualDiscountAmount recomputes the overlay amount from current state.
func (o *Order) ManualDiscountAmount() decimal.Decimal {
	if o.Manual == nil {
		return decimal.Zero
	}
	return o.Manual.AmountOn(o.postPromotionBase())
}

// Total is subtotal minus promotion discounts minus the manual overlay.
func (o *Order) Total() decimal.Decimal {
	return o.postPromotionBase().Sub(o.ManualDiscountAmount())
}

// CurrentTotals bundles the dynamic pricing view. While the order is
// CLOSED the frozen snapshot is authoritative instead.
func (o *Order) CurrentTotals() Totals {
	return Totals{
		Subtotal:          o.Subtotal(),
		PromotionDiscount: o.PromotionDiscountTotal(),
		ManualDiscount:    o.ManualDiscountAmount(),
		Total:             o.Total(),
	}
}

// Close freezes the accounting snapshot, registers the payments and moves
// the order to CLOSED. The payment sum must match the computed total
// exactly; nothing is mutated when any check fails.
func (o *Order) Close(payments []Payment, at time.Time) error {
	if err := o.ensureOpen(); err != nil {
		return err
	}
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	if len(payments) == 0 {
		return ErrPaymentMismatch
	}

	total := o.Total()
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	if !paid.Equal(total) {
		return ErrPaymentMismatch
	}

	o.Frozen = &Snapshot{
		Subtotal:  o.Subtotal(),
		Discounts: o.Subtotal().Sub(total),
		Total:     total,
	}
	o.Payments = append([]Payment(nil), payments...)
	closedAt := at
	o.ClosedAt = &closedAt
	o.Status = StatusClosed
	return nil
}

// Reopen reverts a CLOSED order to OPEN: the frozen snapshot, close
// timestamp and payment records are cleared, item lines stay untouched.
func (o *Order) Reopen() error {
	if o.Status != StatusClosed {
		return ErrNotClosed
	}
	o.Status = StatusOpen
	o.Frozen = nil
	o.ClosedAt = nil
	o.Payments = nil
	return nil
}
