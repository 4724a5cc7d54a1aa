package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodflow/comandas/internal/domain/catalog"
	"github.com/foodflow/comandas/internal/domain/promo"
)

// Extra is a priced customization attached to an item, captured as a
// name+price snapshot at add time.
type Extra struct {
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
}

// Item is one priced line inside an order.
//
// Everything price-relevant is a snapshot taken when the item was added:
// the unit price is never re-read from the catalog, and the promotion
// fields only change through an explicit re-evaluation after an order
// mutation — never because the source promotion was edited or deactivated.
type Item struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Note        string
	Extras      []Extra

	// Classification snapshots, frozen at sale time.
	VariantGroupID *uuid.UUID
	VariantLevel   *int
	CategoryID     *uuid.UUID

	// Promotion snapshot. Zero PromotionName means no promotion.
	PromotionID    *uuid.UUID
	PromotionName  string
	DiscountAmount decimal.Decimal
}

// NewItem captures a product into a fresh item, snapshotting price, name
// and classification. The quantity must be positive.
func NewItem(orderID uuid.UUID, p catalog.Product, quantity int, note string, extras []Extra) (Item, error) {
	if quantity <= 0 {
		return Item{}, &InvalidQuantityError{Quantity: quantity}
	}
	return Item{
		ID:             uuid.New(),
		OrderID:        orderID,
		ProductID:      p.ID,
		ProductName:    p.Name,
		Quantity:       quantity,
		UnitPrice:      p.Price,
		Note:           note,
		Extras:         extras,
		VariantGroupID: p.VariantGroupID,
		VariantLevel:   p.VariantLevel,
		CategoryID:     p.CategoryID,
		DiscountAmount: decimal.Zero,
	}, nil
}

// HasPromotion reports whether a promotion snapshot is present.
func (it *Item) HasPromotion() bool { return it.PromotionName != "" }

// Personalized reports whether the item carries any priced extra. A
// personalized item never receives a promotion.
func (it *Item) Personalized() bool { return len(it.Extras) > 0 }

// BaseSubtotal is quantity x unit price, extras excluded.
func (it *Item) BaseSubtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// extrasPerUnit sums the extras price snapshots.
func (it *Item) extrasPerUnit() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range it.Extras {
		sum = sum.Add(e.Price)
	}
	return sum
}

// LineSubtotal is quantity x (unit price + extras), before any discount.
func (it *Item) LineSubtotal() decimal.Decimal {
	perUnit := it.UnitPrice.Add(it.extrasPerUnit())
	return perUnit.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// FinalPrice is the line subtotal minus the promotion discount snapshot.
func (it *Item) FinalPrice() decimal.Decimal {
	return it.LineSubtotal().Sub(it.DiscountAmount)
}

// line projects the item into the rule engine's input shape. The engine
// sees the base unit price only: promotions never discount extras.
func (it *Item) line() promo.Line {
	return promo.Line{
		ProductID:    it.ProductID,
		CategoryID:   it.CategoryID,
		UnitPrice:    it.UnitPrice,
		Quantity:     it.Quantity,
		Personalized: it.Personalized(),
	}
}

// clearPromotion drops the promotion snapshot ahead of re-evaluation.
func (it *Item) clearPromotion() {
	it.PromotionID = nil
	it.PromotionName = ""
	it.DiscountAmount = decimal.Zero
}

// applyAssignment writes the engine's verdict as the new snapshot.
func (it *Item) applyAssignment(a promo.Assignment) {
	if !a.Applied() {
		it.clearPromotion()
		return
	}
	id := a.PromotionID
	it.PromotionID = &id
	it.PromotionName = a.PromotionName
	it.DiscountAmount = a.Discount
}
