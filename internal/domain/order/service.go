package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodflow/comandas/internal/domain/catalog"
	"github.com/foodflow/comandas/internal/domain/promo"
	"github.com/foodflow/comandas/pkg/clock"
)

// Repository defines persistence for order aggregates. Save persists the
// whole aggregate (items, payments, snapshot) atomically.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Save(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	// NextNumber returns the next per-tenant sequential order number.
	NextNumber(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// TableGateway answers whether a table can take a new order.
type TableGateway interface {
	IsFree(ctx context.Context, tenantID, tableID uuid.UUID) (bool, error)
}

// Service coordinates order operations: every mutation loads the aggregate,
// applies the change, re-runs promotion evaluation over the full line set
// and persists the result.
type Service struct {
	orders   Repository
	products catalog.Repository
	promos   promo.Repository
	tables   TableGateway
	clock    clock.Clock
	loc      *time.Location
}

// NewService wires an order service. loc is the tenant's time zone; temporal
// promotion windows are interpreted in it.
func NewService(orders Repository, products catalog.Repository, promos promo.Repository, tables TableGateway, clk clock.Clock, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		orders:   orders,
		products: products,
		promos:   promos,
		tables:   tables,
		clock:    clk,
		loc:      loc,
	}
}

// Open starts a new order on a free table.
func (s *Service) Open(ctx context.Context, tenantID, tableID uuid.UUID) (*Order, error) {
	free, err := s.tables.IsFree(ctx, tenantID, tableID)
	if err != nil {
		return nil, errors.Wrap(err, "check table")
	}
	if !free {
		return nil, ErrTableNotFree
	}
	number, err := s.orders.NextNumber(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "next order number")
	}
	o := Open(tenantID, tableID, number, s.clock.Now().In(s.loc))
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// Get loads one order.
func (s *Service) Get(ctx context.Context, tenantID, orderID uuid.UUID) (*Order, error) {
	return s.orders.GetByID(ctx, tenantID, orderID)
}

// AddItemRequest is the input for AddItem. ExtraIDs reference catalog
// products flagged as extras; structural ones may promote the base product
// to a higher variant before pricing.
type AddItemRequest struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Note      string
	ExtraIDs  []uuid.UUID
}

// AddItem resolves the product and extras, normalizes the variant, snapshots
// prices into a new item and re-evaluates promotions for the whole order.
func (s *Service) AddItem(ctx context.Context, tenantID uuid.UUID, req AddItemRequest) (*Order, error) {
	o, err := s.orders.GetByID(ctx, tenantID, req.OrderID)
	if err != nil {
		return nil, err
	}

	base, err := s.products.GetByID(ctx, tenantID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if base.TenantID != o.TenantID {
		return nil, &TenantMismatchError{OrderTenant: o.TenantID, ProductTenant: base.TenantID}
	}

	extras, err := s.resolveExtras(ctx, tenantID, req.ExtraIDs)
	if err != nil {
		return nil, err
	}

	product := *base
	if product.InVariantGroup() {
		siblings, err := s.products.ListVariantGroup(ctx, tenantID, *product.VariantGroupID)
		if err != nil {
			return nil, errors.Wrap(err, "list variant group")
		}
		res := catalog.NormalizeVariant(product, extras, siblings)
		product, extras = res.Product, res.Extras
	}

	it, err := NewItem(o.ID, product, req.Quantity, req.Note, toExtras(extras))
	if err != nil {
		return nil, err
	}
	if err := o.AddItem(it); err != nil {
		return nil, err
	}

	return s.repriceAndSave(ctx, o)
}

// resolveExtras loads the referenced products and verifies each one is an
// extra of the order's tenant.
func (s *Service) resolveExtras(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	products, err := s.products.GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve extras")
	}
	byID := make(map[uuid.UUID]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, catalog.ErrNotFound
		}
		if !p.IsExtra {
			return nil, &NotExtraError{ProductID: id}
		}
		out = append(out, p)
	}
	return out, nil
}

func toExtras(products []catalog.Product) []Extra {
	if len(products) == 0 {
		return nil
	}
	out := make([]Extra, len(products))
	for i, p := range products {
		out[i] = Extra{ProductID: p.ID, Name: p.Name, Price: p.Price}
	}
	return out
}

// RemoveItem deletes an item and re-evaluates the remaining lines.
func (s *Service) RemoveItem(ctx context.Context, tenantID, orderID, itemID uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.RemoveItem(itemID); err != nil {
		return nil, err
	}
	return s.repriceAndSave(ctx, o)
}

// SetItemQuantity updates a line's quantity (zero removes it) and
// re-evaluates promotions.
func (s *Service) SetItemQuantity(ctx context.Context, tenantID, orderID, itemID uuid.UUID, quantity int) (*Order, error) {
	o, err := s.orders.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.SetItemQuantity(itemID, quantity); err != nil {
		return nil, err
	}
	return s.repriceAndSave(ctx, o)
}

// ApplyManualDiscount sets the order-wide percentage overlay.
func (s *Service) ApplyManualDiscount(ctx context.Context, tenantID, orderID uuid.UUID, percent decimal.Decimal, reason string, appliedBy uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	d, err := NewManualDiscount(percent, reason, appliedBy, s.clock.Now().In(s.loc))
	if err != nil {
		return nil, err
	}
	if err := o.ApplyManualDiscount(d); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return o, nil
}

// RemoveManualDiscount clears the overlay.
func (s *Service) RemoveManualDiscount(ctx context.Context, tenantID, orderID uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.RemoveManualDiscount(); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return o, nil
}

// Totals returns the order's current pricing view. For CLOSED orders the
// frozen snapshot is authoritative.
func (s *Service) Totals(ctx context.Context, tenantID, orderID uuid.UUID) (Totals, error) {
	o, err := s.orders.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return Totals{}, err
	}
	if o.Status == StatusClosed && o.Frozen != nil {
		return Totals{
			Subtotal:          o.Frozen.Subtotal,
			PromotionDiscount: o.PromotionDiscountTotal(),
			ManualDiscount:    o.ManualDiscountAmount(),
			Total:             o.Frozen.Total,
		}, nil
	}
	return o.CurrentTotals(), nil
}

// Close freezes the order's accounting snapshot against the given payments.
func (s *Service) Close(ctx context.Context, tenantID, orderID uuid.UUID, payments []Payment) (*Order, error) {
	o, err := s.orders.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.Close(payments, s.clock.Now().In(s.loc)); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return o, nil
}

// Reopen reverts a closed order to OPEN. The table must still be free; item
// lines and their discount snapshots are kept as they were.
func (s *Service) Reopen(ctx context.Context, tenantID, orderID uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	free, err := s.tables.IsFree(ctx, tenantID, o.TableID)
	if err != nil {
		return nil, errors.Wrap(err, "check table")
	}
	if !free {
		return nil, ErrTableNotFree
	}
	if err := o.Reopen(); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return o, nil
}

// repriceAndSave re-runs the rule engine over the whole line set and
// persists the aggregate.
func (s *Service) repriceAndSave(ctx context.Context, o *Order) (*Order, error) {
	promotions, err := s.promos.ListActive(ctx, o.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "list active promotions")
	}
	assignments := promo.Evaluate(o.Lines(), promotions, s.clock.Now().In(s.loc))
	if err := o.ApplyPromotions(assignments); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return o, nil
}
