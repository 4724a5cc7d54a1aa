package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/foodflow/comandas/internal/domain/order"
)

const (
	orderColumns = `id, tenant_id, table_id, number, status, opened_at, closed_at,
		items, manual_discount, payments,
		frozen_subtotal, frozen_discounts, frozen_total`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	saveOrderSQL = `UPDATE orders SET
			status = $3, closed_at = $4,
			items = $5, manual_discount = $6, payments = $7,
			frozen_subtotal = $8, frozen_discounts = $9, frozen_total = $10
		WHERE tenant_id = $1 AND id = $2`

	getOrderByIDSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE tenant_id = $1 AND id = $2`

	nextOrderNumberSQL = `INSERT INTO order_counters (tenant_id, value)
		VALUES ($1, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET value = order_counters.value + 1
		RETURNING value`

	tableHasOpenOrderSQL = `SELECT EXISTS (
		SELECT 1 FROM orders
		WHERE tenant_id = $1 AND table_id = $2 AND status = 'OPEN')`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// aggregate is stored as one row: items, manual discount and payments live
// in JSONB columns, the frozen accounting snapshot in NUMERIC columns that
// stay NULL while the order is open.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a freshly opened order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, manual, payments, err := encodeOrderParts(o)
	if err != nil {
		return err
	}
	frozenSubtotal, frozenDiscounts, frozenTotal := frozenColumns(o)

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.TenantID, o.TableID, o.Number, o.Status, o.OpenedAt, o.ClosedAt,
		items, manual, payments,
		frozenSubtotal, frozenDiscounts, frozenTotal,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Save rewrites the whole aggregate state of an existing order.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	items, manual, payments, err := encodeOrderParts(o)
	if err != nil {
		return err
	}
	frozenSubtotal, frozenDiscounts, frozenTotal := frozenColumns(o)

	tag, err := r.pool.Exec(ctx, saveOrderSQL,
		o.TenantID, o.ID, o.Status, o.ClosedAt,
		items, manual, payments,
		frozenSubtotal, frozenDiscounts, frozenTotal,
	)
	if err != nil {
		return fmt.Errorf("saving order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// GetByID loads one order scoped to the tenant.
func (r *OrderRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return o, nil
}

// NextNumber returns the next per-tenant sequential order number.
func (r *OrderRepository) NextNumber(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var value int
	if err := r.pool.QueryRow(ctx, nextOrderNumberSQL, tenantID).Scan(&value); err != nil {
		return 0, fmt.Errorf("next order number: %w", err)
	}
	return value, nil
}

var _ order.TableGateway = (*TableGateway)(nil)

// TableGateway answers table availability from the orders table: a table is
// free when it carries no OPEN order.
type TableGateway struct {
	pool *pgxpool.Pool
}

// NewTableGateway returns a TableGateway that uses the given pool.
func NewTableGateway(pool *pgxpool.Pool) *TableGateway {
	return &TableGateway{pool: pool}
}

// IsFree reports whether the table has no open order.
func (g *TableGateway) IsFree(ctx context.Context, tenantID, tableID uuid.UUID) (bool, error) {
	var occupied bool
	if err := g.pool.QueryRow(ctx, tableHasOpenOrderSQL, tenantID, tableID).Scan(&occupied); err != nil {
		return false, fmt.Errorf("checking table %q: %w", tableID, err)
	}
	return !occupied, nil
}

func encodeOrderParts(o *order.Order) (items, manual, payments []byte, err error) {
	items, err = json.Marshal(o.Items)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling order items: %w", err)
	}
	if o.Manual != nil {
		manual, err = json.Marshal(o.Manual)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling manual discount: %w", err)
		}
	}
	if len(o.Payments) > 0 {
		payments, err = json.Marshal(o.Payments)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling payments: %w", err)
		}
	}
	return items, manual, payments, nil
}

func frozenColumns(o *order.Order) (subtotal, discounts, total *decimal.Decimal) {
	if o.Frozen == nil {
		return nil, nil, nil
	}
	return &o.Frozen.Subtotal, &o.Frozen.Discounts, &o.Frozen.Total
}

func scanOrder(row pgx.CollectableRow) (*order.Order, error) {
	var (
		o        order.Order
		items    []byte
		manual   []byte
		payments []byte

		frozenSubtotal, frozenDiscounts, frozenTotal *decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.TenantID, &o.TableID, &o.Number, &o.Status, &o.OpenedAt, &o.ClosedAt,
		&items, &manual, &payments,
		&frozenSubtotal, &frozenDiscounts, &frozenTotal,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if len(manual) > 0 {
		var d order.ManualDiscount
		if err := json.Unmarshal(manual, &d); err != nil {
			return nil, fmt.Errorf("unmarshaling manual discount: %w", err)
		}
		o.Manual = &d
	}
	if len(payments) > 0 {
		if err := json.Unmarshal(payments, &o.Payments); err != nil {
			return nil, fmt.Errorf("unmarshaling payments: %w", err)
		}
	}
	if frozenSubtotal != nil && frozenDiscounts != nil && frozenTotal != nil {
		o.Frozen = &order.Snapshot{
			Subtotal:  *frozenSubtotal,
			Discounts: *frozenDiscounts,
			Total:     *frozenTotal,
		}
	}
	return &o, nil
}
