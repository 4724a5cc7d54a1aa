package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodflow/comandas/internal/domain/catalog"
)

const (
	productColumns = `id, tenant_id, name, price, category_id, active,
		variant_group_id, variant_level, is_extra, is_structural`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE tenant_id = $1 AND id = $2`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products WHERE tenant_id = $1 AND id = ANY($2)`

	listVariantGroupSQL = `SELECT ` + productColumns + `
		FROM products
		WHERE tenant_id = $1 AND variant_group_id = $2
		ORDER BY variant_level`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category_id = EXCLUDED.category_id,
			active = EXCLUDED.active,
			variant_group_id = EXCLUDED.variant_group_id,
			variant_level = EXCLUDED.variant_level,
			is_extra = EXCLUDED.is_extra,
			is_structural = EXCLUDED.is_structural`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a single product scoped to the tenant. A foreign or
// unknown id yields catalog.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns the tenant's products matching any of the given ids.
func (r *ProductRepository) GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListVariantGroup returns the group's products ordered by ascending level.
func (r *ProductRepository) ListVariantGroup(ctx context.Context, tenantID, groupID uuid.UUID) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listVariantGroupSQL, tenantID, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing variant group %q: %w", groupID, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or refreshes one catalog product. Used by seeding.
func (r *ProductRepository) Upsert(ctx context.Context, p catalog.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.TenantID, p.Name, p.Price, p.CategoryID, p.Active,
		p.VariantGroupID, p.VariantLevel, p.IsExtra, p.IsStructural,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Price, &p.CategoryID, &p.Active,
		&p.VariantGroupID, &p.VariantLevel, &p.IsExtra, &p.IsStructural,
	)
	return p, err
}
