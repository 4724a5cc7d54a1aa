package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodflow/comandas/internal/domain/promo"
)

const (
	promotionColumns = `id, tenant_id, name, description, priority, status,
		strategy, triggers, scope, created_at`

	createPromotionSQL = `INSERT INTO promotions (` + promotionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	updatePromotionSQL = `UPDATE promotions SET
			name = $3, description = $4, priority = $5, status = $6,
			strategy = $7, triggers = $8, scope = $9
		WHERE tenant_id = $1 AND id = $2`

	getPromotionByIDSQL = `SELECT ` + promotionColumns + `
		FROM promotions WHERE tenant_id = $1 AND id = $2`

	// Stable ordering: evaluation breaks priority ties by slice position.
	listPromotionsSQL = `SELECT ` + promotionColumns + `
		FROM promotions WHERE tenant_id = $1
		ORDER BY priority DESC, created_at ASC, id ASC`

	listActivePromotionsSQL = `SELECT ` + promotionColumns + `
		FROM promotions WHERE tenant_id = $1 AND status = 'ACTIVE'
		ORDER BY priority DESC, created_at ASC, id ASC`
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

var _ promo.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promo.Repository backed by PostgreSQL.
// Strategy, triggers and scope live in JSONB columns.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// Create persists a new promotion. A duplicate name within the tenant
// yields promo.ErrNameTaken.
func (r *PromotionRepository) Create(ctx context.Context, p *promo.Promotion) error {
	strategy, triggers, scope, err := encodePromotion(p)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, createPromotionSQL,
		p.ID, p.TenantID, p.Name, p.Description, p.Priority, p.Status,
		strategy, triggers, scope, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return promo.ErrNameTaken
		}
		return fmt.Errorf("creating promotion %q: %w", p.ID, err)
	}
	return nil
}

// Update rewrites the mutable columns of an existing promotion.
func (r *PromotionRepository) Update(ctx context.Context, p *promo.Promotion) error {
	strategy, triggers, scope, err := encodePromotion(p)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, updatePromotionSQL,
		p.TenantID, p.ID, p.Name, p.Description, p.Priority, p.Status,
		strategy, triggers, scope,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return promo.ErrNameTaken
		}
		return fmt.Errorf("updating promotion %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrNotFound
	}
	return nil
}

// GetByID returns one promotion scoped to the tenant.
func (r *PromotionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*promo.Promotion, error) {
	rows, err := r.pool.Query(ctx, getPromotionByIDSQL, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}
	return &p, nil
}

// List returns every promotion of the tenant in evaluation order.
func (r *PromotionRepository) List(ctx context.Context, tenantID uuid.UUID) ([]promo.Promotion, error) {
	rows, err := r.pool.Query(ctx, listPromotionsSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

// ListActive returns the tenant's ACTIVE promotions in evaluation order.
func (r *PromotionRepository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]promo.Promotion, error) {
	rows, err := r.pool.Query(ctx, listActivePromotionsSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

func encodePromotion(p *promo.Promotion) (strategy, triggers, scope []byte, err error) {
	strategy, err = encodeStrategy(p.Strategy)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encoding promotion %q: %w", p.ID, err)
	}
	triggers, err = encodeTriggers(p.Triggers)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encoding promotion %q: %w", p.ID, err)
	}
	scope, err = encodeScope(p.Scope)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encoding promotion %q: %w", p.ID, err)
	}
	return strategy, triggers, scope, nil
}

func scanPromotion(row pgx.CollectableRow) (promo.Promotion, error) {
	var (
		p        promo.Promotion
		strategy []byte
		triggers []byte
		scope    []byte
	)
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Priority, &p.Status,
		&strategy, &triggers, &scope, &p.CreatedAt,
	)
	if err != nil {
		return promo.Promotion{}, err
	}

	if p.Strategy, err = decodeStrategy(strategy); err != nil {
		return promo.Promotion{}, err
	}
	if p.Triggers, err = decodeTriggers(triggers); err != nil {
		return promo.Promotion{}, err
	}
	if p.Scope, err = decodeScope(scope); err != nil {
		return promo.Promotion{}, err
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
