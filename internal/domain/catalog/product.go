// Package catalog holds the product catalog model consumed by the pricing
// core: products, variant groups and the variant normalizer.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist for the
// given tenant. Cross-tenant references resolve to ErrNotFound as well, so
// that a foreign product id leaks nothing beyond "not found".
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for sale.
//
// Variant fields: products that come in structural tiers (single/double/
// triple) share a VariantGroupID and are ordered by VariantLevel. Extras
// flagged Structural can promote an item to the next tier when added; other
// extras are purely cosmetic add-ons.
type Product struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Name       string
	Price      decimal.Decimal
	CategoryID *uuid.UUID
	Active     bool

	VariantGroupID *uuid.UUID
	VariantLevel   *int
	IsExtra        bool
	IsStructural   bool
}

// InVariantGroup reports whether the product belongs to a variant group and
// carries a structural level.
func (p Product) InVariantGroup() bool {
	return p.VariantGroupID != nil && p.VariantLevel != nil
}

// Level returns the structural level, or 0 when the product has none.
func (p Product) Level() int {
	if p.VariantLevel == nil {
		return 0
	}
	return *p.VariantLevel
}

// Repository defines tenant-scoped read operations on the product catalog.
type Repository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)
	GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Product, error)
	// ListVariantGroup returns every product in the given variant group,
	// ordered by ascending variant level.
	ListVariantGroup(ctx context.Context, tenantID, groupID uuid.UUID) ([]Product, error)
}
