// Package promo holds the promotion catalog model and the pricing rule
// engine: strategies, triggers, scope and the per-line discount evaluation.
package promo

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Sentinel errors for promotion catalog operations.
var (
	ErrNotFound  = errors.New("promotion not found")
	ErrNameTaken = errors.New("promotion name already in use")
)

// Status is the lifecycle state of a promotion. Promotions are never hard
// deleted; deactivation is the soft delete.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// ScopeRole tags a scope entry as activating the promotion or receiving
// its benefit.
type ScopeRole string

const (
	RoleTrigger ScopeRole = "TRIGGER"
	RoleTarget  ScopeRole = "TARGET"
)

// RefKind says what a scope entry points at.
type RefKind string

const (
	RefProduct  RefKind = "product"
	RefCategory RefKind = "category"
)

// ScopeItem is one product-or-category reference inside a promotion scope.
type ScopeItem struct {
	Kind  RefKind
	RefID uuid.UUID
	Role  ScopeRole
}

// Scope is the set of products/categories a promotion references. A given
// reference may appear at most once per promotion: one product cannot be
// both trigger and target of the same promotion.
type Scope struct {
	Items []ScopeItem
}

// Validate rejects duplicate references within the scope.
func (s Scope) Validate() error {
	seen := make(map[uuid.UUID]struct{}, len(s.Items))
	for _, it := range s.Items {
		if it.Kind != RefProduct && it.Kind != RefCategory {
			return errors.Errorf("scope: unknown reference kind %q", it.Kind)
		}
		if it.Role != RoleTrigger && it.Role != RoleTarget {
			return errors.Errorf("scope: unknown role %q", it.Role)
		}
		if _, dup := seen[it.RefID]; dup {
			return errors.Errorf("scope: reference %s appears twice", it.RefID)
		}
		seen[it.RefID] = struct{}{}
	}
	return nil
}

// TargetsProduct reports whether the product is a TARGET of this scope.
func (s Scope) TargetsProduct(id uuid.UUID) bool {
	return s.has(RefProduct, id, RoleTarget)
}

// TargetsCategory reports whether the category is a TARGET of this scope.
func (s Scope) TargetsCategory(id uuid.UUID) bool {
	return s.has(RefCategory, id, RoleTarget)
}

// TriggerProductIDs returns the product references tagged TRIGGER.
func (s Scope) TriggerProductIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, it := range s.Items {
		if it.Kind == RefProduct && it.Role == RoleTrigger {
			ids = append(ids, it.RefID)
		}
	}
	return ids
}

// HasTargets reports whether any entry carries the TARGET role.
func (s Scope) HasTargets() bool {
	for _, it := range s.Items {
		if it.Role == RoleTarget {
			return true
		}
	}
	return false
}

func (s Scope) has(kind RefKind, id uuid.UUID, role ScopeRole) bool {
	for _, it := range s.Items {
		if it.Kind == kind && it.RefID == id && it.Role == role {
			return true
		}
	}
	return false
}

// Promotion is one tenant-scoped pricing rule: a strategy, a conjunctive
// trigger list, and a scope of affected products. The engine only reads
// promotions; all edits go through the catalog Service.
type Promotion struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description string
	Priority    int
	Status      Status
	Strategy    Strategy
	Triggers    []Trigger
	Scope       Scope
	CreatedAt   time.Time
}

// Active reports whether the promotion participates in evaluation.
func (p *Promotion) Active() bool { return p.Status == StatusActive }

// Validate checks the promotion's own consistency: name, priority,
// strategy parameters, every trigger and the scope.
func (p *Promotion) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("promotion: name is required")
	}
	if p.Priority < 0 {
		return errors.Errorf("promotion: priority must be >= 0, got %d", p.Priority)
	}
	if p.Strategy == nil {
		return errors.New("promotion: strategy is required")
	}
	if err := p.Strategy.Validate(); err != nil {
		return errors.Wrap(err, "promotion")
	}
	for i, t := range p.Triggers {
		if err := t.Validate(); err != nil {
			return errors.Wrapf(err, "promotion: trigger %d", i)
		}
	}
	if err := p.Scope.Validate(); err != nil {
		return errors.Wrap(err, "promotion")
	}
	return nil
}

// Repository defines tenant-scoped persistence for promotions.
//
// ListActive must return a stable order (priority descending, then creation
// time, then id): the engine breaks priority ties by slice position, and a
// stable order keeps re-evaluations deterministic.
type Repository interface {
	Create(ctx context.Context, p *Promotion) error
	Update(ctx context.Context, p *Promotion) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Promotion, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]Promotion, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]Promotion, error)
}
