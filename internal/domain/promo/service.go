package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Service manages the promotion catalog: creation, edits, scope definition
// and soft deletion. The rule engine never mutates promotions; every write
// flows through here.
type Service struct {
	promos Repository
	now    func() time.Time
}

// NewService creates a promotion catalog service.
func NewService(promos Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{promos: promos, now: now}
}

// CreateRequest holds the input for creating a promotion.
type CreateRequest struct {
	TenantID    uuid.UUID
	Name        string
	Description string
	Priority    int
	Strategy    Strategy
	Triggers    []Trigger
	Scope       Scope
}

// Create validates and persists a new promotion in ACTIVE state. Name
// uniqueness per tenant is enforced by the repository (ErrNameTaken).
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Promotion, error) {
	p := &Promotion{
		ID:          uuid.New(),
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      StatusActive,
		Strategy:    req.Strategy,
		Triggers:    req.Triggers,
		Scope:       req.Scope,
		CreatedAt:   s.now(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.promos.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create promotion")
	}
	return p, nil
}

// UpdateDetails changes name, description and priority of an existing
// promotion. Strategy and triggers are immutable after creation; replacing
// them means creating a new promotion, so historical snapshots keep
// pointing at the rule that produced them.
func (s *Service) UpdateDetails(ctx context.Context, tenantID, id uuid.UUID, name, description string, priority int) (*Promotion, error) {
	p, err := s.promos.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	p.Name = name
	p.Description = description
	p.Priority = priority
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.promos.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update promotion")
	}
	return p, nil
}

// DefineScope replaces the promotion's scope list.
func (s *Service) DefineScope(ctx context.Context, tenantID, id uuid.UUID, scope Scope) (*Promotion, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	p, err := s.promos.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	p.Scope = scope
	if err := s.promos.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update promotion scope")
	}
	return p, nil
}

// Activate re-enables a promotion for evaluation.
func (s *Service) Activate(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.setStatus(ctx, tenantID, id, StatusActive)
}

// Deactivate is the soft delete: the promotion stops matching new
// evaluations, but discount snapshots already written to order items are
// untouched until their order mutates again.
func (s *Service) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.setStatus(ctx, tenantID, id, StatusInactive)
}

func (s *Service) setStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error {
	p, err := s.promos.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if p.Status == status {
		return nil
	}
	p.Status = status
	if err := s.promos.Update(ctx, p); err != nil {
		return errors.Wrap(err, "update promotion status")
	}
	return nil
}

// Get returns one promotion by id.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Promotion, error) {
	return s.promos.GetByID(ctx, tenantID, id)
}

// List returns every promotion of the tenant, active or not.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Promotion, error) {
	return s.promos.List(ctx, tenantID)
}
