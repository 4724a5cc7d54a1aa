package promo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPromoRepo struct {
	byID      map[uuid.UUID]*Promotion
	createErr error
}

func newMockPromoRepo() *mockPromoRepo {
	return &mockPromoRepo{byID: make(map[uuid.UUID]*Promotion)}
}

func (m *mockPromoRepo) Create(_ context.Context, p *Promotion) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockPromoRepo) Update(_ context.Context, p *Promotion) error {
	if _, ok := m.byID[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockPromoRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Promotion, error) {
	p, ok := m.byID[id]
	if !ok || p.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPromoRepo) List(_ context.Context, tenantID uuid.UUID) ([]Promotion, error) {
	var out []Promotion
	for _, p := range m.byID {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPromoRepo) ListActive(ctx context.Context, tenantID uuid.UUID) ([]Promotion, error) {
	all, _ := m.List(ctx, tenantID)
	var out []Promotion
	for _, p := range all {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out, nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
}

func validCreateRequest(tenantID uuid.UUID) CreateRequest {
	return CreateRequest{
		TenantID: tenantID,
		Name:     "2x1 burgers",
		Priority: 5,
		Strategy: QuantityDiscount{Buy: 2, Pay: 1},
		Scope:    targetProduct(burgerID),
	}
}

func TestServiceCreate(t *testing.T) {
	repo := newMockPromoRepo()
	svc := NewService(repo, fixedNow)
	tenantID := uuid.New()

	p, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, fixedNow(), p.CreatedAt)

	stored, err := svc.Get(context.Background(), tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "2x1 burgers", stored.Name)
}

func TestServiceCreate_InvalidStrategy(t *testing.T) {
	svc := NewService(newMockPromoRepo(), fixedNow)

	req := validCreateRequest(uuid.New())
	req.Strategy = QuantityDiscount{Buy: 1, Pay: 1}

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
}

func TestServiceCreate_NameTaken(t *testing.T) {
	repo := newMockPromoRepo()
	repo.createErr = ErrNameTaken
	svc := NewService(repo, fixedNow)

	_, err := svc.Create(context.Background(), validCreateRequest(uuid.New()))
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestServiceUpdateDetails(t *testing.T) {
	repo := newMockPromoRepo()
	svc := NewService(repo, fixedNow)
	tenantID := uuid.New()

	p, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	require.NoError(t, err)

	updated, err := svc.UpdateDetails(context.Background(), tenantID, p.ID, "3x2 burgers", "new copy", 9)
	require.NoError(t, err)
	assert.Equal(t, "3x2 burgers", updated.Name)
	assert.Equal(t, 9, updated.Priority)

	// Strategy survives a details update untouched.
	assert.Equal(t, QuantityDiscount{Buy: 2, Pay: 1}, updated.Strategy)
}

func TestServiceDefineScope(t *testing.T) {
	repo := newMockPromoRepo()
	svc := NewService(repo, fixedNow)
	tenantID := uuid.New()

	p, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	require.NoError(t, err)

	newScope := Scope{Items: []ScopeItem{
		{Kind: RefCategory, RefID: burgersCategory, Role: RoleTarget},
	}}
	updated, err := svc.DefineScope(context.Background(), tenantID, p.ID, newScope)
	require.NoError(t, err)
	assert.True(t, updated.Scope.TargetsCategory(burgersCategory))

	dup := Scope{Items: []ScopeItem{
		{Kind: RefProduct, RefID: burgerID, Role: RoleTrigger},
		{Kind: RefProduct, RefID: burgerID, Role: RoleTarget},
	}}
	_, err = svc.DefineScope(context.Background(), tenantID, p.ID, dup)
	require.Error(t, err)
}

func TestServiceDeactivateIsSoftDelete(t *testing.T) {
	repo := newMockPromoRepo()
	svc := NewService(repo, fixedNow)
	tenantID := uuid.New()

	p, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), tenantID, p.ID))

	// Still listed, no longer active.
	all, err := svc.List(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, StatusInactive, all[0].Status)

	active, err := repo.ListActive(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, svc.Activate(context.Background(), tenantID, p.ID))
	active, err = repo.ListActive(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestServiceGet_WrongTenant(t *testing.T) {
	repo := newMockPromoRepo()
	svc := NewService(repo, fixedNow)

	p, err := svc.Create(context.Background(), validCreateRequest(uuid.New()))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
