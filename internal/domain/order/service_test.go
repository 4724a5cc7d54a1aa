package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodflow/comandas/internal/domain/catalog"
	"github.com/foodflow/comandas/internal/domain/promo"
	"github.com/foodflow/comandas/pkg/clock"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID    map[uuid.UUID]*Order
	numbers int
	saveErr error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[uuid.UUID]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) Save(_ context.Context, o *Order) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.byID[o.ID]; !ok {
		return ErrNotFound
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Order, error) {
	o, ok := m.byID[id]
	if !ok || o.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) NextNumber(_ context.Context, _ uuid.UUID) (int, error) {
	m.numbers++
	return m.numbers, nil
}

type mockProductRepo struct {
	byID map[uuid.UUID]catalog.Product
}

func newMockProductRepo(products ...catalog.Product) *mockProductRepo {
	m := &mockProductRepo{byID: make(map[uuid.UUID]catalog.Product)}
	for _, p := range products {
		m.byID[p.ID] = p
	}
	return m
}

func (m *mockProductRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok || p.TenantID != tenantID {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok && p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) ListVariantGroup(_ context.Context, tenantID, groupID uuid.UUID) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range m.byID {
		if p.TenantID == tenantID && p.VariantGroupID != nil && *p.VariantGroupID == groupID {
			out = append(out, p)
		}
	}
	// Ascending level, like the real repository.
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[j].Level() < out[i].Level() {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

type mockPromotionRepo struct {
	promotions []promo.Promotion
}

func (m *mockPromotionRepo) Create(_ context.Context, p *promo.Promotion) error {
	m.promotions = append(m.promotions, *p)
	return nil
}

func (m *mockPromotionRepo) Update(_ context.Context, p *promo.Promotion) error {
	for i := range m.promotions {
		if m.promotions[i].ID == p.ID {
			m.promotions[i] = *p
			return nil
		}
	}
	return promo.ErrNotFound
}

func (m *mockPromotionRepo) GetByID(_ context.Context, _, id uuid.UUID) (*promo.Promotion, error) {
	for i := range m.promotions {
		if m.promotions[i].ID == id {
			cp := m.promotions[i]
			return &cp, nil
		}
	}
	return nil, promo.ErrNotFound
}

func (m *mockPromotionRepo) List(_ context.Context, _ uuid.UUID) ([]promo.Promotion, error) {
	return append([]promo.Promotion(nil), m.promotions...), nil
}

func (m *mockPromotionRepo) ListActive(_ context.Context, _ uuid.UUID) ([]promo.Promotion, error) {
	var out []promo.Promotion
	for _, p := range m.promotions {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockTableGateway struct {
	free bool
	err  error
}

func (m *mockTableGateway) IsFree(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return m.free, m.err
}

// --- Fixture ---

type fixture struct {
	svc      *Service
	orders   *mockOrderRepo
	products *mockProductRepo
	promos   *mockPromotionRepo
	tables   *mockTableGateway

	burger catalog.Product
	soda   catalog.Product
}

func newFixture(t *testing.T, promotions ...promo.Promotion) *fixture {
	t.Helper()

	f := &fixture{
		orders: newMockOrderRepo(),
		promos: &mockPromotionRepo{promotions: promotions},
		tables: &mockTableGateway{free: true},
	}
	f.burger = testProduct("Burger", 13000)
	f.soda = testProduct("Soda", 4000)
	f.products = newMockProductRepo(f.burger, f.soda)

	f.svc = NewService(f.orders, f.products, f.promos, f.tables,
		clock.At(openedAt), time.UTC)
	return f
}

func (f *fixture) open(t *testing.T) *Order {
	t.Helper()
	o, err := f.svc.Open(context.Background(), testTenant, testTable)
	require.NoError(t, err)
	return o
}

func burgers2x1(target uuid.UUID) promo.Promotion {
	return promo.Promotion{
		ID:       uuid.New(),
		TenantID: testTenant,
		Name:     "2x1 burgers",
		Priority: 5,
		Status:   promo.StatusActive,
		Strategy: promo.QuantityDiscount{Buy: 2, Pay: 1},
		Scope: promo.Scope{Items: []promo.ScopeItem{
			{Kind: promo.RefProduct, RefID: target, Role: promo.RoleTarget},
		}},
	}
}

// --- Tests ---

func TestServiceOpen(t *testing.T) {
	f := newFixture(t)

	o := f.open(t)
	assert.Equal(t, StatusOpen, o.Status)
	assert.Equal(t, 1, o.Number)
	assert.Equal(t, openedAt, o.OpenedAt)

	second, err := f.svc.Open(context.Background(), testTenant, testTable)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Number)
}

func TestServiceOpen_TableBusy(t *testing.T) {
	f := newFixture(t)
	f.tables.free = false

	_, err := f.svc.Open(context.Background(), testTenant, testTable)
	assert.ErrorIs(t, err, ErrTableNotFree)
}

func TestServiceAddItem_AppliesPromotion(t *testing.T) {
	f := newFixture(t, burgers2x1(uuid.Nil))
	f.promos.promotions[0].Scope.Items[0].RefID = f.burger.ID

	o := f.open(t)
	updated, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID:   o.ID,
		ProductID: f.burger.ID,
		Quantity:  2,
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.Equal(t, "2x1 burgers", updated.Items[0].PromotionName)
	assertMoney(t, "13000", updated.Items[0].DiscountAmount)
	assertMoney(t, "13000", updated.Total())

	// The persisted copy carries the snapshot too.
	stored, err := f.svc.Get(context.Background(), testTenant, o.ID)
	require.NoError(t, err)
	assertMoney(t, "13000", stored.PromotionDiscountTotal())
}

func TestServiceAddItem_TenantMismatch(t *testing.T) {
	f := newFixture(t)
	foreign := testProduct("Foreign", 1000)
	foreign.TenantID = uuid.New()
	f.products.byID[foreign.ID] = foreign

	o := f.open(t)
	_, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID:   o.ID,
		ProductID: foreign.ID,
		Quantity:  1,
	})
	// The repository hides foreign products entirely.
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestServiceAddItem_RejectsNonExtra(t *testing.T) {
	f := newFixture(t)

	o := f.open(t)
	_, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID:   o.ID,
		ProductID: f.burger.ID,
		Quantity:  1,
		ExtraIDs:  []uuid.UUID{f.soda.ID},
	})

	var neErr *NotExtraError
	require.ErrorAs(t, err, &neErr)
	assert.Equal(t, f.soda.ID, neErr.ProductID)
}

func TestServiceAddItem_NormalizesVariant(t *testing.T) {
	f := newFixture(t)

	group := uuid.New()
	lvl1, lvl2 := 1, 2
	single := f.burger
	single.VariantGroupID, single.VariantLevel = &group, &lvl1
	double := testProduct("Double Burger", 18000)
	double.VariantGroupID, double.VariantLevel = &group, &lvl2
	patty := testProduct("Extra Patty", 5000)
	patty.IsExtra, patty.IsStructural = true, true

	f.products.byID[single.ID] = single
	f.products.byID[double.ID] = double
	f.products.byID[patty.ID] = patty

	o := f.open(t)
	updated, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID:   o.ID,
		ProductID: single.ID,
		Quantity:  1,
		ExtraIDs:  []uuid.UUID{patty.ID},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	it := updated.Items[0]
	assert.Equal(t, double.ID, it.ProductID)
	assert.Equal(t, "Double Burger", it.ProductName)
	assertMoney(t, "18000", it.UnitPrice)
	assert.Empty(t, it.Extras, "consumed structural extra is not charged")
	assert.False(t, it.Personalized())
}

func TestServiceAddItem_PersonalizedExcludedFromPromotions(t *testing.T) {
	p := burgers2x1(uuid.Nil)
	f := newFixture(t, p)
	f.promos.promotions[0].Scope.Items[0].RefID = f.burger.ID

	bacon := testProduct("Bacon", 3000)
	bacon.IsExtra = true
	f.products.byID[bacon.ID] = bacon

	o := f.open(t)
	updated, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID:   o.ID,
		ProductID: f.burger.ID,
		Quantity:  2,
		ExtraIDs:  []uuid.UUID{bacon.ID},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.False(t, updated.Items[0].HasPromotion())
	// 2 x (13000 + 3000), no discount.
	assertMoney(t, "32000", updated.Total())
}

func TestServiceSetItemQuantity_Reevaluates(t *testing.T) {
	f := newFixture(t, burgers2x1(uuid.Nil))
	f.promos.promotions[0].Scope.Items[0].RefID = f.burger.ID

	o := f.open(t)
	updated, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID: o.ID, ProductID: f.burger.ID, Quantity: 2,
	})
	require.NoError(t, err)
	itemID := updated.Items[0].ID
	assertMoney(t, "13000", updated.PromotionDiscountTotal())

	// Dropping to one burger loses the 2x1.
	updated, err = f.svc.SetItemQuantity(context.Background(), testTenant, o.ID, itemID, 1)
	require.NoError(t, err)
	assert.False(t, updated.Items[0].HasPromotion())

	// Four burgers make two free.
	updated, err = f.svc.SetItemQuantity(context.Background(), testTenant, o.ID, itemID, 4)
	require.NoError(t, err)
	assertMoney(t, "26000", updated.PromotionDiscountTotal())
}

func TestServiceSnapshotSurvivesDeactivation(t *testing.T) {
	f := newFixture(t, burgers2x1(uuid.Nil))
	f.promos.promotions[0].Scope.Items[0].RefID = f.burger.ID

	o := f.open(t)
	updated, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID: o.ID, ProductID: f.burger.ID, Quantity: 2,
	})
	require.NoError(t, err)
	itemID := updated.Items[0].ID

	// The promotion is retired after the snapshot was taken.
	f.promos.promotions[0].Status = promo.StatusInactive

	// Reads keep the frozen discount.
	totals, err := f.svc.Totals(context.Background(), testTenant, o.ID)
	require.NoError(t, err)
	assertMoney(t, "13000", totals.PromotionDiscount)

	// The next mutation re-evaluates against the current catalog and the
	// discount disappears.
	updated, err = f.svc.SetItemQuantity(context.Background(), testTenant, o.ID, itemID, 4)
	require.NoError(t, err)
	assert.False(t, updated.Items[0].HasPromotion())
	assert.True(t, updated.PromotionDiscountTotal().IsZero())
}

func TestServiceManualDiscountFlow(t *testing.T) {
	f := newFixture(t)

	o := f.open(t)
	_, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID: o.ID, ProductID: f.burger.ID, Quantity: 2,
	})
	require.NoError(t, err)

	updated, err := f.svc.ApplyManualDiscount(context.Background(), testTenant, o.ID,
		decimal.NewFromInt(10), "regular", waiterID)
	require.NoError(t, err)
	assertMoney(t, "2600", updated.ManualDiscountAmount())

	// Replacement, not stacking.
	updated, err = f.svc.ApplyManualDiscount(context.Background(), testTenant, o.ID,
		decimal.NewFromInt(15), "owner said so", waiterID)
	require.NoError(t, err)
	assertMoney(t, "3900", updated.ManualDiscountAmount())

	updated, err = f.svc.RemoveManualDiscount(context.Background(), testTenant, o.ID)
	require.NoError(t, err)
	assert.True(t, updated.ManualDiscountAmount().IsZero())
}

func TestServiceCloseAndReopen(t *testing.T) {
	f := newFixture(t)

	o := f.open(t)
	_, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID: o.ID, ProductID: f.burger.ID, Quantity: 1,
	})
	require.NoError(t, err)

	closed, err := f.svc.Close(context.Background(), testTenant, o.ID, []Payment{
		{Method: PayCash, Amount: decimal.NewFromInt(13000), PaidAt: openedAt},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	require.NotNil(t, closed.Frozen)

	// Frozen totals are served for closed orders.
	totals, err := f.svc.Totals(context.Background(), testTenant, o.ID)
	require.NoError(t, err)
	assertMoney(t, "13000", totals.Total)

	reopened, err := f.svc.Reopen(context.Background(), testTenant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, reopened.Status)
	assert.Nil(t, reopened.Frozen)
	assert.Empty(t, reopened.Payments)
	assert.Len(t, reopened.Items, 1)
}

func TestServiceReopen_TableBusy(t *testing.T) {
	f := newFixture(t)

	o := f.open(t)
	_, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID: o.ID, ProductID: f.burger.ID, Quantity: 1,
	})
	require.NoError(t, err)
	_, err = f.svc.Close(context.Background(), testTenant, o.ID, []Payment{
		{Method: PayCash, Amount: decimal.NewFromInt(13000), PaidAt: openedAt},
	})
	require.NoError(t, err)

	// Another order took the table meanwhile.
	f.tables.free = false

	_, err = f.svc.Reopen(context.Background(), testTenant, o.ID)
	assert.ErrorIs(t, err, ErrTableNotFree)
}

func TestServiceClose_PaymentMismatch(t *testing.T) {
	f := newFixture(t)

	o := f.open(t)
	_, err := f.svc.AddItem(context.Background(), testTenant, AddItemRequest{
		OrderID: o.ID, ProductID: f.burger.ID, Quantity: 1,
	})
	require.NoError(t, err)

	_, err = f.svc.Close(context.Background(), testTenant, o.ID, []Payment{
		{Method: PayCash, Amount: decimal.NewFromInt(10000), PaidAt: openedAt},
	})
	assert.ErrorIs(t, err, ErrPaymentMismatch)
}
