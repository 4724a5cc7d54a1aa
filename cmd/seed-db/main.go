// Command seed-db loads a demo tenant into the database: a small catalog
// with a burger variant group plus extras, and a handful of promotions
// covering every strategy. Safe to re-run; products upsert and existing
// promotions are skipped by name.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/foodflow/comandas/internal/domain/catalog"
	"github.com/foodflow/comandas/internal/domain/promo"
	"github.com/foodflow/comandas/internal/storage/postgres"
)

var (
	demoTenant = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0001")

	categoryBurgers = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0010")
	categoryDrinks  = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0011")

	burgerGroup = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0020")

	burgerSingle = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0101")
	burgerDouble = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0102")
	burgerTriple = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0103")
	extraPatty   = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0104")
	extraBacon   = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0105")
	soda         = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0106")
	fries        = uuid.MustParse("6f1c1a52-0a14-4f2e-9a83-6a2a3a1d0107")
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	if err := seedProducts(ctx, products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	promotions := promo.NewService(postgres.NewPromotionRepository(pool), time.Now)
	if err := seedPromotions(ctx, promotions); err != nil {
		return errors.Wrap(err, "seed promotions")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository) error {
	level := func(n int) *int { return &n }

	items := []catalog.Product{
		{ID: burgerSingle, Name: "Burger", Price: decimal.NewFromInt(13000),
			CategoryID: &categoryBurgers, VariantGroupID: &burgerGroup, VariantLevel: level(1)},
		{ID: burgerDouble, Name: "Double Burger", Price: decimal.NewFromInt(18000),
			CategoryID: &categoryBurgers, VariantGroupID: &burgerGroup, VariantLevel: level(2)},
		{ID: burgerTriple, Name: "Triple Burger", Price: decimal.NewFromInt(22000),
			CategoryID: &categoryBurgers, VariantGroupID: &burgerGroup, VariantLevel: level(3)},
		{ID: extraPatty, Name: "Extra Patty", Price: decimal.NewFromInt(5000),
			IsExtra: true, IsStructural: true},
		{ID: extraBacon, Name: "Bacon", Price: decimal.NewFromInt(3000),
			IsExtra: true},
		{ID: soda, Name: "Soda", Price: decimal.NewFromInt(4000),
			CategoryID: &categoryDrinks},
		{ID: fries, Name: "Fries", Price: decimal.NewFromInt(6000)},
	}

	slog.Info("upserting products", slog.Int("count", len(items)))

	// Upserts target distinct rows, so they can run concurrently.
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range items {
		g.Go(upsertProduct(ctx, repo, p))
	}

	return g.Wait()
}

func upsertProduct(ctx context.Context, repo *postgres.ProductRepository, p catalog.Product) func() error {
	return func() error {
		p.TenantID = demoTenant
		p.Active = true
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID.String()), slog.String("name", p.Name))
		return nil
	}
}

func seedPromotions(ctx context.Context, svc *promo.Service) error {
	hourFrom, hourUntil := promo.ClockTime(17, 0), promo.ClockTime(20, 0)

	requests := []promo.CreateRequest{
		{
			TenantID:    demoTenant,
			Name:        "Happy hour burgers 2x1",
			Description: "Two burgers for the price of one, weekday evenings",
			Priority:    10,
			Strategy:    promo.QuantityDiscount{Buy: 2, Pay: 1},
			Triggers: []promo.Trigger{
				promo.TemporalTrigger{
					From:      time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
					Until:     time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
					Weekdays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
					HourFrom:  &hourFrom,
					HourUntil: &hourUntil,
				},
			},
			Scope: promo.Scope{Items: []promo.ScopeItem{
				{Kind: promo.RefCategory, RefID: categoryBurgers, Role: promo.RoleTarget},
			}},
		},
		{
			TenantID:    demoTenant,
			Name:        "Soda with burger",
			Description: "Half price soda when a burger is on the order",
			Priority:    5,
			Strategy:    promo.ConditionalCombo{MinTriggerQuantity: 1, BenefitPercent: decimal.NewFromInt(50)},
			Scope: promo.Scope{Items: []promo.ScopeItem{
				{Kind: promo.RefProduct, RefID: burgerSingle, Role: promo.RoleTrigger},
				{Kind: promo.RefProduct, RefID: soda, Role: promo.RoleTarget},
			}},
		},
		{
			TenantID:    demoTenant,
			Name:        "Burger pack",
			Description: "Two burgers at a fixed pack price",
			Priority:    8,
			Strategy:    promo.FixedPricePack{ActivationQuantity: 2, PackPrice: decimal.NewFromInt(22000)},
			Scope: promo.Scope{Items: []promo.ScopeItem{
				{Kind: promo.RefProduct, RefID: burgerSingle, Role: promo.RoleTarget},
			}},
		},
		{
			TenantID:    demoTenant,
			Name:        "Big order discount",
			Description: "10% off fries on orders over 50000",
			Priority:    1,
			Strategy:    promo.DirectDiscount{Mode: promo.ModePercentage, Value: decimal.NewFromInt(10)},
			Triggers: []promo.Trigger{
				promo.MinimumAmountTrigger{Threshold: decimal.NewFromInt(50000)},
			},
			Scope: promo.Scope{Items: []promo.ScopeItem{
				{Kind: promo.RefProduct, RefID: fries, Role: promo.RoleTarget},
			}},
		},
	}

	for _, req := range requests {
		p, err := svc.Create(ctx, req)
		if err != nil {
			if errors.Is(err, promo.ErrNameTaken) {
				slog.Info("promotion already seeded", slog.String("name", req.Name))
				continue
			}
			return errors.Wrapf(err, "create promotion %q", req.Name)
		}

		slog.Info("created promotion", slog.String("id", p.ID.String()), slog.String("name", p.Name))
	}

	return nil
}
