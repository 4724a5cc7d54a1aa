package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var burgerGroup = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")

func variant(name string, level int, price int64) Product {
	lvl := level
	return Product{
		ID:             uuid.New(),
		Name:           name,
		Price:          decimal.NewFromInt(price),
		Active:         true,
		VariantGroupID: &burgerGroup,
		VariantLevel:   &lvl,
	}
}

func extra(name string, structural bool, price int64) Product {
	return Product{
		ID:           uuid.New(),
		Name:         name,
		Price:        decimal.NewFromInt(price),
		Active:       true,
		IsExtra:      true,
		IsStructural: structural,
	}
}

func TestNormalizeVariant_StructuralExtraPromotes(t *testing.T) {
	single := variant("Burger", 1, 13000)
	double := variant("Double Burger", 2, 18000)
	siblings := []Product{single, double}

	patty := extra("Extra Patty", true, 5000)

	res := NormalizeVariant(single, []Product{patty}, siblings)

	assert.True(t, res.Promoted)
	assert.Equal(t, double.ID, res.Product.ID)
	assert.Empty(t, res.Extras, "the consumed structural extra must not be charged")
}

func TestNormalizeVariant_ChainsAcrossLevels(t *testing.T) {
	single := variant("Burger", 1, 13000)
	double := variant("Double Burger", 2, 18000)
	triple := variant("Triple Burger", 3, 22000)
	siblings := []Product{single, double, triple}

	patty := extra("Extra Patty", true, 5000)

	res := NormalizeVariant(single, []Product{patty, patty}, siblings)

	assert.True(t, res.Promoted)
	assert.Equal(t, triple.ID, res.Product.ID)
	assert.Empty(t, res.Extras)
}

func TestNormalizeVariant_StopsAtTopOfChain(t *testing.T) {
	single := variant("Burger", 1, 13000)
	double := variant("Double Burger", 2, 18000)
	siblings := []Product{single, double}

	patty := extra("Extra Patty", true, 5000)

	// Two structural extras but only one level above: one is consumed, the
	// other stays as a plain priced extra.
	res := NormalizeVariant(single, []Product{patty, patty}, siblings)

	assert.Equal(t, double.ID, res.Product.ID)
	require.Len(t, res.Extras, 1)
	assert.True(t, res.Extras[0].IsStructural)
}

func TestNormalizeVariant_CosmeticExtrasNeverPromote(t *testing.T) {
	single := variant("Burger", 1, 13000)
	double := variant("Double Burger", 2, 18000)
	siblings := []Product{single, double}

	bacon := extra("Bacon", false, 3000)

	res := NormalizeVariant(single, []Product{bacon}, siblings)

	assert.False(t, res.Promoted)
	assert.Equal(t, single.ID, res.Product.ID)
	require.Len(t, res.Extras, 1)
	assert.Equal(t, bacon.ID, res.Extras[0].ID)
}

func TestNormalizeVariant_MixedExtrasKeepOrder(t *testing.T) {
	single := variant("Burger", 1, 13000)
	double := variant("Double Burger", 2, 18000)
	siblings := []Product{single, double}

	bacon := extra("Bacon", false, 3000)
	patty := extra("Extra Patty", true, 5000)
	cheese := extra("Cheese", false, 2000)

	res := NormalizeVariant(single, []Product{bacon, patty, cheese}, siblings)

	assert.Equal(t, double.ID, res.Product.ID)
	require.Len(t, res.Extras, 2)
	assert.Equal(t, bacon.ID, res.Extras[0].ID)
	assert.Equal(t, cheese.ID, res.Extras[1].ID)
}

func TestNormalizeVariant_GapInLevelsBlocksPromotion(t *testing.T) {
	single := variant("Burger", 1, 13000)
	triple := variant("Triple Burger", 3, 22000)
	siblings := []Product{single, triple}

	patty := extra("Extra Patty", true, 5000)

	// No sibling at level 2: the walk cannot jump.
	res := NormalizeVariant(single, []Product{patty}, siblings)

	assert.False(t, res.Promoted)
	assert.Equal(t, single.ID, res.Product.ID)
	assert.Len(t, res.Extras, 1)
}

func TestNormalizeVariant_NonVariantBaseUntouched(t *testing.T) {
	fries := Product{ID: uuid.New(), Name: "Fries", Price: decimal.NewFromInt(6000), Active: true}
	patty := extra("Extra Patty", true, 5000)

	res := NormalizeVariant(fries, []Product{patty}, nil)

	assert.False(t, res.Promoted)
	assert.Equal(t, fries.ID, res.Product.ID)
	assert.Len(t, res.Extras, 1)
}
