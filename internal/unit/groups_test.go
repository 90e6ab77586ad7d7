package unit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
)

func i64(v int64) *int64 { return &v }

func product(id int64, masterProductID, masterUnitID *int64, cv float64, onHand float64) model.Product {
	return model.Product{
		ID:              id,
		Name:            "P",
		MasterProductID: masterProductID,
		MasterUnitID:    masterUnitID,
		ConversionValue: decimal.NewFromFloat(cv),
		OnHand:          decimal.NewFromFloat(onHand),
		Active:          true,
	}
}

func TestBuildGroups_MasterAnchorsGroup(t *testing.T) {
	catalog := []model.Product{
		product(1, i64(99), nil, 1, 10),       // master: MasterProductID set, MasterUnitID unset
		product(2, i64(99), i64(1), 0.1, 100), // variant of product 1
	}

	idx := BuildGroups(catalog)

	variants, ok := idx.Group(1)
	require.True(t, ok)
	require.Len(t, variants, 2)
	assert.Equal(t, int64(1), variants[0].ID)
	assert.Equal(t, int64(2), variants[1].ID)
}

func TestBuildGroups_StandaloneProductAnchorsOwnGroup(t *testing.T) {
	catalog := []model.Product{
		product(7, nil, nil, 1, 5),
	}

	idx := BuildGroups(catalog)

	variants, ok := idx.Group(7)
	require.True(t, ok)
	require.Len(t, variants, 1)
	assert.Equal(t, int64(7), variants[0].ID)
}

func TestBuildGroups_OrphanVariantLeftUngrouped(t *testing.T) {
	catalog := []model.Product{
		product(1, nil, nil, 1, 5),
		product(2, i64(99), i64(42), 0.5, 10), // MasterUnitID 42 matches no anchor
	}

	idx := BuildGroups(catalog)

	_, ok := idx.Group(42)
	assert.False(t, ok)
	// the orphan is absent from every group
	_, present := idx.Products()[2]
	assert.False(t, present)
	assert.Equal(t, 1, idx.Len())
}

func TestBuildGroups_VariantOrderFollowsCatalogOrder(t *testing.T) {
	catalog := []model.Product{
		product(3, i64(99), i64(1), 0.25, 40),
		product(1, i64(99), nil, 1, 10),
		product(2, i64(99), i64(1), 0.1, 100),
	}

	idx := BuildGroups(catalog)

	variants, ok := idx.Group(1)
	require.True(t, ok)
	require.Len(t, variants, 3)
	// anchor first, then variants in catalog order regardless of their
	// position relative to the anchor
	assert.Equal(t, int64(1), variants[0].ID)
	assert.Equal(t, int64(3), variants[1].ID)
	assert.Equal(t, int64(2), variants[2].ID)
}

func TestBuildGroups_DeterministicAcrossRebuilds(t *testing.T) {
	catalog := []model.Product{
		product(1, i64(99), nil, 1, 10),
		product(2, i64(99), i64(1), 0.1, 100),
		product(5, nil, nil, 1, 3),
		product(6, i64(88), i64(5), 0.5, 6),
	}

	first := BuildGroups(catalog)
	second := BuildGroups(catalog)

	assert.Equal(t, first.Len(), second.Len())
	for key := range map[int64]struct{}{1: {}, 5: {}} {
		a, okA := first.Group(key)
		b, okB := second.Group(key)
		require.True(t, okA)
		require.True(t, okB)
		require.Equal(t, len(a), len(b))
		for i := range a {
			assert.Equal(t, a[i].ID, b[i].ID)
		}
	}
}

func TestBuildGroups_VariantCanJoinStandaloneAnchor(t *testing.T) {
	catalog := []model.Product{
		product(5, nil, nil, 1, 3),
		product(6, i64(1), i64(5), 0.5, 6), // variant pointing at the standalone
	}

	idx := BuildGroups(catalog)

	variants, ok := idx.Group(5)
	require.True(t, ok)
	assert.Len(t, variants, 2)
}

func TestBuildGroups_PartialVariantIsIgnored(t *testing.T) {
	// MasterUnitID set without MasterProductID matches no pass.
	catalog := []model.Product{
		product(5, nil, nil, 1, 3),
		product(6, nil, i64(5), 0.5, 6),
	}

	idx := BuildGroups(catalog)

	variants, ok := idx.Group(5)
	require.True(t, ok)
	assert.Len(t, variants, 1)
	_, present := idx.Products()[6]
	assert.False(t, present)
}
