package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
	"github.com/lethieuanh89/taphoa39-sub000/internal/unit"
)

func snapshotFixture() (*unit.GroupIndex, []model.Product) {
	products := []model.Product{
		{ID: 1, Name: "Box", ConversionValue: decimal.NewFromInt(1), OnHand: decimal.NewFromInt(10)},
		{ID: 2, Name: "Piece", ConversionValue: decimal.NewFromFloat(0.1), OnHand: decimal.NewFromInt(100)},
	}
	return unit.BuildGroups(products), products
}

func TestGroupSnapshotCache_SetAndGet(t *testing.T) {
	c := NewGroupSnapshotCache(time.Minute)
	idx, products := snapshotFixture()

	_, ok := c.Index()
	assert.False(t, ok, "empty cache must miss")

	c.Set(idx, products)

	got, ok := c.Index()
	require.True(t, ok)
	assert.Same(t, idx, got)

	p, ok := c.Product(2)
	require.True(t, ok)
	assert.Equal(t, "Piece", p.Name)
}

func TestGroupSnapshotCache_ExpiresAfterTTL(t *testing.T) {
	c := NewGroupSnapshotCache(10 * time.Millisecond)
	idx, products := snapshotFixture()
	c.Set(idx, products)

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Index()
	assert.False(t, ok, "expired cache must miss")

	// product fallback deliberately outlives the TTL
	_, ok = c.Product(1)
	assert.True(t, ok)
}

func TestGroupSnapshotCache_Invalidate(t *testing.T) {
	c := NewGroupSnapshotCache(time.Minute)
	idx, products := snapshotFixture()
	c.Set(idx, products)

	c.Invalidate()

	_, ok := c.Index()
	assert.False(t, ok)
	_, ok = c.Product(1)
	assert.False(t, ok)
}

func TestMemoryOutOfStockIndex(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryOutOfStockIndex()

	require.NoError(t, idx.Add(ctx, 3))
	require.NoError(t, idx.Add(ctx, 1))
	require.NoError(t, idx.Add(ctx, 1)) // idempotent

	ids, err := idx.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	require.NoError(t, idx.Remove(ctx, 1))
	ids, err = idx.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)
}
