package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/lethieuanh89/taphoa39-sub000/internal/cache"
	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
	"github.com/lethieuanh89/taphoa39-sub000/internal/unit"
)

// CatalogService owns the unit-group view of the product catalog. The group
// index is always rebuilt wholesale — from the snapshot cache while fresh,
// from the store otherwise.
type CatalogService interface {
	GroupIndex(ctx context.Context) (*unit.GroupIndex, error)
	Refresh(ctx context.Context, products []model.Product) error
	Invalidate()
}

type catalogService struct {
	products repository.ProductStore
	snapshot *cache.GroupSnapshotCache
}

func NewCatalogService(products repository.ProductStore, snapshot *cache.GroupSnapshotCache) CatalogService {
	return &catalogService{products: products, snapshot: snapshot}
}

func (s *catalogService) GroupIndex(ctx context.Context) (*unit.GroupIndex, error) {
	if idx, ok := s.snapshot.Index(); ok {
		return idx, nil
	}
	all, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := unit.BuildGroups(all)
	s.snapshot.Set(idx, all)
	return idx, nil
}

// Refresh replaces the catalog from an external sync event and rebuilds the
// grouped snapshot from what the store now holds.
func (s *catalogService) Refresh(ctx context.Context, products []model.Product) error {
	if err := s.products.PutMany(ctx, products); err != nil {
		return err
	}
	s.snapshot.Invalidate()
	all, err := s.products.GetAll(ctx)
	if err != nil {
		// The write went through; grouping will rebuild lazily on next read.
		log.Warn().Err(err).Msg("catalog: refresh readback failed")
		return nil
	}
	s.snapshot.Set(unit.BuildGroups(all), all)
	return nil
}

func (s *catalogService) Invalidate() { s.snapshot.Invalidate() }
