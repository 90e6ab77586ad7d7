// Package unit holds the pure multi-unit computations: grouping products that
// share one physical stock, and turning cart lines into per-variant OnHand
// deltas. Nothing in this package performs I/O.
package unit

import (
	"github.com/rs/zerolog/log"

	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
)

// GroupIndex maps a group key (a master product's own id, or the MasterUnitID
// shared by its variants) to the ordered variants sharing one physical stock.
// It is rebuilt wholesale on every catalog refresh, never patched in place.
type GroupIndex struct {
	groups map[int64][]model.Product
}

// BuildGroups constructs the index from a flat catalog in three passes:
//
//  1. products with MasterProductID set and MasterUnitID unset anchor a group
//     keyed by their own id;
//  2. products with neither field set also anchor a group keyed by their own
//     id (a standalone product with no parent);
//  3. products with both fields set are variants, appended to the group keyed
//     by their MasterUnitID — but only when that group already exists.
//
// A variant whose MasterUnitID matches no anchor is left ungrouped. The
// downstream delta engine then falls back to applying the raw line quantity
// to that product alone, so the asymmetry between passes 1 and 2 is
// load-bearing and kept as-is.
func BuildGroups(products []model.Product) *GroupIndex {
	groups := make(map[int64][]model.Product)

	for _, p := range products {
		if p.MasterProductID != nil && p.MasterUnitID == nil {
			groups[p.ID] = append(groups[p.ID], p)
		}
	}
	for _, p := range products {
		if p.MasterProductID == nil && p.MasterUnitID == nil {
			groups[p.ID] = append(groups[p.ID], p)
		}
	}
	for _, p := range products {
		if p.MasterProductID == nil || p.MasterUnitID == nil {
			continue
		}
		key := *p.MasterUnitID
		if _, ok := groups[key]; !ok {
			log.Debug().
				Int64("product_id", p.ID).
				Int64("master_unit_id", key).
				Msg("unit: variant references unknown anchor, left ungrouped")
			continue
		}
		groups[key] = append(groups[key], p)
	}

	return &GroupIndex{groups: groups}
}

// Group returns the ordered variants for a group key.
func (g *GroupIndex) Group(key int64) ([]model.Product, bool) {
	variants, ok := g.groups[key]
	return variants, ok
}

// Len returns the number of groups.
func (g *GroupIndex) Len() int { return len(g.groups) }

// Products returns every grouped product keyed by its own id. Variants left
// ungrouped by BuildGroups are absent.
func (g *GroupIndex) Products() map[int64]model.Product {
	out := make(map[int64]model.Product)
	for _, variants := range g.groups {
		for _, v := range variants {
			out[v.ID] = v
		}
	}
	return out
}
