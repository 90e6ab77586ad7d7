package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lethieuanh89/taphoa39-sub000/internal/cache"
	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
)

// Applier writes a delta map to the local product store immediately. It sits
// on the checkout's synchronous critical path and therefore never touches the
// network and never fails the sale: an unresolvable product is dropped from
// the batch with a log line, nothing more.
type Applier struct {
	products  repository.ProductStore
	movements repository.MovementRepository
	snapshot  *cache.GroupSnapshotCache
	oos       cache.OutOfStockIndex

	// bounded retry for a store read racing the initial catalog seed
	maxAttempts int
	backoff     time.Duration
}

func NewApplier(
	products repository.ProductStore,
	movements repository.MovementRepository,
	snapshot *cache.GroupSnapshotCache,
	oos cache.OutOfStockIndex,
) *Applier {
	return &Applier{
		products:    products,
		movements:   movements,
		snapshot:    snapshot,
		oos:         oos,
		maxAttempts: 3,
		backoff:     50 * time.Millisecond,
	}
}

// Apply adds every signed delta to the product's current OnHand and writes it
// back. It returns the pre-adjustment OnHand per product (the snapshot the
// reconciler later sends as currentOnHand) and the post-adjustment values.
// Out-of-stock membership is updated as part of the same write.
func (a *Applier) Apply(
	ctx context.Context,
	deltas map[int64]decimal.Decimal,
	movementType string,
	ref *uuid.UUID,
) (pre map[int64]decimal.Decimal, post map[int64]decimal.Decimal) {
	pre = make(map[int64]decimal.Decimal, len(deltas))
	post = make(map[int64]decimal.Decimal, len(deltas))

	// Deterministic order keeps a crash mid-batch reproducible.
	ids := make([]int64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		delta := deltas[id]

		p, ok := a.resolve(ctx, id)
		if !ok {
			log.Error().Int64("product_id", id).Str("delta", delta.String()).
				Msg("applier: product unresolvable, delta dropped")
			continue
		}

		before := p.OnHand
		p.OnHand = before.Add(delta)
		if err := a.products.Put(ctx, p); err != nil {
			log.Error().Err(err).Int64("product_id", id).Msg("applier: store write failed, delta dropped")
			continue
		}

		pre[id] = before
		post[id] = p.OnHand

		a.updateOutOfStock(ctx, p)
		a.record(ctx, p.ID, movementType, delta, before, p.OnHand, ref)
	}
	return pre, post
}

// resolve reads the product with bounded retry-backoff, then falls back to
// the grouped snapshot to tolerate a store read racing a partial sync.
func (a *Applier) resolve(ctx context.Context, id int64) (*model.Product, bool) {
	var lastErr error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(a.backoff * time.Duration(attempt))
		}
		p, err := a.products.Get(ctx, id)
		if err == nil {
			return p, true
		}
		lastErr = err
	}
	if snap, ok := a.snapshot.Product(id); ok {
		log.Warn().Int64("product_id", id).Err(lastErr).
			Msg("applier: store read missed, using snapshot fallback")
		return &snap, true
	}
	return nil, false
}

func (a *Applier) updateOutOfStock(ctx context.Context, p *model.Product) {
	var err error
	if p.OutOfStock() {
		err = a.oos.Add(ctx, p.ID)
	} else {
		err = a.oos.Remove(ctx, p.ID)
	}
	if err != nil {
		log.Warn().Err(err).Int64("product_id", p.ID).Msg("applier: out-of-stock index update failed")
	}
}

func (a *Applier) record(ctx context.Context, productID int64, movementType string, qty, before, after decimal.Decimal, ref *uuid.UUID) {
	if a.movements == nil {
		return
	}
	m := &model.StockMovement{
		ProductID:    productID,
		Type:         movementType,
		Quantity:     qty,
		OnHandBefore: before,
		OnHandAfter:  after,
		ReferenceID:  ref,
	}
	if err := a.movements.Create(ctx, m); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("applier: movement record failed")
	}
}
