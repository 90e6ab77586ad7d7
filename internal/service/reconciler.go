package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lethieuanh89/taphoa39-sub000/internal/cache"
	"github.com/lethieuanh89/taphoa39-sub000/internal/infra"
	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
	"github.com/lethieuanh89/taphoa39-sub000/internal/unit"
	"github.com/lethieuanh89/taphoa39-sub000/internal/worker"
)

// Reconciler pushes an invoice's stock effect to the remote system of record
// and pulls back its authoritative product documents. This is the single
// point where divergence caused by other terminals is resolved: every
// returned document unconditionally overwrites the local store.
type Reconciler struct {
	remote    infra.RemoteClient
	retail    infra.RetailClient
	products  repository.ProductStore
	movements repository.MovementRepository
	snapshot  *cache.GroupSnapshotCache
	oos       cache.OutOfStockIndex
	cb        *infra.CircuitBreaker
	notifier  *worker.RetryNotifier
}

func NewReconciler(
	remote infra.RemoteClient,
	retail infra.RetailClient,
	products repository.ProductStore,
	movements repository.MovementRepository,
	snapshot *cache.GroupSnapshotCache,
	oos cache.OutOfStockIndex,
	cb *infra.CircuitBreaker,
	notifier *worker.RetryNotifier,
) *Reconciler {
	return &Reconciler{
		remote:    remote,
		retail:    retail,
		products:  products,
		movements: movements,
		snapshot:  snapshot,
		oos:       oos,
		cb:        cb,
		notifier:  notifier,
	}
}

// BreakerOpen reports whether the remote side is currently fast-failing.
func (r *Reconciler) BreakerOpen() bool {
	return r.cb != nil && r.cb.State() == infra.CBOpen
}

// BreakerState exposes the breaker for the health endpoint.
func (r *Reconciler) BreakerState() string {
	if r.cb == nil {
		return "disabled"
	}
	return r.cb.State().String()
}

func (r *Reconciler) execute(fn func() error) error {
	if r.cb == nil {
		return fn()
	}
	return r.cb.Execute(fn)
}

// PushInvoice sends the invoice document through the breaker.
func (r *Reconciler) PushInvoice(ctx context.Context, inv *model.Invoice) error {
	return r.execute(func() error { return r.remote.CreateInvoice(ctx, inv) })
}

// PushInvoiceDelete asks the remote to permanently delete an invoice.
func (r *Reconciler) PushInvoiceDelete(ctx context.Context, id uuid.UUID) error {
	return r.execute(func() error { return r.remote.DeleteInvoice(ctx, id) })
}

// Reconcile recomputes the invoice's deltas against the given group index,
// builds one row per affected product from the pre-adjustment snapshot, and
// sends the batch in one remote call. On success the server's documents
// overwrite the local store (server wins) and the stock effect is mirrored,
// best-effort, to the secondary retail platform.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	inv *model.Invoice,
	idx *unit.GroupIndex,
	pre map[int64]decimal.Decimal,
	op unit.Operation,
) error {
	deltas := unit.ComputeDeltas(inv.Lines, idx, op)
	rows := r.buildRows(ctx, deltas, pre)
	if len(rows) == 0 {
		return nil
	}

	var updated []model.Product
	err := r.execute(func() error {
		var pushErr error
		updated, pushErr = r.remote.PushStockBatch(ctx, rows)
		return pushErr
	})
	if err != nil {
		return err
	}

	r.overwriteLocal(ctx, updated, inv.ID)
	r.pushRetail(ctx, updated)
	return nil
}

func (r *Reconciler) buildRows(ctx context.Context, deltas map[int64]decimal.Decimal, pre map[int64]decimal.Decimal) []infra.ReconcileRow {
	ids := make([]int64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]infra.ReconcileRow, 0, len(ids))
	for _, id := range ids {
		current, ok := pre[id]
		if !ok {
			// Snapshot misses a variant the delta engine reached (e.g. the
			// applier dropped it): read the store so the batch stays whole.
			p, err := r.products.Get(ctx, id)
			if err != nil {
				log.Warn().Int64("product_id", id).Err(err).
					Msg("reconciler: no snapshot or store value, row skipped")
				continue
			}
			current = p.OnHand
		}
		delta := deltas[id]
		rows = append(rows, infra.ReconcileRow{
			ProductID:     id,
			CurrentOnHand: current,
			Delta:         delta,
			NewOnHand:     current.Add(delta),
		})
	}
	return rows
}

// overwriteLocal applies the server's authoritative documents over whatever
// the optimistic applier wrote, recording a server_sync movement when the
// value actually moved.
func (r *Reconciler) overwriteLocal(ctx context.Context, updated []model.Product, ref uuid.UUID) {
	if len(updated) == 0 {
		return
	}
	for i := range updated {
		p := updated[i]
		var before decimal.Decimal
		if local, err := r.products.Get(ctx, p.ID); err == nil {
			before = local.OnHand
		}
		if err := r.products.Put(ctx, &p); err != nil {
			log.Error().Err(err).Int64("product_id", p.ID).
				Msg("reconciler: server overwrite failed")
			continue
		}
		if !before.Equal(p.OnHand) {
			r.recordServerSync(ctx, &p, before, ref)
		}
		var oosErr error
		if p.OutOfStock() {
			oosErr = r.oos.Add(ctx, p.ID)
		} else {
			oosErr = r.oos.Remove(ctx, p.ID)
		}
		if oosErr != nil {
			log.Warn().Err(oosErr).Int64("product_id", p.ID).
				Msg("reconciler: out-of-stock index update failed")
		}
	}
	// Local values changed under the snapshot's feet.
	r.snapshot.Invalidate()
}

func (r *Reconciler) recordServerSync(ctx context.Context, p *model.Product, before decimal.Decimal, ref uuid.UUID) {
	if r.movements == nil {
		return
	}
	refID := ref
	m := &model.StockMovement{
		ProductID:    p.ID,
		Type:         model.MovementServerSync,
		Quantity:     p.OnHand.Sub(before),
		OnHandBefore: before,
		OnHandAfter:  p.OnHand,
		ReferenceID:  &refID,
	}
	if err := r.movements.Create(ctx, m); err != nil {
		log.Warn().Err(err).Int64("product_id", p.ID).Msg("reconciler: movement record failed")
	}
}

// pushRetail mirrors the authoritative OnHand to the secondary platform.
// Failures are isolated: logged, queued on the notifier, and never allowed to
// affect the invoice or OnHand outcome.
func (r *Reconciler) pushRetail(ctx context.Context, updated []model.Product) {
	if r.retail == nil {
		return
	}
	for _, p := range updated {
		if err := r.retail.PushOnHand(ctx, p.ID, p.OnHand); err != nil {
			log.Warn().Err(err).Int64("product_id", p.ID).
				Msg("reconciler: retail push failed, queued for retry")
			if r.notifier != nil {
				price := p.BasePrice
				r.notifier.Enqueue(worker.Notification{
					ProductID: p.ID,
					OnHand:    p.OnHand,
					BasePrice: &price,
				})
			}
		}
	}
}
