package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lethieuanh89/taphoa39-sub000/internal/dto"
	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
	"github.com/lethieuanh89/taphoa39-sub000/internal/unit"
)

// SyncService replays queued invoices against the remote system of record.
// Replay is strictly sequential: concurrent batches could double-count a
// product shared across invoices, and snapshot-then-push stays trivially
// correct one invoice at a time.
type SyncService interface {
	Sync(ctx context.Context) (*dto.SyncResult, error)
	// SyncPending is the worker-facing wrapper around Sync.
	SyncPending(ctx context.Context) (attempted, synced int, err error)
	ListQueue(ctx context.Context) ([]dto.QueueEntry, error)
}

type syncService struct {
	offline    repository.OfflineInvoiceQueue
	invoices   repository.InvoiceRepository
	products   repository.ProductStore
	catalog    CatalogService
	reconciler *Reconciler
}

func NewSyncService(
	offline repository.OfflineInvoiceQueue,
	invoices repository.InvoiceRepository,
	products repository.ProductStore,
	catalog CatalogService,
	reconciler *Reconciler,
) SyncService {
	return &syncService{
		offline:    offline,
		invoices:   invoices,
		products:   products,
		catalog:    catalog,
		reconciler: reconciler,
	}
}

func (s *syncService) Sync(ctx context.Context) (*dto.SyncResult, error) {
	result := &dto.SyncResult{}

	entries, err := s.offline.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		if s.reconciler.BreakerOpen() {
			log.Debug().Msg("sync: circuit breaker opened mid-pass, stopping")
			break
		}
		entry := &entries[i]
		result.Attempted++
		if err := s.replay(ctx, entry); err != nil {
			msg := err.Error()
			result.Errors = append(result.Errors, entry.InvoiceID.String()+": "+msg)
			if mErr := s.offline.MarkAttempt(ctx, entry.InvoiceID, err); mErr != nil {
				log.Warn().Err(mErr).Str("invoice_id", entry.InvoiceID.String()).
					Msg("sync: attempt bookkeeping failed")
			}
			continue
		}
		result.Synced++
	}

	s.reconcileUnsynced(ctx, result)

	remaining, err := s.offline.Len(ctx)
	if err == nil {
		result.Remaining = int(remaining)
	}
	return result, nil
}

// replay pushes one queued invoice: invoice document first, then the stock
// batch computed from a FRESH pre-adjustment snapshot read now — the snapshot
// taken at checkout time is stale and was never persisted.
func (s *syncService) replay(ctx context.Context, entry *model.OfflineInvoice) error {
	inv, err := repository.DecodeOfflineInvoice(entry)
	if err != nil {
		return err
	}

	idx, err := s.catalog.GroupIndex(ctx)
	if err != nil {
		return err
	}

	if err := s.reconciler.PushInvoice(ctx, inv); err != nil {
		return err
	}

	deltas := unit.ComputeDeltas(inv.Lines, idx, unit.OpDecrease)
	pre := s.snapshotFromStore(ctx, deltas)
	if err := s.reconciler.Reconcile(ctx, inv, idx, pre, unit.OpDecrease); err != nil {
		return err
	}

	if err := s.offline.Remove(ctx, entry.InvoiceID); err != nil {
		log.Warn().Err(err).Str("invoice_id", entry.InvoiceID.String()).
			Msg("sync: dequeue after success failed")
	}
	s.markSynced(ctx, inv)
	return nil
}

// reconcileUnsynced retries canonical invoices whose document reached the
// remote but whose stock batch did not (they are not in the offline queue).
func (s *syncService) reconcileUnsynced(ctx context.Context, result *dto.SyncResult) {
	invoices, err := s.invoices.ListUnsynced(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("sync: unsynced listing failed")
		return
	}
	queued := s.queuedIDs(ctx)

	for i := range invoices {
		if s.reconciler.BreakerOpen() {
			return
		}
		inv := &invoices[i]
		if _, inQueue := queued[inv.ID.String()]; inQueue {
			continue // the replay loop owns these
		}
		result.Attempted++

		idx, err := s.catalog.GroupIndex(ctx)
		if err != nil {
			result.Errors = append(result.Errors, inv.ID.String()+": "+err.Error())
			continue
		}
		deltas := unit.ComputeDeltas(inv.Lines, idx, unit.OpDecrease)
		pre := s.snapshotFromStore(ctx, deltas)
		if err := s.reconciler.Reconcile(ctx, inv, idx, pre, unit.OpDecrease); err != nil {
			result.Errors = append(result.Errors, inv.ID.String()+": "+err.Error())
			continue
		}
		s.markSynced(ctx, inv)
		result.Synced++
	}
}

func (s *syncService) queuedIDs(ctx context.Context) map[string]struct{} {
	ids := make(map[string]struct{})
	entries, err := s.offline.List(ctx)
	if err != nil {
		return ids
	}
	for _, e := range entries {
		ids[e.InvoiceID.String()] = struct{}{}
	}
	return ids
}

// snapshotFromStore reads the current OnHand for every product a delta map
// touches. A missing product contributes a zero snapshot row.
func (s *syncService) snapshotFromStore(ctx context.Context, deltas map[int64]decimal.Decimal) map[int64]decimal.Decimal {
	pre := make(map[int64]decimal.Decimal, len(deltas))
	for id := range deltas {
		p, err := s.products.Get(ctx, id)
		if err != nil {
			log.Warn().Int64("product_id", id).Err(err).
				Msg("sync: snapshot read missed, using zero")
			pre[id] = decimal.Zero
			continue
		}
		pre[id] = p.OnHand
	}
	return pre
}

func (s *syncService) markSynced(ctx context.Context, inv *model.Invoice) {
	if err := s.invoices.SetOnHandSynced(ctx, inv.ID, true); err != nil {
		// Not found: crash between apply and invoice persist — recreate.
		inv.OnHandSynced = true
		inv.Status = model.InvoiceStatusChecked
		if cErr := s.invoices.Create(ctx, inv); cErr != nil {
			log.Error().Err(cErr).Str("invoice_id", inv.ID.String()).
				Msg("sync: canonical invoice restore failed")
		}
		return
	}
	if err := s.invoices.SetStatus(ctx, inv.ID, model.InvoiceStatusChecked); err != nil {
		log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("sync: status update failed")
	}
}

// SyncPending adapts Sync to the worker cron's narrow interface.
func (s *syncService) SyncPending(ctx context.Context) (int, int, error) {
	result, err := s.Sync(ctx)
	if err != nil {
		return 0, 0, err
	}
	return result.Attempted, result.Synced, nil
}

func (s *syncService) ListQueue(ctx context.Context) ([]dto.QueueEntry, error) {
	entries, err := s.offline.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.QueueEntry, 0, len(entries))
	for _, e := range entries {
		item := dto.QueueEntry{
			InvoiceID:    e.InvoiceID.String(),
			OnHandSynced: e.OnHandSynced,
			Attempts:     e.Attempts,
			QueuedAt:     e.QueuedAt.Format("2006-01-02T15:04:05Z"),
		}
		if e.LastError != nil {
			item.LastError = *e.LastError
		}
		out = append(out, item)
	}
	return out, nil
}
