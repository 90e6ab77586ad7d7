package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lethieuanh89/taphoa39-sub000/internal/dto"
	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
	"github.com/lethieuanh89/taphoa39-sub000/internal/unit"
	"github.com/lethieuanh89/taphoa39-sub000/internal/worker"
)

// ErrCheckoutInFlight is returned when a second checkout starts while one is
// still running on this terminal. Per-process guard, not a cross-process lock.
var ErrCheckoutInFlight = errors.New("a checkout is already in progress")

// CheckoutService is the terminal's sale entry point. A sale, once entered by
// the cashier, is final locally: the local stock effect is applied
// synchronously and never rolled back; only the remote confirmation may lag.
type CheckoutService interface {
	Checkout(ctx context.Context, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	CancelInvoice(ctx context.Context, id uuid.UUID) error
}

type checkoutService struct {
	products   repository.ProductStore
	invoices   repository.InvoiceRepository
	offline    repository.OfflineInvoiceQueue
	catalog    CatalogService
	applier    *Applier
	reconciler *Reconciler
	dispatcher *worker.Dispatcher
	validate   *validator.Validate
	inFlight   atomic.Bool
}

func NewCheckoutService(
	products repository.ProductStore,
	invoices repository.InvoiceRepository,
	offline repository.OfflineInvoiceQueue,
	catalog CatalogService,
	applier *Applier,
	reconciler *Reconciler,
	dispatcher *worker.Dispatcher,
) CheckoutService {
	return &checkoutService{
		products:   products,
		invoices:   invoices,
		offline:    offline,
		catalog:    catalog,
		applier:    applier,
		reconciler: reconciler,
		dispatcher: dispatcher,
		validate:   validator.New(),
	}
}

func (s *checkoutService) Checkout(ctx context.Context, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInFlight
	}
	defer s.inFlight.Store(false)

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid checkout request: %w", err)
	}
	for _, line := range req.Lines {
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("product %d: quantity must be positive", line.ProductID)
		}
	}

	idx, err := s.catalog.GroupIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	inv, err := s.buildInvoice(ctx, req)
	if err != nil {
		return nil, err
	}

	// Optimistic local apply — synchronous, never waits on network.
	deltas := unit.ComputeDeltas(inv.Lines, idx, unit.OpDecrease)
	pre, post := s.applier.Apply(ctx, deltas, model.MovementSale, &inv.ID)

	if err := s.invoices.Create(ctx, inv); err != nil {
		// The stock effect is already applied; losing the sale is the one
		// thing this flow must never do.
		return nil, fmt.Errorf("persist invoice: %w", err)
	}

	queued := false
	if pushErr := s.reconciler.PushInvoice(ctx, inv); pushErr != nil {
		// Offline or remote error: queue for replay, stock stays as applied.
		queued = true
		if qErr := s.offline.Enqueue(ctx, inv); qErr != nil {
			log.Error().Err(qErr).Str("invoice_id", inv.ID.String()).
				Msg("checkout: offline enqueue failed, invoice remains unsynced")
		}
		log.Warn().Err(pushErr).Str("invoice_id", inv.ID.String()).
			Msg("checkout: remote push failed, invoice queued")
	} else if recErr := s.reconciler.Reconcile(ctx, inv, idx, pre, unit.OpDecrease); recErr != nil {
		// Invoice accepted, stock batch failed: OnHandSynced stays false and
		// the sync pass picks it up without re-pushing the invoice.
		log.Warn().Err(recErr).Str("invoice_id", inv.ID.String()).
			Msg("checkout: stock batch failed, reconcile deferred")
	} else {
		inv.OnHandSynced = true
		inv.Status = model.InvoiceStatusChecked
		if err := s.invoices.SetOnHandSynced(ctx, inv.ID, true); err != nil {
			log.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("checkout: flag update failed")
		}
		if err := s.invoices.SetStatus(ctx, inv.ID, model.InvoiceStatusChecked); err != nil {
			log.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("checkout: status update failed")
		}
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueReceipt(ctx, inv.ID); err != nil {
			log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("checkout: receipt enqueue failed")
		}
	}

	return &dto.CheckoutResponse{
		InvoiceID:     inv.ID.String(),
		Status:        inv.Status,
		OnHandSynced:  inv.OnHandSynced,
		Queued:        queued,
		TotalPrice:    inv.TotalPrice,
		TotalQuantity: inv.TotalQuantity,
		NewOnHand:     post,
	}, nil
}

func (s *checkoutService) buildInvoice(ctx context.Context, req dto.CheckoutRequest) (*model.Invoice, error) {
	inv := &model.Invoice{
		ID:             uuid.New(),
		CreatedDate:    time.Now().UTC(),
		CustomerRef:    req.CustomerRef,
		DiscountAmount: req.DiscountAmount,
		Status:         model.InvoiceStatusPending,
	}

	for _, line := range req.Lines {
		p, err := s.products.Get(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %d not found", line.ProductID)
		}
		if !p.Active {
			return nil, fmt.Errorf("product %q is inactive and cannot be sold", p.Name)
		}

		unitPrice := p.BasePrice
		if line.UnitPrice != nil {
			unitPrice = *line.UnitPrice
		}
		total := unitPrice.Mul(line.Quantity)

		inv.Lines = append(inv.Lines, model.InvoiceLine{
			ID:              uuid.New(),
			InvoiceID:       inv.ID,
			ProductID:       p.ID,
			ProductName:     p.Name,
			Unit:            p.Unit,
			MasterUnitID:    p.MasterUnitID,
			ConversionValue: p.ConversionValue,
			Quantity:        line.Quantity,
			UnitPrice:       unitPrice,
			TotalPrice:      total,
		})

		inv.TotalPrice = inv.TotalPrice.Add(total)
		inv.TotalCost = inv.TotalCost.Add(p.Cost.Mul(line.Quantity))
		inv.TotalQuantity = inv.TotalQuantity.Add(line.Quantity)
	}

	inv.TotalPrice = inv.TotalPrice.Sub(req.DiscountAmount)
	return inv, nil
}

// CancelInvoice flips the invoice to canceled and restores stock with a
// compensating increase computed against the LIVE catalog — the original
// snapshot is stale by now. When the invoice was already synced, the remote
// deletion and a fresh reconcile follow; the local row is deleted only once
// the remote confirms.
func (s *checkoutService) CancelInvoice(ctx context.Context, id uuid.UUID) error {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status == model.InvoiceStatusCanceled {
		return errors.New("invoice is already canceled")
	}

	idx, err := s.catalog.GroupIndex(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	deltas := unit.ComputeDeltas(inv.Lines, idx, unit.OpIncrease)
	pre, _ := s.applier.Apply(ctx, deltas, model.MovementCompensation, &inv.ID)

	if err := s.invoices.SetStatus(ctx, id, model.InvoiceStatusCanceled); err != nil {
		return err
	}
	// A queued, never-synced invoice must not replay after cancellation.
	if err := s.offline.Remove(ctx, id); err != nil {
		log.Warn().Err(err).Str("invoice_id", id.String()).Msg("cancel: offline dequeue failed")
	}

	if !inv.OnHandSynced {
		return nil
	}

	if err := s.reconciler.PushInvoiceDelete(ctx, id); err != nil {
		log.Warn().Err(err).Str("invoice_id", id.String()).
			Msg("cancel: remote delete failed, local stock already restored")
		return nil
	}
	if err := s.reconciler.Reconcile(ctx, inv, idx, pre, unit.OpIncrease); err != nil {
		log.Warn().Err(err).Str("invoice_id", id.String()).
			Msg("cancel: compensation batch failed, will stay local-only")
		return nil
	}
	if err := s.invoices.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("invoice_id", id.String()).Msg("cancel: local delete failed")
	}
	return nil
}
