package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lethieuanh89/taphoa39-sub000/internal/infra"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
)

// ReceiptRenderer renders receipt PDFs off the checkout path.
type ReceiptRenderer struct {
	invoices    repository.InvoiceRepository
	storagePath string
}

func NewReceiptRenderer(invoices repository.InvoiceRepository, storagePath string) *ReceiptRenderer {
	return &ReceiptRenderer{invoices: invoices, storagePath: storagePath}
}

func (r *ReceiptRenderer) Render(ctx context.Context, invoiceID uuid.UUID) error {
	inv, err := r.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	path, err := infra.GenerateReceiptPDF(inv, r.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("invoice_id", invoiceID.String()).Str("path", path).Msg("receipt rendered")
	return nil
}
