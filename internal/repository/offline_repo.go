package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
)

// OfflineInvoiceQueue is the durable offline-only store of invoices whose
// remote push has not succeeded. Replay reads entries in queue order and
// removes them once the remote confirms both the invoice and its stock batch.
type OfflineInvoiceQueue interface {
	Enqueue(ctx context.Context, inv *model.Invoice) error
	List(ctx context.Context) ([]model.OfflineInvoice, error)
	MarkAttempt(ctx context.Context, invoiceID uuid.UUID, attemptErr error) error
	Remove(ctx context.Context, invoiceID uuid.UUID) error
	Len(ctx context.Context) (int64, error)
}

type offlineQueue struct{ db *gorm.DB }

func NewOfflineInvoiceQueue(db *gorm.DB) OfflineInvoiceQueue { return &offlineQueue{db: db} }

func (q *offlineQueue) Enqueue(ctx context.Context, inv *model.Invoice) error {
	body, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("offline queue: marshal invoice: %w", err)
	}
	entry := model.OfflineInvoice{
		InvoiceID: inv.ID,
		Body:      body,
		QueuedAt:  time.Now().UTC(),
	}
	// Re-queuing the same invoice is a no-op, keeping enqueue idempotent.
	return q.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "invoice_id"}}, DoNothing: true}).
		Create(&entry).Error
}

func (q *offlineQueue) List(ctx context.Context) ([]model.OfflineInvoice, error) {
	var entries []model.OfflineInvoice
	err := q.db.WithContext(ctx).Order("queued_at").Find(&entries).Error
	return entries, err
}

func (q *offlineQueue) MarkAttempt(ctx context.Context, invoiceID uuid.UUID, attemptErr error) error {
	updates := map[string]interface{}{"attempts": gorm.Expr("attempts + 1")}
	if attemptErr != nil {
		msg := attemptErr.Error()
		updates["last_error"] = msg
	}
	return q.db.WithContext(ctx).Model(&model.OfflineInvoice{}).
		Where("invoice_id = ?", invoiceID).Updates(updates).Error
}

func (q *offlineQueue) Remove(ctx context.Context, invoiceID uuid.UUID) error {
	return q.db.WithContext(ctx).Delete(&model.OfflineInvoice{}, "invoice_id = ?", invoiceID).Error
}

func (q *offlineQueue) Len(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&model.OfflineInvoice{}).Count(&n).Error
	return n, err
}

// DecodeOfflineInvoice unpacks a queued entry back into the invoice document.
func DecodeOfflineInvoice(entry *model.OfflineInvoice) (*model.Invoice, error) {
	if len(entry.Body) == 0 {
		return nil, errors.New("offline queue: empty body")
	}
	var inv model.Invoice
	if err := json.Unmarshal(entry.Body, &inv); err != nil {
		return nil, fmt.Errorf("offline queue: decode invoice %s: %w", entry.InvoiceID, err)
	}
	return &inv, nil
}
