package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
)

// InvoiceRepository is the canonical local invoice store. Rows here are the
// sale of record from the terminal's perspective; only OnHandSynced and
// Status mutate after creation.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	ListByDate(ctx context.Context, from, to time.Time) ([]model.Invoice, error)
	ListUnsynced(ctx context.Context) ([]model.Invoice, error)
	SetOnHandSynced(ctx context.Context, id uuid.UUID, synced bool) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Preload("Lines").First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) ListByDate(ctx context.Context, from, to time.Time) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).Preload("Lines").
		Where("created_date >= ? AND created_date < ?", from, to).
		Order("created_date").Find(&invoices).Error
	return invoices, err
}

// ListUnsynced covers the edge where the remote accepted the invoice but the
// stock batch failed: the row is not in the offline queue yet still needs a
// reconcile retry.
func (r *invoiceRepo) ListUnsynced(ctx context.Context) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).Preload("Lines").
		Where("on_hand_synced = false AND status <> ?", model.InvoiceStatusCanceled).
		Order("created_date").Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) SetOnHandSynced(ctx context.Context, id uuid.UUID, synced bool) error {
	return r.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ?", id).Update("on_hand_synced", synced).Error
}

func (r *invoiceRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ?", id).Update("status", status).Error
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Select("Lines").Delete(&model.Invoice{ID: id}).Error
}
