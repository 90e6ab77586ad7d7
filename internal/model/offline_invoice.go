package model

import (
	"time"

	"github.com/google/uuid"
)

// OfflineInvoice is a queued entry in the offline-only durable store: an
// invoice whose remote push has not yet succeeded. Body is the full invoice
// document (JSON) so replay never depends on the canonical invoice table.
type OfflineInvoice struct {
	InvoiceID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Body         []byte    `gorm:"type:jsonb;not null"`
	OnHandSynced bool      `gorm:"not null;default:false"`
	Attempts     int       `gorm:"not null;default:0"`
	LastError    *string
	QueuedAt     time.Time `gorm:"index;not null"`
}

// TableName keeps the offline store visibly separate from invoices.
func (OfflineInvoice) TableName() string { return "offline_invoices" }
