package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice status lifecycle: pending → checked, or pending → edited → checked.
// Canceled is terminal and triggers a compensating stock increase when the
// invoice had already been synced.
const (
	InvoiceStatusPending  = "pending"
	InvoiceStatusEdited   = "edited"
	InvoiceStatusChecked  = "checked"
	InvoiceStatusCanceled = "canceled"
)

// Invoice is a completed checkout. OnHandSynced flips to true only once the
// remote system of record has durably confirmed the stock effect of this
// invoice — the sale itself is final locally the moment it is created.
type Invoice struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedDate    time.Time       `gorm:"index;not null" json:"createdDate"`
	CustomerRef    *string         `json:"customerRef"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"discountAmount"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"totalPrice"`
	TotalCost      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"totalCost"`
	TotalQuantity  decimal.Decimal `gorm:"type:decimal(16,4);not null;default:0" json:"totalQuantity"`
	OnHandSynced   bool            `gorm:"not null;default:false" json:"onHandSynced"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt      time.Time       `json:"-"`
	UpdatedAt      time.Time       `json:"-"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines"`
}

// InvoiceLine snapshots the sold product at selection time. Quantity is in the
// SELECTED unit, which may differ from the group's base unit — the snapshot
// therefore carries the fields the delta engine needs (MasterUnitID and
// ConversionValue), so a replay does not depend on the live catalog.
type InvoiceLine struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"-"`
	ProductID       int64           `gorm:"index;not null" json:"productId"`
	ProductName     string          `gorm:"not null" json:"productName"`
	Unit            string          `json:"unit"`
	MasterUnitID    *int64          `json:"masterUnitId"`
	ConversionValue decimal.Decimal `gorm:"type:decimal(14,4);not null;default:1" json:"conversionValue"`
	Quantity        decimal.Decimal `gorm:"type:decimal(16,4);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unitPrice"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"totalPrice"`
}
