package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement types. "server_sync" rows record the remote overwriting a local
// optimistic value during reconciliation.
const (
	MovementSale         = "sale"
	MovementRestock      = "restock"
	MovementCompensation = "compensation"
	MovementServerSync   = "server_sync"
)

// StockMovement records every OnHand change with before/after values.
type StockMovement struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID    int64           `gorm:"index;not null"`
	Type         string          `gorm:"type:varchar(20);not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(16,4);not null"` // signed: negative = out
	OnHandBefore decimal.Decimal `gorm:"type:decimal(16,4);not null"`
	OnHandAfter  decimal.Decimal `gorm:"type:decimal(16,4);not null"`
	Reason       string
	ReferenceID  *uuid.UUID `gorm:"type:uuid"` // invoice id when applicable
	CreatedAt    time.Time
}

// TableName overrides GORM's default pluralization.
func (StockMovement) TableName() string { return "stock_movements" }
