package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one sellable unit variant of a physical good.
// A "box" and a "piece" of the same good are two Product rows sharing one
// physical stock. MasterUnitID non-nil means this row is a variant whose
// stock is owned by the product it points at; ConversionValue converts a
// quantity in this unit into the group's base unit.
type Product struct {
	ID              int64  `gorm:"primaryKey" json:"Id"`
	Name            string `gorm:"index;not null" json:"ProductName"`
	Barcode         string `gorm:"index" json:"Barcode"`
	MasterProductID *int64 `gorm:"index" json:"MasterProductId"`
	MasterUnitID    *int64 `gorm:"index" json:"MasterUnitId"`
	// ConversionValue must be positive; 0 is guarded at computation time.
	ConversionValue decimal.Decimal `gorm:"type:decimal(14,4);not null;default:1" json:"ConversionValue"`
	// OnHand is expressed in THIS variant's own unit.
	OnHand    decimal.Decimal `gorm:"type:decimal(16,4);not null;default:0" json:"OnHand"`
	BasePrice decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"BasePrice"`
	Cost      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"Cost"`
	Unit      string          `gorm:"not null;default:'unit'" json:"Unit"`
	Active    bool            `gorm:"not null;default:true" json:"Active"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

// GroupKey returns the unit-group key this product belongs to:
// the owning master's id for a variant, otherwise the product's own id.
func (p *Product) GroupKey() int64 {
	if p.MasterUnitID != nil {
		return *p.MasterUnitID
	}
	return p.ID
}

// OutOfStock reports whether the variant has no sellable stock left.
func (p *Product) OutOfStock() bool {
	return p.OnHand.LessThanOrEqual(decimal.Zero)
}
