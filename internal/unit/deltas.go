package unit

import (
	"github.com/shopspring/decimal"

	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
)

// Operation is the direction of a stock adjustment.
type Operation string

const (
	OpDecrease Operation = "decrease" // sale
	OpIncrease Operation = "increase" // cancellation / compensation
)

// Sign returns -1 for decrease and +1 for increase as a decimal.
func (op Operation) Sign() decimal.Decimal {
	if op == OpDecrease {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

var one = decimal.NewFromInt(1)

// safeConversion guards against a zero or negative ConversionValue, which
// would otherwise divide by zero; such a variant converts 1:1.
func safeConversion(cv decimal.Decimal) decimal.Decimal {
	if cv.LessThanOrEqual(decimal.Zero) {
		return one
	}
	return cv
}

// ComputeDeltas turns invoice lines into a per-product signed OnHand delta,
// each expressed in that product's own unit (negative = decrease).
//
// For each line the quantity is first converted to the group's base unit
// (masterQty = quantity × line.ConversionValue), then propagated to every
// variant of the group as masterQty / variant.ConversionValue. A line whose
// group key is not in the index degrades to a raw delta on the line's own
// product, with no cross-unit propagation. Deltas for the same product
// accumulate across lines, so a cart holding both the box and the piece
// variant of one good sums into a single delta per variant.
func ComputeDeltas(lines []model.InvoiceLine, idx *GroupIndex, op Operation) map[int64]decimal.Decimal {
	deltas := make(map[int64]decimal.Decimal)
	sign := op.Sign()

	for _, line := range lines {
		key := line.ProductID
		if line.MasterUnitID != nil {
			key = *line.MasterUnitID
		}

		variants, ok := idx.Group(key)
		if !ok {
			deltas[line.ProductID] = deltas[line.ProductID].Add(line.Quantity.Mul(sign))
			continue
		}

		masterQty := line.Quantity.Mul(safeConversion(line.ConversionValue))
		for _, v := range variants {
			dv := masterQty.Div(safeConversion(v.ConversionValue)).Mul(sign)
			deltas[v.ID] = deltas[v.ID].Add(dv)
		}
	}

	return deltas
}
