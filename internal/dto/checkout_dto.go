package dto

import (
	"github.com/shopspring/decimal"
)

// CheckoutLine is one cart line as submitted by the terminal UI. Quantity is
// expressed in the selected product's own unit.
type CheckoutLine struct {
	ProductID int64            `json:"productId" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"required"`
	UnitPrice *decimal.Decimal `json:"unitPrice"` // nil = use catalog BasePrice
}

// CheckoutRequest is the checkout payload. DiscountAmount applies to the
// invoice total, not individual lines.
type CheckoutRequest struct {
	Lines          []CheckoutLine  `json:"lines" validate:"required,min=1,dive"`
	CustomerRef    *string         `json:"customerRef"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// CheckoutResponse reports the locally final sale. Queued=true means the
// remote push failed and the invoice now sits in the offline queue;
// OnHandSynced=true means the remote confirmed the stock effect immediately.
type CheckoutResponse struct {
	InvoiceID     string                    `json:"invoiceId"`
	Status        string                    `json:"status"`
	OnHandSynced  bool                      `json:"onHandSynced"`
	Queued        bool                      `json:"queued"`
	TotalPrice    decimal.Decimal           `json:"totalPrice"`
	TotalQuantity decimal.Decimal           `json:"totalQuantity"`
	NewOnHand     map[int64]decimal.Decimal `json:"newOnHand"`
}
