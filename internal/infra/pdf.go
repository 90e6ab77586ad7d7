package infra

// Receipt PDF rendering. Runs in the worker pool after checkout — never on
// the cashier's critical path. Output: storagePath/receipt_{invoice_id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
)

// GenerateReceiptPDF renders a thermal-style A7 receipt for an invoice and
// returns the path of the generated file.
func GenerateReceiptPDF(inv *model.Invoice, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("receipt_%s.pdf", inv.ID))

	// 74mm × 105mm ≈ thermal receipt paper
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, "Tap Hoa 39", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Sales Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(contentW, 4, inv.ID.String(), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, inv.CreatedDate.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 7)
	for _, line := range inv.Lines {
		name := line.ProductName
		if len(name) > 26 {
			name = name[:26]
		}
		pdf.CellFormat(contentW*0.55, 4, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.15, 4, line.Quantity.String()+" "+line.Unit, "", 0, "R", false, 0, "")
		pdf.CellFormat(contentW*0.30, 4, line.TotalPrice.StringFixed(0), "", 1, "R", false, 0, "")
	}
	pdf.Ln(1)

	if inv.DiscountAmount.GreaterThan(decimal.Zero) {
		pdf.CellFormat(contentW*0.70, 4, "Discount", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.30, 4, "-"+inv.DiscountAmount.StringFixed(0), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW*0.50, 6, "TOTAL", "T", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.50, 6, inv.TotalPrice.StringFixed(0), "T", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}
