package analytics

import (
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

const (
	sheetReceipts   = "Receipts"
	sheetItems      = "Items"
	sheetCategories = "Categories"
)

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func (w *sheetWriter) writeRow(values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, w.row)
		_ = w.f.SetCellValue(w.sheet, cell, v)
	}
	w.row++
}

// ExportXLSX builds a workbook with one row per receipt, one per item and
// the category totals.
func ExportXLSX(receipts []*receipt.Receipt) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with Sheet1; rename it instead of leaving it empty.
	if err := f.SetSheetName("Sheet1", sheetReceipts); err != nil {
		return nil, eris.Wrap(err, "analytics: rename sheet")
	}
	for _, name := range []string{sheetItems, sheetCategories} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, eris.Wrapf(err, "analytics: create sheet %s", name)
		}
	}

	rw := &sheetWriter{f: f, sheet: sheetReceipts, row: 1}
	rw.writeRow("Date", "Store", "Chain", "Subtotal", "Tax", "Total", "Items", "Payment", "Receipt ID")

	iw := &sheetWriter{f: f, sheet: sheetItems, row: 1}
	iw.writeRow("Date", "Store", "Line", "Item", "Code", "Brand", "Size", "Category", "Quantity", "Unit Price", "Total Price", "Discount", "Confidence", "Receipt ID")

	for _, r := range receipts {
		rw.writeRow(r.Date, r.StoreName, r.StoreChain, r.Subtotal, r.Tax, receiptTotal(r), len(r.Items), r.Payment.Method, r.ID)
		for _, item := range r.Items {
			iw.writeRow(
				r.Date,
				r.StoreName,
				item.LineNumber,
				item.Name,
				item.Code,
				item.Brand,
				item.Size,
				itemCategory(item),
				item.Quantity,
				item.UnitPrice,
				item.TotalPrice,
				item.IsDiscount,
				item.Confidence.String(),
				r.ID,
			)
		}
	}

	cw := &sheetWriter{f: f, sheet: sheetCategories, row: 1}
	cw.writeRow("Category", "Total", "Items", "Share")
	for _, ct := range CategoryTotals(receipts) {
		cw.writeRow(ct.Category, ct.Total, ct.ItemCount, ct.Share)
	}

	_ = f.SetColWidth(sheetReceipts, "A", "A", 12)
	_ = f.SetColWidth(sheetReceipts, "B", "B", 28)
	_ = f.SetColWidth(sheetReceipts, "I", "I", 38)
	_ = f.SetColWidth(sheetItems, "D", "D", 36)
	_ = f.SetColWidth(sheetItems, "H", "H", 16)
	_ = f.SetColWidth(sheetCategories, "A", "A", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, eris.Wrap(err, "analytics: xlsx write")
	}
	return buf.Bytes(), nil
}
