package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

var csvHeader = []string{"Product Code", "Description", "Quantity", "Unit", "Category", "Vendor"}

// GenerateCSV writes one row per BOQ line under a fixed header.
func GenerateCSV(data ExportData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range data.Rows {
		rec := []string{
			sanitizeExcelCell(r.ProductCode),
			sanitizeExcelCell(r.Description),
			strconv.FormatFloat(r.Qty, 'f', -1, 64),
			r.Unit,
			sanitizeExcelCell(r.Category),
			sanitizeExcelCell(r.Vendor),
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", r.Index, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
