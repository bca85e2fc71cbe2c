package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// TemplateField describes one column of the radio-plan row import template.
type TemplateField struct {
	Key          string // RawCellRecord field key
	Label        string // header shown in the sheet
	Description  string
	ExampleValue string
	Numeric      bool
	Required     bool
}

// CellTemplateFields returns the ordered import columns.
func CellTemplateFields() []TemplateField {
	return []TemplateField{
		{Key: "cell_id", Label: "Cell ID", Description: "Site id + cell suffix; last character is the sector letter", ExampleValue: "MOR00123L18A", Required: true},
		{Key: "technology", Label: "Technology", Description: "LTE or NR", ExampleValue: "LTE", Required: true},
		{Key: "antenna_type", Label: "Antenna Type", Description: "Antenna product code", ExampleValue: "RRZZ-65B-R4N39-V1"},
		{Key: "height", Label: "Height", Description: "Antenna height (m)", ExampleValue: "32", Numeric: true},
		{Key: "azimuth", Label: "Azimuth", Description: "Sector azimuth (degrees)", ExampleValue: "120", Numeric: true},
		{Key: "m_tilt", Label: "M-Tilt", Description: "Mechanical tilt (degrees)", ExampleValue: "2", Numeric: true},
		{Key: "e_tilt", Label: "E-Tilt", Description: "Electrical tilt (degrees)", ExampleValue: "4", Numeric: true},
		{Key: "feed_length", Label: "Feed Length", Description: "Feeder length (m)", ExampleValue: "12", Numeric: true},
		{Key: "cable_type", Label: "Cable Type", Description: "Feeder cable type", ExampleValue: "1/2\""},
		{Key: "jumpers", Label: "Jumpers", Description: "Jumper length, e.g. \"6 m\"", ExampleValue: "6 m"},
	}
}

// ValidationError represents a single field-level error on one row.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ImportResult is returned after parsing an uploaded radio-plan table.
type ImportResult struct {
	TotalRows int               `json:"totalRows"`
	ValidRows int               `json:"validRows"`
	ErrorRows int               `json:"errorRows"`
	Errors    []ValidationError `json:"errors"`
	Cells     []RawCellRecord   `json:"cells"`
	Ignored   []string          `json:"ignoredColumns,omitempty"`
}

// parseCSV reads a CSV file and returns headers + data rows.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(allRows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return allRows[0], allRows[1:], nil
}

// parseExcel reads an xlsx file and returns headers + data rows from the first sheet.
func parseExcel(file io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return rows[0], rows[1:], nil
}

// mapHeadersToFields maps uploaded column headers to TemplateField keys.
// Returns ordered list of field keys (one per column) and any unrecognized columns.
func mapHeadersToFields(headers []string, fields []TemplateField) ([]string, []string) {
	labelToKey := make(map[string]string, len(fields))
	for _, f := range fields {
		labelToKey[normalizeHeader(f.Label)] = f.Key
		labelToKey[normalizeHeader(f.Key)] = f.Key
	}

	mapped := make([]string, len(headers))
	var unrecognized []string
	for i, h := range headers {
		norm := normalizeHeader(strings.TrimSuffix(strings.TrimSpace(h), " *"))
		if key, ok := labelToKey[norm]; ok {
			mapped[i] = key
		} else {
			unrecognized = append(unrecognized, h)
		}
	}
	return mapped, unrecognized
}

// normalizeHeader lowercases and drops separators so "M-Tilt", "m_tilt"
// and "MTilt" compare equal.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// ImportCells parses a CSV or XLSX table of typed radio-plan rows. The file
// name selects the parser. Rows with errors are reported and skipped.
func ImportCells(file io.Reader, fileName string) (*ImportResult, error) {
	var headers []string
	var dataRows [][]string
	var err error

	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		headers, dataRows, err = parseCSV(file)
	case strings.HasSuffix(lower, ".xlsx"):
		headers, dataRows, err = parseExcel(file)
	default:
		return nil, fmt.Errorf("unsupported file format: must be .csv or .xlsx")
	}
	if err != nil {
		return nil, err
	}

	fields := CellTemplateFields()
	columnKeys, unrecognized := mapHeadersToFields(headers, fields)

	result := &ImportResult{TotalRows: len(dataRows), Ignored: unrecognized}
	byKey := make(map[string]TemplateField, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	for rowIdx, row := range dataRows {
		rowNum := rowIdx + 2 // 1-indexed, +1 for header row
		values := make(map[string]string)
		for colIdx, key := range columnKeys {
			if key == "" || colIdx >= len(row) {
				continue
			}
			values[key] = strings.TrimSpace(row[colIdx])
		}

		var rowErrors []ValidationError
		for _, f := range fields {
			if f.Required && values[f.Key] == "" {
				rowErrors = append(rowErrors, ValidationError{Row: rowNum, Field: f.Label, Message: f.Label + " is required"})
			}
		}

		cell := RawCellRecord{
			CellID:      values["cell_id"],
			Technology:  strings.ToUpper(values["technology"]),
			AntennaType: values["antenna_type"],
			CableType:   values["cable_type"],
			Jumpers:     values["jumpers"],
		}
		numeric := []struct {
			key string
			dst **float64
		}{
			{"height", &cell.Height},
			{"azimuth", &cell.Azimuth},
			{"m_tilt", &cell.MTilt},
			{"e_tilt", &cell.ETilt},
			{"feed_length", &cell.FeedLength},
		}
		for _, n := range numeric {
			key, dst := n.key, n.dst
			raw := values[key]
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
			if err != nil {
				rowErrors = append(rowErrors, ValidationError{Row: rowNum, Field: byKey[key].Label, Message: fmt.Sprintf("%q is not a number", raw)})
				continue
			}
			*dst = &v
		}

		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorRows++
			continue
		}
		result.Cells = append(result.Cells, cell)
	}
	result.ValidRows = result.TotalRows - result.ErrorRows
	return result, nil
}

// GenerateCellTemplate creates a downloadable .xlsx import template.
func GenerateCellTemplate() ([]byte, error) {
	fields := CellTemplateFields()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Radio Plan"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	requiredHeaderStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1D4ED8"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	optionalHeaderStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#6B7280"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	columns := columnLetters(len(fields))
	for i, field := range fields {
		cell := columns[i] + "1"
		header := field.Label
		style := optionalHeaderStyle
		if field.Required {
			header += " *"
			style = requiredHeaderStyle
		}
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, style)
		f.SetCellValue(sheetName, columns[i]+"2", field.ExampleValue)

		width := float64(len(field.Label)) * 1.3
		if width < 15 {
			width = 15
		}
		f.SetColWidth(sheetName, columns[i], columns[i], width)

		if field.Key == "technology" {
			dv := excelize.NewDataValidation(true)
			dv.Sqref = fmt.Sprintf("%s2:%s1048576", columns[i], columns[i])
			if err := dv.SetDropList(TechnologyOptions); err == nil {
				f.AddDataValidation(sheetName, dv)
			}
		}
	}

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel template: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateErrorReport creates a downloadable .xlsx file from validation errors.
func GenerateErrorReport(errors []ValidationError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Errors"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DC2626"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})

	f.SetCellValue(sheet, "A1", "Row #")
	f.SetCellValue(sheet, "B1", "Field")
	f.SetCellValue(sheet, "C1", "Error")
	f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 55)

	for i, e := range errors {
		row := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheet, "A"+row, e.Row)
		f.SetCellValue(sheet, "B"+row, e.Field)
		f.SetCellValue(sheet, "C"+row, sanitizeExcelCell(e.Message))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write error report: %w", err)
	}
	return buf.Bytes(), nil
}

// columnLetters returns Excel column letters for n columns: A, B, ... Z, AA, AB ...
func columnLetters(n int) []string {
	cols := make([]string, n)
	for i := 0; i < n; i++ {
		name, _ := excelize.ColumnNumberToName(i + 1)
		cols[i] = name
	}
	return cols
}
