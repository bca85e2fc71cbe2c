package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/xuri/excelize/v2"
)

// Workbook layout of the operator BoQ template. Rows are 1-indexed.
const (
	catalogDataStartRow = 11

	colProductCode = 1 // B
	colDescription = 2 // C
	colComments    = 4 // E
	colOrderHints  = 7 // H
	colCategory    = 8 // I
	colSubcategory = 9 // J
	colSourceOrder = 10 // K
	colVendor      = 11 // L
)

// catalogSheets maps template sheet names to a fixed section. An empty
// section means the section comes from the source-of-ordering column.
var catalogSheets = []struct {
	Name    string
	Section string
}{
	{"BoQ", ""},
	{"BoM Griptel", SectionGriptel},
	{"BoM Solar", SectionSolar},
}

var skipProductCodes = map[string]bool{"MATERIAL PROVIDED BY SUBCO": true}

// CatalogImportStats counts imported rows per section.
type CatalogImportStats struct {
	Sections map[string]int `json:"sections"`
	Skipped  int            `json:"skipped"`
}

// ImportCatalogWorkbook reads the BoQ template workbook. Missing sheets are
// ignored; a workbook with none of them is an error.
func ImportCatalogWorkbook(r io.Reader) ([]CatalogEntry, CatalogImportStats, error) {
	stats := CatalogImportStats{Sections: make(map[string]int)}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, stats, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer f.Close()

	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}

	var entries []CatalogEntry
	found := false
	for _, sh := range catalogSheets {
		if !present[sh.Name] {
			continue
		}
		found = true
		rows, err := f.GetRows(sh.Name)
		if err != nil {
			return nil, stats, fmt.Errorf("read sheet %q: %w", sh.Name, err)
		}
		for i := catalogDataStartRow - 1; i < len(rows); i++ {
			row := rows[i]
			code := cellAt(row, colProductCode)
			if code == "" {
				continue
			}
			if skipProductCodes[code] {
				stats.Skipped++
				continue
			}
			section := sh.Section
			if section == "" {
				section = SectionProduct
				if strings.EqualFold(cellAt(row, colSourceOrder), "TI contractor") {
					section = SectionService
				}
			}
			entries = append(entries, CatalogEntry{
				ProductCode:   code,
				Description:   cellAt(row, colDescription),
				Comments:      cellAt(row, colComments),
				OrderingHints: cellAt(row, colOrderHints),
				Category:      cellAt(row, colCategory),
				Subcategory:   cellAt(row, colSubcategory),
				Vendor:        cellAt(row, colVendor),
				Section:       section,
				SheetName:     sh.Name,
				RowIndex:      i + 1,
			})
			stats.Sections[section]++
		}
	}
	if !found {
		return nil, stats, fmt.Errorf("catalog workbook has none of the expected sheets (BoQ, BoM Griptel, BoM Solar)")
	}
	return entries, stats, nil
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// DefaultCatalogEntries returns the built-in entries for every product code
// the rules know a description for.
func DefaultCatalogEntries() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(defaultDescriptions))
	for code, desc := range defaultDescriptions {
		section, category := SectionProduct, categorySystemModule
		switch {
		case isServiceCode(code):
			section, category = SectionService, categoryServiceItems
		case strings.HasPrefix(code, "SM-"):
			category = categoryMounting
		}
		entries = append(entries, CatalogEntry{
			ProductCode: code,
			Description: desc,
			Category:    category,
			Section:     section,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ProductCode < entries[j].ProductCode })
	return entries
}

func isServiceCode(code string) bool {
	return strings.HasPrefix(code, "ice_")
}

// CatalogStore is a Catalog whose contents can be swapped while
// controllers read it.
type CatalogStore struct {
	v atomic.Pointer[MapCatalog]
}

// NewCatalogStore creates a store holding entries.
func NewCatalogStore(entries []CatalogEntry) *CatalogStore {
	s := &CatalogStore{}
	s.Replace(entries)
	return s
}

// Replace swaps in a new catalog.
func (s *CatalogStore) Replace(entries []CatalogEntry) {
	m := NewMapCatalog(entries)
	s.v.Store(&m)
}

func (s *CatalogStore) Lookup(code string) (CatalogEntry, bool) {
	m := s.v.Load()
	if m == nil {
		return CatalogEntry{}, false
	}
	return m.Lookup(code)
}

// Len returns the number of distinct product codes.
func (s *CatalogStore) Len() int {
	m := s.v.Load()
	if m == nil {
		return 0
	}
	return len(*m)
}
