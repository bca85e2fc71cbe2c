package services

import (
	"fmt"
	"time"
)

// ExportRow is one BOQ line as written by the exporters.
type ExportRow struct {
	Index       string // 1-based position in the live BOQ
	ProductCode string
	Description string
	Qty         float64
	Unit        string
	Category    string
	Vendor      string
	Section     string
	Override    bool
	Recent      bool
}

// SectionCount is the number of lines in one BOQ section.
type SectionCount struct {
	Section string
	Lines   int
}

// ExportData holds all data needed for export.
type ExportData struct {
	Title       string
	SiteID      string
	Config      string
	CreatedDate string
	Rows        []ExportRow
	Sections    []SectionCount
	Warnings    []Warning
}

// sectionOrder fixes the order sections are summarized in.
var sectionOrder = SectionOptions

// BuildExportData flattens a snapshot into export rows. Row order is the
// live BOQ order.
func BuildExportData(snap Snapshot, createdAt time.Time) ExportData {
	data := ExportData{
		Title:       fmt.Sprintf("BOQ %s", snap.SiteID),
		SiteID:      snap.SiteID,
		Config:      snap.Classification.Config.Config,
		CreatedDate: createdAt.Format("02 Jan 2006"),
		Warnings:    snap.Warnings,
	}

	lines := make(map[string]int)
	for i, it := range snap.Items {
		data.Rows = append(data.Rows, ExportRow{
			Index:       fmt.Sprintf("%d", i+1),
			ProductCode: it.ProductCode,
			Description: it.Description,
			Qty:         it.Quantity,
			Unit:        it.Unit,
			Category:    it.Category,
			Vendor:      it.Vendor,
			Section:     it.Section,
			Override:    it.ManualOverride,
			Recent:      snap.IsRecent(it.ID),
		})
		lines[it.Section]++
	}
	for _, s := range sectionOrder {
		if n := lines[s]; n > 0 {
			data.Sections = append(data.Sections, SectionCount{Section: s, Lines: n})
			delete(lines, s)
		}
	}
	for s, n := range lines {
		data.Sections = append(data.Sections, SectionCount{Section: s, Lines: n})
	}
	return data
}
