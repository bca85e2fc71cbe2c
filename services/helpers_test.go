package services

import "bytes"

// bytesReader wraps a byte slice in a bytes.Reader for use with excelize.OpenReader.
func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func f64(v float64) *float64 { return &v }

// cell builds a radio-plan row for tests.
func cell(id, tech, antenna string, azimuth float64) RawCellRecord {
	return RawCellRecord{CellID: id, Technology: tech, AntennaType: antenna, Azimuth: f64(azimuth)}
}

func sampleExportData() ExportData {
	return ExportData{
		Title:       "BOQ MOR00123",
		SiteID:      "MOR00123",
		Config:      "NLM_",
		CreatedDate: "15 Jan 2025",
		Rows: []ExportRow{
			{Index: "1", ProductCode: "ice_RM_002", Description: "System module installation (BBU)", Qty: 1, Unit: UnitPieces, Category: "Service items", Section: SectionService},
			{Index: "2", ProductCode: "SL2C10MM2FRNC-S-BK-N", Description: "DC cable 2x10mm2 FRNC", Qty: 27.5, Unit: UnitMeters, Category: "System module", Vendor: "Nexans", Section: SectionProduct},
			{Index: "3", ProductCode: "=HACK()", Description: "Manual line", Qty: 2, Unit: UnitPieces, Section: SectionProduct, Override: true},
		},
		Sections: []SectionCount{{Section: SectionProduct, Lines: 2}, {Section: SectionService, Lines: 1}},
		Warnings: []Warning{{Code: "V001", Level: "error", Message: "config mismatch"}},
	}
}
