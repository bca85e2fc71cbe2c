package services

import (
	"testing"
)

func TestGeneratePDF_BasicBOQ(t *testing.T) {
	result, err := GeneratePDF(sampleExportData())
	if err != nil {
		t.Fatalf("GeneratePDF() error = %v", err)
	}
	if len(result) < 5 {
		t.Fatal("GeneratePDF() returned too few bytes")
	}
	if string(result[:5]) != "%PDF-" {
		t.Errorf("result does not start with PDF header, got %q", string(result[:5]))
	}
}

func TestGeneratePDF_EmptyItems(t *testing.T) {
	data := ExportData{
		Title:       "Empty BOQ",
		CreatedDate: "15 Jan 2025",
	}

	result, err := GeneratePDF(data)
	if err != nil {
		t.Fatalf("GeneratePDF() error = %v", err)
	}
	if len(result) == 0 {
		t.Fatal("GeneratePDF() returned empty bytes")
	}
}

func TestGeneratePDF_ManyRows(t *testing.T) {
	data := sampleExportData()
	for i := 0; i < 120; i++ {
		data.Rows = append(data.Rows, ExportRow{Index: "x", ProductCode: "BSA-DT-34", Description: "Downtilt kit", Qty: 1, Unit: UnitPieces})
	}
	if _, err := GeneratePDF(data); err != nil {
		t.Fatalf("GeneratePDF() error = %v", err)
	}
}
