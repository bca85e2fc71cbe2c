package services

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var configPattern = regexp.MustCompile(`^N?[LMS]*_$`)

func TestClassify_Empty(t *testing.T) {
	c := Classify(nil)
	if !c.Empty() {
		t.Error("Classify(nil).Empty() = false, want true")
	}
	if c.Config.Config != "_" {
		t.Errorf("Classify(nil).Config = %q, want \"_\"", c.Config.Config)
	}
	if len(c.Config.SectorSizes) != 0 {
		t.Errorf("SectorSizes = %v, want empty", c.Config.SectorSizes)
	}
}

func TestClassify_SizesAndConfig(t *testing.T) {
	tests := []struct {
		name       string
		cells      []RawCellRecord
		wantConfig string
		wantSizes  []SectorSize
		wantNR     bool
	}{
		{
			name: "lte only small",
			cells: []RawCellRecord{
				cell("MOR00123L18A", "LTE", "RRZZ-65B-R4N39-V1", 0),
				cell("MOR00123L18B", "LTE", "RRZZ-65B-R4N39-V1", 120),
			},
			wantConfig: "SS_",
			wantSizes:  []SectorSize{SizeSmall, SizeSmall},
		},
		{
			name: "nr makes medium and new",
			cells: []RawCellRecord{
				cell("MOR00123L18A", "LTE", "RRZZ", 0),
				cell("MOR00123N35A", "NR", "RRZZ", 0),
				cell("MOR00123L18B", "LTE", "RRZZ", 120),
			},
			wantConfig: "NMS_",
			wantSizes:  []SectorSize{SizeMedium, SizeSmall},
			wantNR:     true,
		},
		{
			name: "mmimo makes large case insensitively",
			cells: []RawCellRecord{
				cell("MOR00123N35A", "NR", "aqqy-64T", 0),
				cell("MOR00123N35B", "NR", "Ericsson-mMIMO", 120),
				cell("MOR00123L18C", "LTE", "RRZZ", 240),
			},
			wantConfig: "NLLS_",
			wantSizes:  []SectorSize{SizeLarge, SizeLarge, SizeSmall},
			wantNR:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.cells)
			if c.Config.Config != tt.wantConfig {
				t.Errorf("Config = %q, want %q", c.Config.Config, tt.wantConfig)
			}
			if diff := cmp.Diff(tt.wantSizes, c.Config.SectorSizes); diff != "" {
				t.Errorf("SectorSizes mismatch (-want +got):\n%s", diff)
			}
			if c.HasNR != tt.wantNR {
				t.Errorf("HasNR = %v, want %v", c.HasNR, tt.wantNR)
			}
			if c.Config.IsNew != tt.wantNR {
				t.Errorf("IsNew = %v, want %v", c.Config.IsNew, tt.wantNR)
			}
			if len(c.Config.SectorSizes) != len(c.Sectors) {
				t.Errorf("len(SectorSizes) = %d, len(Sectors) = %d", len(c.Config.SectorSizes), len(c.Sectors))
			}
			if !configPattern.MatchString(c.Config.Config) {
				t.Errorf("Config %q does not match %s", c.Config.Config, configPattern)
			}
		})
	}
}

func TestClassify_SectorDetails(t *testing.T) {
	cells := []RawCellRecord{
		{CellID: "MOR00123N35B", Technology: "NR", AntennaType: "AQQY", Azimuth: f64(200), MTilt: f64(9)},
		{CellID: "MOR00123L08B", Technology: "LTE", AntennaType: "RRZZ", Azimuth: f64(210), MTilt: f64(2), ETilt: f64(4)},
		{CellID: "MOR00123L18B", Technology: "LTE", AntennaType: "RRZZ", Azimuth: f64(999)},
		{CellID: "MOR00123L18A", Technology: "LTE", AntennaType: "RRZZ"},
	}
	c := Classify(cells)

	if c.SiteID != "MOR00123" {
		t.Errorf("SiteID = %q, want MOR00123", c.SiteID)
	}
	if len(c.Sectors) != 2 || c.Sectors[0].ID != "A" || c.Sectors[1].ID != "B" {
		t.Fatalf("sectors = %+v, want A then B", c.Sectors)
	}

	b := c.Sectors[1]
	// First LTE row is the representative.
	if b.Azimuth != 210 || b.MTilt != 2 || b.ETilt != 4 {
		t.Errorf("sector B geometry = (%v, %v, %v), want (210, 2, 4)", b.Azimuth, b.MTilt, b.ETilt)
	}
	if diff := cmp.Diff([]string{"AQQY", "RRZZ"}, b.Antennas); diff != "" {
		t.Errorf("Antennas mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"NR", "LTE"}, b.Technologies); diff != "" {
		t.Errorf("Technologies mismatch (-want +got):\n%s", diff)
	}
	if len(b.Cells) != 3 {
		t.Errorf("sector B has %d cells, want 3", len(b.Cells))
	}

	a := c.Sectors[0]
	if a.Azimuth != 0 {
		t.Errorf("missing azimuth should read as 0, got %v", a.Azimuth)
	}
}

func TestClassify_NoLTEFallsBackToFirstRow(t *testing.T) {
	cells := []RawCellRecord{
		{CellID: "MOR00123N35C", Technology: "NR", AntennaType: "AQQY", Azimuth: f64(240), MTilt: f64(3), ETilt: f64(6)},
		{CellID: "MOR00123N21C", Technology: "NR", AntennaType: "AQQY", Azimuth: f64(250), MTilt: f64(5), ETilt: f64(8)},
	}
	c := Classify(cells)
	if len(c.Sectors) != 1 || c.Sectors[0].ID != "C" {
		t.Fatalf("sectors = %+v, want only C", c.Sectors)
	}

	s := c.Sectors[0]
	if s.Azimuth != 240 || s.MTilt != 3 || s.ETilt != 6 {
		t.Errorf("sector C geometry = (%v, %v, %v), want first row's (240, 3, 6)", s.Azimuth, s.MTilt, s.ETilt)
	}
	if !s.HasNR || s.Size != SizeLarge {
		t.Errorf("sector C HasNR=%v Size=%v, want NR and Large", s.HasNR, s.Size)
	}
	if diff := cmp.Diff([]string{"NR"}, s.Technologies); diff != "" {
		t.Errorf("Technologies mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_LargeWithoutNRWarns(t *testing.T) {
	c := Classify([]RawCellRecord{cell("MOR00123L18A", "LTE", "AQQY", 0)})
	if c.Config.Config != "L_" {
		t.Errorf("Config = %q, want L_", c.Config.Config)
	}
	if len(c.Warnings) != 1 || c.Warnings[0].Code != "CLS001" {
		t.Errorf("Warnings = %+v, want one CLS001", c.Warnings)
	}
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		in                   string
		isNew                bool
		large, medium, small int
	}{
		{"", false, 0, 0, 0},
		{"_", false, 0, 0, 0},
		{"NLLM_", true, 2, 1, 0},
		{"SSS_", false, 0, 0, 3},
		{"NLMS", true, 1, 1, 1},
		{"NLXM_", true, 1, 1, 0},
	}
	for _, tt := range tests {
		p := ParseConfig(tt.in)
		if p.IsNew != tt.isNew || p.LargeCount != tt.large || p.MediumCount != tt.medium || p.SmallCount != tt.small {
			t.Errorf("ParseConfig(%q) = %+v, want new=%v L=%d M=%d S=%d", tt.in, p, tt.isNew, tt.large, tt.medium, tt.small)
		}
		if p.SectorCount() != tt.large+tt.medium+tt.small {
			t.Errorf("ParseConfig(%q).SectorCount() = %d", tt.in, p.SectorCount())
		}
	}
}

func TestSectorSizeLabel(t *testing.T) {
	if SizeLarge.Label() != "Large" || SizeMedium.Label() != "Medium" || SizeSmall.Label() != "Small" {
		t.Error("unexpected size labels")
	}
	if SectorSize("X").Label() != "" {
		t.Error("unknown size should have empty label")
	}
}
