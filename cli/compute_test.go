package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"siteforge/services"
	"siteforge/testhelpers"
)

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestNewComputeCommand(t *testing.T) {
	dir := t.TempDir()
	cells := writeJSON(t, dir, "MOR00123.json", testhelpers.SampleCells("MOR00123"))
	power := writeJSON(t, dir, "power.json", testhelpers.SamplePowerCalc())

	csvPlan := filepath.Join(dir, "plan.csv")
	if err := os.WriteFile(csvPlan, []byte("Cell ID,Technology,Azimuth\nMOR00123L18A,LTE,0\nMOR00123L18B,LTE,120\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	badPlan := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(badPlan, []byte("Cell ID,Technology,Azimuth\nMOR00123L18A,LTE,abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		wantOut []string
		wantErr string
	}{
		{
			name:    "json plan as table",
			args:    []string{"--cells", cells},
			wantOut: []string{"Site MOR00123", "Product Code", "ice_Basic_M_001", "items)"},
		},
		{
			name:    "with power data",
			args:    []string{"--cells", cells, "--power", power, "--site", "MOR00999"},
			wantOut: []string{"Site MOR00999", "ice_RM_016"},
		},
		{
			name:    "csv plan",
			args:    []string{"--cells", csvPlan},
			wantOut: []string{"Site plan", "ice_stickers_small"},
		},
		{
			name:    "csv output",
			args:    []string{"--cells", cells, "-o", "csv"},
			wantOut: []string{"ice_Basic_M_001"},
		},
		{
			name:    "json output",
			args:    []string{"--cells", cells, "--output", "json"},
			wantOut: []string{`"siteId": "MOR00123"`, `"items"`},
		},
		{
			name:    "invalid rows",
			args:    []string{"--cells", badPlan},
			wantErr: "invalid row",
		},
		{
			name:    "missing file",
			args:    []string{"--cells", filepath.Join(dir, "nope.json")},
			wantErr: "open cells",
		},
		{
			name:    "unknown output",
			args:    []string{"--cells", cells, "-o", "yaml"},
			wantErr: "unknown output format",
		},
		{
			name:    "cells required",
			args:    []string{},
			wantErr: "cells",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewComputeCommand(nil)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			output := buf.String()
			for _, want := range tt.wantOut {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q\ngot: %s", want, output)
				}
			}
		})
	}
}

func TestRenderTable_Empty(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := renderTable(buf, services.Snapshot{SiteID: "EMPTY001"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Site EMPTY001", "no data yet", "(0 items)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\ngot: %s", want, out)
		}
	}
}

func TestRenderTable_OverrideAndWarnings(t *testing.T) {
	snap := services.Snapshot{
		SiteID: "MOR00123",
		Items: []services.BOQItem{{
			ID:             "manual-1",
			RuleResult:     services.RuleResult{ProductCode: "X-1", Description: "Extra", Quantity: 2.5, Unit: "m", Section: services.SectionProduct},
			Rule:           "manual",
			ManualOverride: true,
		}},
		Warnings: []services.Warning{{Code: "V007", Level: "warning", Message: "check feeders"}},
	}
	buf := new(bytes.Buffer)
	if err := renderTable(buf, snap); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"X-1", "manual (override)", "warning [V007] check feeders", "(1 items)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\ngot: %s", want, out)
		}
	}
}

func TestRenderCatalogStats(t *testing.T) {
	buf := new(bytes.Buffer)
	renderCatalogStats(buf, services.CatalogImportStats{
		Sections: map[string]int{services.SectionProduct: 3, services.SectionService: 2},
		Skipped:  1,
	}, 5)

	out := buf.String()
	for _, want := range []string{"Section", "Entries", "Total", "5", "skipped 1 placeholder row(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\ngot: %s", want, out)
		}
	}
}
