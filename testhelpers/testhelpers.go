// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"siteforge/collections"
	"siteforge/services"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

// CreateTestSite creates a sites record with the given id and returns it.
func CreateTestSite(t *testing.T, app *pocketbase.PocketBase, siteID string) *core.Record {
	t.Helper()

	record, err := collections.EnsureSite(app, siteID)
	if err != nil {
		t.Fatalf("failed to save test site: %v", err)
	}
	return record
}

// CreateTestCatalogEntry stores one boq_catalog record.
func CreateTestCatalogEntry(t *testing.T, app *pocketbase.PocketBase, e services.CatalogEntry) {
	t.Helper()

	if _, err := collections.SaveCatalog(app, []services.CatalogEntry{e}); err != nil {
		t.Fatalf("failed to save test catalog entry: %v", err)
	}
}

// SampleCells returns a three-sector radio plan for siteID (config NLMS_).
func SampleCells(siteID string) []services.RawCellRecord {
	f := func(v float64) *float64 { return &v }
	return []services.RawCellRecord{
		{CellID: siteID + "L18A", Technology: "LTE", AntennaType: "RRZZ-65B-R4N39-V1", Azimuth: f(0), Jumpers: "6 m"},
		{CellID: siteID + "N35A", Technology: "NR", AntennaType: "AQQY", Azimuth: f(0)},
		{CellID: siteID + "L18B", Technology: "LTE", AntennaType: "RRZZ-65B-R4N39-V1", Azimuth: f(120)},
		{CellID: siteID + "N18B", Technology: "NR", AntennaType: "RRZZ-65B-R4N39-V1", Azimuth: f(120)},
		{CellID: siteID + "L08C", Technology: "LTE", AntennaType: "APXV", Azimuth: f(240)},
	}
}

// SamplePowerCalc returns power-calculator data with two battery strings.
func SamplePowerCalc() *services.PowerCalc {
	return &services.PowerCalc{
		RectifierModules: 5,
		RectifierModel:   "Flatpack2",
		RectifierIsNew:   true,
		BatteryStrings:   2,
		DCCables: []services.DCCableRun{
			{Sector: 1, Band: "L18", LengthM: 10, CrossSection: 10},
		},
	}
}

// AssertHTMLContains checks that body contains all specified fragments.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected HTML to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
