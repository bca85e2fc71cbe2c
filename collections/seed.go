package collections

import (
	"context"
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"

	"siteforge/services"
)

// DemoSiteID is the site created by Seed.
const DemoSiteID = "DEMO0001"

func ptr(v float64) *float64 { return &v }

// ── Seed data ────────────────────────────────────────────────────────────

// demoCells is a three-sector LTE/NR site: a massive-MIMO NR sector, a
// mixed sector and a plain LTE sector.
func demoCells() []services.RawCellRecord {
	return []services.RawCellRecord{
		{CellID: DemoSiteID + "L18A", Technology: "LTE", AntennaType: "RRZZ-65B-R4N39-V1", Height: ptr(28), Azimuth: ptr(0), MTilt: ptr(2), ETilt: ptr(4), Jumpers: "6 m"},
		{CellID: DemoSiteID + "N35A", Technology: "NR", AntennaType: "AQQY", Height: ptr(28), Azimuth: ptr(0), Jumpers: "3 m"},
		{CellID: DemoSiteID + "L18B", Technology: "LTE", AntennaType: "RRZZ-65B-R4N39-V1", Height: ptr(28), Azimuth: ptr(120), MTilt: ptr(2), Jumpers: "8 m"},
		{CellID: DemoSiteID + "N18B", Technology: "NR", AntennaType: "RRZZ-65B-R4N39-V1", Height: ptr(28), Azimuth: ptr(120)},
		{CellID: DemoSiteID + "L08C", Technology: "LTE", AntennaType: "APXV", Height: ptr(26), Azimuth: ptr(240), Jumpers: "6 m"},
	}
}

func demoPowerCalc() *services.PowerCalc {
	return &services.PowerCalc{
		RectifierModules: 4,
		RectifierModel:   "Flatpack2",
		RectifierIsNew:   true,
		MaxModules:       6,
		BatteryStrings:   2,
		DCCables: []services.DCCableRun{
			{Sector: 1, Band: "L18", LengthM: 18, CrossSection: 10},
			{Sector: 2, Band: "L18", LengthM: 22, CrossSection: 10},
			{Sector: 3, Band: "L08", LengthM: 25, CrossSection: 16},
		},
	}
}

// SeedCatalog loads the built-in catalog entries when boq_catalog is empty.
func SeedCatalog(app *pocketbase.PocketBase) error {
	existing, err := app.FindAllRecords("boq_catalog")
	if err != nil {
		return fmt.Errorf("seed: could not query boq_catalog: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	n, err := SaveCatalog(app, services.DefaultCatalogEntries())
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Printf("seed: inserted %d catalog entries\n", n)
	return nil
}

// Seed inserts the built-in catalog and a computed demo site. It does
// nothing once any site exists.
func Seed(app *pocketbase.PocketBase) error {
	if err := SeedCatalog(app); err != nil {
		return err
	}

	// ── idempotency: skip if sites already exist ─────────────────────
	sites, err := app.FindAllRecords("sites")
	if err != nil {
		return fmt.Errorf("seed: could not query sites: %w", err)
	}
	if len(sites) > 0 {
		return nil // already seeded
	}

	log.Println("seed: sites collection is empty – inserting demo site …")

	entries, err := LoadCatalog(app)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	ctrl := services.NewController(DemoSiteID, services.WithCatalog(services.NewMapCatalog(entries)))
	defer ctrl.Close()

	in := services.Input{Cells: demoCells(), PowerCalc: demoPowerCalc()}
	snap, err := ctrl.Recompute(context.Background(), services.Edit{Field: "seed"}, in)
	if err != nil {
		return fmt.Errorf("seed: compute demo site: %w", err)
	}
	if err := SaveSiteBOQ(app, snap, in); err != nil {
		return fmt.Errorf("seed: save demo site: %w", err)
	}

	log.Printf("seed: demo site %s (%s) with %d BOQ items\n", DemoSiteID, snap.Classification.Config.Config, len(snap.Items))
	return nil
}
