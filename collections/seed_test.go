package collections_test

import (
	"testing"

	"siteforge/collections"
	"siteforge/services"
	"siteforge/testhelpers"
)

func TestSeed_CreatesData(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	catalog, err := app.FindAllRecords("boq_catalog")
	if err != nil {
		t.Fatalf("query boq_catalog error: %v", err)
	}
	if want := len(services.DefaultCatalogEntries()); len(catalog) != want {
		t.Errorf("expected %d catalog entries, got %d", want, len(catalog))
	}

	site, err := collections.FindSite(app, collections.DemoSiteID)
	if err != nil {
		t.Fatalf("demo site not found: %v", err)
	}
	if site.GetString("config") == "" {
		t.Error("demo site config should be set")
	}

	items, log, err := collections.LoadSiteBOQ(app, collections.DemoSiteID)
	if err != nil {
		t.Fatalf("LoadSiteBOQ() error: %v", err)
	}
	if len(items) == 0 {
		t.Error("expected demo BOQ items")
	}
	if len(log) != 1 || log[0].Field != "seed" {
		t.Errorf("expected one seed change log entry, got %+v", log)
	}
}

func TestSeed_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app); err != nil {
		t.Fatalf("first Seed() error: %v", err)
	}
	first, _ := app.FindAllRecords("boq_items")

	if err := collections.Seed(app); err != nil {
		t.Fatalf("second Seed() error: %v", err)
	}
	second, _ := app.FindAllRecords("boq_items")
	if len(first) != len(second) {
		t.Errorf("boq_items count changed: %d -> %d", len(first), len(second))
	}

	sites, _ := app.FindAllRecords("sites")
	if len(sites) != 1 {
		t.Errorf("expected 1 site, got %d", len(sites))
	}
}

func TestSeedCatalog_KeepsExistingCatalog(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestCatalogEntry(t, app, services.CatalogEntry{ProductCode: "X-1", Section: services.SectionProduct})

	if err := collections.SeedCatalog(app); err != nil {
		t.Fatalf("SeedCatalog() error: %v", err)
	}
	all, _ := app.FindAllRecords("boq_catalog")
	if len(all) != 1 {
		t.Errorf("expected existing catalog to be left alone, got %d records", len(all))
	}
}
