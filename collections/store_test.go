package collections_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"siteforge/collections"
	"siteforge/services"
	"siteforge/testhelpers"
)

// tickingClock advances one second per call so change log timestamps sort.
func tickingClock() func() time.Time {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestSaveCatalog_Upserts(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	entries := []services.CatalogEntry{
		{ProductCode: "B-2", Description: "Bracket", Section: services.SectionProduct, SheetName: "BoQ", RowIndex: 12},
		{ProductCode: "A-1", Description: "Antenna", Section: services.SectionProduct, Vendor: "Ericsson"},
	}
	if n, err := collections.SaveCatalog(app, entries); err != nil || n != 2 {
		t.Fatalf("SaveCatalog() = %d, %v; want 2, nil", n, err)
	}

	entries[1].Vendor = "Nokia"
	if _, err := collections.SaveCatalog(app, entries[1:]); err != nil {
		t.Fatalf("second SaveCatalog() error: %v", err)
	}

	got, err := collections.LoadCatalog(app)
	if err != nil {
		t.Fatalf("LoadCatalog() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ProductCode != "A-1" || got[0].Vendor != "Nokia" {
		t.Errorf("entry 0 = %+v, want A-1 from Nokia", got[0])
	}
	if got[1].RowIndex != 12 || got[1].SheetName != "BoQ" {
		t.Errorf("entry 1 = %+v, want row 12 of BoQ", got[1])
	}
}

func TestFindSite_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	if _, err := collections.FindSite(app, "NOPE"); !errors.Is(err, collections.ErrSiteNotFound) {
		t.Errorf("FindSite() error = %v, want ErrSiteNotFound", err)
	}
}

func TestEnsureSite_ReusesRecord(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	first := testhelpers.CreateTestSite(t, app, "MOR00123")
	second, err := collections.EnsureSite(app, "MOR00123")
	if err != nil {
		t.Fatalf("EnsureSite() error: %v", err)
	}
	if first.Id != second.Id {
		t.Errorf("EnsureSite created a second record: %s vs %s", first.Id, second.Id)
	}
}

func TestLoadSiteBOQ_UnknownSite(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	items, log, err := collections.LoadSiteBOQ(app, "NOPE")
	if err != nil || items != nil || log != nil {
		t.Errorf("LoadSiteBOQ() = %v, %v, %v; want nil, nil, nil", items, log, err)
	}
}

func TestLoadSiteState(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	empty, err := collections.LoadSiteState(app, "NOPE")
	if err != nil || empty.Items != nil || empty.Input.Cells != nil {
		t.Errorf("LoadSiteState(unknown) = %+v, %v; want zero state", empty, err)
	}

	ctrl := services.NewController("MOR00123", services.WithHighlightWindow(time.Hour), services.WithClock(tickingClock()))
	defer ctrl.Close()
	in := services.Input{Cells: testhelpers.SampleCells("MOR00123"), PowerCalc: testhelpers.SamplePowerCalc()}
	snap, err := ctrl.Recompute(context.Background(), services.Edit{Field: "cells"}, in)
	if err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}
	if err := collections.SaveSiteBOQ(app, snap, in); err != nil {
		t.Fatalf("SaveSiteBOQ() error: %v", err)
	}

	st, err := collections.LoadSiteState(app, "MOR00123")
	if err != nil {
		t.Fatalf("LoadSiteState() error: %v", err)
	}
	if len(st.Items) != len(snap.Items) || len(st.ChangeLog) != 1 {
		t.Errorf("state = %d items, %d log; want %d, 1", len(st.Items), len(st.ChangeLog), len(snap.Items))
	}
	if len(st.Input.Cells) != len(in.Cells) || st.Input.PowerCalc == nil {
		t.Errorf("state input = %d cells, power %v; want %d cells with power", len(st.Input.Cells), st.Input.PowerCalc != nil, len(in.Cells))
	}
}

func TestSaveSiteBOQ_RoundTrip(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	ctrl := services.NewController("MOR00123", services.WithHighlightWindow(time.Hour), services.WithClock(tickingClock()))
	defer ctrl.Close()

	in := services.Input{Cells: testhelpers.SampleCells("MOR00123"), PowerCalc: testhelpers.SamplePowerCalc()}
	if _, err := ctrl.Recompute(context.Background(), services.Edit{Field: "cells"}, in); err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}
	in.PowerCalc.BatteryStrings = 3
	snap, err := ctrl.Recompute(context.Background(), services.Edit{Field: "batteryStrings", OldValue: 2.0, NewValue: 3.0}, in)
	if err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}
	snap, err = ctrl.Override(snap.Items[0].ID, 42)
	if err != nil {
		t.Fatalf("Override() error: %v", err)
	}

	if err := collections.SaveSiteBOQ(app, snap, in); err != nil {
		t.Fatalf("SaveSiteBOQ() error: %v", err)
	}

	items, log, err := collections.LoadSiteBOQ(app, "MOR00123")
	if err != nil {
		t.Fatalf("LoadSiteBOQ() error: %v", err)
	}
	if len(items) != len(snap.Items) {
		t.Fatalf("loaded %d items, want %d", len(items), len(snap.Items))
	}
	for i := range items {
		if items[i].ID != snap.Items[i].ID || items[i].Quantity != snap.Items[i].Quantity {
			t.Errorf("item %d = %s x%v, want %s x%v", i, items[i].ID, items[i].Quantity, snap.Items[i].ID, snap.Items[i].Quantity)
		}
		if items[i].ManualOverride != snap.Items[i].ManualOverride {
			t.Errorf("item %d override = %v, want %v", i, items[i].ManualOverride, snap.Items[i].ManualOverride)
		}
		if (items[i].PreviousQuantity == nil) != (snap.Items[i].PreviousQuantity == nil) {
			t.Errorf("item %d previous quantity presence mismatch", i)
		}
	}

	if len(log) != len(snap.ChangeLog) {
		t.Fatalf("loaded %d log entries, want %d", len(log), len(snap.ChangeLog))
	}
	if log[0].ID != snap.ChangeLog[0].ID {
		t.Errorf("newest entry = %s, want %s", log[0].ID, snap.ChangeLog[0].ID)
	}

	site, _ := collections.FindSite(app, "MOR00123")
	stored := collections.LoadSiteInput(site)
	if len(stored.Cells) != len(in.Cells) {
		t.Errorf("stored %d cells, want %d", len(stored.Cells), len(in.Cells))
	}
	if stored.PowerCalc == nil || stored.PowerCalc.BatteryStrings != 3 {
		t.Errorf("stored power calc = %+v, want 3 battery strings", stored.PowerCalc)
	}
}

func TestSaveSiteBOQ_TrimsDroppedLogEntries(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	ctrl := services.NewController("MOR00124", services.WithChangeLogLimit(1), services.WithClock(tickingClock()))
	defer ctrl.Close()

	in := services.Input{Cells: testhelpers.SampleCells("MOR00124")}
	for _, field := range []string{"a", "b"} {
		snap, err := ctrl.Recompute(context.Background(), services.Edit{Field: field}, in)
		if err != nil {
			t.Fatalf("Recompute() error: %v", err)
		}
		if err := collections.SaveSiteBOQ(app, snap, in); err != nil {
			t.Fatalf("SaveSiteBOQ() error: %v", err)
		}
	}

	_, log, err := collections.LoadSiteBOQ(app, "MOR00124")
	if err != nil {
		t.Fatalf("LoadSiteBOQ() error: %v", err)
	}
	if len(log) != 1 || log[0].Field != "b" {
		t.Errorf("log = %+v, want only the latest entry", log)
	}
}

func TestLoadSiteInput_NoPowerCalc(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	site := testhelpers.CreateTestSite(t, app, "MOR00125")
	in := collections.LoadSiteInput(site)
	if in.PowerCalc != nil || len(in.Cells) != 0 {
		t.Errorf("LoadSiteInput() = %+v, want empty", in)
	}
}
