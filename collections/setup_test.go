package collections_test

import (
	"testing"

	"siteforge/collections"
	"siteforge/testhelpers"

	"github.com/pocketbase/pocketbase/core"
)

// expectedCollections is the full list of collections that Setup() must create.
var expectedCollections = []string{
	"sites",
	"boq_catalog",
	"boq_items",
	"boq_change_log",
}

func TestSetup_AllCollectionsExist(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q not found after Setup(): %v", name, err)
			continue
		}
		if col.Name != name {
			t.Errorf("expected collection name %q, got %q", name, col.Name)
		}
	}
}

func TestSetup_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t) // Setup() already called once via NewTestApp

	ids := make(map[string]string)
	for _, name := range expectedCollections {
		col, _ := app.FindCollectionByNameOrId(name)
		ids[name] = col.Id
	}

	collections.Setup(app)

	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q missing after second Setup(): %v", name, err)
			continue
		}
		if col.Id != ids[name] {
			t.Errorf("collection %q id changed: %q -> %q", name, ids[name], col.Id)
		}
	}
}

func TestSetup_Fields(t *testing.T) {
	tests := []struct {
		collection string
		fields     []string
	}{
		{"sites", []string{"site_id", "config", "cells", "power_calc", "created", "updated"}},
		{"boq_catalog", []string{"product_code", "description", "comments", "ordering_hints", "category", "subcategory", "vendor", "section", "sheet_name", "row_index"}},
		{"boq_items", []string{"site", "sort_order", "item_id", "product_code", "description", "quantity", "unit", "section", "category", "subcategory", "vendor", "provenance", "rule", "manual_override", "previous_quantity", "changed_at"}},
		{"boq_change_log", []string{"site", "entry_id", "timestamp", "field", "old_value", "new_value", "items_changed"}},
	}

	app := testhelpers.NewTestApp(t)
	for _, tt := range tests {
		col, _ := app.FindCollectionByNameOrId(tt.collection)
		for _, f := range tt.fields {
			if col.Fields.GetByName(f) == nil {
				t.Errorf("%s: missing field %q", tt.collection, f)
			}
		}
	}
}

func TestSetup_SiteRelationsCascade(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	for _, name := range []string{"boq_items", "boq_change_log"} {
		col, _ := app.FindCollectionByNameOrId(name)
		rf, ok := col.Fields.GetByName("site").(*core.RelationField)
		if !ok {
			t.Errorf("%s.site is not a RelationField", name)
			continue
		}
		if !rf.CascadeDelete {
			t.Errorf("%s.site: expected CascadeDelete=true", name)
		}
		if rf.MaxSelect != 1 {
			t.Errorf("%s.site: expected MaxSelect=1, got %d", name, rf.MaxSelect)
		}
	}
}

func TestSetup_SectionValues(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	col, _ := app.FindCollectionByNameOrId("boq_items")

	sf, ok := col.Fields.GetByName("section").(*core.SelectField)
	if !ok {
		t.Fatal("boq_items.section is not a SelectField")
	}
	expected := map[string]bool{"product": true, "service": true, "griptel": true, "solar": true}
	for _, v := range sf.Values {
		if !expected[v] {
			t.Errorf("unexpected section value: %q", v)
		}
		delete(expected, v)
	}
	for v := range expected {
		t.Errorf("missing section value: %q", v)
	}
}

func TestSetup_UniqueSiteID(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestSite(t, app, "MOR00123")

	col, _ := app.FindCollectionByNameOrId("sites")
	dup := core.NewRecord(col)
	dup.Set("site_id", "MOR00123")
	if err := app.Save(dup); err == nil {
		t.Error("expected duplicate site_id to be rejected")
	}
}
