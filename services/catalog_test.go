package services

import (
	"testing"
)

func TestEnrichItems_NeverDropsOrReorders(t *testing.T) {
	items := []BOQItem{
		{ID: "1", RuleResult: RuleResult{ProductCode: "known", Description: "rule", Category: "c0", Section: SectionProduct}},
		{ID: "2", RuleResult: RuleResult{ProductCode: "unknown", Description: "keep me"}},
		{ID: "3", RuleResult: RuleResult{ProductCode: "known", Description: "manual"}, ManualOverride: true},
	}
	cat := NewMapCatalog([]CatalogEntry{
		{ProductCode: "known", Description: "Catalog description", Category: "Cables", Subcategory: "DC", Vendor: "Nexans", Section: SectionService},
	})

	got := EnrichItems(items, cat)
	if len(got) != len(items) {
		t.Fatalf("EnrichItems() returned %d items, want %d", len(got), len(items))
	}
	for i := range items {
		if got[i].ID != items[i].ID {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, items[i].ID)
		}
	}
	if got[0].Description != "Catalog description" || got[0].Vendor != "Nexans" || got[0].Section != SectionService || got[0].Subcategory != "DC" {
		t.Errorf("known item not enriched: %+v", got[0])
	}
	if got[1].Description != "keep me" {
		t.Errorf("unknown item changed: %+v", got[1])
	}
	if got[2].Description != "manual" || got[2].Vendor != "" {
		t.Errorf("manual override item changed: %+v", got[2])
	}
	if items[0].Description != "rule" {
		t.Error("EnrichItems() mutated its input")
	}
}

func TestEnrichItems_NilCatalog(t *testing.T) {
	items := []BOQItem{{ID: "1"}}
	if got := EnrichItems(items, nil); len(got) != 1 {
		t.Errorf("EnrichItems(nil catalog) len = %d, want 1", len(got))
	}
}

func TestCatalogStore_Replace(t *testing.T) {
	var empty CatalogStore
	if _, ok := empty.Lookup("x"); ok {
		t.Error("zero CatalogStore should find nothing")
	}

	s := NewCatalogStore([]CatalogEntry{{ProductCode: "a", Vendor: "v1"}})
	if e, ok := s.Lookup("a"); !ok || e.Vendor != "v1" {
		t.Errorf("Lookup(a) = %+v, %v", e, ok)
	}
	s.Replace([]CatalogEntry{{ProductCode: "b"}})
	if _, ok := s.Lookup("a"); ok {
		t.Error("Lookup(a) after Replace should miss")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestDefaultCatalogEntries(t *testing.T) {
	entries := DefaultCatalogEntries()
	if len(entries) != len(defaultDescriptions) {
		t.Fatalf("got %d entries, want %d", len(entries), len(defaultDescriptions))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ProductCode >= entries[i].ProductCode {
			t.Fatalf("entries not sorted at %d: %q >= %q", i, entries[i-1].ProductCode, entries[i].ProductCode)
		}
	}
	m := NewMapCatalog(entries)
	if e := m["ice_RM_002"]; e.Section != SectionService {
		t.Errorf("ice_RM_002 section = %q, want service", e.Section)
	}
	if e := m[MountCodeMultiArm]; e.Category != categoryMounting {
		t.Errorf("%s category = %q, want %q", MountCodeMultiArm, e.Category, categoryMounting)
	}
}
