package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"siteforge/services"
)

// Setup programmatically creates/ensures the sites, boq_catalog, boq_items
// and boq_change_log collections exist.
func Setup(app *pocketbase.PocketBase) {
	sites := ensureCollection(app, "sites", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "site_id", Required: true})
		c.Fields.Add(&core.TextField{Name: "config", Required: false})
		c.Fields.Add(&core.JSONField{Name: "cells", MaxSize: 2 << 20})
		c.Fields.Add(&core.JSONField{Name: "power_calc", MaxSize: 1 << 20})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_sites_site_id", true, "site_id", "")
	})

	ensureCollection(app, "boq_catalog", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "product_code", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.TextField{Name: "comments", Required: false})
		c.Fields.Add(&core.TextField{Name: "ordering_hints", Required: false})
		c.Fields.Add(&core.TextField{Name: "category", Required: false})
		c.Fields.Add(&core.TextField{Name: "subcategory", Required: false})
		c.Fields.Add(&core.TextField{Name: "vendor", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "section",
			Required:  false,
			Values:    services.SectionOptions,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "sheet_name", Required: false})
		c.Fields.Add(&core.NumberField{Name: "row_index", Required: false})
		c.AddIndex("idx_boq_catalog_product_code", true, "product_code", "")
	})

	ensureCollection(app, "boq_items", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "site",
			Required:      true,
			CollectionId:  sites.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.NumberField{Name: "sort_order", Required: false})
		c.Fields.Add(&core.TextField{Name: "item_id", Required: true})
		c.Fields.Add(&core.TextField{Name: "product_code", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.NumberField{Name: "quantity", Required: false})
		c.Fields.Add(&core.TextField{Name: "unit", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "section",
			Required:  true,
			Values:    services.SectionOptions,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "category", Required: false})
		c.Fields.Add(&core.TextField{Name: "subcategory", Required: false})
		c.Fields.Add(&core.TextField{Name: "vendor", Required: false})
		c.Fields.Add(&core.TextField{Name: "provenance", Required: false})
		c.Fields.Add(&core.TextField{Name: "rule", Required: false})
		c.Fields.Add(&core.BoolField{Name: "manual_override"})
		c.Fields.Add(&core.JSONField{Name: "previous_quantity", MaxSize: 64})
		c.Fields.Add(&core.DateField{Name: "changed_at", Required: false})
		c.AddIndex("idx_boq_items_site_item", true, "site, item_id", "")
	})

	ensureCollection(app, "boq_change_log", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "site",
			Required:      true,
			CollectionId:  sites.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "entry_id", Required: true})
		c.Fields.Add(&core.DateField{Name: "timestamp", Required: true})
		c.Fields.Add(&core.TextField{Name: "field", Required: false})
		c.Fields.Add(&core.JSONField{Name: "old_value", MaxSize: 1 << 16})
		c.Fields.Add(&core.JSONField{Name: "new_value", MaxSize: 1 << 16})
		c.Fields.Add(&core.NumberField{Name: "items_changed", Required: false})
	})
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		log.Printf("Collection %q already exists, skipping creation.\n", name)
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to create collection %q: %v", name, err)
	}

	fmt.Printf("Created collection %q (id=%s)\n", name, collection.Id)
	return collection
}
