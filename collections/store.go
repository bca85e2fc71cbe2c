package collections

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pocketbase/pocketbase/core"

	"siteforge/services"
)

// ErrSiteNotFound is returned when no sites record matches a site id.
var ErrSiteNotFound = errors.New("site not found")

// ── Catalog ──────────────────────────────────────────────────────────────

// SaveCatalog upserts entries into boq_catalog keyed by product code and
// returns the number of records written.
func SaveCatalog(app core.App, entries []services.CatalogEntry) (int, error) {
	col, err := app.FindCollectionByNameOrId("boq_catalog")
	if err != nil {
		return 0, fmt.Errorf("find boq_catalog collection: %w", err)
	}

	written := 0
	err = app.RunInTransaction(func(txApp core.App) error {
		for _, e := range entries {
			record, err := txApp.FindFirstRecordByData(col, "product_code", e.ProductCode)
			if err != nil {
				record = core.NewRecord(col)
				record.Set("product_code", e.ProductCode)
			}
			record.Set("description", e.Description)
			record.Set("comments", e.Comments)
			record.Set("ordering_hints", e.OrderingHints)
			record.Set("category", e.Category)
			record.Set("subcategory", e.Subcategory)
			record.Set("vendor", e.Vendor)
			record.Set("section", e.Section)
			record.Set("sheet_name", e.SheetName)
			record.Set("row_index", e.RowIndex)
			if err := txApp.Save(record); err != nil {
				return fmt.Errorf("save catalog entry %q: %w", e.ProductCode, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// LoadCatalog reads every boq_catalog record ordered by product code.
func LoadCatalog(app core.App) ([]services.CatalogEntry, error) {
	records, err := app.FindAllRecords("boq_catalog")
	if err != nil {
		return nil, fmt.Errorf("query boq_catalog: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].GetString("product_code") < records[j].GetString("product_code")
	})
	entries := make([]services.CatalogEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, services.CatalogEntry{
			ProductCode:   r.GetString("product_code"),
			Description:   r.GetString("description"),
			Comments:      r.GetString("comments"),
			OrderingHints: r.GetString("ordering_hints"),
			Category:      r.GetString("category"),
			Subcategory:   r.GetString("subcategory"),
			Vendor:        r.GetString("vendor"),
			Section:       r.GetString("section"),
			SheetName:     r.GetString("sheet_name"),
			RowIndex:      r.GetInt("row_index"),
		})
	}
	return entries, nil
}

// ── Sites ────────────────────────────────────────────────────────────────

// FindSite returns the sites record for siteID or ErrSiteNotFound.
func FindSite(app core.App, siteID string) (*core.Record, error) {
	record, err := app.FindFirstRecordByData("sites", "site_id", siteID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, siteID)
	}
	return record, nil
}

// EnsureSite returns the sites record for siteID, creating it when missing.
func EnsureSite(app core.App, siteID string) (*core.Record, error) {
	if record, err := FindSite(app, siteID); err == nil {
		return record, nil
	}
	col, err := app.FindCollectionByNameOrId("sites")
	if err != nil {
		return nil, fmt.Errorf("find sites collection: %w", err)
	}
	record := core.NewRecord(col)
	record.Set("site_id", siteID)
	if err := app.Save(record); err != nil {
		return nil, fmt.Errorf("create site %s: %w", siteID, err)
	}
	return record, nil
}

// LoadSiteInput reads the last radio-plan rows and power-calculator data
// stored for a site.
func LoadSiteInput(site *core.Record) services.Input {
	var in services.Input
	_ = site.UnmarshalJSONField("cells", &in.Cells)
	var pc *services.PowerCalc
	if err := site.UnmarshalJSONField("power_calc", &pc); err == nil {
		in.PowerCalc = pc
	}
	return in
}

// LoadSiteBOQ reads the persisted BOQ items and change log (newest first)
// for a site. A site that does not exist yet has neither.
func LoadSiteBOQ(app core.App, siteID string) ([]services.BOQItem, []services.ChangeLogEntry, error) {
	site, err := FindSite(app, siteID)
	if errors.Is(err, ErrSiteNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	itemRecords, err := app.FindRecordsByFilter("boq_items", "site = {:site}", "sort_order", 0, 0, map[string]any{"site": site.Id})
	if err != nil {
		return nil, nil, fmt.Errorf("query boq_items: %w", err)
	}
	items := make([]services.BOQItem, 0, len(itemRecords))
	for _, r := range itemRecords {
		items = append(items, itemFromRecord(r))
	}

	logRecords, err := app.FindRecordsByFilter("boq_change_log", "site = {:site}", "-timestamp", 0, 0, map[string]any{"site": site.Id})
	if err != nil {
		return nil, nil, fmt.Errorf("query boq_change_log: %w", err)
	}
	entries := make([]services.ChangeLogEntry, 0, len(logRecords))
	for _, r := range logRecords {
		e := services.ChangeLogEntry{
			ID:           r.GetString("entry_id"),
			Timestamp:    r.GetDateTime("timestamp").Time(),
			Field:        r.GetString("field"),
			ItemsChanged: r.GetInt("items_changed"),
		}
		_ = r.UnmarshalJSONField("old_value", &e.OldValue)
		_ = r.UnmarshalJSONField("new_value", &e.NewValue)
		entries = append(entries, e)
	}
	return items, entries, nil
}

// LoadSiteState reads everything a live controller is hydrated from: the
// stored BOQ, the change log and the site's latest input.
func LoadSiteState(app core.App, siteID string) (services.Stored, error) {
	items, log, err := LoadSiteBOQ(app, siteID)
	if err != nil {
		return services.Stored{}, err
	}
	st := services.Stored{Items: items, ChangeLog: log}
	if site, err := FindSite(app, siteID); err == nil {
		st.Input = LoadSiteInput(site)
	}
	return st, nil
}

// SaveSiteBOQ replaces the stored BOQ of a site with snap, stores in as the
// site's latest input and syncs the change log to snap.ChangeLog.
func SaveSiteBOQ(app core.App, snap services.Snapshot, in services.Input) error {
	return app.RunInTransaction(func(txApp core.App) error {
		site, err := EnsureSite(txApp, snap.SiteID)
		if err != nil {
			return err
		}
		site.Set("cells", in.Cells)
		site.Set("power_calc", in.PowerCalc)
		site.Set("config", snap.Classification.Config.Config)
		if err := txApp.Save(site); err != nil {
			return fmt.Errorf("save site %s: %w", snap.SiteID, err)
		}

		if err := saveItems(txApp, site, snap.Items); err != nil {
			return err
		}
		return saveChangeLog(txApp, site, snap.ChangeLog)
	})
}

func saveItems(app core.App, site *core.Record, items []services.BOQItem) error {
	old, err := app.FindRecordsByFilter("boq_items", "site = {:site}", "", 0, 0, map[string]any{"site": site.Id})
	if err != nil {
		return fmt.Errorf("query boq_items: %w", err)
	}
	for _, r := range old {
		if err := app.Delete(r); err != nil {
			return fmt.Errorf("delete boq item %s: %w", r.Id, err)
		}
	}

	col, err := app.FindCollectionByNameOrId("boq_items")
	if err != nil {
		return fmt.Errorf("find boq_items collection: %w", err)
	}
	for i, it := range items {
		record := core.NewRecord(col)
		record.Set("site", site.Id)
		record.Set("sort_order", i)
		record.Set("item_id", it.ID)
		record.Set("product_code", it.ProductCode)
		record.Set("description", it.Description)
		record.Set("quantity", it.Quantity)
		record.Set("unit", it.Unit)
		record.Set("section", it.Section)
		record.Set("category", it.Category)
		record.Set("subcategory", it.Subcategory)
		record.Set("vendor", it.Vendor)
		record.Set("provenance", it.Provenance)
		record.Set("rule", it.Rule)
		record.Set("manual_override", it.ManualOverride)
		record.Set("previous_quantity", it.PreviousQuantity)
		if !it.ChangedAt.IsZero() {
			record.Set("changed_at", it.ChangedAt)
		}
		if err := app.Save(record); err != nil {
			return fmt.Errorf("save boq item %s: %w", it.ID, err)
		}
	}
	return nil
}

func saveChangeLog(app core.App, site *core.Record, entries []services.ChangeLogEntry) error {
	keep := make(map[string]bool, len(entries))
	for _, e := range entries {
		keep[e.ID] = true
	}

	stored, err := app.FindRecordsByFilter("boq_change_log", "site = {:site}", "", 0, 0, map[string]any{"site": site.Id})
	if err != nil {
		return fmt.Errorf("query boq_change_log: %w", err)
	}
	have := make(map[string]bool, len(stored))
	for _, r := range stored {
		id := r.GetString("entry_id")
		if !keep[id] {
			if err := app.Delete(r); err != nil {
				return fmt.Errorf("delete change log entry %s: %w", id, err)
			}
			continue
		}
		have[id] = true
	}

	col, err := app.FindCollectionByNameOrId("boq_change_log")
	if err != nil {
		return fmt.Errorf("find boq_change_log collection: %w", err)
	}
	for _, e := range entries {
		if have[e.ID] {
			continue
		}
		record := core.NewRecord(col)
		record.Set("site", site.Id)
		record.Set("entry_id", e.ID)
		record.Set("timestamp", e.Timestamp)
		record.Set("field", e.Field)
		record.Set("old_value", e.OldValue)
		record.Set("new_value", e.NewValue)
		record.Set("items_changed", e.ItemsChanged)
		if err := app.Save(record); err != nil {
			return fmt.Errorf("save change log entry %s: %w", e.ID, err)
		}
	}
	return nil
}

func itemFromRecord(r *core.Record) services.BOQItem {
	it := services.BOQItem{
		ID: r.GetString("item_id"),
		RuleResult: services.RuleResult{
			ProductCode: r.GetString("product_code"),
			Description: r.GetString("description"),
			Quantity:    r.GetFloat("quantity"),
			Unit:        r.GetString("unit"),
			Section:     r.GetString("section"),
			Category:    r.GetString("category"),
			Subcategory: r.GetString("subcategory"),
			Provenance:  r.GetString("provenance"),
		},
		Rule:           r.GetString("rule"),
		Vendor:         r.GetString("vendor"),
		ManualOverride: r.GetBool("manual_override"),
	}
	var prev *float64
	if err := r.UnmarshalJSONField("previous_quantity", &prev); err == nil {
		it.PreviousQuantity = prev
	}
	if dt := r.GetDateTime("changed_at"); !dt.IsZero() {
		it.ChangedAt = dt.Time().UTC()
	}
	return it
}
