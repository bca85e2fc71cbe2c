package collections

import (
	"fmt"
	"log"
	"strings"

	"github.com/pocketbase/pocketbase"

	"siteforge/services"
)

// sheetSections maps template sheet names to the section their rows belong to.
var sheetSections = map[string]string{
	"BoM Griptel": services.SectionGriptel,
	"BoM Solar":   services.SectionSolar,
}

// catalogSection infers the section of a catalog record imported before
// sections were stored.
func catalogSection(productCode, sheetName string) string {
	if s, ok := sheetSections[sheetName]; ok {
		return s
	}
	if strings.HasPrefix(productCode, "ice_") {
		return services.SectionService
	}
	return services.SectionProduct
}

// MigrateCatalogSections fills the section of boq_catalog records that have
// none. Safe to call on every startup -- returns early if nothing to migrate.
func MigrateCatalogSections(app *pocketbase.PocketBase) error {
	col, err := app.FindCollectionByNameOrId("boq_catalog")
	if err != nil {
		return fmt.Errorf("migrate: could not find boq_catalog collection: %w", err)
	}

	missing, err := app.FindRecordsByFilter(col, "section = ''", "", 0, 0)
	if err != nil {
		return fmt.Errorf("migrate: could not query catalog records without section: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	log.Printf("migrate: found %d catalog record(s) without a section -- backfilling...\n", len(missing))

	for _, record := range missing {
		code := record.GetString("product_code")
		section := catalogSection(code, record.GetString("sheet_name"))
		record.Set("section", section)
		if err := app.Save(record); err != nil {
			log.Printf("migrate: failed to set section for %q (%s): %v\n", code, record.Id, err)
			continue
		}
	}

	log.Println("migrate: catalog section backfill complete.")
	return nil
}
