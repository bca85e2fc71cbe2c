package handlers

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"siteforge/collections"
	"siteforge/services"
)

// HandleCatalogImport loads an operator BoQ template workbook into
// boq_catalog and swaps it into the live catalog.
// Route: POST /api/catalog/import
func HandleCatalogImport(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if err := e.Request.ParseMultipartForm(20 << 20); err != nil {
			return apiError(e, http.StatusBadRequest, "File too large or invalid form data")
		}
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return apiError(e, http.StatusBadRequest, "Please select a file to upload")
		}
		defer file.Close()
		if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
			return apiError(e, http.StatusBadRequest, "Catalog must be an .xlsx workbook")
		}

		entries, stats, err := services.ImportCatalogWorkbook(file)
		if err != nil {
			return apiError(e, http.StatusBadRequest, err.Error())
		}

		n, err := collections.SaveCatalog(app, entries)
		if err != nil {
			sites.Log.Error("catalog_import: save failed", zap.Error(err))
			return apiError(e, http.StatusInternalServerError, "Failed to save catalog")
		}

		if err := reloadCatalog(app, sites); err != nil {
			sites.Log.Error("catalog_import: reload failed", zap.Error(err))
		}
		sites.Log.Info("catalog imported", zap.String("file", header.Filename), zap.Int("entries", n), zap.Int("skipped", stats.Skipped))

		return e.JSON(http.StatusOK, map[string]any{"imported": n, "stats": stats})
	}
}

// HandleCatalogList returns the stored catalog ordered by product code.
// Route: GET /api/catalog
func HandleCatalogList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		entries, err := collections.LoadCatalog(app)
		if err != nil {
			return apiError(e, http.StatusInternalServerError, "Failed to load catalog")
		}
		if section := e.Request.URL.Query().Get("section"); section != "" {
			filtered := entries[:0]
			for _, c := range entries {
				if c.Section == section {
					filtered = append(filtered, c)
				}
			}
			entries = filtered
		}
		if entries == nil {
			entries = []services.CatalogEntry{}
		}
		return e.JSON(http.StatusOK, map[string]any{"entries": entries})
	}
}

// reloadCatalog replaces the live catalog with the stored one.
func reloadCatalog(app core.App, sites *Sites) error {
	entries, err := collections.LoadCatalog(app)
	if err != nil {
		return err
	}
	if sites.Catalog != nil {
		sites.Catalog.Replace(entries)
	}
	if sites.Metrics != nil {
		sites.Metrics.SetCatalogEntries(len(entries))
	}
	return nil
}

// ReloadCatalog loads boq_catalog into the live catalog. It is called once
// at startup.
func ReloadCatalog(app *pocketbase.PocketBase, sites *Sites) error {
	return reloadCatalog(app, sites)
}
