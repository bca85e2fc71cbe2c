package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"siteforge/services"
)

// exporter describes one download format.
type exporter struct {
	generate    func(services.ExportData) ([]byte, error)
	contentType string
	ext         string
}

var exporters = map[string]exporter{
	"csv":   {services.GenerateCSV, "text/csv; charset=utf-8", "csv"},
	"excel": {services.GenerateExcel, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"},
	"pdf":   {services.GeneratePDF, "application/pdf", "pdf"},
}

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, `"`, "")
	return s
}

// HandleBOQExport returns a handler that downloads a site's live BOQ as
// CSV, Excel or PDF.
// Route: GET /api/sites/{siteId}/boq/export/{format}
func HandleBOQExport(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		if !ok {
			return e.String(http.StatusBadRequest, "Missing site ID")
		}
		format := e.Request.PathValue("format")
		exp, ok := exporters[format]
		if !ok {
			return e.String(http.StatusNotFound, fmt.Sprintf("Unknown export format %q", format))
		}

		ctrl, err := sites.controller(app, siteID)
		if err != nil {
			sites.Log.Error("export: load site failed", zap.String("site", siteID), zap.Error(err))
			return e.String(http.StatusInternalServerError, "Failed to load site")
		}

		now := time.Now()
		data := services.BuildExportData(ctrl.Snapshot(), now)
		body, err := exp.generate(data)
		if err != nil {
			sites.Log.Error("export: failed to generate", zap.String("site", siteID), zap.String("format", format), zap.Error(err))
			return e.String(http.StatusInternalServerError, "Failed to generate export")
		}
		if sites.Metrics != nil {
			sites.Metrics.RecordExport(format)
		}

		filename := fmt.Sprintf("BOQ_%s_%s.%s", sanitizeFilename(siteID), now.Format("20060102"), exp.ext)

		e.Response.Header().Set("Content-Type", exp.contentType)
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		_, err = e.Response.Write(body)
		return err
	}
}
