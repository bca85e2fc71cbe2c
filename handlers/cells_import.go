package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"siteforge/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// cellsImportResponse is the body returned by the cells import. Snapshot
// is set only when the import was applied.
type cellsImportResponse struct {
	Import   *services.ImportResult `json:"import"`
	Applied  bool                   `json:"applied"`
	Snapshot *snapshotResponse      `json:"snapshot,omitempty"`
}

// HandleCellsImport validates an uploaded radio plan (CSV or XLSX). When
// every row is valid and the form field apply=true is sent, the rows
// replace the site's radio plan and the BOQ is recomputed.
// Route: POST /api/sites/{siteId}/cells/import
func HandleCellsImport(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		if !ok {
			return apiError(e, http.StatusBadRequest, "Missing or invalid site ID")
		}

		// Parse multipart form (max 10MB)
		if err := e.Request.ParseMultipartForm(10 << 20); err != nil {
			return apiError(e, http.StatusBadRequest, "File too large or invalid form data")
		}
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return apiError(e, http.StatusBadRequest, "Please select a file to upload")
		}
		defer file.Close()

		result, err := services.ImportCells(file, header.Filename)
		if err != nil {
			sites.Log.Info("cells_import: rejected file", zap.String("site", siteID), zap.String("file", header.Filename), zap.Error(err))
			return apiError(e, http.StatusBadRequest, err.Error())
		}

		resp := cellsImportResponse{Import: result}
		if result.ErrorRows > 0 || e.Request.FormValue("apply") != "true" {
			status := http.StatusOK
			if result.ErrorRows > 0 {
				status = http.StatusUnprocessableEntity
			}
			return e.JSON(status, resp)
		}

		ctrl, err := sites.controller(app, siteID)
		if err != nil {
			sites.Log.Error("cells_import: load site failed", zap.String("site", siteID), zap.Error(err))
			return apiError(e, http.StatusInternalServerError, "Failed to load site")
		}
		snap, err := ctrl.RecomputeWith(e.Request.Context(), func(last services.Input) (services.Edit, services.Input, error) {
			edit := services.Edit{Field: "cells", OldValue: len(last.Cells), NewValue: len(result.Cells)}
			return edit, services.Input{Cells: result.Cells, PowerCalc: last.PowerCalc}, nil
		})
		if err != nil {
			sites.Log.Warn("cells_import: recompute failed", zap.String("site", siteID), zap.Error(err))
			return apiError(e, statusFor(err), err.Error())
		}

		sr := newSnapshotResponse(snap)
		resp.Applied = true
		resp.Snapshot = &sr
		return e.JSON(http.StatusOK, resp)
	}
}

// HandleCellTemplateDownload serves the Excel template for the radio-plan import.
// Route: GET /api/cells/template
func HandleCellTemplateDownload(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		xlsxBytes, err := services.GenerateCellTemplate()
		if err != nil {
			log.Printf("cell_template: failed to generate: %v", err)
			return e.String(http.StatusInternalServerError, "Failed to generate template")
		}

		filename := fmt.Sprintf("RadioPlan_Template_%d.xlsx", time.Now().Year())
		e.Response.Header().Set("Content-Type", xlsxContentType)
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		_, err = e.Response.Write(xlsxBytes)
		return err
	}
}

// HandleCellErrorReport turns posted validation errors into a downloadable
// Excel report.
// Route: POST /api/cells/import/errors
func HandleCellErrorReport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var errs []services.ValidationError
		if err := json.NewDecoder(e.Request.Body).Decode(&errs); err != nil {
			return e.String(http.StatusBadRequest, "Invalid error data")
		}

		xlsxBytes, err := services.GenerateErrorReport(errs)
		if err != nil {
			log.Printf("cell_error_report: failed to generate: %v", err)
			return e.String(http.StatusInternalServerError, "Failed to generate report")
		}

		filename := fmt.Sprintf("RadioPlan_Errors_%s.xlsx", time.Now().Format("2006-01-02"))
		e.Response.Header().Set("Content-Type", xlsxContentType)
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		_, err = e.Response.Write(xlsxBytes)
		return err
	}
}
