package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"siteforge/collections"
	"siteforge/services"
	"siteforge/testhelpers"
)

// multipartRequest builds a POST with one file and optional form fields.
func multipartRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/test", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

const samplePlanCSV = "Cell ID,Technology,Antenna Type,Azimuth,Jumpers\n" +
	"MOR00123L18A,LTE,RRZZ-65B-R4N39-V1,0,6 m\n" +
	"MOR00123L18B,LTE,RRZZ-65B-R4N39-V1,120,\n" +
	"MOR00123L08C,lte,APXV,240,\n"

func decodeImport(t *testing.T, rec *httptest.ResponseRecorder) cellsImportResponse {
	t.Helper()
	var resp cellsImportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v\nbody: %s", err, rec.Body.String())
	}
	return resp
}

func TestHandleCellsImport_ValidateOnly(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	sites := newTestSites(t)

	req := multipartRequest(t, "plan.csv", []byte(samplePlanCSV), nil)
	req.SetPathValue("siteId", "MOR00123")
	rec := httptest.NewRecorder()
	if err := HandleCellsImport(app, sites)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeImport(t, rec)
	if resp.Applied || resp.Snapshot != nil {
		t.Error("validate-only import should not apply")
	}
	if resp.Import.ValidRows != 3 || len(resp.Import.Cells) != 3 {
		t.Errorf("import = %+v, want 3 valid rows", resp.Import)
	}
	if resp.Import.Cells[2].Technology != "LTE" {
		t.Errorf("technology not normalised: %q", resp.Import.Cells[2].Technology)
	}
	if _, err := collections.FindSite(app, "MOR00123"); err == nil {
		t.Error("validate-only import should not create the site")
	}
}

func TestHandleCellsImport_Apply(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	sites := newTestSites(t)

	req := multipartRequest(t, "plan.csv", []byte(samplePlanCSV), map[string]string{"apply": "true"})
	req.SetPathValue("siteId", "MOR00123")
	rec := httptest.NewRecorder()
	if err := HandleCellsImport(app, sites)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeImport(t, rec)
	if !resp.Applied || resp.Snapshot == nil {
		t.Fatal("expected the import to be applied")
	}
	if len(resp.Snapshot.Items) == 0 {
		t.Error("expected BOQ items after apply")
	}
	if len(resp.Snapshot.ChangeLog) != 1 || resp.Snapshot.ChangeLog[0].Field != "cells" {
		t.Errorf("change log = %+v", resp.Snapshot.ChangeLog)
	}

	site, err := collections.FindSite(app, "MOR00123")
	if err != nil {
		t.Fatalf("site not stored: %v", err)
	}
	if got := len(collections.LoadSiteInput(site).Cells); got != 3 {
		t.Errorf("stored %d cells, want 3", got)
	}
}

func TestHandleCellsImport_ErrorRows(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	sites := newTestSites(t)

	csv := "Cell ID,Technology,Azimuth\nMOR00123L18A,LTE,north\n,LTE,0\n"
	req := multipartRequest(t, "plan.csv", []byte(csv), map[string]string{"apply": "true"})
	req.SetPathValue("siteId", "MOR00123")
	rec := httptest.NewRecorder()
	if err := HandleCellsImport(app, sites)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	resp := decodeImport(t, rec)
	if resp.Applied {
		t.Error("a plan with errors must not be applied")
	}
	if resp.Import.ErrorRows != 2 {
		t.Errorf("errorRows = %d, want 2", resp.Import.ErrorRows)
	}
}

func TestHandleCellsImport_BadUploads(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	sites := newTestSites(t)

	t.Run("unsupported extension", func(t *testing.T) {
		req := multipartRequest(t, "plan.txt", []byte("x"), nil)
		req.SetPathValue("siteId", "MOR00123")
		rec := httptest.NewRecorder()
		if err := HandleCellsImport(app, sites)(newTestRequestEvent(app, req, rec)); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		req.SetPathValue("siteId", "MOR00123")
		rec := httptest.NewRecorder()
		if err := HandleCellsImport(app, sites)(newTestRequestEvent(app, req, rec)); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleCellTemplateDownload(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cells/template", nil)
	rec := httptest.NewRecorder()
	if err := HandleCellTemplateDownload(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "RadioPlan_Template_") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("body is not an xlsx file")
	}
}

func TestHandleCellErrorReport(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	errs := []services.ValidationError{{Row: 2, Field: "Azimuth", Message: `"north" is not a number`}}
	body, _ := json.Marshal(errs)
	req := httptest.NewRequest(http.MethodPost, "/api/cells/import/errors", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	if err := HandleCellErrorReport(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "RadioPlan_Errors_") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	req = httptest.NewRequest(http.MethodPost, "/api/cells/import/errors", strings.NewReader("not json"))
	rec = httptest.NewRecorder()
	if err := HandleCellErrorReport(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid body, got %d", rec.Code)
	}
}
