package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"

	"siteforge/metrics"
	"siteforge/services"
	"siteforge/testhelpers"
)

// newTestSites returns a Sites backed by the built-in catalog. Controllers
// are closed when the test ends.
func newTestSites(t *testing.T) *Sites {
	t.Helper()
	sites := NewSites(services.NewCatalogStore(services.DefaultCatalogEntries()), metrics.NewRecorder(), nil)
	t.Cleanup(sites.Pool.Close)
	return sites
}

// jsonRequest builds a request with a JSON body and the siteId path value.
func jsonRequest(method, siteID string, body any) *http.Request {
	var payload string
	switch b := body.(type) {
	case nil:
	case string:
		payload = b
	default:
		data, _ := json.Marshal(b)
		payload = string(data)
	}
	req := httptest.NewRequest(method, "/api/sites/"+siteID, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("siteId", siteID)
	return req
}

// decodeSnapshot reads a snapshotResponse body.
func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) snapshotResponse {
	t.Helper()
	var resp snapshotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return resp
}

// recomputeSite runs HandleRecompute with the sample radio plan.
func recomputeSite(t *testing.T, app *pocketbase.PocketBase, sites *Sites, siteID string) snapshotResponse {
	t.Helper()
	req := jsonRequest(http.MethodPost, siteID, map[string]any{
		"edit":  services.Edit{Field: "cells"},
		"cells": testhelpers.SampleCells(siteID),
	})
	rec := httptest.NewRecorder()
	if err := HandleRecompute(app, sites)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("recompute handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("recompute: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeSnapshot(t, rec)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", services.ErrItemNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", services.ErrNotOverridden), http.StatusConflict},
		{fmt.Errorf("x: %w", services.ErrTooManySectors), http.StatusUnprocessableEntity},
		{context.Canceled, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestSiteIDFrom(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		want   string
		wantOK bool
	}{
		{"plain", "MOR00123", "MOR00123", true},
		{"trimmed", "  MOR00123 ", "MOR00123", true},
		{"empty", "", "", false},
		{"blank", "   ", "", false},
		{"too long", strings.Repeat("A", 65), strings.Repeat("A", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.SetPathValue("siteId", tt.value)
			e := newTestRequestEvent(nil, req, httptest.NewRecorder())
			got, ok := siteIDFrom(e)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("siteIDFrom(%q) = %q, %v; want %q, %v", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNewSites_NilDependencies(t *testing.T) {
	sites := NewSites(nil, nil, nil)
	defer sites.Pool.Close()
	if sites.Log == nil {
		t.Fatal("expected a no-op logger")
	}

	app := testhelpers.NewTestApp(t)
	ctrl, err := sites.controller(app, "NOCAT001")
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	snap, err := ctrl.Recompute(context.Background(), services.Edit{Field: "cells"}, services.Input{Cells: testhelpers.SampleCells("NOCAT001")})
	if err != nil {
		t.Fatalf("recompute without catalog: %v", err)
	}
	if len(snap.Items) == 0 {
		t.Error("expected items without a catalog")
	}
}
