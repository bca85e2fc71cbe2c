package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase/core"
)

func toastFrom(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	trigger := rec.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("expected HX-Trigger header to be set")
	}
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trigger), &parsed); err != nil {
		t.Fatalf("HX-Trigger is not valid JSON: %v", err)
	}
	var toast map[string]string
	if err := json.Unmarshal(parsed["showToast"], &toast); err != nil {
		t.Fatalf("showToast is not valid JSON: %v", err)
	}
	return toast
}

func TestSetToast(t *testing.T) {
	tests := []struct {
		name      string
		toastType string
		message   string
	}{
		{"success", "success", "Quantity set to 12"},
		{"error", "error", "boq item not found"},
		{"quotes", "info", `Item "ice_RM_002" reset`},
		{"markup", "info", `<script>alert("x")</script>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e := &core.RequestEvent{}
			e.Response = rec

			SetToast(e, tt.toastType, tt.message)

			toast := toastFrom(t, rec)
			if toast["message"] != tt.message {
				t.Errorf("message = %q, want %q", toast["message"], tt.message)
			}
			if toast["type"] != tt.toastType {
				t.Errorf("type = %q, want %q", toast["type"], tt.toastType)
			}
		})
	}
}

func TestSetToast_MergesWithExisting(t *testing.T) {
	rec := httptest.NewRecorder()
	e := &core.RequestEvent{}
	e.Response = rec
	rec.Header().Set("HX-Trigger", `{"boqChanged":{"site":"MOR00123"}}`)

	SetToast(e, "success", "Override cleared")

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &parsed); err != nil {
		t.Fatalf("HX-Trigger is not valid JSON: %v", err)
	}
	if _, ok := parsed["boqChanged"]; !ok {
		t.Error("expected boqChanged key to be preserved after merge")
	}
	if toastFrom(t, rec)["message"] != "Override cleared" {
		t.Error("expected toast to be merged in")
	}
}

func TestSetToast_OverwritesInvalidExisting(t *testing.T) {
	rec := httptest.NewRecorder()
	e := &core.RequestEvent{}
	e.Response = rec
	rec.Header().Set("HX-Trigger", "notValidJSON")

	SetToast(e, "error", "Overwritten")

	if toastFrom(t, rec)["message"] != "Overwritten" {
		t.Error("expected toast after overwriting invalid header")
	}
}

func TestErrorToast(t *testing.T) {
	tests := []struct {
		name string
		code int
		msg  string
	}{
		{"bad request", http.StatusBadRequest, "Quantity must be a non-negative number"},
		{"not found", http.StatusNotFound, "boq item not found"},
		{"conflict", http.StatusConflict, "boq item has no manual override"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e := &core.RequestEvent{}
			e.Response = rec

			if err := ErrorToast(e, tt.code, tt.msg); err != nil {
				t.Fatalf("ErrorToast returned error: %v", err)
			}
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
			if rec.Header().Get("HX-Reswap") != "none" {
				t.Error("expected HX-Reswap: none")
			}
			if rec.Body.String() != tt.msg {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.msg)
			}
			if toastFrom(t, rec)["type"] != "error" {
				t.Error("expected error toast")
			}
		})
	}
}
