package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_LogsRequest(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	mw := RequestLogger(zap.New(obsCore))

	req := httptest.NewRequest(http.MethodGet, "/api/sites/MOR00123/boq", nil)
	req.SetPathValue("siteId", "MOR00123")
	e := &core.RequestEvent{}
	e.Request = req
	e.Response = httptest.NewRecorder()

	if err := mw(e); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/api/sites/MOR00123/boq" {
		t.Errorf("path = %v", fields["path"])
	}
	if fields["site"] != "MOR00123" {
		t.Errorf("site = %v", fields["site"])
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Errorf("level = %v, want debug", entries[0].Level)
	}
}

func TestRequestLogger_LogsErrors(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)

	boom := errors.New("boom")
	h := &hook.Hook[*core.RequestEvent]{}
	h.BindFunc(RequestLogger(zap.New(obsCore)))
	h.BindFunc(func(e *core.RequestEvent) error { return boom })

	e := &core.RequestEvent{}
	e.Request = httptest.NewRequest(http.MethodPost, "/api/sites/X/recompute", nil)
	e.Response = httptest.NewRecorder()

	if err := h.Trigger(e); !errors.Is(err, boom) {
		t.Fatalf("middleware error = %v, want %v", err, boom)
	}
	if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
		t.Errorf("expected one error entry, got %d", n)
	}
}
