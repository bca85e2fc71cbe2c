package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"siteforge/services"
	"siteforge/templates"
)

// formatValue renders an edit value for the change log table.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return services.FormatQuantity(x, "")
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// buildPageData converts a snapshot into the view model. pollEvery is set
// while any line is highlighted so the page refreshes once the window ends.
func buildPageData(snap services.Snapshot, pollEvery int) templates.BOQPageData {
	data := templates.BOQPageData{
		SiteID: snap.SiteID,
		Config: snap.Classification.Config.Config,
	}
	if !snap.ComputedAt.IsZero() {
		data.ComputedAt = snap.ComputedAt.Format("02 Jan 2006 15:04:05")
	}
	for i, it := range snap.Items {
		row := templates.BOQRow{
			ID:          it.ID,
			Index:       i + 1,
			ProductCode: it.ProductCode,
			Description: it.Description,
			Qty:         services.FormatQuantity(it.Quantity, ""),
			Unit:        it.Unit,
			Section:     it.Section,
			Category:    it.Category,
			Vendor:      it.Vendor,
			Override:    it.ManualOverride,
			Recent:      snap.IsRecent(it.ID),
		}
		if row.Recent && it.PreviousQuantity != nil {
			row.Previous = services.FormatQuantity(*it.PreviousQuantity, "")
		}
		data.Rows = append(data.Rows, row)
	}
	for _, w := range snap.Warnings {
		data.Warnings = append(data.Warnings, templates.WarningRow{Code: w.Code, Level: w.Level, Message: w.Message})
	}
	head := snap.ChangeLog
	if len(head) > changeLogHead {
		head = head[:changeLogHead]
	}
	for _, c := range head {
		data.Changes = append(data.Changes, templates.ChangeRow{
			Time:         c.Timestamp.Format("15:04:05"),
			Field:        c.Field,
			OldValue:     formatValue(c.OldValue),
			NewValue:     formatValue(c.NewValue),
			ItemsChanged: c.ItemsChanged,
		})
	}
	if len(snap.RecentChanges) > 0 {
		data.PollEvery = pollEvery
	}
	return data
}

// pollSeconds is how often a highlighted table re-fetches itself.
const pollSeconds = 2

// HandleBOQView renders the BOQ page of a site.
// Route: GET /sites/{siteId}/boq
func HandleBOQView(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		if !ok {
			return e.String(http.StatusBadRequest, "Missing site ID")
		}
		ctrl, err := sites.controller(app, siteID)
		if err != nil {
			sites.Log.Error("boq_view: load site failed", zap.String("site", siteID), zap.Error(err))
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		data := buildPageData(ctrl.Snapshot(), pollSeconds)
		if e.Request.Header.Get("HX-Request") == "true" {
			return templates.BOQTable(data).Render(e.Request.Context(), e.Response)
		}
		return templates.BOQPage(data).Render(e.Request.Context(), e.Response)
	}
}

// HandleBOQTable renders only the table partial for HTMX polling.
// Route: GET /sites/{siteId}/boq/table
func HandleBOQTable(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		if !ok {
			return e.String(http.StatusBadRequest, "Missing site ID")
		}
		ctrl, err := sites.controller(app, siteID)
		if err != nil {
			sites.Log.Error("boq_table: load site failed", zap.String("site", siteID), zap.Error(err))
			return e.String(http.StatusInternalServerError, "Internal error")
		}
		return templates.BOQTable(buildPageData(ctrl.Snapshot(), pollSeconds)).Render(e.Request.Context(), e.Response)
	}
}

// HandleBOQViewOverride applies an override from the page's quantity form
// and re-renders the table.
// Route: POST /sites/{siteId}/boq/{itemId}/override
func HandleBOQViewOverride(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		itemID := e.Request.PathValue("itemId")
		if !ok || itemID == "" {
			return ErrorToast(e, http.StatusBadRequest, "Missing site or item ID")
		}
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid form data")
		}
		qty, err := strconv.ParseFloat(e.Request.FormValue("quantity"), 64)
		if err != nil || !validQuantity(&qty) {
			return ErrorToast(e, http.StatusBadRequest, "Quantity must be a non-negative number")
		}

		snap, err := overrideItem(app, sites, siteID, itemID, qty)
		if err != nil {
			return ErrorToast(e, statusFor(err), err.Error())
		}
		SetToast(e, "success", fmt.Sprintf("Quantity set to %s", services.FormatQuantity(qty, "")))
		return templates.BOQTable(buildPageData(snap, pollSeconds)).Render(e.Request.Context(), e.Response)
	}
}

// HandleBOQViewClearOverride resets an overridden line from the page.
// Route: DELETE /sites/{siteId}/boq/{itemId}/override
func HandleBOQViewClearOverride(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		itemID := e.Request.PathValue("itemId")
		if !ok || itemID == "" {
			return ErrorToast(e, http.StatusBadRequest, "Missing site or item ID")
		}

		snap, err := clearOverride(app, sites, e, siteID, itemID)
		if err != nil {
			return ErrorToast(e, statusFor(err), err.Error())
		}
		SetToast(e, "success", "Override cleared")
		return templates.BOQTable(buildPageData(snap, pollSeconds)).Render(e.Request.Context(), e.Response)
	}
}
