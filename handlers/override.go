package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"siteforge/services"
)

type overrideRequest struct {
	Quantity *float64 `json:"quantity"`
}

// validQuantity rejects missing, negative and non-finite quantities.
func validQuantity(q *float64) bool {
	return q != nil && *q >= 0 && !math.IsInf(*q, 0) && !math.IsNaN(*q)
}

// HandleOverride pins a BOQ line to a user-entered quantity.
// Route: PATCH /api/sites/{siteId}/boq/{itemId}
func HandleOverride(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		itemID := e.Request.PathValue("itemId")
		if !ok || itemID == "" {
			return apiError(e, http.StatusBadRequest, "Missing site or item ID")
		}

		var req overrideRequest
		if err := json.NewDecoder(e.Request.Body).Decode(&req); err != nil {
			return apiError(e, http.StatusBadRequest, "Invalid JSON body")
		}
		if !validQuantity(req.Quantity) {
			return apiError(e, http.StatusBadRequest, "quantity must be a non-negative number")
		}

		snap, err := overrideItem(app, sites, siteID, itemID, *req.Quantity)
		if err != nil {
			return apiError(e, statusFor(err), err.Error())
		}
		return e.JSON(http.StatusOK, newSnapshotResponse(snap))
	}
}

// HandleClearOverride drops a manual override so the rule value returns.
// Manual lines are removed.
// Route: DELETE /api/sites/{siteId}/boq/{itemId}/override
func HandleClearOverride(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		itemID := e.Request.PathValue("itemId")
		if !ok || itemID == "" {
			return apiError(e, http.StatusBadRequest, "Missing site or item ID")
		}

		snap, err := clearOverride(app, sites, e, siteID, itemID)
		if err != nil {
			return apiError(e, statusFor(err), err.Error())
		}
		return e.JSON(http.StatusOK, newSnapshotResponse(snap))
	}
}

type manualItemRequest struct {
	ProductCode string   `json:"productCode"`
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	Unit        string   `json:"unit"`
	Section     string   `json:"section"`
	Category    string   `json:"category"`
}

// HandleAddManualItem appends a user-entered BOQ line.
// Route: POST /api/sites/{siteId}/boq
func HandleAddManualItem(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		if !ok {
			return apiError(e, http.StatusBadRequest, "Missing or invalid site ID")
		}

		var req manualItemRequest
		if err := json.NewDecoder(e.Request.Body).Decode(&req); err != nil {
			return apiError(e, http.StatusBadRequest, "Invalid JSON body")
		}
		req.ProductCode = strings.TrimSpace(req.ProductCode)
		if req.ProductCode == "" {
			return apiError(e, http.StatusBadRequest, "productCode is required")
		}
		if !validQuantity(req.Quantity) {
			return apiError(e, http.StatusBadRequest, "quantity must be a non-negative number")
		}
		if req.Section == "" {
			req.Section = services.SectionProduct
		}
		if !services.IsOption(services.SectionOptions, req.Section) {
			return apiError(e, http.StatusBadRequest, "Unknown section")
		}
		if req.Unit == "" {
			req.Unit = services.UnitPieces
		}
		if !services.IsOption(services.UnitOptions, req.Unit) {
			return apiError(e, http.StatusBadRequest, "Unknown unit")
		}

		ctrl, err := sites.controller(app, siteID)
		if err != nil {
			sites.Log.Error("manual_item: load site failed", zap.String("site", siteID), zap.Error(err))
			return apiError(e, http.StatusInternalServerError, "Failed to load site")
		}
		snap, err := ctrl.AddManualItem(services.RuleResult{
			ProductCode: req.ProductCode,
			Description: req.Description,
			Quantity:    *req.Quantity,
			Unit:        req.Unit,
			Section:     req.Section,
			Category:    req.Category,
			Provenance:  "manual entry",
		})
		if err != nil {
			return apiError(e, statusFor(err), err.Error())
		}
		return e.JSON(http.StatusCreated, newSnapshotResponse(snap))
	}
}

func overrideItem(app core.App, sites *Sites, siteID, itemID string, qty float64) (services.Snapshot, error) {
	ctrl, err := sites.controller(app, siteID)
	if err != nil {
		sites.Log.Error("override: load site failed", zap.String("site", siteID), zap.Error(err))
		return services.Snapshot{}, err
	}
	return ctrl.Override(itemID, qty)
}

func clearOverride(app core.App, sites *Sites, e *core.RequestEvent, siteID, itemID string) (services.Snapshot, error) {
	ctrl, err := sites.controller(app, siteID)
	if err != nil {
		sites.Log.Error("clear_override: load site failed", zap.String("site", siteID), zap.Error(err))
		return services.Snapshot{}, err
	}
	return ctrl.ClearOverride(e.Request.Context(), itemID)
}
