package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"siteforge/services"
)

// changeLogHead is how many change log entries BOQ responses carry.
const changeLogHead = 20

// recomputeRequest is the body of POST /api/sites/{siteId}/recompute.
// Omitted cells reuse the site's current radio plan; an omitted powerCalc
// reuses the current power data, an explicit null clears it.
type recomputeRequest struct {
	Edit      services.Edit            `json:"edit"`
	Cells     []services.RawCellRecord `json:"cells"`
	PowerCalc json.RawMessage          `json:"powerCalc"`
}

// snapshotResponse is a snapshot with the change log cut to its head.
type snapshotResponse struct {
	services.Snapshot
	ChangeLog []services.ChangeLogEntry `json:"changeLog"`
}

func newSnapshotResponse(snap services.Snapshot) snapshotResponse {
	head := snap.ChangeLog
	if len(head) > changeLogHead {
		head = head[:changeLogHead]
	}
	if snap.Items == nil {
		snap.Items = []services.BOQItem{}
	}
	if snap.RecentChanges == nil {
		snap.RecentChanges = []string{}
	}
	if head == nil {
		head = []services.ChangeLogEntry{}
	}
	return snapshotResponse{Snapshot: snap, ChangeLog: head}
}

// powerCalc decodes the powerCalc field. set is false when the field was
// omitted; an explicit null is set with a nil result.
func (r recomputeRequest) powerCalc() (pc *services.PowerCalc, set bool, err error) {
	switch {
	case len(r.PowerCalc) == 0:
		return nil, false, nil
	case bytes.Equal(bytes.TrimSpace(r.PowerCalc), []byte("null")):
		return nil, true, nil
	}
	var v services.PowerCalc
	if err := json.Unmarshal(r.PowerCalc, &v); err != nil {
		return nil, false, err
	}
	return &v, true, nil
}

// mergeInput fills what the request omitted from the controller's last
// published input.
func mergeInput(last services.Input, cells []services.RawCellRecord, pc *services.PowerCalc, pcSet bool) services.Input {
	in := services.Input{Cells: cells, PowerCalc: pc}
	if cells == nil {
		in.Cells = last.Cells
	}
	if !pcSet {
		in.PowerCalc = last.PowerCalc
	}
	return in
}

// HandleRecompute re-derives a site's BOQ after an input edit.
// Route: POST /api/sites/{siteId}/recompute
func HandleRecompute(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		if !ok {
			return apiError(e, http.StatusBadRequest, "Missing or invalid site ID")
		}

		var req recomputeRequest
		if err := json.NewDecoder(e.Request.Body).Decode(&req); err != nil {
			return apiError(e, http.StatusBadRequest, "Invalid JSON body")
		}
		pc, pcSet, err := req.powerCalc()
		if err != nil {
			return apiError(e, http.StatusBadRequest, "Invalid powerCalc")
		}

		ctrl, err := sites.controller(app, siteID)
		if err != nil {
			sites.Log.Error("recompute: load site failed", zap.String("site", siteID), zap.Error(err))
			return apiError(e, http.StatusInternalServerError, "Failed to load site")
		}

		snap, err := ctrl.RecomputeWith(e.Request.Context(), func(last services.Input) (services.Edit, services.Input, error) {
			return req.Edit, mergeInput(last, req.Cells, pc, pcSet), nil
		})
		if err != nil {
			sites.Log.Warn("recompute failed", zap.String("site", siteID), zap.String("field", req.Edit.Field), zap.Error(err))
			return apiError(e, statusFor(err), err.Error())
		}

		return e.JSON(http.StatusOK, newSnapshotResponse(snap))
	}
}

// HandleBOQGet returns the live BOQ of a site.
// Route: GET /api/sites/{siteId}/boq
func HandleBOQGet(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		if !ok {
			return apiError(e, http.StatusBadRequest, "Missing or invalid site ID")
		}
		ctrl, err := sites.controller(app, siteID)
		if err != nil {
			sites.Log.Error("boq_get: load site failed", zap.String("site", siteID), zap.Error(err))
			return apiError(e, http.StatusInternalServerError, "Failed to load site")
		}
		return e.JSON(http.StatusOK, newSnapshotResponse(ctrl.Snapshot()))
	}
}

// HandleChanges returns a site's change log, newest first. ?limit= caps
// the number of entries.
// Route: GET /api/sites/{siteId}/changes
func HandleChanges(app *pocketbase.PocketBase, sites *Sites) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		siteID, ok := siteIDFrom(e)
		if !ok {
			return apiError(e, http.StatusBadRequest, "Missing or invalid site ID")
		}
		ctrl, err := sites.controller(app, siteID)
		if err != nil {
			sites.Log.Error("changes: load site failed", zap.String("site", siteID), zap.Error(err))
			return apiError(e, http.StatusInternalServerError, "Failed to load site")
		}

		log := ctrl.Snapshot().ChangeLog
		if raw := e.Request.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				return apiError(e, http.StatusBadRequest, "Invalid limit")
			}
			if limit < len(log) {
				log = log[:limit]
			}
		}
		if log == nil {
			log = []services.ChangeLogEntry{}
		}
		return e.JSON(http.StatusOK, map[string]any{"siteId": siteID, "changes": log})
	}
}
