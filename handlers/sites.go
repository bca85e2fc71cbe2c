package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"siteforge/collections"
	"siteforge/metrics"
	"siteforge/services"
)

// Sites is the state the BOQ handlers share: one live controller per site,
// the catalog and the metrics recorder.
type Sites struct {
	Pool    *services.Pool
	Catalog *services.CatalogStore
	Metrics *metrics.Recorder
	Log     *zap.Logger
}

// NewSites wires a controller pool to the catalog, logger and recorder.
// Extra options (highlight window, log limit) are passed to every controller.
func NewSites(catalog *services.CatalogStore, rec *metrics.Recorder, log *zap.Logger, opts ...services.Option) *Sites {
	if log == nil {
		log = zap.NewNop()
	}
	all := append([]services.Option{services.WithLogger(log)}, opts...)
	if catalog != nil {
		all = append(all, services.WithCatalog(catalog))
	}
	if rec != nil {
		all = append(all, services.WithObserver(rec))
	}
	return &Sites{
		Pool:    services.NewPool(all...),
		Catalog: catalog,
		Metrics: rec,
		Log:     log,
	}
}

// controller returns the site's live controller, hydrated from the
// database on first use. Every publish is written back to the database
// from inside the controller's serialized section, so stored state follows
// publish order.
func (s *Sites) controller(app core.App, siteID string) (*services.Controller, error) {
	return s.Pool.GetOrLoad(siteID, func() (services.Stored, error) {
		return collections.LoadSiteState(app, siteID)
	}, services.WithPublisher(func(snap services.Snapshot, in services.Input) error {
		if err := collections.SaveSiteBOQ(app, snap, in); err != nil {
			return fmt.Errorf("persist boq: %w", err)
		}
		return nil
	}))
}

// siteIDFrom reads and validates the {siteId} path value.
func siteIDFrom(e *core.RequestEvent) (string, bool) {
	id := strings.TrimSpace(e.Request.PathValue("siteId"))
	return id, id != "" && len(id) <= 64
}

// apiError writes a JSON error body.
func apiError(e *core.RequestEvent, status int, message string) error {
	return e.JSON(status, map[string]string{"error": message})
}

// statusFor maps controller errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotOverridden):
		return http.StatusConflict
	case errors.Is(err, services.ErrTooManySectors):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
