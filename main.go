package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"siteforge/cli"
	"siteforge/collections"
	"siteforge/config"
	"siteforge/handlers"
	"siteforge/logging"
	"siteforge/metrics"
	"siteforge/services"
)

func main() {
	app := pocketbase.New()

	// The root command owns the flags for help and validation; a throwaway
	// set parses them early because the logger is needed before any command runs.
	config.RegisterFlags(app.RootCmd.PersistentFlags())
	early := pflag.NewFlagSet("siteforge", pflag.ContinueOnError)
	early.ParseErrorsWhitelist.UnknownFlags = true
	early.SetOutput(io.Discard)
	early.Usage = func() {}
	config.RegisterFlags(early)
	_ = early.Parse(os.Args[1:])

	cfg, err := config.Load("", early)
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.Must(cfg.Log)
	defer func() { _ = logger.Sync() }()

	store := services.NewCatalogStore(nil)
	rec := metrics.NewRecorder()
	sites := handlers.NewSites(store, rec, logger, cfg.ControllerOptions()...)

	app.RootCmd.AddCommand(cli.NewComputeCommand(logger))
	app.RootCmd.AddCommand(cli.NewImportCatalogCommand(app))

	watchCtx, stopWatch := context.WithCancel(context.Background())

	// Create collections, seed data and load the catalog on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.Seed(app); err != nil {
			logger.Warn("seed data failed", zap.Error(err))
		}
		if err := collections.MigrateCatalogSections(app); err != nil {
			logger.Warn("catalog section migration failed", zap.Error(err))
		}
		if cfg.CatalogPath != "" {
			entries, stats, err := services.LoadCatalogFile(cfg.CatalogPath)
			if err != nil {
				logger.Warn("catalog file not loaded", zap.String("path", cfg.CatalogPath), zap.Error(err))
			} else if _, err := collections.SaveCatalog(app, entries); err != nil {
				logger.Warn("catalog file not saved", zap.Error(err))
			} else {
				logger.Info("catalog file loaded", zap.String("path", cfg.CatalogPath),
					zap.Int("entries", len(entries)), zap.Int("skipped", stats.Skipped))
			}
		}
		if err := handlers.ReloadCatalog(app, sites); err != nil {
			logger.Warn("catalog reload failed", zap.Error(err))
		}
		if cfg.WatchCatalog {
			go func() {
				if err := services.WatchCatalog(watchCtx, cfg.CatalogPath, store, logger); err != nil {
					logger.Error("catalog watcher stopped", zap.Error(err))
				}
			}()
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.BindFunc(handlers.RequestLogger(logger))

		// ── JSON API ─────────────────────────────────────────────
		se.Router.POST("/api/sites/{siteId}/recompute", handlers.HandleRecompute(app, sites))
		se.Router.GET("/api/sites/{siteId}/boq", handlers.HandleBOQGet(app, sites))
		se.Router.POST("/api/sites/{siteId}/boq", handlers.HandleAddManualItem(app, sites))
		se.Router.PATCH("/api/sites/{siteId}/boq/{itemId}", handlers.HandleOverride(app, sites))
		se.Router.DELETE("/api/sites/{siteId}/boq/{itemId}/override", handlers.HandleClearOverride(app, sites))
		se.Router.GET("/api/sites/{siteId}/changes", handlers.HandleChanges(app, sites))
		se.Router.GET("/api/sites/{siteId}/boq/export/{format}", handlers.HandleBOQExport(app, sites))

		// Radio plan import
		se.Router.POST("/api/sites/{siteId}/cells/import", handlers.HandleCellsImport(app, sites))
		se.Router.GET("/api/cells/template", handlers.HandleCellTemplateDownload(app))
		se.Router.POST("/api/cells/import/errors", handlers.HandleCellErrorReport(app))

		// Catalog
		se.Router.GET("/api/catalog", handlers.HandleCatalogList(app))
		se.Router.POST("/api/catalog/import", handlers.HandleCatalogImport(app, sites))

		// ── BOQ view ─────────────────────────────────────────────
		se.Router.GET("/sites/{siteId}/boq", handlers.HandleBOQView(app, sites))
		se.Router.GET("/sites/{siteId}/boq/table", handlers.HandleBOQTable(app, sites))
		se.Router.POST("/sites/{siteId}/boq/{itemId}/override", handlers.HandleBOQViewOverride(app, sites))
		se.Router.DELETE("/sites/{siteId}/boq/{itemId}/override", handlers.HandleBOQViewClearOverride(app, sites))

		se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))

		// Redirect home to the demo site
		se.Router.GET("/", func(e *core.RequestEvent) error {
			return e.Redirect(http.StatusFound, "/sites/"+collections.DemoSiteID+"/boq")
		})

		return se.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		stopWatch()
		sites.Pool.Close()
		return e.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
