// Package cli holds the siteforge commands registered on the PocketBase
// root command.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"siteforge/services"
)

// computeOptions are the flags of the compute command.
type computeOptions struct {
	cellsPath   string
	powerPath   string
	catalogPath string
	siteID      string
	output      string
}

// NewComputeCommand creates the compute command, which derives a BOQ from
// files without touching the database.
func NewComputeCommand(log *zap.Logger) *cobra.Command {
	opts := &computeOptions{}
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a site BOQ from a radio plan and power data",
		Example: `  # Radio plan only
  siteforge compute --cells plan.csv

  # With power-calculator data, catalog and JSON output
  siteforge compute --cells plan.xlsx --power power.json --catalog BoQ.xlsx --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompute(cmd, opts, log)
		},
	}

	cmd.Flags().StringVar(&opts.cellsPath, "cells", "", "radio plan (.csv, .xlsx or .json)")
	cmd.Flags().StringVar(&opts.powerPath, "power", "", "power-calculator data (.json)")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "BoQ template workbook for descriptions and vendors")
	cmd.Flags().StringVar(&opts.siteID, "site", "", "site id (defaults to the cells file name)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", FormatTable, "output format: table, json, csv")
	_ = cmd.MarkFlagRequired("cells")
	return cmd
}

func runCompute(cmd *cobra.Command, opts *computeOptions, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	cells, err := loadCells(opts.cellsPath)
	if err != nil {
		return err
	}
	in := services.Input{Cells: cells}
	if opts.powerPath != "" {
		pc, err := loadPowerCalc(opts.powerPath)
		if err != nil {
			return err
		}
		in.PowerCalc = pc
	}

	catalog := services.Catalog(services.NewMapCatalog(services.DefaultCatalogEntries()))
	if opts.catalogPath != "" {
		entries, _, err := services.LoadCatalogFile(opts.catalogPath)
		if err != nil {
			return err
		}
		catalog = services.NewMapCatalog(entries)
	}

	siteID := opts.siteID
	if siteID == "" {
		siteID = strings.TrimSuffix(filepath.Base(opts.cellsPath), filepath.Ext(opts.cellsPath))
	}

	ctrl := services.NewController(siteID, services.WithCatalog(catalog), services.WithLogger(log))
	defer ctrl.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	snap, err := ctrl.Recompute(ctx, services.Edit{Field: "cli"}, in)
	if err != nil {
		return fmt.Errorf("compute %s: %w", siteID, err)
	}
	return renderSnapshot(cmd.OutOrStdout(), snap, opts.output)
}

// loadCells reads a radio plan. JSON files hold an array of records; CSV
// and XLSX go through the row importer and fail on any invalid row.
func loadCells(path string) ([]services.RawCellRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cells: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var cells []services.RawCellRecord
		if err := json.NewDecoder(f).Decode(&cells); err != nil {
			return nil, fmt.Errorf("decode cells %s: %w", path, err)
		}
		return cells, nil
	}

	result, err := services.ImportCells(f, path)
	if err != nil {
		return nil, err
	}
	if result.ErrorRows > 0 {
		first := result.Errors[0]
		return nil, fmt.Errorf("%s: %d invalid row(s), first at row %d: %s", path, result.ErrorRows, first.Row, first.Message)
	}
	return result.Cells, nil
}

func loadPowerCalc(path string) (*services.PowerCalc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read power data: %w", err)
	}
	var pc services.PowerCalc
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("decode power data %s: %w", path, err)
	}
	return &pc, nil
}
