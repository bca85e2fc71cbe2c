package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"siteforge/services"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

func renderSnapshot(w io.Writer, snap services.Snapshot, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatCSV:
		body, err := services.GenerateCSV(services.BuildExportData(snap, snap.ComputedAt))
		if err != nil {
			return err
		}
		_, err = w.Write(body)
		return err
	case FormatTable, "":
		return renderTable(w, snap)
	}
	return fmt.Errorf("unknown output format %q (want table, json or csv)", format)
}

func renderTable(w io.Writer, snap services.Snapshot) error {
	config := snap.Classification.Config.Config
	if snap.Classification.Empty() {
		config = "no data yet"
	}
	_, _ = fmt.Fprintf(w, "Site %s  config %s  mounts %d\n", snap.SiteID, config, len(snap.MountGroups))

	if len(snap.Items) == 0 {
		_, _ = fmt.Fprintln(w, "(0 items)")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Product Code", "Description", "Qty", "Unit", "Section", "Rule"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 4, Align: text.AlignRight},
			{Number: 3, WidthMax: 48},
		})
		for i, it := range snap.Items {
			rule := it.Rule
			if it.ManualOverride {
				rule += " (override)"
			}
			t.AppendRow(table.Row{
				i + 1,
				it.ProductCode,
				it.Description,
				services.FormatQuantity(it.Quantity, ""),
				it.Unit,
				services.SectionLabel(it.Section),
				rule,
			})
		}
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d items)\n", len(snap.Items))
	}

	for _, wr := range snap.Warnings {
		_, _ = fmt.Fprintf(w, "%s [%s] %s\n", wr.Level, wr.Code, wr.Message)
	}
	return nil
}

// renderCatalogStats prints per-section import counts.
func renderCatalogStats(w io.Writer, stats services.CatalogImportStats, written int) {
	sections := make([]string, 0, len(stats.Sections))
	for s := range stats.Sections {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Section", "Entries"})
	for _, s := range sections {
		t.AppendRow(table.Row{services.SectionLabel(s), stats.Sections[s]})
	}
	t.AppendFooter(table.Row{"Total", written})
	t.Render()
	if stats.Skipped > 0 {
		_, _ = fmt.Fprintf(w, "skipped %d placeholder row(s)\n", stats.Skipped)
	}
}
