// Package templates renders the BOQ pages. Components live in boq.templ;
// run `templ generate` after editing it.
package templates

// BOQRow is one rendered BOQ line.
type BOQRow struct {
	ID          string
	Index       int
	ProductCode string
	Description string
	Qty         string
	Unit        string
	Section     string
	Category    string
	Vendor      string
	Previous    string // empty when the line did not change
	Override    bool
	Recent      bool
}

// ChangeRow is one rendered change log entry.
type ChangeRow struct {
	Time         string
	Field        string
	OldValue     string
	NewValue     string
	ItemsChanged int
}

// WarningRow is one rendered cross-check finding.
type WarningRow struct {
	Code    string
	Level   string
	Message string
}

// BOQPageData is everything the BOQ page shows for one site.
type BOQPageData struct {
	SiteID     string
	Config     string
	ComputedAt string
	Rows       []BOQRow
	Changes    []ChangeRow
	Warnings   []WarningRow
	// PollEvery is how often the table refreshes while highlights are live.
	// Zero disables polling.
	PollEvery int
}

// rowClass is the CSS class list of a BOQ line.
func rowClass(r BOQRow) string {
	switch {
	case r.Recent && r.Override:
		return "boq-row boq-recent boq-override"
	case r.Recent:
		return "boq-row boq-recent"
	case r.Override:
		return "boq-row boq-override"
	}
	return "boq-row"
}

func exportURL(siteID, format string) string {
	return "/api/sites/" + siteID + "/boq/export/" + format
}

func overrideURL(siteID, itemID string) string {
	return "/sites/" + siteID + "/boq/" + itemID + "/override"
}
