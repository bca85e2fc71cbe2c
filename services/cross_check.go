package services

import (
	"fmt"
	"math"
	"sort"
)

// cableTolerance absorbs rounding in the material vs install comparison.
const cableTolerance = 0.5

// CrossCheck compares the live BOQ against the classified input and the
// power-calculator data. It never fails; findings come back as warnings,
// classifier warnings first.
func CrossCheck(in SiteInput, pc *PowerCalc, items []BOQItem) []Warning {
	warnings := append([]Warning(nil), in.Warnings...)

	qty := make(map[string]float64)
	for _, it := range items {
		qty[it.ProductCode] += it.Quantity
	}

	// Config letters vs sector count.
	if n := in.Parsed.SectorCount(); n != len(in.Sectors) {
		warnings = append(warnings, Warning{
			Code:    "V001",
			Level:   "error",
			Message: fmt.Sprintf("config %q implies %d sectors but %d defined", in.Config.Config, n, len(in.Sectors)),
			Fields:  []string{"config", "sectors"},
		})
	}

	// Walk tests: 2–3 per sector is typical.
	if tests, ok := qty["ice_PM_004"]; ok && len(in.Sectors) > 0 {
		lo, hi := float64(2*len(in.Sectors)), float64(3*len(in.Sectors))
		if tests < lo || tests > hi {
			warnings = append(warnings, Warning{
				Code:    "V015",
				Level:   "warning",
				Message: fmt.Sprintf("walk test count (%g) outside typical range for %d sectors (%g-%g)", tests, len(in.Sectors), lo, hi),
			})
		}
	}

	if pc == nil {
		return warnings
	}

	// DC cable material must exceed install length by exactly the overhead.
	runs := make(map[int]int)
	for _, c := range pc.DCCables {
		runs[int(math.Round(c.CrossSection))]++
	}
	sections := make([]int, 0, len(runs))
	for cs := range runs {
		sections = append(sections, cs)
	}
	sort.Ints(sections)
	for _, cs := range sections {
		prodCode, ok1 := cableProductCodes[cs]
		instCode, ok2 := cableInstallCodes[cs]
		if !ok1 || !ok2 {
			continue
		}
		material, okM := qty[prodCode]
		install, okI := qty[instCode]
		if !okM || !okI {
			continue
		}
		want := float64(runs[cs]) * CableOverhead(cs)
		if math.Abs((material-install)-want) > cableTolerance {
			warnings = append(warnings, Warning{
				Code:  "V012",
				Level: "warning",
				Message: fmt.Sprintf("DC cable %dmm² material (%gm) ≠ install service (%gm) + %d runs × %gm overhead",
					cs, material, install, runs[cs], CableOverhead(cs)),
				Fields: []string{prodCode, instCode},
			})
		}
	}
	return warnings
}
