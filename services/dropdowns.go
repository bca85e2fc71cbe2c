package services

// TechnologyOptions is the technology dropdown of the radio-plan template.
var TechnologyOptions = []string{"LTE", "NR"}

// UnitOptions lists the units a manual BOQ line can use.
var UnitOptions = []string{UnitPieces, UnitMeters, UnitSets}

// SectionOptions lists the BOQ sections in display order.
var SectionOptions = []string{SectionProduct, SectionService, SectionGriptel, SectionSolar}

// IsOption reports whether v is one of options.
func IsOption(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
