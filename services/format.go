package services

import (
	"math"
	"strconv"
	"strings"
)

// FormatQuantity renders a BOQ quantity. Whole numbers have no decimals;
// fractional values keep at most two, with trailing zeros dropped. A
// non-empty unit is appended after a space.
func FormatQuantity(qty float64, unit string) string {
	var s string
	if qty == math.Trunc(qty) {
		s = strconv.FormatFloat(qty, 'f', 0, 64)
	} else {
		s = strconv.FormatFloat(qty, 'f', 2, 64)
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if s == "-0" {
		s = "0"
	}
	if unit == "" {
		return s
	}
	return s + " " + unit
}

// SectionLabel returns the display name of a BOQ section.
func SectionLabel(section string) string {
	switch section {
	case SectionProduct:
		return "Products"
	case SectionService:
		return "Services"
	case SectionGriptel:
		return "BoM Griptel"
	case SectionSolar:
		return "BoM Solar"
	}
	return section
}
