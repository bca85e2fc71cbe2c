package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var siteIDPattern = regexp.MustCompile(`^[A-Za-z]{3}\d{5}`)

// mMIMO antenna markers. Any antenna type containing one of these makes the
// sector Large.
var massiveMIMOMarkers = []string{"AQQY", "MMIMO"}

// Classify groups raw cell records into sectors, sizes each sector and
// synthesizes the site config string. It is a pure function of cells.
//
// Empty input yields no sectors and config "_".
func Classify(cells []RawCellRecord) Classification {
	c := Classification{
		Cells:  cells,
		Config: SiteConfig{Config: "_"},
	}
	if len(cells) == 0 {
		return c
	}

	c.SiteID = siteIDPattern.FindString(cells[0].CellID)

	// ── Partition by sector letter ──────────────────────────────────────
	byLetter := make(map[string][]RawCellRecord)
	for _, cell := range cells {
		letter := sectorLetter(cell.CellID)
		byLetter[letter] = append(byLetter[letter], cell)
	}
	letters := make([]string, 0, len(byLetter))
	for l := range byLetter {
		letters = append(letters, l)
	}
	sort.Strings(letters)

	// ── One pass per sector: size and NR flag from the same scan ────────
	var sb strings.Builder
	sizes := make([]SectorSize, 0, len(letters))
	for _, letter := range letters {
		s := buildSector(letter, byLetter[letter])
		if s.HasNR {
			c.HasNR = true
		}
		c.Sectors = append(c.Sectors, s)
		sizes = append(sizes, s.Size)
		sb.WriteString(string(s.Size))
	}

	prefix := ""
	if c.HasNR {
		prefix = "N"
	}
	c.Config = SiteConfig{
		IsNew:       c.HasNR,
		SectorSizes: sizes,
		Config:      prefix + sb.String() + "_",
	}

	if !c.HasNR {
		for _, s := range c.Sectors {
			if s.Size == SizeLarge {
				c.Warnings = append(c.Warnings, Warning{
					Code:  "CLS001",
					Level: "warning",
					Message: fmt.Sprintf(
						"sector %s is Large from an mMIMO antenna but no sector carries NR; config %q has no N prefix",
						s.ID, c.Config.Config),
					Fields: []string{"sectors", "config"},
				})
			}
		}
	}
	return c
}

// sectorLetter returns the trailing character of a cell id.
func sectorLetter(cellID string) string {
	if cellID == "" {
		return ""
	}
	r := []rune(cellID)
	return string(r[len(r)-1])
}

func buildSector(id string, cells []RawCellRecord) Sector {
	s := Sector{ID: id, Cells: cells}

	rep := cells[0]
	for _, cell := range cells {
		if cell.Technology == "LTE" {
			rep = cell
			break
		}
	}
	s.Azimuth = num(rep.Azimuth)
	s.MTilt = num(rep.MTilt)
	s.ETilt = num(rep.ETilt)

	seenAnt := make(map[string]bool)
	seenTech := make(map[string]bool)
	large := false
	for _, cell := range cells {
		if cell.AntennaType != "" && !seenAnt[cell.AntennaType] {
			seenAnt[cell.AntennaType] = true
			s.Antennas = append(s.Antennas, cell.AntennaType)
			if isMassiveMIMO(cell.AntennaType) {
				large = true
			}
		}
		if cell.Technology != "" && !seenTech[cell.Technology] {
			seenTech[cell.Technology] = true
			s.Technologies = append(s.Technologies, cell.Technology)
		}
		if cell.Technology == "NR" {
			s.HasNR = true
		}
	}

	switch {
	case large:
		s.Size = SizeLarge
	case s.HasNR:
		s.Size = SizeMedium
	default:
		s.Size = SizeSmall
	}
	return s
}

func isMassiveMIMO(antenna string) bool {
	upper := strings.ToUpper(antenna)
	for _, m := range massiveMIMOMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}
