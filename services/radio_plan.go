package services

// RawCellRecord is one typed radio-plan row as produced by the upstream
// spreadsheet parser. Numeric columns are optional; read them through num().
type RawCellRecord struct {
	CellID      string   `json:"cellId"`
	Technology  string   `json:"technology"`
	AntennaType string   `json:"antennaType"`
	Height      *float64 `json:"height,omitempty"`
	Azimuth     *float64 `json:"azimuth,omitempty"`
	MTilt       *float64 `json:"mTilt,omitempty"`
	ETilt       *float64 `json:"eTilt,omitempty"`
	FeedLength  *float64 `json:"feedLength,omitempty"`
	CableType   string   `json:"cableType"`
	Jumpers     string   `json:"jumpers"`
}

// SectorSize is the per-sector size classification.
type SectorSize string

const (
	SizeLarge  SectorSize = "L"
	SizeMedium SectorSize = "M"
	SizeSmall  SectorSize = "S"
)

// Label returns the human readable size name.
func (s SectorSize) Label() string {
	switch s {
	case SizeLarge:
		return "Large"
	case SizeMedium:
		return "Medium"
	case SizeSmall:
		return "Small"
	}
	return ""
}

// Sector aggregates the records sharing one sector letter. Sectors are
// derived values and are rebuilt wholesale on every classification.
type Sector struct {
	ID           string          `json:"id"`
	Azimuth      float64         `json:"azimuth"`
	MTilt        float64         `json:"mTilt"`
	ETilt        float64         `json:"eTilt"`
	Antennas     []string        `json:"antennas"`
	Technologies []string        `json:"technologies"`
	Size         SectorSize      `json:"size"`
	HasNR        bool            `json:"hasNR"`
	Cells        []RawCellRecord `json:"-"`
}

// SiteConfig is the standardized configuration derived from the sectors.
type SiteConfig struct {
	IsNew       bool         `json:"isNew"`
	SectorSizes []SectorSize `json:"sectorSizes"`
	Config      string       `json:"config"`
}

// ParsedConfig carries the size counts recovered from a config string.
type ParsedConfig struct {
	IsNew       bool
	SectorSizes []SectorSize
	LargeCount  int
	MediumCount int
	SmallCount  int
	Raw         string
}

// SectorCount returns the number of sector letters in the config.
func (p ParsedConfig) SectorCount() int {
	return len(p.SectorSizes)
}

// ParseConfig reads a config string such as "NLLM_". Unknown characters
// are ignored; an empty or "_" config yields zero counts.
func ParseConfig(config string) ParsedConfig {
	p := ParsedConfig{Raw: config}
	rest := config
	for len(rest) > 0 && rest[len(rest)-1] == '_' {
		rest = rest[:len(rest)-1]
	}
	if len(rest) > 0 && rest[0] == 'N' {
		p.IsNew = true
		rest = rest[1:]
	}
	for _, c := range rest {
		switch SectorSize(string(c)) {
		case SizeLarge:
			p.LargeCount++
		case SizeMedium:
			p.MediumCount++
		case SizeSmall:
			p.SmallCount++
		default:
			continue
		}
		p.SectorSizes = append(p.SectorSizes, SectorSize(string(c)))
	}
	return p
}

// Warning is a non-fatal finding surfaced next to the computed BOQ.
type Warning struct {
	Code    string   `json:"code"`
	Level   string   `json:"level"` // "warning" | "error"
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// Classification is the classifier output for one site.
type Classification struct {
	SiteID   string          `json:"siteId"`
	Sectors  []Sector        `json:"sectors"`
	Config   SiteConfig      `json:"config"`
	HasNR    bool            `json:"hasNR"`
	Cells    []RawCellRecord `json:"-"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// Empty reports whether the classification carries no sectors. Callers
// treat this as "no data yet", not as an error.
func (c Classification) Empty() bool {
	return len(c.Sectors) == 0
}

// DCCableRun is a single DC cable run from the power calculator.
type DCCableRun struct {
	Sector       int     `json:"sector"`
	Band         string  `json:"band"`
	LengthM      float64 `json:"lengthM"`
	CrossSection float64 `json:"crossSection"` // mm²
}

// PowerCalc holds the power-calculator results relevant to BOQ rules.
type PowerCalc struct {
	RectifierModules int          `json:"rectifierModules"`
	RectifierModel   string       `json:"rectifierModel"`
	RectifierIsNew   bool         `json:"rectifierIsNew"`
	MaxModules       int          `json:"maxModules"`
	BatteryStrings   int          `json:"batteryStrings"`
	DCCables         []DCCableRun `json:"dcCables"`
}

func num(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
