package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// siteRegions maps the three-letter site id prefix to a travel region code.
// Unmapped prefixes produce no travel lines.
var siteRegions = map[string]string{
	"MOR": "04",
}

// downtiltAntennas need a downtilt kit whenever the sector has mechanical tilt.
var downtiltAntennas = map[string]bool{
	"RRZZ-65B-R4N39-V1": true,
	"RRZZ-65B-R4N39":    true,
}

// jumperIncludedM is the jumper length covered by the standard install;
// only the excess is charged.
const (
	jumperIncludedM   = 5.0
	jumperExcessRatio = 2.0
)

// Mount hardware emitted per mount group.
const (
	mountArmBracketCode = "SM-ARM-BRACKET"
)

var (
	jumperLengthPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*m`)
	jumperAnyPattern    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*m`)
)

type kitPart struct {
	code string
	qty  float64
	name string
}

var gpsKitParts = []kitPart{
	{"471605A.102", 1, "FYMA"},
	{"472577A.103", 1, "FTSH"},
	{"475647A.101", 1, "AYGE"},
	{"471812A.105", 1, "FYEA"},
}

// defaultDescriptions is used when the catalog has no entry for a code.
var defaultDescriptions = map[string]string{
	"475266B.102":          "ABIO AirScale Capacity Plug-in Unit",
	"473764A.102":          "ASIB AirScale Common Plug-in Unit",
	"473098A.205":          "AMIA AirScale Subrack",
	"474090A.101":          "AHEGB AirScale RRH low band",
	"475000A.101":          "AHPMDB AirScale RRH high band",
	"475573A.103":          "AQQY AirScale mMIMO Adaptive Antenna",
	"475151A.102":          "AOPC SFP weatherproofing boot kit",
	"471605A.102":          "FYMA GPS mounting kit",
	"472577A.103":          "FTSH GPS surge protector",
	"475647A.101":          "AYGE GNSS receiver antenna",
	"471812A.105":          "FYEA GPS cable",
	"BSA-DT-34":            "Downtilt kit for panel antenna",
	"475336A.101":          "AOME 10G SFP+ 850nm 300m MM I-temp",
	"474900A.101":          "AOMC SFP28 70m MM I-temp RS",
	"474283A.101":          "APPC AirScale2 55A DC plug 10-16mm2",
	"474581A.102":          "AMRB AirScale one clip bracket",
	"475188A.102":          "AMPF bracket 20 degree tilt",
	"475163A.101":          "ATOA optical distribution unit",
	"474580A.101":          "AMRA clip rail bracket",
	"ice_RM_002":           "System module installation (BBU)",
	"ice_RM_003":           "RRH/RRU installation",
	"ice_RM_014":           "FTTA box installation",
	"ice_RM_016":           "Commissioning eNB/gNB",
	"ice_PM_004":           "Walk test, 2 frequencies per sector",
	"ice_TSS_001":          "TSS report on new RT site",
	"ice_Basic_M_001":      "Labeling",
	"ice_stickers_small":   "Equipment stickers",
	"ice_cable_001":        "1/2\" feeder installation per meter",
	"ice_T&T_004":          "Travel, 1 man",
	"ice_T&T_009":          "Travel, team",
	"ice_ant_010":          "GPS antenna installation",
	"241115.106":           "FLATPACK2 rectifier module",
	"ice_DC_Service_005":   "Rectifier module installation",
	"SL2C10MM2FRNC-S-BK-N": "DC cable 2x10mm2 FRNC",
	"SL2C16MM2FRNC-S-BK-N": "DC cable 2x16mm2 FRNC",
	"ice_cable_007":        "DC cable installation 10mm2 per meter",
	"ice_cable_008":        "DC cable installation 16mm2 per meter",
	"M12V190FT":            "MARATHON 12V 190AH battery",
	"MT_BATT_CONNECT_SET":  "Battery connection set MARATHON",
	"476359A.101":          "ASAL EAC cable 19PIN peeled end 10m",
	MountCodeMultiArm:      "Multi-arm sector mount frame",
	MountCodeSingleArm:     "Single-arm sector mount",
	mountArmBracketCode:    "Mount arm antenna bracket",
}

// DefaultRegistry returns the production rule order.
func DefaultRegistry() Registry {
	return Registry{
		Single: []SingleRule{
			{"downtilt_kit", ruleDowntiltKit},
			{"bbu_install", ruleBBUInstall},
			{"rrh_install", ruleRRHInstall},
			{"walk_test", ruleWalkTest},
			{"tss_report", ruleTSSReport},
			{"labeling", ruleLabeling},
			{"stickers", ruleStickers},
			{"commissioning", ruleCommissioning},
			{"cable_feeder", ruleCableFeeder},
			{"sfp_modules", ruleSFPModules},
			{"sfp28_modules", ruleSFP28Modules},
			{"appc_dc_plug", ruleAPPCDCPlug},
			{"amrb_bracket", ruleAMRBBracket},
			{"ampf_bracket", ruleAMPFBracket},
		},
		Multi: []MultiRule{
			{"site_setup", ruleSiteSetup},
			{"antenna", ruleAntenna},
			{"jumpers", ruleJumpers},
			{"travel", ruleTravel},
			{"gps_kit", ruleGPSKit},
			{"atoa_set", ruleATOASet},
			{"mount_frames", ruleMountFrames},
		},
		Power: []PowerRule{
			{"rectifier_modules", ruleRectifierModules},
			{"dc_cables", ruleDCCables},
			{"batteries", ruleBatteries},
			{"battery_connect_set", ruleBatteryConnectSet},
			{"asal_cable", ruleASALCable},
		},
	}
}

// ── Single-result rules ─────────────────────────────────────────────────

func ruleDowntiltKit(in SiteInput) (RuleResult, bool) {
	count := 0
	for _, s := range in.Sectors {
		if s.MTilt == 0 {
			continue
		}
		for _, ant := range s.Antennas {
			if downtiltAntennas[ant] {
				count++
				break
			}
		}
	}
	if count == 0 {
		return RuleResult{}, false
	}
	return product("BSA-DT-34", float64(count), UnitPieces,
		fmt.Sprintf("RRZZ antenna + mech tilt != 0: %d sectors", count)), true
}

func ruleBBUInstall(in SiteInput) (RuleResult, bool) {
	if !in.Parsed.IsNew {
		return RuleResult{}, false
	}
	return service("ice_RM_002", 1, UnitPieces, "New site config: "+in.Parsed.Raw), true
}

func ruleRRHInstall(in SiteInput) (RuleResult, bool) {
	p := in.Parsed
	if !p.IsNew {
		return RuleResult{}, false
	}
	// One low-band RRH per sector plus one high-band RRH per L/M sector.
	qty := p.LargeCount + p.MediumCount + p.SmallCount + p.LargeCount + p.MediumCount
	if qty == 0 {
		return RuleResult{}, false
	}
	return service("ice_RM_003", float64(qty), UnitPieces,
		fmt.Sprintf("RRH units: %d (new site)", qty)), true
}

func ruleWalkTest(in SiteInput) (RuleResult, bool) {
	lte := 0
	for _, c := range in.Cells {
		if c.Technology == "LTE" {
			lte++
		}
	}
	if lte == 0 {
		return RuleResult{}, false
	}
	return service("ice_PM_004", float64(lte), UnitPieces, fmt.Sprintf("LTE cells: %d", lte)), true
}

func ruleTSSReport(in SiteInput) (RuleResult, bool) {
	if !in.Parsed.IsNew {
		return RuleResult{}, false
	}
	return service("ice_TSS_001", 1, UnitPieces, "New site: "+in.Parsed.Raw), true
}

func ruleLabeling(SiteInput) (RuleResult, bool) {
	return service("ice_Basic_M_001", 1, UnitSets, "Default: all sites"), true
}

func ruleStickers(SiteInput) (RuleResult, bool) {
	return service("ice_stickers_small", 1, UnitSets, "Default: all sites"), true
}

func ruleCommissioning(SiteInput) (RuleResult, bool) {
	return service("ice_RM_016", 1, UnitPieces, "Default: all sites"), true
}

// ruleCableFeeder charges jumper length beyond the included allowance,
// summed over every cell.
func ruleCableFeeder(in SiteInput) (RuleResult, bool) {
	var total float64
	for _, c := range in.Cells {
		if c.Jumpers == "" {
			continue
		}
		for _, m := range jumperAnyPattern.FindAllStringSubmatch(c.Jumpers, -1) {
			length, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			if length > jumperIncludedM {
				total += (length - jumperIncludedM) * jumperExcessRatio
			}
		}
	}
	if total <= 0 {
		return RuleResult{}, false
	}
	return service("ice_cable_001", total, UnitMeters,
		fmt.Sprintf("Jumpers > %gm excess: %g", jumperIncludedM, total)), true
}

func ruleSFPModules(in SiteInput) (RuleResult, bool) {
	ml := in.Parsed.LargeCount + in.Parsed.MediumCount
	if ml == 0 {
		return RuleResult{}, false
	}
	qty := ml * 2 * 2
	return product("475336A.101", float64(qty), UnitPieces,
		fmt.Sprintf("%d M/L sectors × 2 radios × 2 SFPs = %d", ml, qty)), true
}

func ruleSFP28Modules(in SiteInput) (RuleResult, bool) {
	l := in.Parsed.LargeCount
	if l == 0 {
		return RuleResult{}, false
	}
	qty := l * 4
	return product("474900A.101", float64(qty), UnitPieces,
		fmt.Sprintf("%d Large sectors × 4 SFPs per AQQY = %d", l, qty)), true
}

func ruleAPPCDCPlug(in SiteInput) (RuleResult, bool) {
	p := in.Parsed
	qty := p.LargeCount*3 + p.MediumCount*2
	if qty == 0 {
		return RuleResult{}, false
	}
	return product("474283A.101", float64(qty), UnitPieces,
		fmt.Sprintf("%dL×3 + %dM×2 = %d", p.LargeCount, p.MediumCount, qty)), true
}

func ruleAMRBBracket(in SiteInput) (RuleResult, bool) {
	ml := in.Parsed.LargeCount + in.Parsed.MediumCount
	if ml == 0 {
		return RuleResult{}, false
	}
	qty := ml * 2
	return product("474581A.102", float64(qty), UnitPieces,
		fmt.Sprintf("%d M/L sectors × 2 RRHs = %d", ml, qty)), true
}

func ruleAMPFBracket(in SiteInput) (RuleResult, bool) {
	l := in.Parsed.LargeCount
	if l == 0 {
		return RuleResult{}, false
	}
	return product("475188A.102", float64(l), UnitPieces,
		fmt.Sprintf("%d Large sectors × 1 per AQQY = %d", l, l)), true
}

// ── Multi-result rules ──────────────────────────────────────────────────

// ruleSiteSetup emits the BBU modules and per-size radio hardware for new
// sites.
func ruleSiteSetup(in SiteInput) []RuleResult {
	p := in.Parsed
	if !p.IsNew {
		return nil
	}
	prov := "Config: " + p.Raw
	out := []RuleResult{
		withSub(product("475266B.102", 2, UnitPieces, prov), "ABIO"),
		withSub(product("473764A.102", 1, UnitPieces, prov), "ASIB"),
		withSub(product("473098A.205", 1, UnitPieces, prov), "AMIA"),
	}
	if n := p.LargeCount + p.MediumCount + p.SmallCount; n > 0 {
		out = append(out, withSub(product("474090A.101", float64(n), UnitPieces, prov), "AHEGB"))
	}
	if n := p.LargeCount + p.MediumCount; n > 0 {
		out = append(out, withSub(product("475000A.101", float64(n), UnitPieces, prov), "AHPMDB"))
	}
	if p.LargeCount > 0 {
		out = append(out, withSub(product("475573A.103", float64(p.LargeCount), UnitPieces, prov), "AQQY"))
	}
	if n := p.LargeCount*4 + p.MediumCount*2 + p.SmallCount; n > 0 {
		out = append(out, withSub(product("475151A.102", float64(n), UnitPieces, prov), "AOPC"))
	}
	return out
}

// ruleAntenna counts sectors per antenna type; the antenna type is the
// product code.
func ruleAntenna(in SiteInput) []RuleResult {
	counts := make(map[string]int)
	var order []string
	for _, s := range in.Sectors {
		for _, ant := range s.Antennas {
			if ant == "" {
				continue
			}
			if _, ok := counts[ant]; !ok {
				order = append(order, ant)
			}
			counts[ant]++
		}
	}
	out := make([]RuleResult, 0, len(order))
	for _, ant := range order {
		qty := counts[ant]
		out = append(out, product(ant, float64(qty), UnitPieces,
			fmt.Sprintf("Radio plan antenna: %d sectors", qty)))
	}
	return out
}

// ruleJumpers emits one jumper pair per cell, coded by jumper length.
func ruleJumpers(in SiteInput) []RuleResult {
	counts := make(map[string]int)
	var order []string
	for _, c := range in.Cells {
		m := jumperLengthPattern.FindStringSubmatch(strings.TrimSpace(c.Jumpers))
		if m == nil {
			continue
		}
		length := m[1]
		if !strings.Contains(length, ".") {
			length += ".0"
		}
		code := "SLJ12SP-64M64M-" + length + "m"
		if _, ok := counts[code]; !ok {
			order = append(order, code)
		}
		counts[code] += 2
	}
	out := make([]RuleResult, 0, len(order))
	for _, code := range order {
		qty := counts[code]
		r := product(code, float64(qty), UnitPieces,
			fmt.Sprintf("Radio plan jumper: %d pcs (%d rows x 2)", qty, qty/2))
		r.Description = "Jumper cable SLJ12SP " + strings.TrimPrefix(code, "SLJ12SP-64M64M-")
		out = append(out, r)
	}
	return out
}

func ruleTravel(in SiteInput) []RuleResult {
	if len(in.SiteID) < 3 {
		return nil
	}
	region, ok := siteRegions[strings.ToUpper(in.SiteID[:3])]
	if !ok {
		return nil
	}
	return []RuleResult{
		service("ice_T&T_004", 1, UnitPieces, "Travel 1 man, region "+region),
		service("ice_T&T_009", 11, UnitPieces, "Travel team, region "+region),
	}
}

// ruleGPSKit fires for sites with at least three Large sectors.
func ruleGPSKit(in SiteInput) []RuleResult {
	if in.Parsed.LargeCount < 3 {
		return nil
	}
	out := make([]RuleResult, 0, len(gpsKitParts)+1)
	for _, part := range gpsKitParts {
		out = append(out, withSub(product(part.code, part.qty, UnitPieces, "Large config GPS kit"), part.name))
	}
	return append(out, service("ice_ant_010", 1, UnitPieces, "Large config GPS installation"))
}

// ruleATOASet emits the rooftop optical distribution defaults. Quantities
// are placeholders adjusted through manual override per site.
func ruleATOASet(SiteInput) []RuleResult {
	return []RuleResult{
		product("475163A.101", 2, UnitPieces, "Rooftop default: 2 pcs (adjust per site)"),
		product("474580A.101", 2, UnitPieces, "ATOA clip rail bracket: 2 pcs"),
		service("ice_RM_014", 2, UnitPieces, "ATOA installation: 2 pcs"),
	}
}

// ruleMountFrames emits one mount per mount group, aggregated by mount
// code, plus one arm bracket per sector on multi-arm mounts.
func ruleMountFrames(in SiteInput) []RuleResult {
	if len(in.MountGroups) == 0 {
		return nil
	}
	counts := make(map[string]int)
	brackets := 0
	for _, g := range in.MountGroups {
		counts[g.MountCode]++
		if g.MountCode == MountCodeMultiArm {
			brackets += g.SectorCount
		}
	}
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var out []RuleResult
	for _, code := range codes {
		r := product(code, float64(counts[code]), UnitSets,
			fmt.Sprintf("Mount groups: %d × %s", counts[code], code))
		r.Section = SectionGriptel
		r.Category = categoryMounting
		out = append(out, r)
	}
	if brackets > 0 {
		r := product(mountArmBracketCode, float64(brackets), UnitPieces,
			fmt.Sprintf("Sectors on multi-arm mounts: %d", brackets))
		r.Section = SectionGriptel
		r.Category = categoryMounting
		out = append(out, r)
	}
	return out
}

func withSub(r RuleResult, sub string) RuleResult {
	r.Subcategory = sub
	return r
}
