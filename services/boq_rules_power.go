package services

import (
	"fmt"
	"math"
	"sort"
)

// preinstalledRectifierModules ship inside a new rectifier.
const preinstalledRectifierModules = 3

// batteriesPerString is the number of 12V blocks in one 48V string.
const batteriesPerString = 4

// defaultCableOverheadM applies to cross-sections missing from cableOverheadM.
const defaultCableOverheadM = 3.0

// cableOverheadM is the per-run slack/termination allowance by cross-section.
var cableOverheadM = map[int]float64{10: 3, 16: 5, 25: 5, 35: 5, 50: 5}

var cableProductCodes = map[int]string{
	10: "SL2C10MM2FRNC-S-BK-N",
	16: "SL2C16MM2FRNC-S-BK-N",
}

var cableInstallCodes = map[int]string{
	10: "ice_cable_007",
	16: "ice_cable_008",
}

// CableOverhead returns the per-run overhead for a cross-section.
func CableOverhead(crossSection int) float64 {
	if o, ok := cableOverheadM[crossSection]; ok {
		return o
	}
	return defaultCableOverheadM
}

func ruleRectifierModules(pc PowerCalc) []RuleResult {
	if !pc.RectifierIsNew || pc.RectifierModules <= 0 {
		return nil
	}
	extra := pc.RectifierModules - preinstalledRectifierModules
	if extra <= 0 {
		return nil
	}
	return []RuleResult{
		product("241115.106", float64(extra), UnitPieces,
			fmt.Sprintf("Power calc: %d modules - %d pre-installed = %d (%s)",
				pc.RectifierModules, preinstalledRectifierModules, extra, pc.RectifierModel)),
		service("ice_DC_Service_005", float64(extra), UnitPieces,
			fmt.Sprintf("Power calc: %d extra module installations (%s)", extra, pc.RectifierModel)),
	}
}

// ruleDCCables groups cable runs by rounded cross-section. The product line
// includes the per-run overhead; the install line is the raw length. The two
// differ on purpose and are cross-checked by CrossCheck.
func ruleDCCables(pc PowerCalc) []RuleResult {
	if len(pc.DCCables) == 0 {
		return nil
	}
	runs := make(map[int][]float64)
	for _, c := range pc.DCCables {
		cs := int(math.Round(c.CrossSection))
		runs[cs] = append(runs[cs], c.LengthM)
	}
	sections := make([]int, 0, len(runs))
	for cs := range runs {
		sections = append(sections, cs)
	}
	sort.Ints(sections)

	var out []RuleResult
	for _, cs := range sections {
		lengths := runs[cs]
		overhead := CableOverhead(cs)
		var raw, order float64
		for _, l := range lengths {
			raw += l
			order += l + overhead
		}
		if code, ok := cableProductCodes[cs]; ok && order > 0 {
			r := product(code, order, UnitMeters,
				fmt.Sprintf("DC cables %dmm²: %d runs, %gm + %gm/run = %gm", cs, len(lengths), raw, overhead, order))
			r.Subcategory = fmt.Sprintf("%dmm2", cs)
			out = append(out, r)
		}
		if code, ok := cableInstallCodes[cs]; ok && raw > 0 {
			r := service(code, raw, UnitMeters,
				fmt.Sprintf("DC cable install %dmm²: %d runs, %gm total", cs, len(lengths), raw))
			r.Subcategory = fmt.Sprintf("%dmm2", cs)
			out = append(out, r)
		}
	}
	return out
}

func ruleBatteries(pc PowerCalc) []RuleResult {
	if !pc.RectifierIsNew || pc.BatteryStrings <= 0 {
		return nil
	}
	qty := pc.BatteryStrings * batteriesPerString
	return []RuleResult{
		product("M12V190FT", float64(qty), UnitPieces,
			fmt.Sprintf("%d strings × %d batteries = %d", pc.BatteryStrings, batteriesPerString, qty)),
	}
}

func ruleBatteryConnectSet(pc PowerCalc) []RuleResult {
	if !pc.RectifierIsNew || pc.BatteryStrings <= 0 {
		return nil
	}
	return []RuleResult{
		product("MT_BATT_CONNECT_SET", float64(pc.BatteryStrings), UnitSets,
			fmt.Sprintf("%d battery strings, 1 connection set each", pc.BatteryStrings)),
	}
}

func ruleASALCable(pc PowerCalc) []RuleResult {
	if !pc.RectifierIsNew {
		return nil
	}
	return []RuleResult{
		product("476359A.101", 1, UnitPieces, "New rectifier: 1 EAC cable"),
	}
}
