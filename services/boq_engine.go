package services

import (
	"fmt"
	"time"
)

// Sections a BOQ line can belong to.
const (
	SectionProduct = "product"
	SectionService = "service"
	SectionGriptel = "griptel"
	SectionSolar   = "solar"
)

// Units of measure used by rule output.
const (
	UnitPieces = "pcs"
	UnitMeters = "m"
	UnitSets   = "sets"
)

const (
	categorySystemModule = "System module"
	categoryServiceItems = "Service items"
	categoryMounting     = "Mounting"
)

// RuleResult is one line produced by a rule.
type RuleResult struct {
	ProductCode string  `json:"productCode"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Section     string  `json:"section"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Provenance  string  `json:"provenance"`
}

// BOQItem is a live BOQ line. Rule-derived ids are positional and are not
// stable across recomputes whose ordered output changes.
type BOQItem struct {
	ID string `json:"id"`
	RuleResult
	Rule             string    `json:"rule,omitempty"`
	Vendor           string    `json:"vendor,omitempty"`
	ManualOverride   bool      `json:"manualOverride"`
	IsNew            bool      `json:"isNew,omitempty"`
	PreviousQuantity *float64  `json:"previousQuantity,omitempty"`
	ChangedAt        time.Time `json:"changedAt,omitzero"`
}

// SiteInput is the classified view of a site that radio-plan rules read.
type SiteInput struct {
	Classification
	Parsed      ParsedConfig
	MountGroups []MountGroup
}

// BuildSiteInput classifies cells and clusters the resulting sectors.
func BuildSiteInput(cells []RawCellRecord) (SiteInput, error) {
	c := Classify(cells)
	groups, err := ClusterMounts(c.Sectors)
	if err != nil {
		return SiteInput{}, fmt.Errorf("build site input: %w", err)
	}
	return SiteInput{
		Classification: c,
		Parsed:         ParseConfig(c.Config.Config),
		MountGroups:    groups,
	}, nil
}

// SingleRule emits at most one line.
type SingleRule struct {
	Name string
	Eval func(in SiteInput) (RuleResult, bool)
}

// MultiRule emits any number of lines.
type MultiRule struct {
	Name string
	Eval func(in SiteInput) []RuleResult
}

// PowerRule reads power-calculator results.
type PowerRule struct {
	Name string
	Eval func(pc PowerCalc) []RuleResult
}

// Registry is the ordered rule list. Evaluation order is Single, then Multi,
// then Power.
type Registry struct {
	Single []SingleRule
	Multi  []MultiRule
	Power  []PowerRule
}

// RuleCount records how many lines a rule emitted in one pass.
type RuleCount struct {
	Rule    string
	Emitted int
}

// Evaluation is the output of one engine pass.
type Evaluation struct {
	Items  []BOQItem
	Counts []RuleCount
}

// idSequence hands out positional ids for one evaluation pass.
type idSequence struct {
	next int
}

func (s *idSequence) id(productCode string) string {
	id := fmt.Sprintf("rule-%s-%d", productCode, s.next)
	s.next++
	return id
}

// Evaluate runs every rule in order and concatenates the results. Lines are
// not deduplicated across rules. Power rules run only when pc is non-nil.
func (r Registry) Evaluate(in SiteInput, pc *PowerCalc) Evaluation {
	var ev Evaluation
	seq := &idSequence{}

	emit := func(rule string, results []RuleResult) {
		for _, res := range results {
			ev.Items = append(ev.Items, BOQItem{
				ID:         seq.id(res.ProductCode),
				RuleResult: res,
				Rule:       rule,
			})
		}
		ev.Counts = append(ev.Counts, RuleCount{Rule: rule, Emitted: len(results)})
	}

	for _, rule := range r.Single {
		if res, ok := rule.Eval(in); ok {
			emit(rule.Name, []RuleResult{res})
		} else {
			emit(rule.Name, nil)
		}
	}
	for _, rule := range r.Multi {
		emit(rule.Name, rule.Eval(in))
	}
	if pc != nil {
		for _, rule := range r.Power {
			emit(rule.Name, rule.Eval(*pc))
		}
	}
	return ev
}

// product and service build rule results with the section defaults filled in.
func product(code string, qty float64, unit, provenance string) RuleResult {
	return RuleResult{
		ProductCode: code,
		Description: defaultDescriptions[code],
		Quantity:    qty,
		Unit:        unit,
		Section:     SectionProduct,
		Category:    categorySystemModule,
		Provenance:  provenance,
	}
}

func service(code string, qty float64, unit, provenance string) RuleResult {
	return RuleResult{
		ProductCode: code,
		Description: defaultDescriptions[code],
		Quantity:    qty,
		Unit:        unit,
		Section:     SectionService,
		Category:    categoryServiceItems,
		Provenance:  provenance,
	}
}
