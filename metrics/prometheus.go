// Package metrics provides Prometheus metrics for BOQ recomputation
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"siteforge/services"
)

var (
	RecomputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siteforge_recomputes_total",
			Help: "Total number of BOQ recompute passes by outcome",
		},
		[]string{"outcome"},
	)

	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siteforge_recompute_duration_seconds",
			Help:    "Time taken by one BOQ recompute pass",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"outcome"},
	)

	ItemsChanged = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "siteforge_recompute_items_changed",
			Help:    "BOQ lines added, changed or removed per recompute",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	RuleItemsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siteforge_rule_items_emitted_total",
			Help: "Total BOQ lines emitted per rule",
		},
		[]string{"rule"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siteforge_exports_total",
			Help: "Total number of BOQ exports by format",
		},
		[]string{"format"},
	)

	CatalogEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "siteforge_catalog_entries",
			Help: "Number of product codes in the loaded catalog",
		},
	)
)

// Recorder records controller measurements into the package vectors.
type Recorder struct{}

var _ services.RecomputeObserver = (*Recorder)(nil)

// NewRecorder creates a metrics recorder for recompute controllers
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ObserveRecompute records one recompute pass
func (r *Recorder) ObserveRecompute(outcome string, d time.Duration, itemsChanged int) {
	RecomputesTotal.WithLabelValues(outcome).Inc()
	RecomputeDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if outcome == services.OutcomeOK {
		ItemsChanged.Observe(float64(itemsChanged))
	}
}

// ObserveRuleEmitted records the lines a rule emitted in one pass
func (r *Recorder) ObserveRuleEmitted(rule string, n int) {
	if n > 0 {
		RuleItemsEmitted.WithLabelValues(rule).Add(float64(n))
	}
}

// RecordExport records a BOQ export
func (r *Recorder) RecordExport(format string) {
	ExportsTotal.WithLabelValues(format).Inc()
}

// SetCatalogEntries records the catalog size
func (r *Recorder) SetCatalogEntries(n int) {
	CatalogEntries.Set(float64(n))
}
