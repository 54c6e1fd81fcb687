// Package pipeline screens training rows before they reach the model.
package pipeline

import (
	"fmt"
	"math"

	"burnoutwatch/ml"
)

// CleaningRule inspects one dataset row. A non-nil error rejects the row.
type CleaningRule interface {
	Apply(features []float64, label string) error
	Name() string
}

type QualityIssue struct {
	Rule    string `json:"rule"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type CleaningStats struct {
	TotalProcessed int            `json:"total_processed"`
	Passed         int            `json:"passed"`
	Rejected       int            `json:"rejected"`
	Issues         map[string]int `json:"issues"`
}

// DataCleaner drops dataset rows that fail any of its rules. Rows are
// expected in ml.FeatureNames order.
type DataCleaner struct {
	rules []CleaningRule
	stats CleaningStats
}

// CleanerConfig selects the rules beyond the finite-value check, which is
// always on. Strict adds the range and whole-count rules. A non-empty Labels
// restricts the label column to those values.
type CleanerConfig struct {
	Strict bool
	Labels []string
}

func NewDataCleaner(cfg CleanerConfig) *DataCleaner {
	cleaner := &DataCleaner{stats: CleaningStats{Issues: make(map[string]int)}}
	cleaner.AddRule(NewFiniteRule())
	if cfg.Strict {
		cleaner.AddRule(NewRangeRule())
		cleaner.AddRule(NewCountRule())
	}
	if len(cfg.Labels) > 0 {
		cleaner.AddRule(NewLabelRule(cfg.Labels...))
	}
	return cleaner
}

func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
}

// Clean returns a new dataset with the passing rows, in their original
// order, and one issue per failed rule. Row numbers are zero-based data
// rows, not CSV lines.
func (dc *DataCleaner) Clean(ds *ml.Dataset) (*ml.Dataset, []QualityIssue) {
	cleaned := &ml.Dataset{}
	var issues []QualityIssue

	for i, row := range ds.Features {
		dc.stats.TotalProcessed++
		label := ds.Labels[i]

		rejected := false
		for _, rule := range dc.rules {
			if err := rule.Apply(row, label); err != nil {
				issues = append(issues, QualityIssue{Rule: rule.Name(), Row: i, Message: err.Error()})
				dc.stats.Issues[rule.Name()]++
				rejected = true
			}
		}
		if rejected {
			dc.stats.Rejected++
			continue
		}
		dc.stats.Passed++
		cleaned.Features = append(cleaned.Features, row)
		cleaned.Labels = append(cleaned.Labels, label)
	}
	return cleaned, issues
}

func (dc *DataCleaner) Stats() CleaningStats {
	stats := dc.stats
	stats.Issues = make(map[string]int, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

// ============ rules ============

// FiniteRule rejects NaN and infinite values, which the CSV parser accepts.
type FiniteRule struct{}

func NewFiniteRule() *FiniteRule {
	return &FiniteRule{}
}

func (r *FiniteRule) Name() string {
	return "finite"
}

func (r *FiniteRule) Apply(features []float64, _ string) error {
	names := ml.FeatureNames()
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not a finite number", names[i])
		}
	}
	return nil
}

type bounds struct {
	min, max float64
}

// RangeRule keeps every feature inside its plausible physical range.
type RangeRule struct {
	bounds map[int]bounds
}

func NewRangeRule() *RangeRule {
	day := bounds{0, 24}
	count := bounds{0, math.Inf(1)}
	return &RangeRule{bounds: map[int]bounds{
		0: day,      // work_hours
		1: day,      // screen_time_hours
		2: count,    // meetings_count
		3: count,    // breaks_taken
		4: count,    // after_hours_work
		5: day,      // sleep_hours
		6: {0, 100}, // task_completion_rate
	}}
}

func (r *RangeRule) Name() string {
	return "range"
}

func (r *RangeRule) Apply(features []float64, _ string) error {
	names := ml.FeatureNames()
	for i, v := range features {
		b, ok := r.bounds[i]
		if !ok {
			continue
		}
		if v < b.min || v > b.max {
			return fmt.Errorf("%s=%g outside [%g, %g]", names[i], v, b.min, b.max)
		}
	}
	return nil
}

// CountRule requires whole numbers for the features the prediction form
// submits as integers.
type CountRule struct {
	columns []int
}

func NewCountRule() *CountRule {
	return &CountRule{columns: []int{2, 3, 4}}
}

func (r *CountRule) Name() string {
	return "count"
}

func (r *CountRule) Apply(features []float64, _ string) error {
	names := ml.FeatureNames()
	for _, i := range r.columns {
		if i < len(features) && features[i] != math.Trunc(features[i]) {
			return fmt.Errorf("%s=%g is not a whole number", names[i], features[i])
		}
	}
	return nil
}

type LabelRule struct {
	allowed map[string]struct{}
}

func NewLabelRule(labels ...string) *LabelRule {
	allowed := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		allowed[label] = struct{}{}
	}
	return &LabelRule{allowed: allowed}
}

func (r *LabelRule) Name() string {
	return "label"
}

func (r *LabelRule) Apply(_ []float64, label string) error {
	if _, ok := r.allowed[label]; !ok {
		return fmt.Errorf("unknown label %q", label)
	}
	return nil
}
