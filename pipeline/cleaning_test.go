package pipeline

import (
	"math"
	"testing"

	"burnoutwatch/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(workHours, meetings, taskRate float64) []float64 {
	return []float64{workHours, 8, meetings, 2, 0, 7, taskRate}
}

func TestNewDataCleaner(t *testing.T) {
	tests := []struct {
		name  string
		cfg   CleanerConfig
		rules []string
	}{
		{"default", CleanerConfig{}, []string{"finite"}},
		{"strict", CleanerConfig{Strict: true}, []string{"finite", "range", "count"}},
		{"labels", CleanerConfig{Labels: []string{"Low"}}, []string{"finite", "label"}},
		{"strict and labels", CleanerConfig{Strict: true, Labels: []string{"Low"}}, []string{"finite", "range", "count", "label"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaner := NewDataCleaner(tt.cfg)
			require.NotNil(t, cleaner)
			var names []string
			for _, rule := range cleaner.rules {
				names = append(names, rule.Name())
			}
			assert.Equal(t, tt.rules, names)
		})
	}
}

func TestCleanDefaultKeepsAnyLabel(t *testing.T) {
	ds := &ml.Dataset{
		Features: [][]float64{
			row(8, 3, 80),
			row(30, 2.5, 120),
			row(math.Inf(1), 3, 80),
		},
		Labels: []string{"low", "severe", "High"},
	}

	cleaner := NewDataCleaner(CleanerConfig{})
	cleaned, issues := cleaner.Clean(ds)

	assert.Equal(t, []string{"low", "severe"}, cleaned.Labels)
	require.Len(t, issues, 1)
	assert.Equal(t, "finite", issues[0].Rule)
	assert.Equal(t, 2, issues[0].Row)
}

func TestClean(t *testing.T) {
	ds := &ml.Dataset{
		Features: [][]float64{
			row(8, 3, 80),
			row(math.NaN(), 3, 80),
			row(30, 3, 80),
			row(8, 2.5, 80),
			row(8, 3, 120),
			row(9, 4, 70),
			row(8, 3, 80),
		},
		Labels: []string{"Low", "High", "Medium", "Low", "High", "High", "Extreme"},
	}

	cleaner := NewDataCleaner(CleanerConfig{Strict: true, Labels: []string{"Low", "Medium", "High"}})
	cleaned, issues := cleaner.Clean(ds)

	require.Equal(t, 2, cleaned.Len())
	assert.Equal(t, []string{"Low", "High"}, cleaned.Labels)
	assert.Equal(t, 9.0, cleaned.Features[1][0])

	rules := make(map[int]string)
	for _, issue := range issues {
		rules[issue.Row] = issue.Rule
	}
	assert.Equal(t, map[int]string{1: "finite", 2: "range", 3: "count", 4: "range", 6: "label"}, rules)

	stats := cleaner.Stats()
	assert.Equal(t, 7, stats.TotalProcessed)
	assert.Equal(t, 2, stats.Passed)
	assert.Equal(t, 5, stats.Rejected)
	assert.Equal(t, 2, stats.Issues["range"])
}

func TestRangeRule(t *testing.T) {
	rule := NewRangeRule()
	tests := []struct {
		name    string
		row     []float64
		wantErr bool
	}{
		{"valid", row(8, 3, 80), false},
		{"edge of day", row(24, 0, 0), false},
		{"negative hours", row(-1, 3, 80), true},
		{"negative meetings", row(8, -1, 80), true},
		{"rate above 100", row(8, 3, 100.5), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rule.Apply(tt.row, "Low")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatsIsACopy(t *testing.T) {
	cleaner := NewDataCleaner(CleanerConfig{Strict: true})
	cleaner.Clean(&ml.Dataset{Features: [][]float64{row(30, 1, 1)}, Labels: []string{"Low"}})
	stats := cleaner.Stats()
	stats.Issues["range"] = 99
	assert.Equal(t, 1, cleaner.Stats().Issues["range"])
}
