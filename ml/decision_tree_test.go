package ml

import (
	"math/rand"
	"testing"
)

func TestDecisionTreeTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	labels := []int{0, 0, 2, 2}

	model := NewDecisionTree(TreeConfig{MaxDepth: 2})
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	label, confidence, err := model.Predict([]float64{0.15, 0.15})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 {
		t.Fatalf("expected label 0, got %d", label)
	}
	if confidence != 1 {
		t.Fatalf("expected pure leaf confidence 1, got %v", confidence)
	}
	label, _, err = model.Predict([]float64{0.85, 0.85})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 2 {
		t.Fatalf("expected label 2, got %d", label)
	}
}

func TestDecisionTreeChildIndexesAreAbsolute(t *testing.T) {
	// Four separable bands force a tree deeper than one split, which
	// exercises child indexes below the root.
	var features [][]float64
	var labels []int
	for i := 0; i < 40; i++ {
		x := float64(i)
		features = append(features, []float64{x})
		labels = append(labels, i/10)
	}

	model := NewDecisionTree(TreeConfig{})
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := model.validate(4); err != nil {
		t.Fatalf("invalid tree: %v", err)
	}
	for i, row := range features {
		label, _, err := model.Predict(row)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if label != labels[i] {
			t.Fatalf("row %d: expected %d, got %d", i, labels[i], label)
		}
	}
}

func TestDecisionTreeSampleWeightsShiftMajority(t *testing.T) {
	features := [][]float64{{1}, {1}, {1}}
	labels := []int{0, 0, 1}

	model := NewDecisionTree(TreeConfig{})
	if err := model.Fit(features, labels, []float64{1, 1, 5}, 2, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	label, confidence, err := model.Predict([]float64{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 1 {
		t.Fatalf("expected weighted majority 1, got %d", label)
	}
	if confidence < 0.71 || confidence > 0.72 {
		t.Fatalf("expected confidence 5/7, got %v", confidence)
	}
}

func TestDecisionTreeUntrained(t *testing.T) {
	model := NewDecisionTree(TreeConfig{})
	if _, _, err := model.Predict([]float64{1}); err != ErrNotTrained {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
}
