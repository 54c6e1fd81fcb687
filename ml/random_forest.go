package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime"
	"slices"
	"sort"
	"sync"
	"time"
)

const artifactVersion = 1

// ClassWeightBalanced weights each class by n / (k * n_c) so rare labels
// count as much as common ones.
const ClassWeightBalanced = "balanced"

type ForestConfig struct {
	Trees           int
	Seed            int64
	MaxDepth        int
	MinSamplesSplit int
	// MaxFeatures is the number of features tried per split; zero selects
	// floor(sqrt(feature count)).
	MaxFeatures int
	ClassWeight string
	// Workers bounds how many trees are grown concurrently; zero uses
	// GOMAXPROCS.
	Workers int
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:       200,
		Seed:        42,
		ClassWeight: ClassWeightBalanced,
	}
}

// RandomForest is a bagged ensemble of DecisionTrees over string labels.
// Every tree receives a seed drawn up front from Seed, so the fitted forest
// does not depend on goroutine scheduling.
type RandomForest struct {
	Features  []string
	Classes   []string
	Trees     []*DecisionTree
	TrainedAt time.Time

	config ForestConfig
}

type forestArtifact struct {
	ModelType string       `json:"model_type"`
	Version   int          `json:"version"`
	Features  []string     `json:"features"`
	Classes   []string     `json:"classes"`
	TrainedAt time.Time    `json:"trained_at"`
	Trees     [][]TreeNode `json:"trees"`
}

func NewRandomForest(config ForestConfig) *RandomForest {
	if config.Trees <= 0 {
		config.Trees = 200
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	return &RandomForest{config: config}
}

// Train fits the forest. Feature columns are assumed to be in FeatureNames
// order when the row width matches it.
func (rf *RandomForest) Train(features [][]float64, labels []string) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	for _, row := range features {
		if len(row) != width {
			return errors.New("ragged feature matrix")
		}
	}
	rf.config = NewRandomForest(rf.config).config

	classes, encoded := encodeLabels(labels)
	sampleWeights := classWeights(encoded, len(classes), rf.config.ClassWeight)

	maxFeatures := rf.config.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(width)))))
	}
	treeConfig := TreeConfig{
		MaxDepth:        rf.config.MaxDepth,
		MinSamplesSplit: rf.config.MinSamplesSplit,
		MaxFeatures:     maxFeatures,
	}

	master := rand.New(rand.NewSource(rf.config.Seed))
	seeds := make([]int64, rf.config.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*DecisionTree, rf.config.Trees)
	jobs := make(chan int)
	errCh := make(chan error, rf.config.Trees)
	var wg sync.WaitGroup

	for w := 0; w < rf.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				tree, err := fitBootstrapTree(features, encoded, sampleWeights, len(classes), treeConfig, seeds[i])
				if err != nil {
					errCh <- fmt.Errorf("tree %d: %w", i, err)
					continue
				}
				trees[i] = tree
			}
		}()
	}
	for i := range trees {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return err
	}

	if width == len(FeatureNames()) {
		rf.Features = FeatureNames()
	} else {
		rf.Features = make([]string, width)
		for i := range rf.Features {
			rf.Features[i] = fmt.Sprintf("f%d", i)
		}
	}
	rf.Classes = classes
	rf.Trees = trees
	rf.TrainedAt = time.Now().UTC()
	return nil
}

func fitBootstrapTree(features [][]float64, labels []int, sampleWeights []float64, numClasses int, config TreeConfig, seed int64) (*DecisionTree, error) {
	rnd := rand.New(rand.NewSource(seed))
	n := len(labels)
	counts := make([]float64, n)
	for i := 0; i < n; i++ {
		counts[rnd.Intn(n)]++
	}
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = counts[i] * sampleWeights[i]
	}

	tree := NewDecisionTree(config)
	if err := tree.Fit(features, labels, weights, numClasses, rnd); err != nil {
		return nil, err
	}
	return tree, nil
}

// Predict averages the trees' leaf distributions and returns the most
// probable class with its averaged probability.
func (rf *RandomForest) Predict(features []float64) (string, float64, error) {
	probs, err := rf.PredictProba(features)
	if err != nil {
		return "", 0, err
	}
	best := argmax(probs)
	return rf.Classes[best], probs[best], nil
}

func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(rf.Trees) == 0 || len(rf.Classes) == 0 {
		return nil, ErrNotTrained
	}
	if len(features) != len(rf.Features) {
		return nil, fmt.Errorf("expected %d features, got %d", len(rf.Features), len(features))
	}
	sum := make([]float64, len(rf.Classes))
	for _, tree := range rf.Trees {
		dist, err := tree.PredictProba(features)
		if err != nil {
			return nil, err
		}
		for c, p := range dist {
			sum[c] += p
		}
	}
	for c := range sum {
		sum[c] /= float64(len(rf.Trees))
	}
	return sum, nil
}

func (rf *RandomForest) Save(path string) error {
	if len(rf.Trees) == 0 {
		return ErrNotTrained
	}
	a := forestArtifact{
		ModelType: ModelTypeRandomForest,
		Version:   artifactVersion,
		Features:  rf.Features,
		Classes:   rf.Classes,
		TrainedAt: rf.TrainedAt,
		Trees:     make([][]TreeNode, len(rf.Trees)),
	}
	for i, tree := range rf.Trees {
		a.Trees[i] = tree.Nodes
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return rf.decode(payload)
}

func (rf *RandomForest) decode(payload []byte) error {
	var a forestArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	if a.ModelType != ModelTypeRandomForest {
		return fmt.Errorf("unexpected model type %q", a.ModelType)
	}
	if a.Version != artifactVersion {
		return fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	if !slices.Equal(a.Features, FeatureNames()) {
		return fmt.Errorf("%w: got %v", ErrFeatureMismatch, a.Features)
	}
	if len(a.Classes) == 0 || len(a.Trees) == 0 {
		return ErrNotTrained
	}

	trees := make([]*DecisionTree, len(a.Trees))
	for i, nodes := range a.Trees {
		tree := &DecisionTree{Nodes: nodes}
		if err := tree.validate(len(a.Classes)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = tree
	}

	rf.Features = a.Features
	rf.Classes = a.Classes
	rf.Trees = trees
	rf.TrainedAt = a.TrainedAt
	return nil
}

// encodeLabels maps labels onto indexes of their sorted distinct values.
func encodeLabels(labels []string) ([]string, []int) {
	seen := make(map[string]struct{})
	for _, label := range labels {
		seen[label] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, label := range classes {
		index[label] = i
	}
	encoded := make([]int, len(labels))
	for i, label := range labels {
		encoded[i] = index[label]
	}
	return classes, encoded
}

func classWeights(labels []int, numClasses int, mode string) []float64 {
	perClass := make([]float64, numClasses)
	for c := range perClass {
		perClass[c] = 1
	}
	if mode == ClassWeightBalanced {
		counts := make([]int, numClasses)
		for _, label := range labels {
			counts[label]++
		}
		for c, count := range counts {
			if count > 0 {
				perClass[c] = float64(len(labels)) / (float64(numClasses) * float64(count))
			}
		}
	}
	weights := make([]float64, len(labels))
	for i, label := range labels {
		weights[i] = perClass[label]
	}
	return weights
}
