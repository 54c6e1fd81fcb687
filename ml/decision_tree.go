package ml

import (
	"errors"
	"math/rand"
	"sort"
)

// TreeConfig bounds the growth of a single tree. Zero values mean
// "unbounded depth", "split any node with at least two samples" and
// "consider every feature at each split".
type TreeConfig struct {
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
}

// DecisionTree is a CART classifier using weighted Gini impurity. Nodes are
// stored flat in pre-order; child fields are absolute indexes into Nodes.
type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`

	config TreeConfig
}

type TreeNode struct {
	FeatureIdx   int       `json:"feature_idx"`
	Threshold    float64   `json:"threshold"`
	LeftChild    int       `json:"left_child"`
	RightChild   int       `json:"right_child"`
	ClassLabel   int       `json:"class_label"`
	IsLeaf       bool      `json:"is_leaf"`
	Distribution []float64 `json:"distribution,omitempty"`
}

func NewDecisionTree(config TreeConfig) *DecisionTree {
	if config.MinSamplesSplit < 2 {
		config.MinSamplesSplit = 2
	}
	return &DecisionTree{config: config}
}

// treeBuilder holds the training set for one Fit call so the recursion only
// passes row indexes around.
type treeBuilder struct {
	features   [][]float64
	labels     []int
	weights    []float64
	numClasses int
	rnd        *rand.Rand
}

// Fit grows the tree on the rows whose weight is positive. labels must be in
// [0, numClasses). rnd drives feature sub-sampling; it may be nil when
// MaxFeatures is zero.
func (dt *DecisionTree) Fit(features [][]float64, labels []int, weights []float64, numClasses int, rnd *rand.Rand) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) || len(weights) != len(labels) {
		return errors.New("features, labels and weights size mismatch")
	}
	if numClasses <= 0 {
		return errors.New("numClasses must be positive")
	}
	if dt.config.MinSamplesSplit < 2 {
		dt.config.MinSamplesSplit = 2
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(0))
	}

	idx := make([]int, 0, len(labels))
	for i, w := range weights {
		if labels[i] < 0 || labels[i] >= numClasses {
			return errors.New("label out of range")
		}
		if w > 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return errors.New("no samples with positive weight")
	}

	b := &treeBuilder{
		features:   features,
		labels:     labels,
		weights:    weights,
		numClasses: numClasses,
		rnd:        rnd,
	}
	dt.Nodes = dt.Nodes[:0]
	dt.grow(b, idx, 0)
	return nil
}

// Train fits the tree with unit sample weights. numClasses is derived from
// the largest label.
func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	numClasses := 0
	for _, label := range labels {
		if label+1 > numClasses {
			numClasses = label + 1
		}
	}
	weights := make([]float64, len(labels))
	for i := range weights {
		weights[i] = 1
	}
	return dt.Fit(features, labels, weights, numClasses, nil)
}

// Predict returns the majority class of the reached leaf and its share of
// the leaf's weight.
func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, 0, err
	}
	confidence := 0.0
	if leaf.ClassLabel < len(leaf.Distribution) {
		confidence = leaf.Distribution[leaf.ClassLabel]
	}
	return leaf.ClassLabel, confidence, nil
}

// PredictProba returns the class distribution of the reached leaf.
func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	return leaf.Distribution, nil
}

func (dt *DecisionTree) leaf(features []float64) (*TreeNode, error) {
	if len(dt.Nodes) == 0 {
		return nil, ErrNotTrained
	}
	idx := 0
	for {
		node := &dt.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(dt.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

// validate checks the structural invariants of a loaded tree.
func (dt *DecisionTree) validate(numClasses int) error {
	if len(dt.Nodes) == 0 {
		return ErrNotTrained
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if len(node.Distribution) != numClasses {
				return errors.New("leaf distribution does not match class count")
			}
			continue
		}
		if node.LeftChild <= i || node.LeftChild >= len(dt.Nodes) ||
			node.RightChild <= i || node.RightChild >= len(dt.Nodes) {
			return errors.New("invalid tree state")
		}
	}
	return nil
}

func (dt *DecisionTree) grow(b *treeBuilder, idx []int, depth int) int {
	nodeIdx := len(dt.Nodes)
	dt.Nodes = append(dt.Nodes, TreeNode{})

	dist, total := b.distribution(idx)
	label := argmax(dist)

	leaf := func() int {
		probs := make([]float64, len(dist))
		for c, w := range dist {
			probs[c] = w / total
		}
		dt.Nodes[nodeIdx] = TreeNode{
			FeatureIdx:   -1,
			LeftChild:    -1,
			RightChild:   -1,
			ClassLabel:   label,
			IsLeaf:       true,
			Distribution: probs,
		}
		return nodeIdx
	}

	if (dt.config.MaxDepth > 0 && depth >= dt.config.MaxDepth) ||
		len(idx) < dt.config.MinSamplesSplit || isPure(dist) {
		return leaf()
	}

	feature, threshold, ok := dt.findBestSplit(b, idx, total)
	if !ok {
		return leaf()
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leaf()
	}

	leftIdx := dt.grow(b, left, depth+1)
	rightIdx := dt.grow(b, right, depth+1)
	dt.Nodes[nodeIdx] = TreeNode{
		FeatureIdx: feature,
		Threshold:  threshold,
		LeftChild:  leftIdx,
		RightChild: rightIdx,
		ClassLabel: label,
	}
	return nodeIdx
}

// findBestSplit draws features in random order and evaluates at least
// MaxFeatures of them, continuing past that budget only while no valid
// split has been found.
func (dt *DecisionTree) findBestSplit(b *treeBuilder, idx []int, total float64) (int, float64, bool) {
	featureCount := len(b.features[idx[0]])
	budget := dt.config.MaxFeatures
	if budget <= 0 || budget > featureCount {
		budget = featureCount
	}

	order := b.rnd.Perm(featureCount)
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := 0.0

	sorted := make([]int, len(idx))
	leftCounts := make([]float64, b.numClasses)
	for visited, featureIdx := range order {
		if visited >= budget && bestFeature != -1 {
			break
		}

		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.features[sorted[i]][featureIdx] < b.features[sorted[j]][featureIdx]
		})

		for c := range leftCounts {
			leftCounts[c] = 0
		}
		rightCounts, _ := b.distribution(sorted)
		leftWeight := 0.0

		for pos := 0; pos < len(sorted)-1; pos++ {
			row := sorted[pos]
			w := b.weights[row]
			leftCounts[b.labels[row]] += w
			rightCounts[b.labels[row]] -= w
			leftWeight += w

			current := b.features[row][featureIdx]
			next := b.features[sorted[pos+1]][featureIdx]
			if current == next {
				continue
			}

			rightWeight := total - leftWeight
			impurity := (leftWeight*gini(leftCounts, leftWeight) + rightWeight*gini(rightCounts, rightWeight)) / total
			if bestFeature == -1 || impurity < bestImpurity {
				bestFeature = featureIdx
				bestThreshold = current + (next-current)/2
				bestImpurity = impurity
			}
		}
	}

	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (b *treeBuilder) distribution(idx []int) ([]float64, float64) {
	dist := make([]float64, b.numClasses)
	total := 0.0
	for _, i := range idx {
		dist[b.labels[i]] += b.weights[i]
		total += b.weights[i]
	}
	return dist, total
}

func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		prob := count / total
		impurity -= prob * prob
	}
	return impurity
}

func isPure(dist []float64) bool {
	nonZero := 0
	for _, w := range dist {
		if w > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// argmax returns the first index holding the maximum value.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
