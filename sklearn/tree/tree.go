// Package tree implements a CART decision tree classifier. It serves both
// as a standalone base model and as the building block for the bagging,
// boosting, and stacking ensembles.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/core/model"
	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// DecisionTreeClassifier is a CART-style classifier over float64 labels.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion           string  // "gini" (default) or "entropy"
	maxDepth            int     // 0 => no limit
	minSamplesSplit     int     // minimum samples to attempt a split
	minSamplesLeaf      int     // minimum samples required in each leaf
	maxFeatures         int     // 0 => all features, >0 => subsample per split
	minImpurityDecrease float64 // minimal gain to accept a split
	randomState         int64   // seed for feature subsampling

	// Fitted state
	root        *node
	classes_    []float64
	nClasses_   int
	nFeatures_  int
	importances []float64
}

type node struct {
	isLeaf    bool
	feature   int
	threshold float64 // x <= threshold goes left
	left      *node
	right     *node

	n      int
	probas []float64 // aligned with classes_
	pred   int       // index into classes_
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion selects the impurity criterion, "gini" or "entropy".
func WithCriterion(c string) Option {
	return func(t *DecisionTreeClassifier) { t.criterion = c }
}

// WithMaxDepth limits the tree depth (root depth = 0). 0 means no limit.
func WithMaxDepth(d int) Option {
	return func(t *DecisionTreeClassifier) { t.maxDepth = d }
}

// WithMinSamplesSplit sets the minimum samples needed to attempt a split.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are sampled per split. 0 uses all.
func WithMaxFeatures(k int) Option {
	return func(t *DecisionTreeClassifier) { t.maxFeatures = k }
}

// WithMinImpurityDecrease sets the minimal gain to accept a split.
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.minImpurityDecrease = v }
}

// WithRandomState seeds feature subsampling for reproducible trees.
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.randomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	t := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit trains the tree on X (n x p) and labels y (n x 1).
func (t *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	n, _ := X.Dims()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.FitSubset(X, y, idx)
}

// FitSubset trains the tree on the rows of X selected by indices. The
// ensembles use it to fit bootstrap samples without copying the data.
// Indices may repeat.
func (t *DecisionTreeClassifier) FitSubset(X, y mat.Matrix, indices []int) error {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "empty matrix")
	}
	yr, _ := y.Dims()
	if yr != n {
		return errors.NewDataShapeError("DecisionTreeClassifier.Fit", n, yr)
	}
	if len(indices) == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "no training indices")
	}
	if t.criterion != "gini" && t.criterion != "entropy" {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "criterion must be gini or entropy")
	}

	// Collect the class set over the selected rows, sorted for stable
	// probability column order.
	seen := make(map[float64]struct{})
	t.classes_ = nil
	for _, i := range indices {
		label := y.At(i, 0)
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			t.classes_ = append(t.classes_, label)
		}
	}
	sort.Float64s(t.classes_)
	t.nClasses_ = len(t.classes_)
	t.nFeatures_ = p
	t.importances = make([]float64, p)

	labels := make([]int, n)
	classIdx := make(map[float64]int, t.nClasses_)
	for ci, c := range t.classes_ {
		classIdx[c] = ci
	}
	for i := 0; i < n; i++ {
		labels[i] = classIdx[y.At(i, 0)]
	}

	rnd := rand.New(rand.NewPCG(uint64(t.randomState), uint64(t.randomState)+1))
	t.root = t.build(X, labels, indices, 0, len(indices), rnd)

	// Normalize accumulated impurity decreases.
	total := 0.0
	for _, v := range t.importances {
		total += v
	}
	if total > 0 {
		for j := range t.importances {
			t.importances[j] /= total
		}
	}

	t.state.SetDimensions(p, n)
	t.state.SetFitted()
	return nil
}

type split struct {
	gain      float64
	feature   int
	threshold float64
	left      []int
	right     []int
}

func (t *DecisionTreeClassifier) build(X mat.Matrix, labels []int, idx []int, depth, nTotal int, rnd *rand.Rand) *node {
	nd := &node{n: len(idx)}

	counts := make([]int, t.nClasses_)
	for _, i := range idx {
		counts[labels[i]]++
	}
	leaf := func() *node {
		nd.isLeaf = true
		nd.probas = countsToProbas(counts)
		nd.pred = argmax(counts)
		return nd
	}

	if isPure(counts) || len(idx) < t.minSamplesSplit {
		return leaf()
	}
	if t.maxDepth > 0 && depth >= t.maxDepth {
		return leaf()
	}

	_, p := X.Dims()
	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	if t.maxFeatures > 0 && t.maxFeatures < p {
		rnd.Shuffle(p, func(a, b int) { features[a], features[b] = features[b], features[a] })
		features = features[:t.maxFeatures]
	}

	parent := t.impurity(counts)
	best := split{feature: -1}

	// Search features concurrently; each candidate split only reads X.
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, f := range features {
		wg.Add(1)
		go func(f int) {
			defer wg.Done()
			s := t.bestSplitForFeature(X, labels, idx, f, parent)
			mu.Lock()
			if s.feature >= 0 && s.gain > best.gain {
				best = s
			}
			mu.Unlock()
		}(f)
	}
	wg.Wait()

	if best.feature < 0 || best.gain <= t.minImpurityDecrease {
		return leaf()
	}

	t.importances[best.feature] += best.gain * float64(len(idx)) / float64(nTotal)

	nd.feature = best.feature
	nd.threshold = best.threshold
	nd.left = t.build(X, labels, best.left, depth+1, nTotal, rnd)
	nd.right = t.build(X, labels, best.right, depth+1, nTotal, rnd)
	return nd
}

func (t *DecisionTreeClassifier) bestSplitForFeature(X mat.Matrix, labels []int, idx []int, f int, parent float64) split {
	best := split{feature: -1}

	type pair struct {
		v float64
		i int
	}
	pairs := make([]pair, len(idx))
	for k, i := range idx {
		pairs[k] = pair{v: X.At(i, f), i: i}
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].v < pairs[b].v })

	n := len(pairs)
	leftCounts := make([]int, t.nClasses_)
	rightCounts := make([]int, t.nClasses_)
	for _, pv := range pairs {
		rightCounts[labels[pv.i]]++
	}

	for s := 1; s < n; s++ {
		ci := labels[pairs[s-1].i]
		leftCounts[ci]++
		rightCounts[ci]--

		if pairs[s].v == pairs[s-1].v {
			continue
		}
		if s < t.minSamplesLeaf || n-s < t.minSamplesLeaf {
			continue
		}

		weighted := (float64(s)*t.impurity(leftCounts) + float64(n-s)*t.impurity(rightCounts)) / float64(n)
		gain := parent - weighted
		if gain > best.gain {
			left := make([]int, s)
			right := make([]int, n-s)
			for k := 0; k < s; k++ {
				left[k] = pairs[k].i
			}
			for k := s; k < n; k++ {
				right[k-s] = pairs[k].i
			}
			best = split{
				gain:      gain,
				feature:   f,
				threshold: (pairs[s-1].v + pairs[s].v) / 2,
				left:      left,
				right:     right,
			}
		}
	}
	return best
}

func (t *DecisionTreeClassifier) impurity(counts []int) float64 {
	if t.criterion == "entropy" {
		return entropyFromCounts(counts)
	}
	return giniFromCounts(counts)
}

// Predict returns an n x 1 matrix of predicted class labels.
func (t *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := t.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := probas.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		maxJ := 0
		for j := 1; j < t.nClasses_; j++ {
			if probas.At(i, j) > probas.At(i, maxJ) {
				maxJ = j
			}
		}
		out.Set(i, 0, t.classes_[maxJ])
	}
	return out, nil
}

// PredictProba returns an n x nClasses matrix of class probabilities, with
// columns ordered by Classes().
func (t *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !t.state.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "PredictProba")
	}
	n, p := X.Dims()
	if p != t.nFeatures_ {
		return nil, errors.NewDataShapeError("DecisionTreeClassifier.PredictProba", t.nFeatures_, p)
	}

	out := mat.NewDense(n, t.nClasses_, nil)
	for i := 0; i < n; i++ {
		nd := t.root
		for !nd.isLeaf {
			if X.At(i, nd.feature) <= nd.threshold {
				nd = nd.left
			} else {
				nd = nd.right
			}
		}
		for j, pr := range nd.probas {
			out.Set(i, j, pr)
		}
	}
	return out, nil
}

// Score returns the accuracy of predictions on X against y.
func (t *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	preds, err := t.Predict(X)
	if err != nil {
		return 0
	}
	n, _ := preds.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if preds.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// Classes returns the class labels seen during fitting, ascending.
func (t *DecisionTreeClassifier) Classes() []float64 {
	return t.classes_
}

// GetFeatureImportances returns normalized impurity-decrease importances.
func (t *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return t.importances
}

// GetDepth returns the depth of the fitted tree.
func (t *DecisionTreeClassifier) GetDepth() int {
	return nodeDepth(t.root)
}

// GetNLeaves returns the number of leaves in the fitted tree.
func (t *DecisionTreeClassifier) GetNLeaves() int {
	return nodeLeaves(t.root)
}

// GetParams returns the hyperparameters.
func (t *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             t.criterion,
		"max_depth":             t.maxDepth,
		"min_samples_split":     t.minSamplesSplit,
		"min_samples_leaf":      t.minSamplesLeaf,
		"max_features":          t.maxFeatures,
		"min_impurity_decrease": t.minImpurityDecrease,
		"random_state":          t.randomState,
	}
}

// SetParams updates hyperparameters from a map.
func (t *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion":
			v, ok := value.(string)
			if !ok {
				return errors.NewValueError("SetParams", "criterion must be a string")
			}
			t.criterion = v
		case "max_depth":
			v, ok := value.(int)
			if !ok {
				return errors.NewValueError("SetParams", "max_depth must be an int")
			}
			t.maxDepth = v
		case "min_samples_split":
			v, ok := value.(int)
			if !ok {
				return errors.NewValueError("SetParams", "min_samples_split must be an int")
			}
			t.minSamplesSplit = v
		case "min_samples_leaf":
			v, ok := value.(int)
			if !ok {
				return errors.NewValueError("SetParams", "min_samples_leaf must be an int")
			}
			t.minSamplesLeaf = v
		case "max_features":
			v, ok := value.(int)
			if !ok {
				return errors.NewValueError("SetParams", "max_features must be an int")
			}
			t.maxFeatures = v
		case "random_state":
			v, ok := value.(int64)
			if !ok {
				return errors.NewValueError("SetParams", "random_state must be an int64")
			}
			t.randomState = v
		default:
			return errors.NewValueError("SetParams", "unknown parameter: "+key)
		}
	}
	return nil
}

func nodeDepth(nd *node) int {
	if nd == nil || nd.isLeaf {
		return 0
	}
	l := nodeDepth(nd.left)
	r := nodeDepth(nd.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

func nodeLeaves(nd *node) int {
	if nd == nil {
		return 0
	}
	if nd.isLeaf {
		return 1
	}
	return nodeLeaves(nd.left) + nodeLeaves(nd.right)
}

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	probas := make([]float64, len(counts))
	if n == 0 {
		return probas
	}
	for i, c := range counts {
		probas[i] = float64(c) / float64(n)
	}
	return probas
}

func argmax(counts []int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}
