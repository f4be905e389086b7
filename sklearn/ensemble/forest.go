// Package ensemble provides the multi-model machinery: a bagged random
// forest, a boosted tree classifier, the prediction matrix that lines model
// outputs up against the truth, the missed-by-all agreement measure, and a
// stacking classifier trained on that matrix.
package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/core/model"
	"github.com/YuminosukeSato/bankmark/core/parallel"
	"github.com/YuminosukeSato/bankmark/pkg/errors"
	"github.com/YuminosukeSato/bankmark/sklearn/tree"
)

// RandomForestClassifier averages the class probabilities of decision trees
// fitted on bootstrap samples with per-split feature subsampling.
type RandomForestClassifier struct {
	state *model.StateManager

	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 => sqrt(nFeatures)
	randomState     int64

	trees      []*tree.DecisionTreeClassifier
	classes_   []float64
	nFeatures_ int
}

// ForestOption configures a RandomForestClassifier.
type ForestOption func(*RandomForestClassifier)

// WithForestEstimators sets the number of trees.
func WithForestEstimators(n int) ForestOption {
	return func(f *RandomForestClassifier) { f.nEstimators = n }
}

// WithForestCriterion selects the split criterion, "gini" or "entropy".
func WithForestCriterion(c string) ForestOption {
	return func(f *RandomForestClassifier) { f.criterion = c }
}

// WithForestMaxDepth limits the depth of each tree. 0 means no limit.
func WithForestMaxDepth(d int) ForestOption {
	return func(f *RandomForestClassifier) { f.maxDepth = d }
}

// WithForestMinSamplesSplit sets the per-tree minimum samples to split.
func WithForestMinSamplesSplit(n int) ForestOption {
	return func(f *RandomForestClassifier) { f.minSamplesSplit = n }
}

// WithForestMinSamplesLeaf sets the per-tree minimum samples per leaf.
func WithForestMinSamplesLeaf(n int) ForestOption {
	return func(f *RandomForestClassifier) { f.minSamplesLeaf = n }
}

// WithForestMaxFeatures sets features sampled per split. 0 uses sqrt(p).
func WithForestMaxFeatures(k int) ForestOption {
	return func(f *RandomForestClassifier) { f.maxFeatures = k }
}

// WithForestRandomState seeds bootstrap sampling and feature subsampling.
func WithForestRandomState(seed int64) ForestOption {
	return func(f *RandomForestClassifier) { f.randomState = seed }
}

// NewRandomForestClassifier returns a forest with 100 gini trees by default.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	f := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit trains the forest on X (n x p) and labels y (n x 1). Trees are fitted
// concurrently; tree i derives its seed from the forest seed and i so runs
// reproduce regardless of scheduling.
func (f *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewValueError("RandomForestClassifier.Fit", "empty matrix")
	}
	yr, _ := y.Dims()
	if yr != n {
		return errors.NewDataShapeError("RandomForestClassifier.Fit", n, yr)
	}

	seen := make(map[float64]struct{})
	f.classes_ = nil
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			f.classes_ = append(f.classes_, label)
		}
	}
	sort.Float64s(f.classes_)
	f.nFeatures_ = p

	maxFeatures := f.maxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(p)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	f.trees = make([]*tree.DecisionTreeClassifier, f.nEstimators)
	errs := make([]error, f.nEstimators)

	parallel.Parallelize(f.nEstimators, func(start, end int) {
		for i := start; i < end; i++ {
			seed := f.randomState + int64(i)
			r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

			sample := make([]int, n)
			for j := range sample {
				sample[j] = r.IntN(n)
			}

			t := tree.NewDecisionTreeClassifier(
				tree.WithCriterion(f.criterion),
				tree.WithMaxDepth(f.maxDepth),
				tree.WithMinSamplesSplit(f.minSamplesSplit),
				tree.WithMinSamplesLeaf(f.minSamplesLeaf),
				tree.WithMaxFeatures(maxFeatures),
				tree.WithRandomState(seed),
			)
			if err := t.FitSubset(X, y, sample); err != nil {
				errs[i] = err
				continue
			}
			f.trees[i] = t
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	f.state.SetDimensions(p, n)
	f.state.SetFitted()
	return nil
}

// PredictProba averages per-tree class probabilities. Columns follow
// Classes(). Trees whose bootstrap sample missed a class contribute zero
// probability for it.
func (f *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !f.state.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}
	n, p := X.Dims()
	if p != f.nFeatures_ {
		return nil, errors.NewDataShapeError("RandomForestClassifier.PredictProba", f.nFeatures_, p)
	}

	colIdx := make(map[float64]int, len(f.classes_))
	for j, c := range f.classes_ {
		colIdx[c] = j
	}

	out := mat.NewDense(n, len(f.classes_), nil)
	for _, t := range f.trees {
		probas, err := t.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for j, c := range t.Classes() {
			col := colIdx[c]
			for i := 0; i < n; i++ {
				out.Set(i, col, out.At(i, col)+probas.At(i, j))
			}
		}
	}
	out.Scale(1/float64(len(f.trees)), out)
	return out, nil
}

// Predict returns an n x 1 matrix with the highest-probability class per row.
func (f *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := probas.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		maxJ := 0
		for j := 1; j < len(f.classes_); j++ {
			if probas.At(i, j) > probas.At(i, maxJ) {
				maxJ = j
			}
		}
		out.Set(i, 0, f.classes_[maxJ])
	}
	return out, nil
}

// Classes returns the class labels seen during fitting, ascending.
func (f *RandomForestClassifier) Classes() []float64 {
	return f.classes_
}

// GetFeatureImportances averages the normalized importances of all trees.
func (f *RandomForestClassifier) GetFeatureImportances() []float64 {
	if !f.state.IsFitted() {
		return nil
	}
	out := make([]float64, f.nFeatures_)
	for _, t := range f.trees {
		for j, v := range t.GetFeatureImportances() {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(f.trees))
	}
	return out
}

// GetParams returns the hyperparameters.
func (f *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.nEstimators,
		"criterion":         f.criterion,
		"max_depth":         f.maxDepth,
		"min_samples_split": f.minSamplesSplit,
		"min_samples_leaf":  f.minSamplesLeaf,
		"max_features":      f.maxFeatures,
		"random_state":      f.randomState,
	}
}
