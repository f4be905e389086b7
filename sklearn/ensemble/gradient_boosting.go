package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/core/model"
	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// GradientBoostingClassifier fits a binary logistic boosting ensemble of
// shallow regression trees. Each stage fits the gradient of the log loss and
// applies a Newton step per leaf.
type GradientBoostingClassifier struct {
	state *model.StateManager

	nEstimators     int
	learningRate    float64
	maxDepth        int
	minSamplesLeaf  int
	subsample       float64 // fraction of rows per stage, (0,1]
	randomState     int64

	initScore   float64 // log-odds of the positive class
	stages      []*gbNode
	classes_    []float64 // exactly two, ascending
	nFeatures_  int
	importances []float64
}

// GBMOption configures a GradientBoostingClassifier.
type GBMOption func(*GradientBoostingClassifier)

// WithGBMEstimators sets the number of boosting stages.
func WithGBMEstimators(n int) GBMOption {
	return func(g *GradientBoostingClassifier) { g.nEstimators = n }
}

// WithGBMLearningRate sets the shrinkage applied to each stage.
func WithGBMLearningRate(lr float64) GBMOption {
	return func(g *GradientBoostingClassifier) { g.learningRate = lr }
}

// WithGBMMaxDepth limits the depth of each stage tree.
func WithGBMMaxDepth(d int) GBMOption {
	return func(g *GradientBoostingClassifier) { g.maxDepth = d }
}

// WithGBMMinSamplesLeaf sets the minimum samples per stage-tree leaf.
func WithGBMMinSamplesLeaf(n int) GBMOption {
	return func(g *GradientBoostingClassifier) { g.minSamplesLeaf = n }
}

// WithGBMSubsample sets the row fraction sampled per stage (stochastic
// gradient boosting). 1 uses every row.
func WithGBMSubsample(frac float64) GBMOption {
	return func(g *GradientBoostingClassifier) { g.subsample = frac }
}

// WithGBMRandomState seeds per-stage row subsampling.
func WithGBMRandomState(seed int64) GBMOption {
	return func(g *GradientBoostingClassifier) { g.randomState = seed }
}

// NewGradientBoostingClassifier returns a booster with 100 depth-3 stages
// and a 0.1 learning rate by default.
func NewGradientBoostingClassifier(opts ...GBMOption) *GradientBoostingClassifier {
	g := &GradientBoostingClassifier{
		state:          model.NewStateManager(),
		nEstimators:    100,
		learningRate:   0.1,
		maxDepth:       3,
		minSamplesLeaf: 1,
		subsample:      1.0,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// gbNode is a regression tree node. Leaves carry the Newton-step value.
type gbNode struct {
	isLeaf    bool
	feature   int
	threshold float64
	left      *gbNode
	right     *gbNode
	value     float64
}

// Fit trains the booster on X (n x p) and binary labels y (n x 1).
func (g *GradientBoostingClassifier) Fit(X, y mat.Matrix) error {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewValueError("GradientBoostingClassifier.Fit", "empty matrix")
	}
	yr, _ := y.Dims()
	if yr != n {
		return errors.NewDataShapeError("GradientBoostingClassifier.Fit", n, yr)
	}
	if g.subsample <= 0 || g.subsample > 1 {
		return errors.NewValueError("GradientBoostingClassifier.Fit", "subsample must be in (0, 1]")
	}

	seen := make(map[float64]struct{})
	g.classes_ = nil
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			g.classes_ = append(g.classes_, label)
		}
	}
	if len(g.classes_) != 2 {
		return errors.NewInvalidLabelCardinalityErrorFloats("GradientBoostingClassifier.Fit", g.classes_)
	}
	sort.Float64s(g.classes_)
	g.nFeatures_ = p

	// Encode the higher class as 1.
	y01 := make([]float64, n)
	nPos := 0
	for i := 0; i < n; i++ {
		if y.At(i, 0) == g.classes_[1] {
			y01[i] = 1
			nPos++
		}
	}

	prior := float64(nPos) / float64(n)
	prior = math.Min(math.Max(prior, 1e-12), 1-1e-12)
	g.initScore = math.Log(prior / (1 - prior))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = g.initScore
	}

	grad := make([]float64, n)
	hess := make([]float64, n)
	g.stages = make([]*gbNode, 0, g.nEstimators)
	g.importances = make([]float64, p)

	r := rand.New(rand.NewPCG(uint64(g.randomState), uint64(g.randomState)))
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	for m := 0; m < g.nEstimators; m++ {
		for i := 0; i < n; i++ {
			prob := sigmoid(scores[i])
			grad[i] = y01[i] - prob
			hess[i] = prob * (1 - prob)
		}

		idx := all
		if g.subsample < 1 {
			r.Shuffle(n, func(a, b int) { all[a], all[b] = all[b], all[a] })
			k := int(g.subsample * float64(n))
			if k < 1 {
				k = 1
			}
			idx = make([]int, k)
			copy(idx, all[:k])
		}

		root := g.buildStage(X, grad, hess, idx, 0)
		g.stages = append(g.stages, root)

		for i := 0; i < n; i++ {
			scores[i] += g.learningRate * predictNode(root, X, i)
		}
	}

	total := 0.0
	for _, v := range g.importances {
		total += v
	}
	if total > 0 {
		for j := range g.importances {
			g.importances[j] /= total
		}
	}

	g.state.SetDimensions(p, n)
	g.state.SetFitted()
	return nil
}

// buildStage grows a regression tree on the gradient with variance-reduction
// splits. Leaf values are the one-step Newton update sum(g)/sum(h).
func (g *GradientBoostingClassifier) buildStage(X mat.Matrix, grad, hess []float64, idx []int, depth int) *gbNode {
	leaf := func() *gbNode {
		sumG, sumH := 0.0, 0.0
		for _, i := range idx {
			sumG += grad[i]
			sumH += hess[i]
		}
		value := 0.0
		if sumH > 1e-12 {
			value = sumG / sumH
		}
		return &gbNode{isLeaf: true, value: value}
	}

	if depth >= g.maxDepth || len(idx) < 2*g.minSamplesLeaf {
		return leaf()
	}

	_, p := X.Dims()
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	var bestLeft, bestRight []int

	total := 0.0
	for _, i := range idx {
		total += grad[i]
	}
	nTotal := float64(len(idx))
	parentSSE := -total * total / nTotal

	type pair struct {
		v float64
		i int
	}
	for f := 0; f < p; f++ {
		pairs := make([]pair, len(idx))
		for k, i := range idx {
			pairs[k] = pair{v: X.At(i, f), i: i}
		}
		sort.Slice(pairs, func(a, b int) bool { return pairs[a].v < pairs[b].v })

		leftSum := 0.0
		for s := 1; s < len(pairs); s++ {
			leftSum += grad[pairs[s-1].i]
			if pairs[s].v == pairs[s-1].v {
				continue
			}
			if s < g.minSamplesLeaf || len(pairs)-s < g.minSamplesLeaf {
				continue
			}
			rightSum := total - leftSum
			gain := parentSSE + leftSum*leftSum/float64(s) + rightSum*rightSum/float64(len(pairs)-s)
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (pairs[s-1].v + pairs[s].v) / 2
				bestLeft = make([]int, s)
				bestRight = make([]int, len(pairs)-s)
				for k := 0; k < s; k++ {
					bestLeft[k] = pairs[k].i
				}
				for k := s; k < len(pairs); k++ {
					bestRight[k-s] = pairs[k].i
				}
			}
		}
	}

	if bestFeature < 0 {
		return leaf()
	}

	g.importances[bestFeature] += bestGain

	return &gbNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      g.buildStage(X, grad, hess, bestLeft, depth+1),
		right:     g.buildStage(X, grad, hess, bestRight, depth+1),
	}
}

func predictNode(nd *gbNode, X mat.Matrix, row int) float64 {
	for !nd.isLeaf {
		if X.At(row, nd.feature) <= nd.threshold {
			nd = nd.left
		} else {
			nd = nd.right
		}
	}
	return nd.value
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// PredictProba returns an n x 2 matrix of class probabilities in Classes()
// order.
func (g *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !g.state.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingClassifier", "PredictProba")
	}
	n, p := X.Dims()
	if p != g.nFeatures_ {
		return nil, errors.NewDataShapeError("GradientBoostingClassifier.PredictProba", g.nFeatures_, p)
	}

	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		score := g.initScore
		for _, stage := range g.stages {
			score += g.learningRate * predictNode(stage, X, i)
		}
		prob := sigmoid(score)
		out.Set(i, 0, 1-prob)
		out.Set(i, 1, prob)
	}
	return out, nil
}

// Predict returns an n x 1 matrix with the higher-probability class per row.
func (g *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := g.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := probas.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if probas.At(i, 1) > 0.5 {
			out.Set(i, 0, g.classes_[1])
		} else {
			out.Set(i, 0, g.classes_[0])
		}
	}
	return out, nil
}

// Classes returns the two class labels, ascending.
func (g *GradientBoostingClassifier) Classes() []float64 {
	return g.classes_
}

// GetFeatureImportances returns split-gain importances normalized over all
// stages.
func (g *GradientBoostingClassifier) GetFeatureImportances() []float64 {
	return g.importances
}

// GetParams returns the hyperparameters.
func (g *GradientBoostingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     g.nEstimators,
		"learning_rate":    g.learningRate,
		"max_depth":        g.maxDepth,
		"min_samples_leaf": g.minSamplesLeaf,
		"subsample":        g.subsample,
		"random_state":     g.randomState,
	}
}
