// Package calibration tunes the decision threshold of probabilistic binary
// classifiers. Instead of cutting at 0.5, a ThresholdClassifier sweeps a
// candidate grid under repeated stratified cross-validation and keeps the
// threshold whose operating point lies closest to the ideal corner of the
// ROC plane (sensitivity = specificity = 1).
package calibration

import (
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/core/model"
	"github.com/YuminosukeSato/bankmark/metrics"
	"github.com/YuminosukeSato/bankmark/pkg/errors"
	"github.com/YuminosukeSato/bankmark/sklearn/model_selection"
)

// CandidateScore is the cross-validated operating point of one threshold.
// DistanceStd is the sample standard deviation of the distance across folds.
type CandidateScore struct {
	Threshold       float64
	MeanSensitivity float64
	MeanSpecificity float64
	MeanDistance    float64
	DistanceStd     float64
}

// ThresholdClassifier wraps a base classifier built by a factory. Fit
// cross-validates every candidate threshold with a fresh base model per
// fold, picks the candidate minimizing the mean distance to the ideal
// corner, and refits the base model once on the full training data.
type ThresholdClassifier struct {
	state *model.StateManager

	factory     model.ClassifierFactory
	candidates  []float64
	nSplits     int
	nRepeats    int
	randomState int64

	base       model.Classifier
	threshold_ float64
	sweep_     []CandidateScore
	positive_  float64
	negative_  float64
}

// ThresholdOption configures a ThresholdClassifier.
type ThresholdOption func(*ThresholdClassifier)

// WithCandidates sets the explicit candidate threshold grid.
func WithCandidates(candidates []float64) ThresholdOption {
	return func(tc *ThresholdClassifier) {
		tc.candidates = append([]float64(nil), candidates...)
	}
}

// WithCandidateRange sets an inclusive [min, max] grid with the given step.
func WithCandidateRange(min, max, step float64) ThresholdOption {
	return func(tc *ThresholdClassifier) {
		tc.candidates = nil
		if step <= 0 {
			return
		}
		for v := min; v <= max+1e-12; v += step {
			tc.candidates = append(tc.candidates, math.Round(v*1e9)/1e9)
		}
	}
}

// WithCVSplits sets the number of folds per repeat.
func WithCVSplits(k int) ThresholdOption {
	return func(tc *ThresholdClassifier) { tc.nSplits = k }
}

// WithCVRepeats sets the number of shuffled cross-validation repeats.
func WithCVRepeats(r int) ThresholdOption {
	return func(tc *ThresholdClassifier) { tc.nRepeats = r }
}

// WithThresholdRandomState seeds the cross-validation shuffles.
func WithThresholdRandomState(seed int64) ThresholdOption {
	return func(tc *ThresholdClassifier) { tc.randomState = seed }
}

// NewThresholdClassifier creates a calibrator for models built by factory.
// The default grid runs from 0.05 to 0.50 in steps of 0.01, evaluated with
// 5-fold cross-validation repeated 3 times.
func NewThresholdClassifier(factory model.ClassifierFactory, opts ...ThresholdOption) *ThresholdClassifier {
	tc := &ThresholdClassifier{
		state:    model.NewStateManager(),
		factory:  factory,
		nSplits:  5,
		nRepeats: 3,
	}
	WithCandidateRange(0.05, 0.50, 0.01)(tc)
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Fit calibrates the threshold on X and binary labels y, then refits the
// base model on all of it. Folds are evaluated concurrently; each fold
// trains one fresh base model and scores every candidate against its cached
// probability predictions.
func (tc *ThresholdClassifier) Fit(X, y mat.Matrix) error {
	if tc.factory == nil {
		return errors.NewValueError("ThresholdClassifier.Fit", "nil classifier factory")
	}
	if len(tc.candidates) == 0 {
		return errors.NewEmptyCandidateSetError("ThresholdClassifier.Fit")
	}
	for _, c := range tc.candidates {
		if c <= 0 || c >= 1 {
			return errors.NewValueError("ThresholdClassifier.Fit", "candidate thresholds must lie in (0, 1)")
		}
	}
	n, p := X.Dims()
	yr, _ := y.Dims()
	if yr != n {
		return errors.NewDataShapeError("ThresholdClassifier.Fit", n, yr)
	}

	classes, err := binaryClasses(y)
	if err != nil {
		return err
	}
	tc.negative_, tc.positive_ = classes[0], classes[1]

	splitter := model_selection.NewRepeatedStratifiedKFold(tc.nSplits, tc.nRepeats, tc.randomState)
	folds, err := splitter.Split(y)
	if err != nil {
		return err
	}

	// foldStats[f][c] holds {sensitivity, specificity, distance} of
	// candidate c on fold f.
	type point struct{ sens, spec, dist float64 }
	foldStats := make([][]point, len(folds))

	var g errgroup.Group
	for f := range folds {
		g.Go(func() error {
			fold := folds[f]
			XTrain := model_selection.SubsetMatrix(X, fold.TrainIndices)
			yTrain := model_selection.SubsetLabels(y, fold.TrainIndices)
			XTest := model_selection.SubsetMatrix(X, fold.TestIndices)
			yTest := model_selection.SubsetLabels(y, fold.TestIndices)

			clf := tc.factory()
			if err := clf.Fit(XTrain, yTrain); err != nil {
				return err
			}
			scores, err := positiveScores(clf, XTest, tc.positive_)
			if err != nil {
				return err
			}

			stats := make([]point, len(tc.candidates))
			preds := mat.NewVecDense(len(scores), nil)
			for c, threshold := range tc.candidates {
				for i, s := range scores {
					if s >= threshold {
						preds.SetVec(i, tc.positive_)
					} else {
						preds.SetVec(i, tc.negative_)
					}
				}
				cm, err := metrics.NewConfusionMatrix(yTest, preds, tc.positive_)
				if err != nil {
					return err
				}
				stats[c] = point{
					sens: cm.Sensitivity(),
					spec: cm.Specificity(),
					dist: cm.DistanceToIdeal(),
				}
			}
			foldStats[f] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tc.sweep_ = make([]CandidateScore, len(tc.candidates))
	sens := make([]float64, len(folds))
	spec := make([]float64, len(folds))
	dist := make([]float64, len(folds))
	for c, threshold := range tc.candidates {
		for f := range folds {
			sens[f] = foldStats[f][c].sens
			spec[f] = foldStats[f][c].spec
			dist[f] = foldStats[f][c].dist
		}
		sensSum, err := model_selection.Summarize(sens)
		if err != nil {
			return err
		}
		specSum, err := model_selection.Summarize(spec)
		if err != nil {
			return err
		}
		distSum, err := model_selection.Summarize(dist)
		if err != nil {
			return err
		}
		tc.sweep_[c] = CandidateScore{
			Threshold:       threshold,
			MeanSensitivity: sensSum.Mean,
			MeanSpecificity: specSum.Mean,
			MeanDistance:    distSum.Mean,
			DistanceStd:     distSum.Std,
		}
	}
	sort.Slice(tc.sweep_, func(i, j int) bool {
		return tc.sweep_[i].Threshold < tc.sweep_[j].Threshold
	})

	tc.threshold_ = pickThreshold(tc.sweep_)

	base := tc.factory()
	if err := base.Fit(X, y); err != nil {
		return err
	}
	tc.base = base

	tc.state.SetDimensions(p, n)
	tc.state.SetFitted()
	return nil
}

// pickThreshold returns the candidate with the smallest mean distance.
// Ties go to the candidate closest to 0.5, then to the smaller threshold.
func pickThreshold(sweep []CandidateScore) float64 {
	best := sweep[0]
	for _, s := range sweep[1:] {
		switch {
		case s.MeanDistance < best.MeanDistance:
			best = s
		case s.MeanDistance == best.MeanDistance:
			if math.Abs(s.Threshold-0.5) < math.Abs(best.Threshold-0.5) {
				best = s
			}
		}
	}
	return best.Threshold
}

// Predict labels X with the calibrated threshold.
func (tc *ThresholdClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !tc.state.IsFitted() {
		return nil, errors.NewNotFittedError("ThresholdClassifier", "Predict")
	}
	return tc.PredictWithThreshold(X, tc.threshold_)
}

// PredictWithThreshold labels X cutting the positive probability at the
// given threshold instead of the calibrated one.
func (tc *ThresholdClassifier) PredictWithThreshold(X mat.Matrix, threshold float64) (mat.Matrix, error) {
	if !tc.state.IsFitted() {
		return nil, errors.NewNotFittedError("ThresholdClassifier", "PredictWithThreshold")
	}
	scores, err := positiveScores(tc.base, X, tc.positive_)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(scores), 1, nil)
	for i, s := range scores {
		if s >= threshold {
			out.Set(i, 0, tc.positive_)
		} else {
			out.Set(i, 0, tc.negative_)
		}
	}
	return out, nil
}

// PredictProba returns the base model's class probabilities.
func (tc *ThresholdClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !tc.state.IsFitted() {
		return nil, errors.NewNotFittedError("ThresholdClassifier", "PredictProba")
	}
	return tc.base.PredictProba(X)
}

// Classes returns the two class labels, ascending.
func (tc *ThresholdClassifier) Classes() []float64 {
	return []float64{tc.negative_, tc.positive_}
}

// Threshold returns the calibrated decision threshold.
func (tc *ThresholdClassifier) Threshold() float64 {
	return tc.threshold_
}

// Sweep returns the cross-validated score of every candidate threshold,
// ascending by threshold.
func (tc *ThresholdClassifier) Sweep() []CandidateScore {
	out := make([]CandidateScore, len(tc.sweep_))
	copy(out, tc.sweep_)
	return out
}

// Base returns the refitted underlying classifier.
func (tc *ThresholdClassifier) Base() model.Classifier {
	return tc.base
}

// EvaluateThresholds scores each candidate against fixed probability scores
// and true labels, without touching any model. The truth must use 1 for the
// positive class and 0 for the negative class.
func EvaluateThresholds(scores []float64, truth *mat.VecDense, candidates []float64) ([]CandidateScore, error) {
	if len(candidates) == 0 {
		return nil, errors.NewEmptyCandidateSetError("EvaluateThresholds")
	}
	if len(scores) != truth.Len() {
		return nil, errors.NewDataShapeError("EvaluateThresholds", truth.Len(), len(scores))
	}

	out := make([]CandidateScore, len(candidates))
	preds := mat.NewVecDense(len(scores), nil)
	for c, threshold := range candidates {
		for i, s := range scores {
			if s >= threshold {
				preds.SetVec(i, 1)
			} else {
				preds.SetVec(i, 0)
			}
		}
		cm, err := metrics.NewConfusionMatrix(truth, preds, 1)
		if err != nil {
			return nil, err
		}
		out[c] = CandidateScore{
			Threshold:       threshold,
			MeanSensitivity: cm.Sensitivity(),
			MeanSpecificity: cm.Specificity(),
			MeanDistance:    cm.DistanceToIdeal(),
		}
	}
	return out, nil
}

// positiveScores returns the probability column of the positive class.
func positiveScores(clf model.Classifier, X mat.Matrix, positive float64) ([]float64, error) {
	probas, err := clf.PredictProba(X)
	if err != nil {
		return nil, err
	}

	col := -1
	for j, c := range clf.Classes() {
		if c == positive {
			col = j
		}
	}
	if col < 0 {
		return nil, errors.NewValueError("ThresholdClassifier", "base model never saw the positive class")
	}

	n, _ := probas.Dims()
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		scores[i] = probas.At(i, col)
	}
	return scores, nil
}

func binaryClasses(y mat.Matrix) ([]float64, error) {
	n, _ := y.Dims()
	seen := make(map[float64]struct{})
	var classes []float64
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			classes = append(classes, label)
		}
	}
	if len(classes) != 2 {
		return nil, errors.NewInvalidLabelCardinalityErrorFloats("ThresholdClassifier.Fit", classes)
	}
	sort.Float64s(classes)
	return classes, nil
}
