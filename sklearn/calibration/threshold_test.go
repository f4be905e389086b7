package calibration

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/core/model"
	bmerrors "github.com/YuminosukeSato/bankmark/pkg/errors"
)

// scoreModel reads the positive-class probability straight from the first
// feature column, making threshold behavior fully deterministic.
type scoreModel struct {
	fitted bool
}

func (m *scoreModel) Fit(X, y mat.Matrix) error {
	m.fitted = true
	return nil
}

func (m *scoreModel) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !m.fitted {
		return nil, bmerrors.NewNotFittedError("scoreModel", "PredictProba")
	}
	n, _ := X.Dims()
	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p := X.At(i, 0)
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

func (m *scoreModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := probas.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if probas.At(i, 1) > 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

func (m *scoreModel) Classes() []float64 { return []float64{0, 1} }

// Twenty rows: positives score 0.9, negatives 0.1.
func wellSeparatedData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(20, 1, nil)
	y := mat.NewDense(20, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, 0.9)
		y.Set(i, 0, 1)
	}
	for i := 10; i < 20; i++ {
		X.Set(i, 0, 0.1)
	}
	return X, y
}

func newScoreFactory(calls *int64) model.ClassifierFactory {
	return func() model.Classifier {
		if calls != nil {
			atomic.AddInt64(calls, 1)
		}
		return &scoreModel{}
	}
}

func TestThresholdClassifier_TieBreaksTowardHalf(t *testing.T) {
	X, y := wellSeparatedData()

	// Every threshold above 0.1 separates perfectly, so the tie-break
	// should land on the grid point nearest 0.5.
	tc := NewThresholdClassifier(newScoreFactory(nil),
		WithCVSplits(5), WithCVRepeats(2), WithThresholdRandomState(42))
	require.NoError(t, tc.Fit(X, y))

	assert.InDelta(t, 0.50, tc.Threshold(), 1e-9)

	sweep := tc.Sweep()
	require.NotEmpty(t, sweep)
	assert.InDelta(t, 0.05, sweep[0].Threshold, 1e-9)
	assert.InDelta(t, 0.50, sweep[len(sweep)-1].Threshold, 1e-9)

	for _, s := range sweep {
		if s.Threshold > 0.1+1e-9 {
			assert.InDelta(t, 0.0, s.MeanDistance, 1e-9, "threshold %v", s.Threshold)
		} else {
			assert.Greater(t, s.MeanDistance, 0.0, "threshold %v lets every negative through", s.Threshold)
		}
	}
}

func TestThresholdClassifier_FreshModelPerFoldPlusFinalRefit(t *testing.T) {
	X, y := wellSeparatedData()

	var calls int64
	tc := NewThresholdClassifier(newScoreFactory(&calls),
		WithCVSplits(4), WithCVRepeats(3), WithThresholdRandomState(1))
	require.NoError(t, tc.Fit(X, y))

	assert.Equal(t, int64(4*3+1), calls)
}

func TestThresholdClassifier_LowerThresholdNeverPredictsFewerPositives(t *testing.T) {
	X, y := wellSeparatedData()
	// Add mid-range scores so thresholds actually disagree.
	XEval := mat.NewDense(9, 1, []float64{0.05, 0.15, 0.25, 0.35, 0.45, 0.55, 0.65, 0.75, 0.85})

	tc := NewThresholdClassifier(newScoreFactory(nil), WithThresholdRandomState(7))
	require.NoError(t, tc.Fit(X, y))

	countPositives := func(threshold float64) int {
		preds, err := tc.PredictWithThreshold(XEval, threshold)
		require.NoError(t, err)
		n, _ := preds.Dims()
		c := 0
		for i := 0; i < n; i++ {
			if preds.At(i, 0) == 1 {
				c++
			}
		}
		return c
	}

	prev := countPositives(0.05)
	for _, threshold := range []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9} {
		cur := countPositives(threshold)
		assert.LessOrEqual(t, cur, prev, "threshold %v", threshold)
		prev = cur
	}
}

func TestThresholdClassifier_EmptyCandidates(t *testing.T) {
	X, y := wellSeparatedData()

	tc := NewThresholdClassifier(newScoreFactory(nil), WithCandidates(nil))
	err := tc.Fit(X, y)
	require.Error(t, err)

	var empty *bmerrors.EmptyCandidateSetError
	assert.True(t, bmerrors.As(err, &empty))
}

func TestThresholdClassifier_CandidateOutOfRange(t *testing.T) {
	X, y := wellSeparatedData()

	tc := NewThresholdClassifier(newScoreFactory(nil), WithCandidates([]float64{0.2, 1.5}))
	assert.Error(t, tc.Fit(X, y))
}

func TestThresholdClassifier_RequiresBinaryLabels(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9})
	y := mat.NewDense(6, 1, []float64{0, 1, 2, 0, 1, 2})

	tc := NewThresholdClassifier(newScoreFactory(nil))
	err := tc.Fit(X, y)
	require.Error(t, err)

	var card *bmerrors.InvalidLabelCardinalityError
	assert.True(t, bmerrors.As(err, &card))
}

func TestThresholdClassifier_NotFitted(t *testing.T) {
	tc := NewThresholdClassifier(newScoreFactory(nil))
	X := mat.NewDense(1, 1, []float64{0.5})

	_, err := tc.Predict(X)
	assert.Error(t, err)
}

func TestEvaluateThresholds_KnownOperatingPoints(t *testing.T) {
	scores := []float64{0.9, 0.6, 0.4, 0.1}
	truth := mat.NewVecDense(4, []float64{1, 1, 0, 0})

	sweep, err := EvaluateThresholds(scores, truth, []float64{0.5, 0.8})
	require.NoError(t, err)
	require.Len(t, sweep, 2)

	// At 0.5 both positives are caught and both negatives rejected.
	assert.Equal(t, 1.0, sweep[0].MeanSensitivity)
	assert.Equal(t, 1.0, sweep[0].MeanSpecificity)
	assert.InDelta(t, 0.0, sweep[0].MeanDistance, 1e-12)

	// At 0.8 only the 0.9 score stays positive.
	assert.Equal(t, 0.5, sweep[1].MeanSensitivity)
	assert.Equal(t, 1.0, sweep[1].MeanSpecificity)
	assert.InDelta(t, 0.5, sweep[1].MeanDistance, 1e-12)

	_, err = EvaluateThresholds(scores, truth, nil)
	assert.Error(t, err)

	_, err = EvaluateThresholds(scores[:2], truth, []float64{0.5})
	assert.Error(t, err)
}

func TestThresholdClassifier_SeedReproducibility(t *testing.T) {
	// Noisy scores so fold composition influences the sweep.
	X := mat.NewDense(30, 1, nil)
	y := mat.NewDense(30, 1, nil)
	for i := 0; i < 30; i++ {
		score := 0.1 + float64(i)*0.027
		X.Set(i, 0, score)
		if i >= 12 {
			y.Set(i, 0, 1)
		}
	}

	fit := func(seed int64) []CandidateScore {
		tc := NewThresholdClassifier(newScoreFactory(nil), WithThresholdRandomState(seed))
		require.NoError(t, tc.Fit(X, y))
		return tc.Sweep()
	}

	assert.Equal(t, fit(11), fit(11))
}
