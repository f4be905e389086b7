package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/core/model"
	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// StandardScaler standardizes features to zero mean and unit variance.
// Constant columns keep a scale of 1 so transformed values stay finite.
type StandardScaler struct {
	state *model.StateManager

	// Mean holds the per-feature mean learned during Fit.
	Mean []float64
	// Scale holds the per-feature standard deviation learned during Fit.
	Scale []float64
}

// NewStandardScaler creates an unfitted StandardScaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{state: model.NewStateManager()}
}

// Fit computes the per-feature mean and standard deviation of X.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewValueError("StandardScaler.Fit", "empty matrix")
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		mean := sum / float64(r)

		varSum := 0.0
		for i := 0; i < r; i++ {
			d := X.At(i, j) - mean
			varSum += d * d
		}
		scale := math.Sqrt(varSum / float64(r))
		if scale == 0 {
			scale = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = scale
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform standardizes X using the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !s.state.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	r, c := X.Dims()
	if c != len(s.Mean) {
		return nil, errors.NewDataShapeError("StandardScaler.Transform", len(s.Mean), c)
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return out, nil
}

// FitTransform fits on X and returns the standardized matrix.
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
