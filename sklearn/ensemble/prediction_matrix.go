package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// PredictionMatrix collects the hard predictions of several named models on
// the same evaluation rows, aligned with the true labels. Model columns keep
// insertion order so downstream features have a stable schema.
type PredictionMatrix struct {
	truth []float64
	names []string
	cols  map[string][]float64
}

// NewPredictionMatrix creates a matrix for the given truth vector.
func NewPredictionMatrix(truth *mat.VecDense) *PredictionMatrix {
	t := make([]float64, truth.Len())
	for i := range t {
		t[i] = truth.AtVec(i)
	}
	return &PredictionMatrix{truth: t, cols: make(map[string][]float64)}
}

// AddModel appends a named prediction column. The column must match the
// truth length and the name must be new.
func (pm *PredictionMatrix) AddModel(name string, preds mat.Matrix) error {
	if _, exists := pm.cols[name]; exists {
		return errors.NewValueError("PredictionMatrix.AddModel", "duplicate model name: "+name)
	}
	n, _ := preds.Dims()
	if n != len(pm.truth) {
		return errors.NewDataShapeError("PredictionMatrix.AddModel", len(pm.truth), n)
	}

	col := make([]float64, n)
	for i := 0; i < n; i++ {
		col[i] = preds.At(i, 0)
	}
	pm.names = append(pm.names, name)
	pm.cols[name] = col
	return nil
}

// NumRows returns the number of evaluation rows.
func (pm *PredictionMatrix) NumRows() int { return len(pm.truth) }

// NumModels returns the number of prediction columns.
func (pm *PredictionMatrix) NumModels() int { return len(pm.names) }

// ModelNames returns the model names in insertion order.
func (pm *PredictionMatrix) ModelNames() []string {
	out := make([]string, len(pm.names))
	copy(out, pm.names)
	return out
}

// Column returns the named model's predictions.
func (pm *PredictionMatrix) Column(name string) ([]float64, error) {
	col, ok := pm.cols[name]
	if !ok {
		return nil, errors.NewValueError("PredictionMatrix.Column", "unknown model: "+name)
	}
	out := make([]float64, len(col))
	copy(out, col)
	return out, nil
}

// Truth returns the true labels as a vector.
func (pm *PredictionMatrix) Truth() *mat.VecDense {
	return mat.NewVecDense(len(pm.truth), append([]float64(nil), pm.truth...))
}

// Features builds a dense matrix from the model columns not named in
// exclude, in insertion order, together with the kept column names. Unknown
// exclude names fail so configuration typos surface instead of silently
// keeping a column.
func (pm *PredictionMatrix) Features(exclude ...string) (*mat.Dense, []string, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		if _, ok := pm.cols[name]; !ok {
			return nil, nil, errors.NewValueError("PredictionMatrix.Features", "unknown model: "+name)
		}
		skip[name] = struct{}{}
	}

	var kept []string
	for _, name := range pm.names {
		if _, gone := skip[name]; !gone {
			kept = append(kept, name)
		}
	}
	if len(kept) == 0 {
		return nil, nil, errors.NewValueError("PredictionMatrix.Features", "no model columns left after exclusion")
	}

	X := mat.NewDense(len(pm.truth), len(kept), nil)
	for j, name := range kept {
		for i, v := range pm.cols[name] {
			X.Set(i, j, v)
		}
	}
	return X, kept, nil
}
