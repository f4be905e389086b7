package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/core/model"
	"github.com/YuminosukeSato/bankmark/pkg/errors"
	"github.com/YuminosukeSato/bankmark/sklearn/tree"
)

// StackingClassifier trains a decision tree on the prediction matrix of the
// base models, learning when to trust which model. Columns are selected by
// model name, never by position; the fit-time column list is checked again
// at predict time so a reordered or renamed matrix fails loudly.
type StackingClassifier struct {
	state *model.StateManager

	exclude  []string
	treeOpts []tree.Option

	meta    *tree.DecisionTreeClassifier
	columns []string
}

// StackingOption configures a StackingClassifier.
type StackingOption func(*StackingClassifier)

// WithStackingExclude names base-model columns left out of the meta
// features. The usual exclusion is the model whose raw predictions already
// feed the stack some other way.
func WithStackingExclude(names ...string) StackingOption {
	return func(s *StackingClassifier) { s.exclude = append(s.exclude, names...) }
}

// WithStackingTreeOptions forwards options to the meta decision tree.
func WithStackingTreeOptions(opts ...tree.Option) StackingOption {
	return func(s *StackingClassifier) { s.treeOpts = append(s.treeOpts, opts...) }
}

// NewStackingClassifier creates an unfitted stacking classifier.
func NewStackingClassifier(opts ...StackingOption) *StackingClassifier {
	s := &StackingClassifier{state: model.NewStateManager()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Fit trains the meta tree on the non-excluded columns of pm against its
// truth labels, and records the column names for predict-time validation.
func (s *StackingClassifier) Fit(pm *PredictionMatrix) error {
	X, columns, err := s.features(pm)
	if err != nil {
		return err
	}

	truth := pm.Truth()
	y := mat.NewDense(truth.Len(), 1, nil)
	for i := 0; i < truth.Len(); i++ {
		y.Set(i, 0, truth.AtVec(i))
	}

	meta := tree.NewDecisionTreeClassifier(s.treeOpts...)
	if err := meta.Fit(X, y); err != nil {
		return err
	}

	s.meta = meta
	s.columns = columns
	s.state.SetDimensions(len(columns), truth.Len())
	s.state.SetFitted()
	return nil
}

// Predict returns the meta tree's labels for the rows of pm. The matrix
// must carry exactly the fit-time model columns after exclusion; the
// excluded columns themselves need not be present.
func (s *StackingClassifier) Predict(pm *PredictionMatrix) (mat.Matrix, error) {
	X, err := s.featuresChecked(pm)
	if err != nil {
		return nil, err
	}
	return s.meta.Predict(X)
}

// PredictProba returns the meta tree's class probabilities for pm.
func (s *StackingClassifier) PredictProba(pm *PredictionMatrix) (mat.Matrix, error) {
	X, err := s.featuresChecked(pm)
	if err != nil {
		return nil, err
	}
	return s.meta.PredictProba(X)
}

// Classes returns the class labels of the meta tree.
func (s *StackingClassifier) Classes() []float64 {
	if s.meta == nil {
		return nil
	}
	return s.meta.Classes()
}

// FeatureColumns returns the model columns the meta tree was trained on.
func (s *StackingClassifier) FeatureColumns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// FeatureImportances returns the meta tree's importances aligned with
// FeatureColumns.
func (s *StackingClassifier) FeatureImportances() []float64 {
	if s.meta == nil {
		return nil
	}
	return s.meta.GetFeatureImportances()
}

func (s *StackingClassifier) features(pm *PredictionMatrix) (*mat.Dense, []string, error) {
	if pm == nil {
		return nil, nil, errors.NewValueError("StackingClassifier", "nil prediction matrix")
	}
	return pm.Features(s.exclude...)
}

func (s *StackingClassifier) featuresChecked(pm *PredictionMatrix) (*mat.Dense, error) {
	if !s.state.IsFitted() {
		return nil, errors.NewNotFittedError("StackingClassifier", "Predict")
	}
	if pm == nil {
		return nil, errors.NewValueError("StackingClassifier", "nil prediction matrix")
	}

	// Exclusions were resolved at fit time; here the matrix only has to
	// carry the columns the meta tree was trained on. Excluded columns may
	// be absent, but any other difference in the kept set is a mismatch.
	skip := make(map[string]struct{}, len(s.exclude))
	for _, name := range s.exclude {
		skip[name] = struct{}{}
	}
	var columns []string
	for _, name := range pm.ModelNames() {
		if _, excluded := skip[name]; !excluded {
			columns = append(columns, name)
		}
	}
	if !equalStrings(columns, s.columns) {
		return nil, errors.NewColumnMismatchError("StackingClassifier.Predict", s.columns, columns)
	}

	X := mat.NewDense(pm.NumRows(), len(s.columns), nil)
	for j, name := range s.columns {
		col, err := pm.Column(name)
		if err != nil {
			return nil, err
		}
		for i, v := range col {
			X.Set(i, j, v)
		}
	}
	return X, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
