// Package preprocessing provides the feature transformations applied before
// model training: label encoding, one-hot expansion, and standard scaling.
package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/core/model"
	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// LabelEncoder maps string categories to integer codes in first-seen order.
type LabelEncoder struct {
	state   *model.StateManager
	classes []string
	index   map[string]int
}

// NewLabelEncoder creates an unfitted LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{state: model.NewStateManager()}
}

// Fit learns the category set from values.
func (e *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.NewValueError("LabelEncoder.Fit", "empty input")
	}
	e.classes = nil
	e.index = make(map[string]int)
	for _, v := range values {
		if _, ok := e.index[v]; !ok {
			e.index[v] = len(e.classes)
			e.classes = append(e.classes, v)
		}
	}
	e.state.SetFitted()
	return nil
}

// Transform encodes values using the fitted category set.
func (e *LabelEncoder) Transform(values []string) ([]float64, error) {
	if !e.state.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	out := make([]float64, len(values))
	for i, v := range values {
		code, ok := e.index[v]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", "unseen category: "+v)
		}
		out[i] = float64(code)
	}
	return out, nil
}

// FitTransform fits on values and returns their codes.
func (e *LabelEncoder) FitTransform(values []string) ([]float64, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// Classes returns the learned categories in code order.
func (e *LabelEncoder) Classes() []string {
	return e.classes
}

// OneHotEncoder expands a single categorical column into indicator columns,
// one per category, in sorted category order for stable schemas.
type OneHotEncoder struct {
	state      *model.StateManager
	categories []string
	index      map[string]int
}

// NewOneHotEncoder creates an unfitted OneHotEncoder.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{state: model.NewStateManager()}
}

// Fit learns the category set from values.
func (e *OneHotEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.NewValueError("OneHotEncoder.Fit", "empty input")
	}
	seen := make(map[string]struct{})
	e.categories = nil
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			e.categories = append(e.categories, v)
		}
	}
	sort.Strings(e.categories)
	e.index = make(map[string]int, len(e.categories))
	for i, c := range e.categories {
		e.index[c] = i
	}
	e.state.SetFitted()
	return nil
}

// Transform returns an n x nCategories indicator matrix.
func (e *OneHotEncoder) Transform(values []string) (*mat.Dense, error) {
	if !e.state.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	out := mat.NewDense(len(values), len(e.categories), nil)
	for i, v := range values {
		j, ok := e.index[v]
		if !ok {
			return nil, errors.NewValueError("OneHotEncoder.Transform", "unseen category: "+v)
		}
		out.Set(i, j, 1)
	}
	return out, nil
}

// FitTransform fits on values and returns their indicator matrix.
func (e *OneHotEncoder) FitTransform(values []string) (*mat.Dense, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// Categories returns the learned categories in column order.
func (e *OneHotEncoder) Categories() []string {
	return e.categories
}

// FeatureNames returns "prefix=category" names aligned with Transform's
// columns.
func (e *OneHotEncoder) FeatureNames(prefix string) []string {
	names := make([]string, len(e.categories))
	for i, c := range e.categories {
		names[i] = prefix + "=" + c
	}
	return names
}
