package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFittedError(t *testing.T) {
	err := NewNotFittedError("RandomForestClassifier", "Predict")

	var notFitted *NotFittedError
	require.True(t, As(err, &notFitted))
	assert.Equal(t, "RandomForestClassifier", notFitted.ModelName)
	assert.Contains(t, err.Error(), "not fitted")
	assert.Contains(t, err.Error(), "bankmark:")
}

func TestDataShapeError(t *testing.T) {
	err := NewDataShapeError("Fit", 10, 7)

	var shape *DataShapeError
	require.True(t, As(err, &shape))
	assert.Equal(t, 10, shape.Expected)
	assert.Equal(t, 7, shape.Got)
	assert.Contains(t, err.Error(), "Expected 10, got 7")

	detailed := NewDataShapeErrorf("Table.Drop", "unknown column %q", "balance")
	require.True(t, As(detailed, &shape))
	assert.Contains(t, detailed.Error(), `unknown column "balance"`)
}

func TestInvalidLabelCardinalityError(t *testing.T) {
	err := NewInvalidLabelCardinalityError("Features", []string{"yes", "no", "maybe"})

	var card *InvalidLabelCardinalityError
	require.True(t, As(err, &card))
	assert.Len(t, card.Labels, 3)
	assert.Contains(t, err.Error(), "exactly 2 values")

	numeric := NewInvalidLabelCardinalityErrorFloats("Fit", []float64{0, 1, 2})
	require.True(t, As(numeric, &card))
	assert.Equal(t, []string{"0", "1", "2"}, card.Labels)
}

func TestColumnMismatchError(t *testing.T) {
	err := NewColumnMismatchError("Predict",
		[]string{"decision_tree", "gradient_boosting"},
		[]string{"decision_tree"})

	var mismatch *ColumnMismatchError
	require.True(t, As(err, &mismatch))
	assert.Equal(t, []string{"decision_tree", "gradient_boosting"}, mismatch.Want)
	assert.True(t, strings.Contains(err.Error(), "do not match"))
}

func TestEmptyCandidateSetError(t *testing.T) {
	err := NewEmptyCandidateSetError("Fit")

	var empty *EmptyCandidateSetError
	assert.True(t, As(err, &empty))
}

func TestWrapPreservesType(t *testing.T) {
	err := Wrap(NewValueError("Fit", "bad input"), "training decision_tree")

	var value *ValueError
	require.True(t, As(err, &value))
	assert.Contains(t, err.Error(), "training decision_tree")
	assert.Contains(t, err.Error(), "bad input")
}

func TestWarningHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(nil)

	Warn(NewConvergenceWarning("LogisticRegression", 100, ""))

	var conv *ConvergenceWarning
	require.True(t, As(got, &conv))
	assert.Equal(t, 100, conv.Iterations)
	assert.Contains(t, got.Error(), "failed to converge")
}

func TestUndefinedMetricWarning(t *testing.T) {
	w := NewUndefinedMetricWarning("specificity", "no negative samples", 0)
	assert.Contains(t, w.Error(), "ill-defined")
	assert.Contains(t, w.Error(), "specificity")
}
