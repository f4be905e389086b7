package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	bmerrors "github.com/YuminosukeSato/bankmark/pkg/errors"
	"github.com/YuminosukeSato/bankmark/sklearn/tree"
)

// The truth equals model_good XOR noise from model_bad; the meta tree should
// learn to copy model_good.
func buildStackingMatrix(t *testing.T) *PredictionMatrix {
	t.Helper()

	truth := mat.NewVecDense(12, []float64{1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0})
	pm := NewPredictionMatrix(truth)
	require.NoError(t, pm.AddModel("model_good", predsColumn(1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0)))
	require.NoError(t, pm.AddModel("model_bad", predsColumn(1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0)))
	require.NoError(t, pm.AddModel("model_skip", predsColumn(0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1)))
	return pm
}

func TestStackingClassifier_LearnsToTrustGoodModel(t *testing.T) {
	pm := buildStackingMatrix(t)

	sc := NewStackingClassifier(
		WithStackingExclude("model_skip"),
		WithStackingTreeOptions(tree.WithMaxDepth(3)),
	)
	require.NoError(t, sc.Fit(pm))

	assert.Equal(t, []string{"model_good", "model_bad"}, sc.FeatureColumns())

	preds, err := sc.Predict(pm)
	require.NoError(t, err)

	truth := pm.Truth()
	for i := 0; i < truth.Len(); i++ {
		assert.Equal(t, truth.AtVec(i), preds.At(i, 0), "row %d", i)
	}

	importances := sc.FeatureImportances()
	require.Len(t, importances, 2)
	assert.Greater(t, importances[0], importances[1],
		"the informative column should dominate the meta tree")
}

func TestStackingClassifier_ColumnMismatchAtPredict(t *testing.T) {
	pm := buildStackingMatrix(t)

	sc := NewStackingClassifier(WithStackingExclude("model_skip"))
	require.NoError(t, sc.Fit(pm))

	// A matrix with a renamed column no longer matches the fit-time schema.
	drifted := NewPredictionMatrix(pm.Truth())
	good, err := pm.Column("model_good")
	require.NoError(t, err)
	bad, err := pm.Column("model_bad")
	require.NoError(t, err)
	skip, err := pm.Column("model_skip")
	require.NoError(t, err)
	require.NoError(t, drifted.AddModel("model_renamed", predsColumn(good...)))
	require.NoError(t, drifted.AddModel("model_bad", predsColumn(bad...)))
	require.NoError(t, drifted.AddModel("model_skip", predsColumn(skip...)))

	_, err = sc.Predict(drifted)
	require.Error(t, err)

	var mismatch *bmerrors.ColumnMismatchError
	assert.True(t, bmerrors.As(err, &mismatch), "expected ColumnMismatchError, got %v", err)
}

func TestStackingClassifier_PredictWithoutExcludedColumn(t *testing.T) {
	pm := buildStackingMatrix(t)

	sc := NewStackingClassifier(WithStackingExclude("model_skip"))
	require.NoError(t, sc.Fit(pm))

	// The evaluation matrix never materialized the excluded model; only the
	// columns the meta tree was trained on are required.
	trimmed := NewPredictionMatrix(pm.Truth())
	good, err := pm.Column("model_good")
	require.NoError(t, err)
	bad, err := pm.Column("model_bad")
	require.NoError(t, err)
	require.NoError(t, trimmed.AddModel("model_good", predsColumn(good...)))
	require.NoError(t, trimmed.AddModel("model_bad", predsColumn(bad...)))

	preds, err := sc.Predict(trimmed)
	require.NoError(t, err)

	full, err := sc.Predict(pm)
	require.NoError(t, err)
	for i := 0; i < pm.NumRows(); i++ {
		assert.Equal(t, full.At(i, 0), preds.At(i, 0), "row %d", i)
	}

	// Dropping a trained-on column is still a schema mismatch.
	partial := NewPredictionMatrix(pm.Truth())
	require.NoError(t, partial.AddModel("model_good", predsColumn(good...)))
	_, err = sc.Predict(partial)
	require.Error(t, err)

	var mismatch *bmerrors.ColumnMismatchError
	assert.True(t, bmerrors.As(err, &mismatch), "expected ColumnMismatchError, got %v", err)
}

func TestStackingClassifier_NotFitted(t *testing.T) {
	pm := buildStackingMatrix(t)

	sc := NewStackingClassifier()
	_, err := sc.Predict(pm)
	assert.Error(t, err)

	var notFitted *bmerrors.NotFittedError
	assert.True(t, bmerrors.As(err, &notFitted))
}
