package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func predsColumn(values ...float64) *mat.Dense {
	return mat.NewDense(len(values), 1, values)
}

// Ten rows with positives at rows 2, 5, and 9. Model A detects only row 2,
// model B only row 5, so together they still miss row 9.
func buildAgreementMatrix(t *testing.T) *PredictionMatrix {
	t.Helper()

	truth := mat.NewVecDense(10, []float64{0, 0, 1, 0, 0, 1, 0, 0, 0, 1})
	pm := NewPredictionMatrix(truth)

	a := predsColumn(0, 0, 1, 0, 0, 0, 0, 0, 0, 0)
	b := predsColumn(0, 0, 0, 0, 0, 1, 0, 0, 0, 0)
	require.NoError(t, pm.AddModel("model_a", a))
	require.NoError(t, pm.AddModel("model_b", b))
	return pm
}

func TestMissedByAll_CountsOnlyRowsEveryModelMissed(t *testing.T) {
	pm := buildAgreementMatrix(t)

	report, err := MissedByAll(pm, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, report.PositiveCount)
	assert.Equal(t, []int{9}, report.MissedRows)
	assert.InDelta(t, 1.0/3.0, report.Fraction, 1e-12)
}

func TestMissedByAll_NoModels(t *testing.T) {
	truth := mat.NewVecDense(4, []float64{1, 0, 1, 0})
	pm := NewPredictionMatrix(truth)

	report, err := MissedByAll(pm, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, report.PositiveCount)
	assert.Equal(t, 1.0, report.Fraction, "every positive is missed when no model predicts")
}

func TestMissedByAll_AddingModelsNeverRaisesFraction(t *testing.T) {
	truth := mat.NewVecDense(6, []float64{1, 1, 1, 0, 0, 0})
	pm := NewPredictionMatrix(truth)

	prev := 1.0
	models := []*mat.Dense{
		predsColumn(0, 0, 0, 0, 0, 0),
		predsColumn(1, 0, 0, 0, 0, 0),
		predsColumn(0, 1, 0, 1, 0, 0),
		predsColumn(0, 0, 1, 0, 0, 1),
	}
	names := []string{"m1", "m2", "m3", "m4"}

	for i, preds := range models {
		require.NoError(t, pm.AddModel(names[i], preds))
		report, err := MissedByAll(pm, 1)
		require.NoError(t, err)
		assert.LessOrEqual(t, report.Fraction, prev, "after adding %s", names[i])
		prev = report.Fraction
	}
	assert.Equal(t, 0.0, prev, "all positives covered by the union of models")
}

func TestMissedByAll_OracleModel(t *testing.T) {
	truth := mat.NewVecDense(5, []float64{1, 0, 1, 0, 1})
	pm := NewPredictionMatrix(truth)
	require.NoError(t, pm.AddModel("oracle", predsColumn(1, 0, 1, 0, 1)))

	report, err := MissedByAll(pm, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Fraction)
	assert.Empty(t, report.MissedRows)
}

func TestMissedByAll_NoPositives(t *testing.T) {
	truth := mat.NewVecDense(3, []float64{0, 0, 0})
	pm := NewPredictionMatrix(truth)
	require.NoError(t, pm.AddModel("m", predsColumn(0, 1, 0)))

	report, err := MissedByAll(pm, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, report.PositiveCount)
	assert.Equal(t, 0.0, report.Fraction)
}

func TestPredictionMatrix_Validation(t *testing.T) {
	truth := mat.NewVecDense(3, []float64{1, 0, 1})
	pm := NewPredictionMatrix(truth)

	require.NoError(t, pm.AddModel("m", predsColumn(1, 0, 0)))
	assert.Error(t, pm.AddModel("m", predsColumn(1, 0, 0)), "duplicate name")
	assert.Error(t, pm.AddModel("short", predsColumn(1, 0)), "length mismatch")

	_, err := pm.Column("missing")
	assert.Error(t, err)

	_, _, err = pm.Features("missing")
	assert.Error(t, err, "unknown exclusion must fail")

	_, _, err = pm.Features("m")
	assert.Error(t, err, "excluding every column must fail")
}
