package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLabelEncoder_FirstSeenOrder(t *testing.T) {
	enc := NewLabelEncoder()

	codes, err := enc.FitTransform([]string{"no", "yes", "no", "yes", "no"})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 0, 1, 0}, codes)
	assert.Equal(t, []string{"no", "yes"}, enc.Classes())

	_, err = enc.Transform([]string{"maybe"})
	assert.Error(t, err, "unseen category")
}

func TestLabelEncoder_NotFitted(t *testing.T) {
	enc := NewLabelEncoder()
	_, err := enc.Transform([]string{"yes"})
	assert.Error(t, err)
}

func TestOneHotEncoder_SortedColumns(t *testing.T) {
	enc := NewOneHotEncoder()

	out, err := enc.FitTransform([]string{"telephone", "cellular", "unknown", "cellular"})
	require.NoError(t, err)

	assert.Equal(t, []string{"cellular", "telephone", "unknown"}, enc.Categories())
	assert.Equal(t, []string{"contact=cellular", "contact=telephone", "contact=unknown"},
		enc.FeatureNames("contact"))

	r, c := out.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 3, c)

	// Each row is a single indicator.
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			sum += out.At(i, j)
		}
		assert.Equal(t, 1.0, sum, "row %d", i)
	}
	assert.Equal(t, 1.0, out.At(0, 1))
	assert.Equal(t, 1.0, out.At(1, 0))
	assert.Equal(t, 1.0, out.At(2, 2))
}

func TestStandardScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	scaler := NewStandardScaler()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, scaler.Mean[0], 1e-12)
	assert.Equal(t, 1.0, scaler.Scale[1], "constant column keeps scale 1")

	// Scaled first column has zero mean and unit variance.
	sum, sumSq := 0.0, 0.0
	for i := 0; i < 4; i++ {
		v := out.At(i, 0)
		sum += v
		sumSq += v * v
	}
	assert.InDelta(t, 0.0, sum/4, 1e-12)
	assert.InDelta(t, 1.0, math.Sqrt(sumSq/4), 1e-12)

	// Constant column maps to zero.
	for i := 0; i < 4; i++ {
		assert.Equal(t, 0.0, out.At(i, 1))
	}
}

func TestStandardScaler_TransformChecksWidth(t *testing.T) {
	scaler := NewStandardScaler()
	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))

	_, err := scaler.Transform(mat.NewDense(2, 3, nil))
	assert.Error(t, err)
}

func TestStandardScaler_NotFitted(t *testing.T) {
	scaler := NewStandardScaler()
	_, err := scaler.Transform(mat.NewDense(1, 1, []float64{1}))
	assert.Error(t, err)
}
