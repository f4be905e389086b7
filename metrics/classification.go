// Package metrics implements the binary classification metrics used to
// compare models: accuracy, log loss, confusion-matrix rates, the composite
// distance to the ideal classifier, and ROC/AUC.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// Accuracy computes the fraction of exactly matching labels.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDataShapeError("Accuracy", n, yPred.Len())
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError computes the misclassification rate, 1 - accuracy.
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// BinaryLogLoss computes the negative log likelihood of binary labels under
// predicted probabilities. Predictions are clipped to [eps, 1-eps] to avoid
// log(0).
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("BinaryLogLoss", "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDataShapeError("BinaryLogLoss", n, yPred.Len())
	}
	if err := requireBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	const eps = 1e-15
	loss := 0.0
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yPred.AtVec(i), eps), 1-eps)
		if yTrue.AtVec(i) == 1 {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	return loss / float64(n), nil
}

// AUC computes the area under the ROC curve as the Mann-Whitney rank
// statistic, with average ranks for tied scores. Labels must be 0/1.
// When y contains a single class the metric is undefined; 0.5 is returned
// and an UndefinedMetricWarning is raised.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	if yTrue == nil || yScore == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("AUC", "empty vector")
	}
	n := yTrue.Len()
	if yScore.Len() != n {
		return 0, errors.NewDataShapeError("AUC", n, yScore.Len())
	}
	if err := requireBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	nPos, nNeg := 0, 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	type scored struct {
		score float64
		pos   bool
	}
	items := make([]scored, n)
	for i := 0; i < n; i++ {
		items[i] = scored{score: yScore.AtVec(i), pos: yTrue.AtVec(i) == 1}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].score < items[b].score })

	// Average ranks across ties, then sum the positive-class ranks.
	rankSumPos := 0.0
	i := 0
	for i < n {
		j := i
		for j < n && items[j].score == items[i].score {
			j++
		}
		// ranks are 1-based; ties share the mean rank of their block
		avgRank := float64(i+1+j) / 2.0
		for k := i; k < j; k++ {
			if items[k].pos {
				rankSumPos += avgRank
			}
		}
		i = j
	}

	return (rankSumPos - float64(nPos)*float64(nPos+1)/2.0) / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix computes AUC from n x 1 (or wider; first column used) matrices.
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	tVec, err := firstColumn("AUCMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	sVec, err := firstColumn("AUCMatrix", yScore)
	if err != nil {
		return 0, err
	}
	return AUC(tVec, sVec)
}

// requireBinary fails unless every label is 0 or 1.
func requireBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		v := y.AtVec(i)
		if v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return nil
}

func firstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "nil matrix")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}
