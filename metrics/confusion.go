package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// ConfusionMatrix holds the four cells of a binary confusion matrix.
type ConfusionMatrix struct {
	TP int
	TN int
	FP int
	FN int
}

// NewConfusionMatrix tabulates predictions against ground truth. Any label
// equal to positive counts as the positive class; everything else is
// negative.
func NewConfusionMatrix(yTrue, yPred *mat.VecDense, positive float64) (*ConfusionMatrix, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return nil, errors.NewValueError("NewConfusionMatrix", "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return nil, errors.NewDataShapeError("NewConfusionMatrix", n, yPred.Len())
	}

	cm := &ConfusionMatrix{}
	for i := 0; i < n; i++ {
		actual := yTrue.AtVec(i) == positive
		predicted := yPred.AtVec(i) == positive
		switch {
		case actual && predicted:
			cm.TP++
		case actual && !predicted:
			cm.FN++
		case !actual && predicted:
			cm.FP++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// Total returns the number of tabulated examples.
func (cm *ConfusionMatrix) Total() int {
	return cm.TP + cm.TN + cm.FP + cm.FN
}

// Accuracy returns the fraction of correct predictions.
func (cm *ConfusionMatrix) Accuracy() float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}
	return float64(cm.TP+cm.TN) / float64(total)
}

// Sensitivity returns the true positive rate TP/(TP+FN). With no positive
// examples the rate is undefined; 0 is returned with a warning.
func (cm *ConfusionMatrix) Sensitivity() float64 {
	if cm.TP+cm.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("sensitivity", "no positive examples", 0))
		return 0
	}
	return float64(cm.TP) / float64(cm.TP+cm.FN)
}

// Specificity returns the true negative rate TN/(TN+FP). With no negative
// examples the rate is undefined; 0 is returned with a warning.
func (cm *ConfusionMatrix) Specificity() float64 {
	if cm.TN+cm.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("specificity", "no negative examples", 0))
		return 0
	}
	return float64(cm.TN) / float64(cm.TN+cm.FP)
}

// Precision returns TP/(TP+FP), or 0 with a warning when nothing was
// predicted positive.
func (cm *ConfusionMatrix) Precision() float64 {
	if cm.TP+cm.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no positive predictions", 0))
		return 0
	}
	return float64(cm.TP) / float64(cm.TP+cm.FP)
}

// DistanceToIdeal returns the Euclidean distance from the ideal point
// (sensitivity=1, specificity=1):
//
//	sqrt((1-specificity)^2 + (1-sensitivity)^2)
//
// Lower is better. This is the composite score the threshold sweep
// minimizes to trade sensitivity against specificity on imbalanced labels.
func (cm *ConfusionMatrix) DistanceToIdeal() float64 {
	ds := 1 - cm.Specificity()
	dn := 1 - cm.Sensitivity()
	return math.Sqrt(ds*ds + dn*dn)
}
