package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// ROC holds a receiver operating characteristic curve: parallel slices of
// false positive rate, true positive rate, and the score threshold that
// produced each point. Points are ordered from threshold +Inf (0,0) down to
// the lowest score (1,1).
type ROC struct {
	FPR        []float64
	TPR        []float64
	Thresholds []float64
}

// ROCCurve computes the ROC curve of probability scores against 0/1 labels.
// One point is emitted per distinct score value.
func ROCCurve(yTrue, yScore *mat.VecDense) (*ROC, error) {
	if yTrue == nil || yScore == nil || yTrue.Len() == 0 {
		return nil, errors.NewValueError("ROCCurve", "empty vector")
	}
	n := yTrue.Len()
	if yScore.Len() != n {
		return nil, errors.NewDataShapeError("ROCCurve", n, yScore.Len())
	}
	if err := requireBinary("ROCCurve", yTrue); err != nil {
		return nil, err
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
		return nil, errors.NewValueError("ROCCurve", "both classes must be present in y_true")
	}

	type scored struct {
		score float64
		pos   bool
	}
	items := make([]scored, n)
	for i := 0; i < n; i++ {
		items[i] = scored{score: yScore.AtVec(i), pos: yTrue.AtVec(i) == 1}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].score > items[b].score })

	roc := &ROC{
		FPR:        []float64{0},
		TPR:        []float64{0},
		Thresholds: []float64{math.Inf(1)},
	}

	tp, fp := 0, 0
	i := 0
	for i < n {
		j := i
		for j < n && items[j].score == items[i].score {
			if items[j].pos {
				tp++
			} else {
				fp++
			}
			j++
		}
		roc.FPR = append(roc.FPR, float64(fp)/float64(nNeg))
		roc.TPR = append(roc.TPR, float64(tp)/float64(nPos))
		roc.Thresholds = append(roc.Thresholds, items[i].score)
		i = j
	}
	return roc, nil
}
