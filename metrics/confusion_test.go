package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestConfusionMatrix_Counts(t *testing.T) {
	yTrue := mat.NewVecDense(6, []float64{1, 1, 1, 0, 0, 0})
	yPred := mat.NewVecDense(6, []float64{1, 0, 1, 0, 1, 0})

	cm, err := NewConfusionMatrix(yTrue, yPred, 1)
	if err != nil {
		t.Fatalf("NewConfusionMatrix() error = %v", err)
	}

	if cm.TP != 2 || cm.FN != 1 || cm.FP != 1 || cm.TN != 2 {
		t.Errorf("unexpected cells: TP=%d FN=%d FP=%d TN=%d", cm.TP, cm.FN, cm.FP, cm.TN)
	}
	if got := cm.Accuracy(); math.Abs(got-4.0/6.0) > 1e-9 {
		t.Errorf("Accuracy() = %v, want %v", got, 4.0/6.0)
	}
	if got := cm.Sensitivity(); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("Sensitivity() = %v, want %v", got, 2.0/3.0)
	}
	if got := cm.Specificity(); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("Specificity() = %v, want %v", got, 2.0/3.0)
	}
}

// TestConfusionMatrix_DistanceToIdeal verifies the composite distance on a
// fixed threshold sweep: scores [0.9 0.6 0.4 0.1] with labels [1 1 0 0].
// At threshold 0.5 every prediction is correct and the distance is 0; at
// threshold 0.8 sensitivity drops to 0.5 with specificity still 1.0, so the
// distance rises to exactly 0.5.
func TestConfusionMatrix_DistanceToIdeal(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 1, 0, 0})

	atHalf := mat.NewVecDense(4, []float64{1, 1, 0, 0})
	cm, err := NewConfusionMatrix(yTrue, atHalf, 1)
	if err != nil {
		t.Fatalf("NewConfusionMatrix() error = %v", err)
	}
	if got := cm.Accuracy(); got != 1.0 {
		t.Errorf("threshold 0.5: Accuracy() = %v, want 1.0", got)
	}
	if got := cm.DistanceToIdeal(); got != 0.0 {
		t.Errorf("threshold 0.5: DistanceToIdeal() = %v, want 0", got)
	}

	atHigh := mat.NewVecDense(4, []float64{1, 0, 0, 0})
	cm, err = NewConfusionMatrix(yTrue, atHigh, 1)
	if err != nil {
		t.Fatalf("NewConfusionMatrix() error = %v", err)
	}
	if got := cm.Sensitivity(); got != 0.5 {
		t.Errorf("threshold 0.8: Sensitivity() = %v, want 0.5", got)
	}
	if got := cm.Specificity(); got != 1.0 {
		t.Errorf("threshold 0.8: Specificity() = %v, want 1.0", got)
	}
	if got := cm.DistanceToIdeal(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("threshold 0.8: DistanceToIdeal() = %v, want 0.5", got)
	}
}

func TestConfusionMatrix_LengthMismatch(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{1, 0, 1})
	yPred := mat.NewVecDense(2, []float64{1, 0})
	if _, err := NewConfusionMatrix(yTrue, yPred, 1); err == nil {
		t.Error("expected error on mismatched lengths")
	}
}

func TestROCCurve(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	yScore := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})

	roc, err := ROCCurve(yTrue, yScore)
	if err != nil {
		t.Fatalf("ROCCurve() error = %v", err)
	}

	// 4 distinct scores plus the (0,0) anchor
	if len(roc.FPR) != 5 || len(roc.TPR) != 5 || len(roc.Thresholds) != 5 {
		t.Fatalf("unexpected curve length: %d", len(roc.FPR))
	}
	if roc.FPR[0] != 0 || roc.TPR[0] != 0 {
		t.Errorf("curve must start at (0,0), got (%v,%v)", roc.FPR[0], roc.TPR[0])
	}
	last := len(roc.FPR) - 1
	if roc.FPR[last] != 1 || roc.TPR[last] != 1 {
		t.Errorf("curve must end at (1,1), got (%v,%v)", roc.FPR[last], roc.TPR[last])
	}
	// monotone non-decreasing in both axes
	for i := 1; i < len(roc.FPR); i++ {
		if roc.FPR[i] < roc.FPR[i-1] || roc.TPR[i] < roc.TPR[i-1] {
			t.Errorf("curve not monotone at point %d", i)
		}
		if roc.Thresholds[i] > roc.Thresholds[i-1] {
			t.Errorf("thresholds not descending at point %d", i)
		}
	}
}

func TestROCCurve_SingleClass(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{1, 1, 1})
	yScore := mat.NewVecDense(3, []float64{0.2, 0.5, 0.9})
	if _, err := ROCCurve(yTrue, yScore); err == nil {
		t.Error("expected error when only one class is present")
	}
}
