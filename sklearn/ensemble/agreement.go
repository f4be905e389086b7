package ensemble

import (
	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// MissReport describes how often every model missed a positive row at once.
type MissReport struct {
	// MissedRows holds the row indices (into the prediction matrix) of
	// positive rows that no model predicted as positive.
	MissedRows []int
	// PositiveCount is the number of positive rows in the truth.
	PositiveCount int
	// Fraction is len(MissedRows) / PositiveCount. With zero models every
	// positive row counts as missed, so the fraction is 1.
	Fraction float64
}

// MissedByAll computes the fraction of positive rows that no model in the
// prediction matrix detected. Adding a model can only keep the fraction or
// lower it. A truth with no positive rows reports a fraction of zero and
// raises an undefined-metric warning.
func MissedByAll(pm *PredictionMatrix, positive float64) (MissReport, error) {
	if pm == nil {
		return MissReport{}, errors.NewValueError("MissedByAll", "nil prediction matrix")
	}

	report := MissReport{}
	truth := pm.Truth()

	columns := make([][]float64, 0, pm.NumModels())
	for _, name := range pm.ModelNames() {
		col, err := pm.Column(name)
		if err != nil {
			return MissReport{}, err
		}
		columns = append(columns, col)
	}

	for i := 0; i < truth.Len(); i++ {
		if truth.AtVec(i) != positive {
			continue
		}
		report.PositiveCount++

		detected := false
		for _, col := range columns {
			if col[i] == positive {
				detected = true
				break
			}
		}
		if !detected {
			report.MissedRows = append(report.MissedRows, i)
		}
	}

	if report.PositiveCount == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("missed_by_all",
			"no positive rows in truth", 0))
		return report, nil
	}
	report.Fraction = float64(len(report.MissedRows)) / float64(report.PositiveCount)
	return report, nil
}
