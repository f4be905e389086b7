package model_selection

import (
	"github.com/montanaflynn/stats"

	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// ScoreSummary aggregates per-fold scores.
type ScoreSummary struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
	N    int
}

// Summarize computes mean, sample standard deviation, min, and max over the
// fold scores. A single score reports a standard deviation of zero.
func Summarize(scores []float64) (ScoreSummary, error) {
	if len(scores) == 0 {
		return ScoreSummary{}, errors.NewValueError("Summarize", "no scores")
	}

	mean, err := stats.Mean(scores)
	if err != nil {
		return ScoreSummary{}, errors.Wrap(err, "Summarize")
	}
	std := 0.0
	if len(scores) > 1 {
		std, err = stats.StandardDeviationSample(scores)
		if err != nil {
			return ScoreSummary{}, errors.Wrap(err, "Summarize")
		}
	}
	minV, err := stats.Min(scores)
	if err != nil {
		return ScoreSummary{}, errors.Wrap(err, "Summarize")
	}
	maxV, err := stats.Max(scores)
	if err != nil {
		return ScoreSummary{}, errors.Wrap(err, "Summarize")
	}

	return ScoreSummary{Mean: mean, Std: std, Min: minV, Max: maxV, N: len(scores)}, nil
}
