package model

import "gonum.org/v1/gonum/mat"

// Fitter is the interface for trainable models.
type Fitter interface {
	// Fit trains the model on features X (n x p) and labels y (n x 1).
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for models that produce predictions.
type Predictor interface {
	// Predict returns an n x 1 matrix of predicted class labels.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is the capability every base model in the comparison exposes.
// The threshold-calibration and stacking components depend only on this
// interface and stay agnostic of the concrete model.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns an n x nClasses matrix of class-membership
	// probabilities, columns ordered by Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the distinct class labels seen during fitting.
	Classes() []float64
}

// ClassifierFactory constructs a fresh, unfitted classifier. Resampling
// procedures use it to train an independent model per fold.
type ClassifierFactory func() Classifier
