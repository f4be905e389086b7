// Package linear_model provides the regularized logistic regression used as
// one of the compared base classifiers.
package linear_model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/core/model"
	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// LogisticRegression is a binary classifier fitted by gradient descent on
// the log loss with optional L2 regularization. Inputs should be scaled
// before fitting; the adaptive step schedule assumes features of comparable
// magnitude.
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	penalty      string  // "l2" or "none"
	c            float64 // inverse regularization strength
	fitIntercept bool
	maxIter      int
	tol          float64 // stop when the max absolute gradient drops below

	// Model parameters
	coef_      []float64
	intercept_ float64
	classes_   []float64
	nFeatures_ int
	nIter_     int
}

// LogisticRegressionOption configures a LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// WithLRPenalty sets the regularization type, "l2" or "none".
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.penalty = penalty }
}

// WithLRC sets the inverse regularization strength.
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.c = c }
}

// WithLRFitIntercept toggles the intercept term.
func WithLRFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.fitIntercept = fit }
}

// WithLRMaxIter sets the maximum number of gradient steps.
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.maxIter = maxIter }
}

// WithLRTol sets the gradient-norm stopping tolerance.
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// NewLogisticRegression creates a classifier with L2 penalty, C=1, and up
// to 1000 iterations by default.
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		c:            1.0,
		fitIntercept: true,
		maxIter:      1000,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit trains the model on X (n x p) and binary labels y (n x 1). If the
// gradient has not dropped below tol after maxIter steps a
// ConvergenceWarning is raised and the last iterate is kept.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewValueError("LogisticRegression.Fit", "empty matrix")
	}
	yr, _ := y.Dims()
	if yr != n {
		return errors.NewDataShapeError("LogisticRegression.Fit", n, yr)
	}
	if lr.penalty != "l2" && lr.penalty != "none" {
		return errors.NewValueError("LogisticRegression.Fit", "penalty must be l2 or none")
	}

	seen := make(map[float64]struct{})
	lr.classes_ = nil
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			lr.classes_ = append(lr.classes_, label)
		}
	}
	if len(lr.classes_) != 2 {
		return errors.NewInvalidLabelCardinalityErrorFloats("LogisticRegression.Fit", lr.classes_)
	}
	sort.Float64s(lr.classes_)
	lr.nFeatures_ = p

	y01 := make([]float64, n)
	for i := 0; i < n; i++ {
		if y.At(i, 0) == lr.classes_[1] {
			y01[i] = 1
		}
	}

	weights := make([]float64, p)
	intercept := 0.0
	grad := make([]float64, p)

	converged := false
	for iter := 0; iter < lr.maxIter; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradIntercept := 0.0

		for i := 0; i < n; i++ {
			z := intercept
			for j := 0; j < p; j++ {
				z += X.At(i, j) * weights[j]
			}
			diff := sigmoid(z) - y01[i]
			gradIntercept += diff
			for j := 0; j < p; j++ {
				grad[j] += diff * X.At(i, j)
			}
		}

		for j := range grad {
			grad[j] /= float64(n)
		}
		gradIntercept /= float64(n)

		if lr.penalty == "l2" {
			lambda := 1.0 / lr.c
			for j := range weights {
				grad[j] += lambda * weights[j] / float64(n)
			}
		}

		step := 1.0 / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= step * grad[j]
		}
		if lr.fitIntercept {
			intercept -= step * gradIntercept
		}
		lr.nIter_ = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for _, g := range grad {
			if math.Abs(g) > maxGrad {
				maxGrad = math.Abs(g)
			}
		}
		if maxGrad < lr.tol {
			converged = true
			break
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter,
			"gradient descent did not reach the tolerance"))
	}

	lr.coef_ = weights
	lr.intercept_ = intercept
	lr.state.SetDimensions(p, n)
	lr.state.SetFitted()
	return nil
}

// PredictProba returns an n x 2 matrix of class probabilities in Classes()
// order.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "PredictProba")
	}
	n, p := X.Dims()
	if p != lr.nFeatures_ {
		return nil, errors.NewDataShapeError("LogisticRegression.PredictProba", lr.nFeatures_, p)
	}

	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		z := lr.intercept_
		for j := 0; j < p; j++ {
			z += X.At(i, j) * lr.coef_[j]
		}
		prob := sigmoid(z)
		out.Set(i, 0, 1-prob)
		out.Set(i, 1, prob)
	}
	return out, nil
}

// Predict returns an n x 1 matrix with the higher-probability class per row.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := probas.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if probas.At(i, 1) > 0.5 {
			out.Set(i, 0, lr.classes_[1])
		} else {
			out.Set(i, 0, lr.classes_[0])
		}
	}
	return out, nil
}

// Classes returns the two class labels, ascending.
func (lr *LogisticRegression) Classes() []float64 {
	return lr.classes_
}

// Score returns the accuracy of predictions on X against y.
func (lr *LogisticRegression) Score(X, y mat.Matrix) float64 {
	preds, err := lr.Predict(X)
	if err != nil {
		return 0
	}
	n, _ := preds.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if preds.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// Coef returns the fitted weights.
func (lr *LogisticRegression) Coef() []float64 {
	return lr.coef_
}

// Intercept returns the fitted intercept.
func (lr *LogisticRegression) Intercept() float64 {
	return lr.intercept_
}

// NIter returns the number of gradient steps taken.
func (lr *LogisticRegression) NIter() int {
	return lr.nIter_
}

// GetParams returns the hyperparameters.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.c,
		"fit_intercept": lr.fitIntercept,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams updates hyperparameters from a map.
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "penalty":
			v, ok := value.(string)
			if !ok {
				return errors.NewValueError("SetParams", "penalty must be a string")
			}
			lr.penalty = v
		case "C":
			v, ok := value.(float64)
			if !ok {
				return errors.NewValueError("SetParams", "C must be a float64")
			}
			lr.c = v
		case "fit_intercept":
			v, ok := value.(bool)
			if !ok {
				return errors.NewValueError("SetParams", "fit_intercept must be a bool")
			}
			lr.fitIntercept = v
		case "max_iter":
			v, ok := value.(int)
			if !ok {
				return errors.NewValueError("SetParams", "max_iter must be an int")
			}
			lr.maxIter = v
		case "tol":
			v, ok := value.(float64)
			if !ok {
				return errors.NewValueError("SetParams", "tol must be a float64")
			}
			lr.tol = v
		default:
			return errors.NewValueError("SetParams", "unknown parameter: "+key)
		}
	}
	return nil
}

func sigmoid(z float64) float64 {
	if z > 500 {
		return 1
	}
	if z < -500 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
