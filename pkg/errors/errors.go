// Package errors provides the error and warning types used across bankmark.
// Errors carry stack traces via cockroachdb/errors and marshal themselves as
// structured zerolog objects. Every failure in an analysis run is fatal:
// there is no retry layer, the caller fixes the input and reruns.
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Warning handling
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("bankmark-warning: %v\n", w)
	}
)

// SetWarningHandler replaces the process-wide warning handler. Passing a
// no-op handler silences warnings such as ConvergenceWarning.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// Warn dispatches a warning to the configured handler.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// ConvergenceWarning is raised when an iterative solver stops at its
// iteration cap without meeting its tolerance.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a new ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// UndefinedMetricWarning is raised when a metric is ill-defined for the
// given input, e.g. sensitivity with no positive examples. The metric
// returns Result instead of failing.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotFittedError is returned when Predict or Transform is called on a model
// that has not been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("bankmark: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DataShapeError reports input whose shape or schema does not match what an
// operation requires: ragged CSV rows, a wrong column count, mismatched
// vector lengths, or a column name absent from the table schema.
type DataShapeError struct {
	Op       string
	Detail   string
	Expected int
	Got      int
}

func (e *DataShapeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("bankmark: %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("bankmark: %s: shape mismatch. Expected %d, got %d", e.Op, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DataShapeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("detail", e.Detail).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("type", "DataShapeError")
}

// NewDataShapeError creates a DataShapeError for a size mismatch.
func NewDataShapeError(op string, expected, got int) error {
	err := &DataShapeError{Op: op, Expected: expected, Got: got}
	return errors.WithStack(err)
}

// NewDataShapeErrorf creates a DataShapeError with a formatted detail.
func NewDataShapeErrorf(op, format string, args ...interface{}) error {
	err := &DataShapeError{Op: op, Detail: fmt.Sprintf(format, args...)}
	return errors.WithStack(err)
}

// InvalidLabelCardinalityError reports a label column whose domain is not
// exactly two values. Threshold calibration and the binary classifiers
// require a two-value label domain.
type InvalidLabelCardinalityError struct {
	Op     string
	Labels []string
}

func (e *InvalidLabelCardinalityError) Error() string {
	return fmt.Sprintf("bankmark: %s: label domain must contain exactly 2 values, got %d (%v)", e.Op, len(e.Labels), e.Labels)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *InvalidLabelCardinalityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("cardinality", len(e.Labels)).
		Strs("labels", e.Labels).
		Str("type", "InvalidLabelCardinalityError")
}

// NewInvalidLabelCardinalityError creates an InvalidLabelCardinalityError
// with a stack trace.
func NewInvalidLabelCardinalityError(op string, labels []string) error {
	err := &InvalidLabelCardinalityError{Op: op, Labels: labels}
	return errors.WithStack(err)
}

// NewInvalidLabelCardinalityErrorFloats is the numeric-label variant used
// by classifiers operating on encoded labels.
func NewInvalidLabelCardinalityErrorFloats(op string, labels []float64) error {
	strs := make([]string, len(labels))
	for i, v := range labels {
		strs[i] = fmt.Sprintf("%g", v)
	}
	return NewInvalidLabelCardinalityError(op, strs)
}

// EmptyCandidateSetError reports a threshold sweep invoked without any
// candidate thresholds.
type EmptyCandidateSetError struct {
	Op string
}

func (e *EmptyCandidateSetError) Error() string {
	return fmt.Sprintf("bankmark: %s: no threshold candidates supplied", e.Op)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *EmptyCandidateSetError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("type", "EmptyCandidateSetError")
}

// NewEmptyCandidateSetError creates an EmptyCandidateSetError with a stack
// trace.
func NewEmptyCandidateSetError(op string) error {
	err := &EmptyCandidateSetError{Op: op}
	return errors.WithStack(err)
}

// ColumnMismatchError reports a prediction matrix whose model columns do
// not match the columns seen at fit time. Predictions are never produced
// from substituted or reordered columns.
type ColumnMismatchError struct {
	Op   string
	Want []string
	Got  []string
}

func (e *ColumnMismatchError) Error() string {
	return fmt.Sprintf("bankmark: %s: prediction matrix columns [%s] do not match fit-time columns [%s]",
		e.Op, strings.Join(e.Got, ", "), strings.Join(e.Want, ", "))
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ColumnMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Strs("want", e.Want).
		Strs("got", e.Got).
		Str("type", "ColumnMismatchError")
}

// NewColumnMismatchError creates a ColumnMismatchError with a stack trace.
func NewColumnMismatchError(op string, want, got []string) error {
	err := &ColumnMismatchError{Op: op, Want: want, Got: got}
	return errors.WithStack(err)
}

// ValueError reports an argument whose value is invalid for the operation.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("bankmark: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common error variables
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an operation receives no rows.
	ErrEmptyData = New("empty data")
)
