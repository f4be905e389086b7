package log

// Standard attribute keys for analysis logging. Using a fixed vocabulary
// keeps run logs filterable across models and stages.
const (
	// ModelNameKey identifies the classifier type, e.g. "RandomForest".
	ModelNameKey = "model.name"

	// OperationKey names the operation: "fit", "predict", "sweep", "stack".
	OperationKey = "ml.operation"

	// SamplesKey is the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// PartitionKey distinguishes "train" from "test" metrics.
	PartitionKey = "data.partition"

	// AccuracyKey records classification accuracy in [0,1].
	AccuracyKey = "metrics.accuracy"

	// SensitivityKey records the true positive rate.
	SensitivityKey = "metrics.sensitivity"

	// SpecificityKey records the true negative rate.
	SpecificityKey = "metrics.specificity"

	// AUCKey records the area under the ROC curve.
	AUCKey = "metrics.auc"

	// ThresholdKey records a decision threshold under evaluation.
	ThresholdKey = "calibration.threshold"

	// DurationMsKey records elapsed wall time in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
