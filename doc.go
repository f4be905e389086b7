// Package bankmark compares binary classifiers on the bank term-deposit
// marketing dataset: decision tree, random forest, gradient boosting, and
// logistic regression, each with a cross-validated decision threshold
// instead of the default 0.5 cut.
//
// The library answers three questions about a model set:
//
//   - Which decision threshold puts each model closest to the ideal corner
//     of the ROC plane (sensitivity = specificity = 1)?
//   - Which positive cases does every model miss at once (missed-by-all
//     agreement)?
//   - Does a decision tree stacked on the models' predictions beat the
//     individual models?
//
// # Quick Start
//
// Run the full analysis from a semicolon-delimited CSV export:
//
//	cfg := experiment.DefaultConfig()
//	cfg.Dataset.Path = "bank-full.csv"
//	report, err := experiment.Run(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, m := range report.Models {
//	    fmt.Printf("%s: threshold %.2f, test accuracy %.3f, AUC %.3f\n",
//	        m.Name, m.Threshold, m.Test.Accuracy, m.AUC)
//	}
//
// Or calibrate a single model directly:
//
//	factory := func() model.Classifier {
//	    return ensemble.NewRandomForestClassifier(
//	        ensemble.WithForestEstimators(200),
//	    )
//	}
//	tc := calibration.NewThresholdClassifier(factory,
//	    calibration.WithCandidateRange(0.05, 0.50, 0.01),
//	)
//	if err := tc.Fit(XTrain, yTrain); err != nil {
//	    log.Fatal(err)
//	}
//	preds, err := tc.Predict(XTest)
//
// # Packages
//
//   - dataset: semicolon-CSV loading into a typed, name-addressed table
//   - preprocessing: one-hot encoding, label encoding, standard scaling
//   - sklearn/tree, sklearn/ensemble, sklearn/linear_model: base models
//   - sklearn/model_selection: stratified splits and repeated k-fold CV
//   - sklearn/calibration: the threshold sweep
//   - metrics: confusion-matrix scores, ROC, AUC, distance to ideal
//   - experiment: YAML-configured end-to-end runs
package bankmark
