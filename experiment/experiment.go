package experiment

import (
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/core/model"
	"github.com/YuminosukeSato/bankmark/dataset"
	"github.com/YuminosukeSato/bankmark/metrics"
	"github.com/YuminosukeSato/bankmark/pkg/errors"
	"github.com/YuminosukeSato/bankmark/pkg/log"
	"github.com/YuminosukeSato/bankmark/preprocessing"
	"github.com/YuminosukeSato/bankmark/sklearn/calibration"
	"github.com/YuminosukeSato/bankmark/sklearn/ensemble"
	"github.com/YuminosukeSato/bankmark/sklearn/linear_model"
	"github.com/YuminosukeSato/bankmark/sklearn/model_selection"
	"github.com/YuminosukeSato/bankmark/sklearn/tree"
)

// PartitionMetrics is the confusion-derived score set of one model on one
// partition.
type PartitionMetrics struct {
	Confusion   *metrics.ConfusionMatrix
	Accuracy    float64
	Sensitivity float64
	Specificity float64
	Precision   float64
	Distance    float64
}

// FeatureImportance pairs a feature name with its normalized importance.
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// ModelResult is the full evaluation of one threshold-calibrated model.
type ModelResult struct {
	Name      string
	Threshold float64
	Sweep     []calibration.CandidateScore
	Train     PartitionMetrics
	Test      PartitionMetrics
	AUC       float64
	ROC       *metrics.ROC
	// Importances is ranked descending; nil for models that do not expose
	// importances.
	Importances []FeatureImportance
}

// StackingResult is the evaluation of the meta tree on the test partition.
type StackingResult struct {
	Columns     []string
	Test        PartitionMetrics
	Importances []FeatureImportance
}

// Report is the outcome of a full analysis run.
type Report struct {
	FeatureNames []string
	TrainRows    int
	TestRows     int
	Models       []ModelResult
	Agreement    ensemble.MissReport
	Stacking     StackingResult
	ROCPlotPath  string
}

type namedFactory struct {
	name    string
	factory model.ClassifierFactory
}

// Run executes the configured analysis end to end. Any model training or
// evaluation failure aborts the run; no model is silently dropped.
func Run(cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()

	delim, _ := utf8.DecodeRuneInString(cfg.Dataset.Delimiter)
	table, err := dataset.ReadCSVFile(cfg.Dataset.Path, dataset.WithComma(delim))
	if err != nil {
		return nil, err
	}
	if len(cfg.Dataset.Rename) > 0 {
		if err := table.Rename(cfg.Dataset.Rename); err != nil {
			return nil, err
		}
	}
	if len(cfg.Dataset.Drop) > 0 {
		if err := table.Drop(cfg.Dataset.Drop...); err != nil {
			return nil, err
		}
	}

	X, y, featureNames, err := table.Features(cfg.Dataset.Target, cfg.Dataset.Positive)
	if err != nil {
		return nil, err
	}
	slog.Info("dataset loaded",
		log.SamplesKey, table.NumRows(),
		log.FeaturesKey, len(featureNames))

	XTrainRaw, XTestRaw, yTrain, yTest, err := model_selection.TrainTestSplit(X, y, cfg.Split.TestFraction, cfg.Split.RandomSeed)
	if err != nil {
		return nil, err
	}

	scaler := preprocessing.NewStandardScaler()
	XTrain, err := scaler.FitTransform(XTrainRaw)
	if err != nil {
		return nil, err
	}
	XTest, err := scaler.Transform(XTestRaw)
	if err != nil {
		return nil, err
	}

	report := &Report{
		FeatureNames: featureNames,
		TrainRows:    yTrain.Len(),
		TestRows:     yTest.Len(),
		ROCPlotPath:  cfg.ROCPlotPath,
	}

	trainPM := ensemble.NewPredictionMatrix(yTrain)
	testPM := ensemble.NewPredictionMatrix(yTest)
	curves := make(map[string]*metrics.ROC)

	for _, nf := range cfg.factories() {
		modelStart := time.Now()

		tc := calibration.NewThresholdClassifier(nf.factory,
			calibration.WithCandidateRange(cfg.Threshold.Min, cfg.Threshold.Max, cfg.Threshold.Step),
			calibration.WithCVSplits(cfg.CV.Folds),
			calibration.WithCVRepeats(cfg.CV.Repeats),
			calibration.WithThresholdRandomState(cfg.Split.RandomSeed),
		)
		if err := tc.Fit(XTrain, yTrain); err != nil {
			return nil, errors.Wrapf(err, "training %s", nf.name)
		}

		trainPreds, err := tc.Predict(XTrain)
		if err != nil {
			return nil, errors.Wrapf(err, "predicting %s on train", nf.name)
		}
		testPreds, err := tc.Predict(XTest)
		if err != nil {
			return nil, errors.Wrapf(err, "predicting %s on test", nf.name)
		}

		result := ModelResult{
			Name:      nf.name,
			Threshold: tc.Threshold(),
			Sweep:     tc.Sweep(),
		}
		if result.Train, err = partitionMetrics(yTrain, trainPreds); err != nil {
			return nil, err
		}
		if result.Test, err = partitionMetrics(yTest, testPreds); err != nil {
			return nil, err
		}

		scores, err := positiveColumn(tc, XTest)
		if err != nil {
			return nil, errors.Wrapf(err, "scoring %s on test", nf.name)
		}
		if result.ROC, err = metrics.ROCCurve(yTest, scores); err != nil {
			return nil, errors.Wrapf(err, "roc for %s", nf.name)
		}
		if result.AUC, err = metrics.AUC(yTest, scores); err != nil {
			return nil, errors.Wrapf(err, "auc for %s", nf.name)
		}
		curves[nf.name] = result.ROC

		if imp, ok := tc.Base().(interface{ GetFeatureImportances() []float64 }); ok {
			result.Importances = rankImportances(featureNames, imp.GetFeatureImportances())
		}

		if err := trainPM.AddModel(nf.name, trainPreds); err != nil {
			return nil, err
		}
		if err := testPM.AddModel(nf.name, testPreds); err != nil {
			return nil, err
		}

		slog.Info("model evaluated",
			log.ModelNameKey, nf.name,
			log.ThresholdKey, result.Threshold,
			log.AccuracyKey, result.Test.Accuracy,
			log.SensitivityKey, result.Test.Sensitivity,
			log.SpecificityKey, result.Test.Specificity,
			log.AUCKey, result.AUC,
			log.DurationMsKey, time.Since(modelStart).Milliseconds())

		report.Models = append(report.Models, result)
	}

	report.Agreement, err = ensemble.MissedByAll(testPM, 1)
	if err != nil {
		return nil, err
	}

	stack := ensemble.NewStackingClassifier(
		ensemble.WithStackingExclude(cfg.Stacking.Exclude...),
		ensemble.WithStackingTreeOptions(tree.WithMaxDepth(cfg.Stacking.MaxDepth)),
	)
	if err := stack.Fit(trainPM); err != nil {
		return nil, errors.Wrap(err, "training stacked model")
	}
	stackPreds, err := stack.Predict(testPM)
	if err != nil {
		return nil, errors.Wrap(err, "predicting stacked model")
	}
	report.Stacking.Columns = stack.FeatureColumns()
	if report.Stacking.Test, err = partitionMetrics(yTest, stackPreds); err != nil {
		return nil, err
	}
	report.Stacking.Importances = rankImportances(stack.FeatureColumns(), stack.FeatureImportances())

	if cfg.ROCPlotPath != "" {
		if err := metrics.SaveROCPlot(cfg.ROCPlotPath, curves); err != nil {
			return nil, errors.Wrap(err, "writing roc plot")
		}
	}

	slog.Info("analysis finished",
		log.OperationKey, "experiment.Run",
		"missed_by_all", report.Agreement.Fraction,
		log.DurationMsKey, time.Since(started).Milliseconds())

	return report, nil
}

// factories returns the base-model constructors in their fixed comparison
// order. Each call of a factory builds a fresh unfitted model.
func (c Config) factories() []namedFactory {
	seed := c.Split.RandomSeed
	return []namedFactory{
		{ModelDecisionTree, func() model.Classifier {
			return tree.NewDecisionTreeClassifier(
				tree.WithCriterion(c.Models.DecisionTree.Criterion),
				tree.WithMaxDepth(c.Models.DecisionTree.MaxDepth),
				tree.WithMinSamplesSplit(c.Models.DecisionTree.MinSamplesSplit),
				tree.WithMinSamplesLeaf(c.Models.DecisionTree.MinSamplesLeaf),
				tree.WithRandomState(seed),
			)
		}},
		{ModelRandomForest, func() model.Classifier {
			return ensemble.NewRandomForestClassifier(
				ensemble.WithForestEstimators(c.Models.RandomForest.NEstimators),
				ensemble.WithForestMaxDepth(c.Models.RandomForest.MaxDepth),
				ensemble.WithForestMinSamplesLeaf(c.Models.RandomForest.MinSamplesLeaf),
				ensemble.WithForestRandomState(seed),
			)
		}},
		{ModelGradientBoosting, func() model.Classifier {
			return ensemble.NewGradientBoostingClassifier(
				ensemble.WithGBMEstimators(c.Models.GradientBoosting.NEstimators),
				ensemble.WithGBMLearningRate(c.Models.GradientBoosting.LearningRate),
				ensemble.WithGBMMaxDepth(c.Models.GradientBoosting.MaxDepth),
				ensemble.WithGBMSubsample(c.Models.GradientBoosting.Subsample),
				ensemble.WithGBMRandomState(seed),
			)
		}},
		{ModelLogisticRegression, func() model.Classifier {
			return linear_model.NewLogisticRegression(
				linear_model.WithLRC(c.Models.LogisticRegression.C),
				linear_model.WithLRMaxIter(c.Models.LogisticRegression.MaxIter),
				linear_model.WithLRTol(c.Models.LogisticRegression.Tol),
			)
		}},
	}
}

func partitionMetrics(yTrue *mat.VecDense, preds mat.Matrix) (PartitionMetrics, error) {
	n, _ := preds.Dims()
	predVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		predVec.SetVec(i, preds.At(i, 0))
	}

	cm, err := metrics.NewConfusionMatrix(yTrue, predVec, 1)
	if err != nil {
		return PartitionMetrics{}, err
	}
	return PartitionMetrics{
		Confusion:   cm,
		Accuracy:    cm.Accuracy(),
		Sensitivity: cm.Sensitivity(),
		Specificity: cm.Specificity(),
		Precision:   cm.Precision(),
		Distance:    cm.DistanceToIdeal(),
	}, nil
}

// positiveColumn extracts the positive-class probability of each row as a
// vector.
func positiveColumn(tc *calibration.ThresholdClassifier, X mat.Matrix) (*mat.VecDense, error) {
	probas, err := tc.PredictProba(X)
	if err != nil {
		return nil, err
	}

	col := 1
	for j, class := range tc.Classes() {
		if class == 1 {
			col = j
		}
	}
	n, _ := probas.Dims()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, probas.At(i, col))
	}
	return out, nil
}

func rankImportances(names []string, importances []float64) []FeatureImportance {
	if len(importances) == 0 || len(importances) != len(names) {
		return nil
	}
	out := make([]FeatureImportance, len(names))
	for i, name := range names {
		out[i] = FeatureImportance{Feature: name, Importance: importances[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}
