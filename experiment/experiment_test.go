package experiment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBankLikeCSV produces a small separable semicolon dataset in the shape
// of the bank marketing export: numeric and categorical features plus a
// yes/no target.
func writeBankLikeCSV(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("balance;age;contact;y\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%.1f;%d;cellular;yes\n", 50.0+float64(i%10), 30+i%5)
	}
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%.1f;%d;telephone;no\n", 5.0+float64(i%10), 30+i%5)
	}

	path := filepath.Join(t.TempDir(), "bank.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func smallRunConfig(path string) Config {
	cfg := DefaultConfig()
	cfg.Dataset.Path = path
	cfg.CV = CVConfig{Folds: 3, Repeats: 1}
	cfg.Models.DecisionTree.MinSamplesSplit = 2
	cfg.Models.DecisionTree.MinSamplesLeaf = 1
	cfg.Models.RandomForest = ForestConfig{NEstimators: 10, MaxDepth: 5, MinSamplesLeaf: 1}
	cfg.Models.GradientBoosting = GBMConfig{NEstimators: 15, LearningRate: 0.3, MaxDepth: 2, Subsample: 1.0}
	cfg.Models.LogisticRegression.MaxIter = 300
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := smallRunConfig(writeBankLikeCSV(t))

	report, err := Run(cfg)
	require.NoError(t, err)

	assert.Equal(t, 60, report.TrainRows)
	assert.Equal(t, 20, report.TestRows)
	// balance, age, and the two one-hot contact columns.
	assert.Len(t, report.FeatureNames, 4)
	assert.Contains(t, report.FeatureNames, "contact=cellular")

	require.Len(t, report.Models, 4)
	names := make([]string, 0, 4)
	for _, m := range report.Models {
		names = append(names, m.Name)

		assert.Greater(t, m.Threshold, 0.0, m.Name)
		assert.Less(t, m.Threshold, 1.0, m.Name)
		assert.NotEmpty(t, m.Sweep, m.Name)
		assert.NotNil(t, m.ROC, m.Name)

		// The data is cleanly separable, so every model should do well.
		assert.Greater(t, m.Test.Accuracy, 0.85, m.Name)
		assert.Greater(t, m.AUC, 0.9, m.Name)
	}
	assert.Equal(t, []string{
		ModelDecisionTree, ModelRandomForest, ModelGradientBoosting, ModelLogisticRegression,
	}, names)

	// With strong models nothing should be missed by everyone.
	assert.Equal(t, 10, report.Agreement.PositiveCount)
	assert.Less(t, report.Agreement.Fraction, 0.5)

	assert.Equal(t, []string{
		ModelDecisionTree, ModelGradientBoosting, ModelLogisticRegression,
	}, report.Stacking.Columns, "random forest excluded by default")
	assert.Greater(t, report.Stacking.Test.Accuracy, 0.5)
}

func TestRun_MultiByteDelimiter(t *testing.T) {
	var b strings.Builder
	b.WriteString("balance¦age¦contact¦y\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%.1f¦%d¦cellular¦yes\n", 50.0+float64(i%10), 30+i%5)
	}
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%.1f¦%d¦telephone¦no\n", 5.0+float64(i%10), 30+i%5)
	}
	path := filepath.Join(t.TempDir(), "bank.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	cfg := smallRunConfig(path)
	cfg.Dataset.Delimiter = "¦"

	report, err := Run(cfg)
	require.NoError(t, err)
	assert.Equal(t, 60, report.TrainRows)
	assert.Len(t, report.FeatureNames, 4)
}

func TestRun_UnknownRenameAborts(t *testing.T) {
	cfg := smallRunConfig(writeBankLikeCSV(t))
	cfg.Dataset.Rename = map[string]string{"no_such_column": "x"}

	_, err := Run(cfg)
	assert.Error(t, err)
}

func TestRun_UnknownDropAborts(t *testing.T) {
	cfg := smallRunConfig(writeBankLikeCSV(t))
	cfg.Dataset.Drop = []string{"no_such_column"}

	_, err := Run(cfg)
	assert.Error(t, err)
}

func TestRun_WritesROCPlot(t *testing.T) {
	cfg := smallRunConfig(writeBankLikeCSV(t))
	cfg.ROCPlotPath = filepath.Join(t.TempDir(), "roc.png")

	report, err := Run(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.ROCPlotPath, report.ROCPlotPath)

	info, err := os.Stat(cfg.ROCPlotPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
