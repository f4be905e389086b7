// Package model_selection provides data partitioning for model evaluation:
// train/test splitting and (repeated, stratified) k-fold cross-validation.
package model_selection

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// CVFold holds the train/test row indices of a single fold.
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// Splitter generates cross-validation folds from the label vector.
type Splitter interface {
	Split(y mat.Matrix) ([]CVFold, error)
	GetNSplits() int
}

// KFold splits rows into k contiguous folds, optionally shuffled.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewKFold creates a k-fold splitter. nSplits below 2 falls back to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed int64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of folds.
func (kf *KFold) GetNSplits() int { return kf.NSplits }

// Split generates train/test indices for each fold. Only the row count of y
// is used.
func (kf *KFold) Split(y mat.Matrix) ([]CVFold, error) {
	n, _ := y.Dims()
	if n < kf.NSplits {
		return nil, errors.NewValueError("KFold.Split", "fewer samples than folds")
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	}

	folds := make([]CVFold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		test := make([]int, testSize)
		copy(test, indices[current:current+testSize])

		train := make([]int, 0, n-testSize)
		train = append(train, indices[:current]...)
		train = append(train, indices[current+testSize:]...)

		folds[i] = CVFold{TrainIndices: train, TestIndices: test}
		current += testSize
	}
	return folds, nil
}

// StratifiedKFold splits rows into k folds preserving per-class proportions.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewStratifiedKFold creates a stratified k-fold splitter. nSplits below 2
// falls back to 5.
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of folds.
func (skf *StratifiedKFold) GetNSplits() int { return skf.NSplits }

// Split generates stratified train/test indices. Every class in y must have
// at least NSplits members so each fold sees every class.
func (skf *StratifiedKFold) Split(y mat.Matrix) ([]CVFold, error) {
	n, _ := y.Dims()

	classIndices := make(map[float64][]int)
	var classOrder []float64
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		if _, ok := classIndices[label]; !ok {
			classOrder = append(classOrder, label)
		}
		classIndices[label] = append(classIndices[label], i)
	}
	for _, label := range classOrder {
		if len(classIndices[label]) < skf.NSplits {
			return nil, errors.NewValueError("StratifiedKFold.Split",
				"a class has fewer members than the number of folds")
		}
	}

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(skf.RandomSeed), uint64(skf.RandomSeed)))
		for _, label := range classOrder {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	folds := make([]CVFold, skf.NSplits)

	// Deal each class round-robin style so fold sizes differ by at most one
	// per class.
	for _, label := range classOrder {
		indices := classIndices[label]
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		current := 0
		for i := 0; i < skf.NSplits; i++ {
			testSize := foldSize
			if i < remainder {
				testSize++
			}
			folds[i].TestIndices = append(folds[i].TestIndices, indices[current:current+testSize]...)
			current += testSize
		}
	}

	for i := range folds {
		testSet := make(map[int]struct{}, len(folds[i].TestIndices))
		for _, idx := range folds[i].TestIndices {
			testSet[idx] = struct{}{}
		}
		train := make([]int, 0, n-len(folds[i].TestIndices))
		for j := 0; j < n; j++ {
			if _, isTest := testSet[j]; !isTest {
				train = append(train, j)
			}
		}
		folds[i].TrainIndices = train
	}
	return folds, nil
}

// RepeatedStratifiedKFold runs stratified k-fold NRepeats times with a
// different shuffle per repeat, yielding NSplits*NRepeats folds.
type RepeatedStratifiedKFold struct {
	NSplits    int
	NRepeats   int
	RandomSeed int64
}

// NewRepeatedStratifiedKFold creates a repeated stratified splitter.
// nSplits below 2 falls back to 5, nRepeats below 1 to 1.
func NewRepeatedStratifiedKFold(nSplits, nRepeats int, randomSeed int64) *RepeatedStratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	if nRepeats < 1 {
		nRepeats = 1
	}
	return &RepeatedStratifiedKFold{NSplits: nSplits, NRepeats: nRepeats, RandomSeed: randomSeed}
}

// GetNSplits returns the total number of folds over all repeats.
func (rskf *RepeatedStratifiedKFold) GetNSplits() int {
	return rskf.NSplits * rskf.NRepeats
}

// Split concatenates the folds of NRepeats independent stratified splits.
// Repeat r is seeded with RandomSeed+r so runs reproduce exactly.
func (rskf *RepeatedStratifiedKFold) Split(y mat.Matrix) ([]CVFold, error) {
	folds := make([]CVFold, 0, rskf.GetNSplits())
	for r := 0; r < rskf.NRepeats; r++ {
		skf := NewStratifiedKFold(rskf.NSplits, true, rskf.RandomSeed+int64(r))
		part, err := skf.Split(y)
		if err != nil {
			return nil, err
		}
		folds = append(folds, part...)
	}
	return folds, nil
}

// TrainTestSplit partitions X and y into stratified train and test sets.
// testFraction outside (0,1) falls back to 0.25. Per class, the test share
// is rounded to the nearest row but kept within [1, classSize-1].
func TrainTestSplit(X, y mat.Matrix, testFraction float64, randomSeed int64) (XTrain, XTest *mat.Dense, yTrain, yTest *mat.VecDense, err error) {
	n, _ := X.Dims()
	yr, _ := y.Dims()
	if yr != n {
		return nil, nil, nil, nil, errors.NewDataShapeError("TrainTestSplit", n, yr)
	}
	if testFraction <= 0 || testFraction >= 1 {
		testFraction = 0.25
	}

	classIndices := make(map[float64][]int)
	var classOrder []float64
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		if _, ok := classIndices[label]; !ok {
			classOrder = append(classOrder, label)
		}
		classIndices[label] = append(classIndices[label], i)
	}

	r := rand.New(rand.NewPCG(uint64(randomSeed), uint64(randomSeed)))
	var trainIdx, testIdx []int
	for _, label := range classOrder {
		indices := classIndices[label]
		nClass := len(indices)
		if nClass < 2 {
			return nil, nil, nil, nil, errors.NewValueError("TrainTestSplit",
				"a class needs at least two members to appear in both partitions")
		}
		r.Shuffle(nClass, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })

		nTest := int(math.Round(testFraction * float64(nClass)))
		if nTest < 1 {
			nTest = 1
		}
		if nTest > nClass-1 {
			nTest = nClass - 1
		}
		testIdx = append(testIdx, indices[:nTest]...)
		trainIdx = append(trainIdx, indices[nTest:]...)
	}

	XTrain = SubsetMatrix(X, trainIdx)
	XTest = SubsetMatrix(X, testIdx)
	yTrain = SubsetLabels(y, trainIdx)
	yTest = SubsetLabels(y, testIdx)
	return XTrain, XTest, yTrain, yTest, nil
}

// SubsetMatrix copies the selected rows of X into a new dense matrix.
func SubsetMatrix(X mat.Matrix, indices []int) *mat.Dense {
	_, p := X.Dims()
	out := mat.NewDense(len(indices), p, nil)
	for row, idx := range indices {
		for j := 0; j < p; j++ {
			out.Set(row, j, X.At(idx, j))
		}
	}
	return out
}

// SubsetLabels copies the selected rows of the label column into a vector.
func SubsetLabels(y mat.Matrix, indices []int) *mat.VecDense {
	out := mat.NewVecDense(len(indices), nil)
	for row, idx := range indices {
		out.SetVec(row, y.At(idx, 0))
	}
	return out
}
