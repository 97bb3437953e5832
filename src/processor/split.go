package processor

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// splitIndices 按种子打乱行号，前 ceil(testSize*n) 个进入测试集，两部分各自保持升序
func splitIndices(n int, testSize float64, seed int64) (train, test []int) {
	nTest := int(math.Ceil(testSize * float64(n)))
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	sort.Ints(test)
	sort.Ints(train)
	return train, test
}

// trainTestSplit 以 target 为标签列，其余列为特征，按比例划分
func trainTestSplit(st State, opts Options, target string) (State, *Report, error) {
	ds := st.Dataset
	if !ds.HasColumn(target) {
		return st, nil, ErrColumnNotFound(StepSplit, target)
	}
	if ds.Shape().Cols < 2 {
		return st, nil, newStepError(CodePreconditionUnmet, StepSplit, "dataset has no feature columns besides the target")
	}
	n := ds.Nrow()
	nTest := int(math.Ceil(opts.TestSize * float64(n)))
	if n < 2 || nTest < 1 || n-nTest < 1 {
		return st, nil, newStepError(CodePreconditionUnmet, StepSplit,
			fmt.Sprintf("cannot split %d rows with test size %.2f", n, opts.TestSize))
	}

	train, test := splitIndices(n, opts.TestSize, opts.Seed)

	df := ds.Frame()
	x := df.Drop(target)
	if x.Err != nil {
		return st, nil, fmt.Errorf("drop target: %w", x.Err)
	}
	y := df.Col(target)

	sp := &Split{
		Target: target,
		XTrain: x.Subset(train),
		XTest:  x.Subset(test),
		YTrain: y.Subset(train),
		YTest:  y.Subset(test),
	}
	for _, err := range []error{sp.XTrain.Err, sp.XTest.Err, sp.YTrain.Err, sp.YTest.Err} {
		if err != nil {
			return st, nil, fmt.Errorf("subset rows: %w", err)
		}
	}

	trainShape, testShape := sp.TrainShape(), sp.TestShape()
	return st.withSplit(sp), &Report{
		Step:       StepSplit,
		Status:     StatusSuccess,
		Message:    "Train-test split completed.",
		Columns:    []string{target},
		TrainShape: &trainShape,
		TestShape:  &testShape,
	}, nil
}
