package processor

import (
	"math"
	"testing"

	"DataPrep/src/dataset"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func loadFrame(t *testing.T, records [][]string) dataframe.DataFrame {
	t.Helper()
	df := dataframe.LoadRecords(records, dataframe.NaNValues(dataset.DefaultNaNValues))
	require.NoError(t, df.Err)
	return df
}

func loadDataset(t *testing.T, records [][]string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords(records, dataset.Provenance{Source: t.Name()})
	require.NoError(t, err)
	return ds
}

func splitState(t *testing.T, train, test [][]string) State {
	t.Helper()
	return State{Split: &Split{
		Target: "y",
		XTrain: loadFrame(t, train),
		XTest:  loadFrame(t, test),
	}}
}

func floats(t *testing.T, df dataframe.DataFrame, col string) []float64 {
	t.Helper()
	require.Contains(t, df.Names(), col)
	return df.Col(col).Float()
}

func TestHandleMissingMean(t *testing.T) {
	ds := loadDataset(t, [][]string{
		{"age", "city"},
		{"20", "NY"},
		{"22", ""},
		{"", "NY"},
		{"95", "LA"},
	})

	st, report, err := handleMissing(State{Dataset: ds}, DefaultOptions(), FillMean)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, []string{"age", "city"}, report.Columns)
	assert.Equal(t, 0, st.Dataset.TotalMissing())

	want := []float64{20, 22, (20.0 + 22 + 95) / 3, 95}
	if diff := cmp.Diff(want, floats(t, st.Dataset.Frame(), "age"), approx); diff != "" {
		t.Errorf("age mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"NY", "NY", "NY", "LA"}, st.Dataset.Frame().Col("city").Records())
	assert.Equal(t, 2, ds.TotalMissing(), "input snapshot untouched")
}

func TestHandleMissingMedian(t *testing.T) {
	ds := loadDataset(t, [][]string{
		{"x"},
		{"1"},
		{"2"},
		{"10"},
		{""},
	})

	st, _, err := handleMissing(State{Dataset: ds}, DefaultOptions(), FillMedian)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 10, 2}, floats(t, st.Dataset.Frame(), "x"))
}

func TestHandleMissingModeTieUsesFirstEncountered(t *testing.T) {
	ds := loadDataset(t, [][]string{
		{"c", "n"},
		{"b", "1"},
		{"a", "2"},
		{"a", "3"},
		{"b", "4"},
		{"", "5"},
	})

	st, _, err := handleMissing(State{Dataset: ds}, DefaultOptions(), FillMean)
	require.NoError(t, err)
	assert.Equal(t, "b", st.Dataset.Frame().Col("c").Records()[4])
}

func TestHandleMissingNothingToDo(t *testing.T) {
	ds := loadDataset(t, [][]string{{"x"}, {"1"}, {"2"}})

	st, report, err := handleMissing(State{Dataset: ds}, DefaultOptions(), FillMean)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, "No missing values found in the dataset.", report.Message)
	assert.Same(t, ds, st.Dataset)
}

func TestRemoveDuplicatesKeepsFirstAndIsIdempotent(t *testing.T) {
	ds := loadDataset(t, [][]string{
		{"id", "v"},
		{"1", "a"},
		{"2", "b"},
		{"1", "a"},
		{"3", "c"},
	})

	st, report, err := removeDuplicates(State{Dataset: ds}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, []string{"a", "b", "c"}, st.Dataset.Frame().Col("v").Records())

	again, report, err := removeDuplicates(st, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Removed)
	assert.True(t, st.Dataset.Equal(again.Dataset))
}

func TestSplitIndicesDeterministicAndDisjoint(t *testing.T) {
	train1, test1 := splitIndices(20, 0.2, 42)
	train2, test2 := splitIndices(20, 0.2, 42)
	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)
	assert.Len(t, test1, 4)
	assert.Len(t, train1, 16)

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train1...), test1...) {
		assert.False(t, seen[i], "row %d assigned twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 20)
}

func TestSplitPreconditions(t *testing.T) {
	only := loadDataset(t, [][]string{{"y"}, {"1"}, {"2"}})
	_, _, err := trainTestSplit(State{Dataset: only}, DefaultOptions(), "y")
	assert.True(t, IsPreconditionUnmet(err))

	single := loadDataset(t, [][]string{{"x", "y"}, {"1", "2"}})
	_, _, err = trainTestSplit(State{Dataset: single}, DefaultOptions(), "y")
	assert.True(t, IsPreconditionUnmet(err))

	_, _, err = trainTestSplit(State{Dataset: single}, DefaultOptions(), "nope")
	assert.True(t, IsColumnNotFound(err))
}

func TestLabelEncodingUnseenMapsToSentinel(t *testing.T) {
	st := splitState(t,
		[][]string{{"color", "n"}, {"red", "1"}, {"blue", "2"}, {"red", "3"}},
		[][]string{{"color", "n"}, {"green", "4"}, {"blue", "5"}},
	)

	next, report, err := encode(st, DefaultOptions(), LabelEncoding)
	require.NoError(t, err)
	assert.Equal(t, []string{"color"}, report.Columns)
	require.Len(t, report.Warnings, 1)

	trainCodes, err := next.Split.XTrain.Col("color").Int()
	require.NoError(t, err)
	testCodes, err := next.Split.XTest.Col("color").Int()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, trainCodes)
	assert.Equal(t, []int{-1, 0}, testCodes)

	enc, ok := next.Encoders["color"].(*LabelEncoder)
	require.True(t, ok)
	assert.Equal(t, []string{"blue", "red"}, enc.Classes)

	// 原状态不受影响
	assert.Equal(t, []string{"red", "blue", "red"}, st.Split.XTrain.Col("color").Records())
}

func TestOneHotEncodingUsesCombinedLevels(t *testing.T) {
	st := splitState(t,
		[][]string{{"color", "n"}, {"red", "1"}, {"blue", "2"}, {"red", "3"}},
		[][]string{{"color", "n"}, {"green", "4"}, {"blue", "5"}},
	)

	next, report, err := encode(st, DefaultOptions(), OneHotEncoding)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Warnings)

	want := []string{"n", "color_green", "color_red"}
	assert.Equal(t, want, next.Split.XTrain.Names())
	assert.Equal(t, want, next.Split.XTest.Names())
	assert.Equal(t, 3, next.Split.XTrain.Nrow())
	assert.Equal(t, 2, next.Split.XTest.Nrow())

	red, err := next.Split.XTrain.Col("color_red").Bool()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, red)
	green, err := next.Split.XTest.Col("color_green").Bool()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, green)

	enc := next.Encoders["color"].(*OneHotEncoder)
	assert.Equal(t, "blue", enc.Dropped)
	assert.Equal(t, []string{"color_green", "color_red"}, enc.OutputColumns())
}

func TestEncodeWithoutCategoricalColumnsIsInformational(t *testing.T) {
	st := splitState(t, [][]string{{"n"}, {"1"}, {"2"}}, [][]string{{"n"}, {"3"}})

	next, report, err := encode(st, DefaultOptions(), LabelEncoding)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, StatusInfo, report.Status)
	assert.True(t, IsEmptySelection(report.Reason))
	assert.Nil(t, next.Encoders)
}

func TestStandardScalerFitsOnTrainOnly(t *testing.T) {
	st := splitState(t,
		[][]string{{"x", "c"}, {"1", "a"}, {"2", "b"}, {"3", "a"}},
		[][]string{{"x", "c"}, {"4", "a"}},
	)

	next, report, err := scale(st, DefaultOptions(), StandardScaling)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, report.Columns)
	assert.Equal(t, "StandardScaler applied successfully.", report.Message)

	sd := math.Sqrt(2.0 / 3.0)
	wantTrain := []float64{-1 / sd, 0, 1 / sd}
	if diff := cmp.Diff(wantTrain, floats(t, next.Split.XTrain, "x"), approx); diff != "" {
		t.Errorf("train mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{2 / sd}, floats(t, next.Split.XTest, "x"), approx); diff != "" {
		t.Errorf("test mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"a", "b", "a"}, next.Split.XTrain.Col("c").Records())
	assert.Equal(t, StandardScaling, next.Scaler.Method())
}

func TestMinMaxScalerAllowsTestOutsideUnitRange(t *testing.T) {
	st := splitState(t,
		[][]string{{"x"}, {"10"}, {"20"}, {"30"}},
		[][]string{{"x"}, {"40"}, {"10"}},
	)

	next, _, err := scale(st, DefaultOptions(), MinMaxScaling)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, floats(t, next.Split.XTrain, "x"))
	assert.Equal(t, []float64{1.5, 0}, floats(t, next.Split.XTest, "x"))
}

func TestScaleConstantColumnUsesUnitScale(t *testing.T) {
	st := splitState(t, [][]string{{"x"}, {"5"}, {"5"}}, [][]string{{"x"}, {"7"}})

	next, _, err := scale(st, DefaultOptions(), StandardScaling)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, floats(t, next.Split.XTrain, "x"))
	assert.Equal(t, []float64{2}, floats(t, next.Split.XTest, "x"))
}

func TestScaleKeepsMissingValues(t *testing.T) {
	st := splitState(t, [][]string{{"x"}, {"1"}, {""}, {"3"}}, [][]string{{"x"}, {""}})

	next, _, err := scale(st, DefaultOptions(), MinMaxScaling)
	require.NoError(t, err)
	got := floats(t, next.Split.XTrain, "x")
	assert.Equal(t, 0.0, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.True(t, math.IsNaN(floats(t, next.Split.XTest, "x")[0]))
}

func TestClipOutliersUsesTrainBounds(t *testing.T) {
	st := splitState(t,
		[][]string{{"x"}, {"1"}, {"2"}, {"3"}, {"4"}, {"100"}},
		[][]string{{"x"}, {"50"}, {"-10"}},
	)

	next, report, err := clipOutliers(st, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Bounds{Lower: -1, Upper: 7}, next.ClipBounds["x"])
	assert.Equal(t, []float64{1, 2, 3, 4, 7}, floats(t, next.Split.XTrain, "x"))
	assert.Equal(t, []float64{7, -1}, floats(t, next.Split.XTest, "x"))
	assert.Equal(t, 3, report.Clipped["x"])
}

func TestClipOutliersRerunNeverWidens(t *testing.T) {
	st := splitState(t,
		[][]string{{"x"}, {"0"}, {"1"}, {"2"}, {"100"}},
		[][]string{{"x"}, {"3"}},
	)

	first, _, err := clipOutliers(st, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 65.125, floats(t, first.Split.XTrain, "x")[3], 1e-9)

	second, _, err := clipOutliers(first, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 43.328125, floats(t, second.Split.XTrain, "x")[3], 1e-9)
	assert.LessOrEqual(t, second.ClipBounds["x"].Upper, first.ClipBounds["x"].Upper)

	opts := DefaultOptions()
	opts.FreezeClipBounds = true
	frozen, _, err := clipOutliers(first, opts)
	require.NoError(t, err)
	assert.InDelta(t, 65.125, floats(t, frozen.Split.XTrain, "x")[3], 1e-9)
	assert.Equal(t, first.ClipBounds["x"], frozen.ClipBounds["x"])
}

func TestStepsRequireSplit(t *testing.T) {
	ds := loadDataset(t, [][]string{{"x", "y"}, {"1", "2"}})
	st := State{Dataset: ds}

	_, _, err := encode(st, DefaultOptions(), LabelEncoding)
	assert.True(t, IsPreconditionUnmet(err))
	_, _, err = scale(st, DefaultOptions(), StandardScaling)
	assert.True(t, IsPreconditionUnmet(err))
	_, _, err = clipOutliers(st, DefaultOptions())
	assert.True(t, IsPreconditionUnmet(err))
}

func TestQuantileLinearInterpolation(t *testing.T) {
	xs := []float64{4, 1, 3, 2}
	assert.Equal(t, 1.75, quantile(xs, 0.25))
	assert.Equal(t, 2.5, quantile(xs, 0.5))
	assert.Equal(t, 3.25, quantile(xs, 0.75))
	assert.Equal(t, 4.0, quantile(xs, 1))
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.25))
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
	assert.Equal(t, []float64{4, 1, 3, 2}, xs, "input not reordered")
}
