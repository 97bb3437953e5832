package processor

import (
	"fmt"

	"DataPrep/src/dataset"

	"github.com/go-gota/gota/series"
)

// handleMissing 数值列按均值/中位数填充，类别列与布尔列按众数填充
func handleMissing(st State, _ Options, strategy FillStrategy) (State, *Report, error) {
	df := st.Dataset.Frame()

	// 1. 统计缺失
	var missing []dataset.ColumnCount
	for _, c := range dataset.MissingCounts(df) {
		if c.Count > 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return st, &Report{
			Step:    StepMissingValues,
			Status:  StatusSuccess,
			Message: "No missing values found in the dataset.",
			Method:  strategy.String(),
		}, nil
	}

	// 2. 逐列计算填充值（只用该列非缺失值）
	report := &Report{
		Step:          StepMissingValues,
		Status:        StatusSuccess,
		Message:       "Missing values handled successfully.",
		Method:        strategy.String(),
		MissingCounts: missing,
	}
	for _, c := range missing {
		col := df.Col(c.Column)
		var filled series.Series
		var ok bool
		if dataset.KindOf(col.Type()) == dataset.KindNumeric {
			filled, ok = fillNumeric(col, strategy)
		} else {
			filled, ok = fillMostFrequent(col)
		}
		if !ok {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("column %q has no observed values, left unchanged", c.Column))
			continue
		}
		df = df.Mutate(filled)
		if df.Err != nil {
			return st, nil, fmt.Errorf("fill column %s: %w", c.Column, df.Err)
		}
		report.Columns = append(report.Columns, c.Column)
	}

	// 3. 提交新数据集
	next, err := st.Dataset.WithFrame(df)
	if err != nil {
		return st, nil, err
	}
	st.Dataset = next
	return st, report, nil
}

func fillNumeric(col series.Series, strategy FillStrategy) (series.Series, bool) {
	xs := observed(col)
	if len(xs) == 0 {
		return col, false
	}
	fill := mean(xs)
	if strategy == FillMedian {
		fill = median(xs)
	}
	values := make([]float64, col.Len())
	for i := range values {
		e := col.Elem(i)
		if e.IsNA() {
			values[i] = fill
			continue
		}
		values[i] = e.Float()
	}
	return series.New(values, series.Float, col.Name), true
}

func fillMostFrequent(col series.Series) (series.Series, bool) {
	m, ok := mode(col)
	if !ok {
		return col, false
	}
	values := col.Records()
	for i := range values {
		if col.Elem(i).IsNA() {
			values[i] = m
		}
	}
	return series.New(values, col.Type(), col.Name), true
}
